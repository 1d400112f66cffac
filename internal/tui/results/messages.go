package results

// PageMsg asks the app to load the page of Table starting at Offset.
type PageMsg struct {
	Table  string
	Offset int
	Limit  int
}

// SetEditorQueryMsg tells the app to put a query in the editor pane.
type SetEditorQueryMsg struct {
	Query string
}

// StatusNotifyMsg tells the app to show a message in the status bar.
type StatusNotifyMsg struct {
	Message string
}
