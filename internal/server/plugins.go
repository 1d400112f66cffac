package server

// Plugin describes a front-end plugin the API knows about.
type Plugin struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Icon        string `json:"icon"`
	Version     string `json:"version"`
}

var plugins = []Plugin{
	{
		ID:          "example",
		Name:        "Example Plugin",
		Description: "A simple example plugin to demonstrate the plugin system",
		Category:    "Utilities",
		Icon:        "🔧",
		Version:     "1.0.0",
	},
	{
		ID:          "database-admin",
		Name:        "Database Admin",
		Description: "Administrate your database: create tables, manage columns, and edit data",
		Category:    "Database",
		Icon:        "🗄️",
		Version:     "1.0.0",
	},
}

// Plugins returns a copy of the plugin registry.
func Plugins() []Plugin {
	out := make([]Plugin, len(plugins))
	copy(out, plugins)
	return out
}

// PluginByID looks a plugin up by id.
func PluginByID(id string) (Plugin, bool) {
	for _, p := range plugins {
		if p.ID == id {
			return p, true
		}
	}
	return Plugin{}, false
}
