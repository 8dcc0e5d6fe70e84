package store

func DefaultPreferences() map[string]any {
	return map[string]any{
		"theme":             "light",
		"auto_save":         true,
		"ai_suggestions":    true,
		"grid_visible":      false,
		"snap_to_grid":      true,
		"default_font":      "Arial",
		"default_font_size": 16,
		"default_colors": map[string]any{
			"text":       "#333333",
			"background": "#FFFFFF",
			"accent":     "#1976D2",
		},
		"shortcuts": map[string]any{
			"save":  "Ctrl+S",
			"undo":  "Ctrl+Z",
			"redo":  "Ctrl+Y",
			"copy":  "Ctrl+C",
			"paste": "Ctrl+V",
		},
	}
}
