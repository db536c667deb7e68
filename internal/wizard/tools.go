package wizard

// The wizard exposes a fixed, closed set of tools to the model. The schemas
// below are the OpenAI function format; names and parameters must stay in
// lockstep with the executor's decode layer.

func toolDef(name, description string, params map[string]any, required []string) map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        name,
			"description": description,
			"parameters": map[string]any{
				"type":       "object",
				"properties": params,
				"required":   required,
			},
		},
	}
}

var weekStartParam = map[string]any{
	"type":        "string",
	"description": "Week start date (YYYY-MM-DD). Must be a Monday.",
}

// ToolSchemas returns the tool definitions sent with every wizard request.
func ToolSchemas() []map[string]any {
	return []map[string]any{
		toolDef("add_allocation",
			"Allocate hours for a user on a project for one week. If an allocation already exists for that user, project and week, the hours are added to it.",
			map[string]any{
				"user_id":    map[string]any{"type": "string", "description": "User ID from the context"},
				"project_id": map[string]any{"type": "string", "description": "Project ID from the context"},
				"phase_id":   map[string]any{"type": "string", "description": "Optional phase ID from the context"},
				"week_start": weekStartParam,
				"hours":      map[string]any{"type": "number", "description": "Hours to allocate"},
			},
			[]string{"user_id", "project_id", "week_start", "hours"}),
		toolDef("remove_allocation",
			"Remove a user's allocation on a project for one week entirely.",
			map[string]any{
				"user_id":    map[string]any{"type": "string"},
				"project_id": map[string]any{"type": "string"},
				"week_start": weekStartParam,
			},
			[]string{"user_id", "project_id", "week_start"}),
		toolDef("move_allocation",
			"Move hours from one user to another on the same project and week.",
			map[string]any{
				"from_user_id": map[string]any{"type": "string", "description": "User losing the hours; omit to only add to the destination"},
				"to_user_id":   map[string]any{"type": "string", "description": "User gaining the hours"},
				"project_id":   map[string]any{"type": "string"},
				"week_start":   weekStartParam,
				"hours":        map[string]any{"type": "number"},
			},
			[]string{"to_user_id", "project_id", "week_start", "hours"}),
		toolDef("bulk_update_allocations",
			"Apply several allocation changes at once. Each change has op add, remove or update; update sets an absolute hour value.",
			map[string]any{
				"changes": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"op":         map[string]any{"type": "string", "enum": []string{"add", "remove", "update"}},
							"user_id":    map[string]any{"type": "string"},
							"project_id": map[string]any{"type": "string"},
							"week_start": weekStartParam,
							"hours":      map[string]any{"type": "number"},
						},
						"required": []string{"op", "user_id", "project_id", "week_start"},
					},
				},
			},
			[]string{"changes"}),
		toolDef("check_availability",
			"Check how many free hours a user has in a week.",
			map[string]any{
				"user_id":    map[string]any{"type": "string"},
				"week_start": weekStartParam,
			},
			[]string{"user_id"}),
		toolDef("get_user_allocations",
			"List a user's allocations over a date range.",
			map[string]any{
				"user_id": map[string]any{"type": "string"},
				"from":    map[string]any{"type": "string", "description": "Range start (YYYY-MM-DD), defaults to the current week"},
				"to":      map[string]any{"type": "string", "description": "Range end (YYYY-MM-DD), defaults to four weeks after the start"},
			},
			[]string{"user_id"}),
		toolDef("get_project_status",
			"Get a project's budget burn and phase breakdown.",
			map[string]any{
				"project_id": map[string]any{"type": "string"},
			},
			[]string{"project_id"}),
		toolDef("suggest_coverage",
			"Suggest who could cover for a user who is away in a given week.",
			map[string]any{
				"user_id":    map[string]any{"type": "string", "description": "The user who is away"},
				"week_start": weekStartParam,
			},
			[]string{"user_id", "week_start"}),
	}
}
