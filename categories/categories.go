package categories

// Category groups workflows for reporting
type Category struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Color         string `json:"color,omitempty"`
	WorkflowCount int    `json:"workflow_count"`
}

// Input is the payload for creating or updating a category
type Input struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// ByID indexes categories by id
func ByID(list []Category) map[string]Category {
	m := make(map[string]Category, len(list))
	for _, c := range list {
		m[c.ID] = c
	}
	return m
}
