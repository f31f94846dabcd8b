package profile

// GroupChoice is a task's pick of a profile inside one group
type GroupChoice struct {
	GroupName     string `json:"group_name"`
	Enabled       bool   `json:"enabled"`
	SelectedValue string `json:"selected_value"`
}

// Assignment is the per-task override table
type Assignment struct {
	Groups []GroupChoice `json:"groups"`
}

// Choice returns the profile name selected for group, if enabled
func (a Assignment) Choice(group string) (string, bool) {
	for _, g := range a.Groups {
		if g.GroupName == group && g.Enabled && g.SelectedValue != "" {
			return g.SelectedValue, true
		}
	}
	return "", false
}

// StackEntry is one layer of the animation group stack
type StackEntry struct {
	Group   string `json:"group"`
	Enabled bool   `json:"enabled"`
}

// GroupStack orders the groups an animation may use
type GroupStack []StackEntry

// Active returns the first enabled group, DEFAULT when none is
func (s GroupStack) Active() string {
	for _, e := range s {
		if e.Enabled && e.Group != "" {
			return e.Group
		}
	}
	return DefaultGroup
}
