package profile

import "github.com/jengzang/bim4d-backend-go/internal/models"

// Step identifies which rung of the fallback chain produced a profile
type Step int

// Resolution steps in the order they are tried
const (
	StepOverride Step = iota + 1
	StepGroupType
	StepDefaultType
	StepDefaultNotDefined
	StepBuiltin
)

func (s Step) String() string {
	switch s {
	case StepOverride:
		return "override"
	case StepGroupType:
		return "group_type"
	case StepDefaultType:
		return "default_type"
	case StepDefaultNotDefined:
		return "default_notdefined"
	case StepBuiltin:
		return "builtin"
	}
	return "unknown"
}

// Catalog is an immutable view of all groups and overrides
type Catalog struct {
	groups      map[string]map[string]Profile
	assignments map[int64]Assignment
}

// NewCatalog indexes groups by profile name
func NewCatalog(groups map[string][]Profile, assignments map[int64]Assignment) *Catalog {
	c := &Catalog{
		groups:      make(map[string]map[string]Profile, len(groups)),
		assignments: assignments,
	}
	for name, profiles := range groups {
		c.groups[name] = index(profiles)
	}
	if c.assignments == nil {
		c.assignments = map[int64]Assignment{}
	}
	return c
}

func (c *Catalog) lookup(group, name string) (Profile, bool) {
	p, ok := c.groups[group][name]
	return p, ok
}

// Resolve picks the effective profile of a task in group:
// an enabled override in group, then the task type in group, then the type
// in DEFAULT, then DEFAULT's NOTDEFINED, then the built-in fallback.
func (c *Catalog) Resolve(taskID int64, predefinedType, group string) (Profile, Step) {
	if group == "" {
		group = DefaultGroup
	}
	if predefinedType == "" {
		predefinedType = models.TypeNotDefined
	}
	if a, ok := c.assignments[taskID]; ok {
		if name, ok := a.Choice(group); ok {
			if p, ok := c.lookup(group, name); ok {
				return p, StepOverride
			}
		}
	}
	if p, ok := c.lookup(group, predefinedType); ok {
		return p, StepGroupType
	}
	if group != DefaultGroup {
		if p, ok := c.lookup(DefaultGroup, predefinedType); ok {
			return p, StepDefaultType
		}
	}
	if p, ok := c.lookup(DefaultGroup, models.TypeNotDefined); ok {
		return p, StepDefaultNotDefined
	}
	return Fallback(), StepBuiltin
}

// ResolveTask is Resolve for a task record
func (c *Catalog) ResolveTask(t *models.Task, group string) Profile {
	p, _ := c.Resolve(t.ID, t.Type(), group)
	return p
}
