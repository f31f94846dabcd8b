// Package profile stores appearance profiles ("ColorTypes") grouped into
// named sets, and resolves the effective profile of a task.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jengzang/bim4d-backend-go/internal/models"
)

// ErrInvalidProfile wraps every validation failure
var ErrInvalidProfile = errors.New("invalid profile")

// DefaultGroup is always present once seeded
const DefaultGroup = "DEFAULT"

// Profile is the visual recipe applied to a task's products in each phase
type Profile struct {
	Name string `json:"name"`

	StartColor      models.RGBA `json:"start_color"`
	InProgressColor models.RGBA `json:"in_progress_color"`
	EndColor        models.RGBA `json:"end_color"`

	UseStartOriginalColor  bool `json:"use_start_original_color"`
	UseActiveOriginalColor bool `json:"use_active_original_color"`
	UseEndOriginalColor    bool `json:"use_end_original_color"`

	StartTransparency          float64 `json:"start_transparency"`
	ActiveStartTransparency    float64 `json:"active_start_transparency"`
	ActiveFinishTransparency   float64 `json:"active_finish_transparency"`
	ActiveTransparencyInterpol float64 `json:"active_transparency_interpol"`
	EndTransparency            float64 `json:"end_transparency"`

	ConsiderStart  bool `json:"consider_start"`
	ConsiderActive bool `json:"consider_active"`
	ConsiderEnd    bool `json:"consider_end"`
	HideAtEnd      bool `json:"hide_at_end"`
}

// New returns a profile with the stored-field defaults. HideAtEnd follows
// the name for demolition-like types.
func New(name string) Profile {
	return Profile{
		Name:                       name,
		StartColor:                 models.RGBA{1, 1, 1, 1},
		InProgressColor:            models.RGBA{1, 1, 0, 1},
		EndColor:                   models.RGBA{0, 1, 0, 1},
		UseEndOriginalColor:        true,
		ActiveTransparencyInterpol: 1,
		ConsiderStart:              true,
		ConsiderActive:             true,
		ConsiderEnd:                true,
		HideAtEnd:                  models.IsDemolitionType(name),
	}
}

// Fallback is the last resort when no stored profile matches
func Fallback() Profile {
	p := New(models.TypeNotDefined)
	p.StartColor = models.White
	p.InProgressColor = models.RGBA{0, 1, 0, 1}
	p.EndColor = models.White
	p.UseEndOriginalColor = false
	return p
}

// UnmarshalJSON fills missing fields with the defaults of New
func (p *Profile) UnmarshalJSON(data []byte) error {
	type wire Profile
	w := wire(New(""))
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var probe struct {
		HideAtEnd *bool `json:"hide_at_end"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	*p = Profile(w)
	if probe.HideAtEnd == nil {
		p.HideAtEnd = models.IsDemolitionType(p.Name)
	}
	return nil
}

// Validate checks colors and transparencies lie in [0,1]
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidProfile)
	}
	for field, c := range map[string]models.RGBA{
		"start_color":       p.StartColor,
		"in_progress_color": p.InProgressColor,
		"end_color":         p.EndColor,
	} {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidProfile, field, err)
		}
	}
	for field, v := range map[string]float64{
		"start_transparency":           p.StartTransparency,
		"active_start_transparency":    p.ActiveStartTransparency,
		"active_finish_transparency":   p.ActiveFinishTransparency,
		"active_transparency_interpol": p.ActiveTransparencyInterpol,
		"end_transparency":             p.EndTransparency,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s out of range: %g", ErrInvalidProfile, field, v)
		}
	}
	return nil
}

// Static reports a priority profile: only the start look is considered, so
// the object keeps one appearance for the whole animation.
func (p Profile) Static() bool {
	return p.ConsiderStart && !p.ConsiderActive && !p.ConsiderEnd
}

// InterpolatesAlpha reports whether active transparency ramps over the task
func (p Profile) InterpolatesAlpha() bool {
	return p.ActiveTransparencyInterpol >= 0.5
}
