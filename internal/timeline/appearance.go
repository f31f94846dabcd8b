package timeline

import (
	"github.com/jengzang/bim4d-backend-go/internal/models"
	"github.com/jengzang/bim4d-backend-go/internal/profile"
)

// Appearance is how an object looks over one segment. Color carries the
// alpha at the segment start; AlphaEnd is reached at its end when
// Interpolate is set.
type Appearance struct {
	Visible     bool        `json:"visible"`
	Color       models.RGBA `json:"color"`
	AlphaEnd    float64     `json:"alpha_end"`
	Interpolate bool        `json:"interpolate"`
}

// At returns the color at progress in [0,1] through the segment
func (a Appearance) At(progress float64) models.RGBA {
	if !a.Interpolate {
		return a.Color
	}
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	start := a.Color[3]
	return a.Color.WithAlpha(start + (a.AlphaEnd-start)*progress)
}

func pick(useOriginal bool, own, original models.RGBA) models.RGBA {
	if useOriginal {
		return original
	}
	return own
}

func solid(c models.RGBA, transparency float64) models.RGBA {
	return c.WithAlpha(1 - transparency)
}

// Look derives the appearance of a product in one phase. Products a task
// removes stay visible until it starts; products it builds are shown before
// the start only when the profile considers the start look.
func Look(p profile.Profile, phase Phase, rel models.Relationship, original models.RGBA) Appearance {
	switch phase {
	case BeforeStart:
		if !p.ConsiderStart {
			return Appearance{Visible: rel == models.RelationshipInput, Color: original.WithAlpha(1), AlphaEnd: 1}
		}
		c := solid(pick(p.UseStartOriginalColor, p.StartColor, original), p.StartTransparency)
		return Appearance{Visible: true, Color: c, AlphaEnd: c[3]}
	case Active:
		if !p.ConsiderActive {
			return Appearance{Visible: true, Color: original.WithAlpha(1), AlphaEnd: 1}
		}
		c := solid(pick(p.UseActiveOriginalColor, p.InProgressColor, original), p.ActiveStartTransparency)
		a := Appearance{Visible: true, Color: c, AlphaEnd: c[3]}
		if p.InterpolatesAlpha() {
			a.Interpolate = true
			a.AlphaEnd = 1 - p.ActiveFinishTransparency
		}
		return a
	}
	if !p.ConsiderEnd {
		return Appearance{Visible: !p.HideAtEnd, Color: original.WithAlpha(1), AlphaEnd: 1}
	}
	c := solid(pick(p.UseEndOriginalColor, p.EndColor, original), p.EndTransparency)
	return Appearance{Visible: !p.HideAtEnd, Color: c, AlphaEnd: c[3]}
}

// PhaseOf maps a classifier task phase to the matching segment
func PhaseOf(tp models.TaskPhase) Phase {
	switch tp {
	case models.PhasePending:
		return BeforeStart
	case models.PhaseActive:
		return Active
	}
	return AfterEnd
}
