package profile

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jengzang/bim4d-backend-go/internal/models"
)

//go:embed palette.yaml
var paletteYAML []byte

type paletteEntry struct {
	Types               []string  `yaml:"types"`
	StartColor          []float64 `yaml:"start_color"`
	InProgressColor     []float64 `yaml:"in_progress_color"`
	EndColor            []float64 `yaml:"end_color"`
	UseEndOriginalColor bool      `yaml:"use_end_original_color"`
	HideAtEnd           bool      `yaml:"hide_at_end"`
}

// DefaultPalette returns the built-in DEFAULT profiles, one per predefined type
func DefaultPalette() ([]Profile, error) {
	return parsePalette(paletteYAML)
}

func parsePalette(data []byte) ([]Profile, error) {
	var entries []paletteEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse palette: %w", err)
	}
	var out []Profile
	for _, e := range entries {
		start, err := models.ColorFromSlice(e.StartColor)
		if err != nil {
			return nil, fmt.Errorf("palette %v start_color: %w", e.Types, err)
		}
		active, err := models.ColorFromSlice(e.InProgressColor)
		if err != nil {
			return nil, fmt.Errorf("palette %v in_progress_color: %w", e.Types, err)
		}
		end, err := models.ColorFromSlice(e.EndColor)
		if err != nil {
			return nil, fmt.Errorf("palette %v end_color: %w", e.Types, err)
		}
		for _, name := range e.Types {
			out = append(out, Profile{
				Name:                       name,
				StartColor:                 start,
				InProgressColor:            active,
				EndColor:                   end,
				UseEndOriginalColor:        e.UseEndOriginalColor,
				ActiveTransparencyInterpol: 1,
				ConsiderStart:              false,
				ConsiderActive:             true,
				ConsiderEnd:                true,
				HideAtEnd:                  e.HideAtEnd,
			})
		}
	}
	return out, nil
}
