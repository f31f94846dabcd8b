// Package frames maps calendar dates onto animation frames.
package frames

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// ErrInvalidSpeed is returned when a speed setting would divide by zero
var ErrInvalidSpeed = errors.New("invalid speed setting")

// SpeedType selects how real time is mapped to animation time
type SpeedType string

// SpeedType constants
const (
	FrameSpeed      SpeedType = "FRAME_SPEED"      // N frames per real duration D
	DurationSpeed   SpeedType = "DURATION_SPEED"   // real duration D plays for animation duration V
	MultiplierSpeed SpeedType = "MULTIPLIER_SPEED" // real seconds divided by M
)

// DefaultTotalFrames is used when the speed type is unknown
const DefaultTotalFrames = 250

// SpeedConfig carries the parameters of one of the three speed models
type SpeedConfig struct {
	Type              SpeedType     `json:"type"`
	AnimationFrames   float64       `json:"animation_frames,omitempty"`
	RealDuration      time.Duration `json:"real_duration,omitempty"`
	AnimationDuration time.Duration `json:"animation_duration,omitempty"`
	Multiplier        float64       `json:"multiplier,omitempty"`
}

// SpeedRequest is the wire form of SpeedConfig with ISO-8601 durations
type SpeedRequest struct {
	Type              string  `json:"type"`
	AnimationFrames   float64 `json:"animation_frames,omitempty"`
	RealDuration      string  `json:"real_duration,omitempty"`      // e.g. "P1W"
	AnimationDuration string  `json:"animation_duration,omitempty"` // e.g. "PT1S"
	Multiplier        float64 `json:"multiplier,omitempty"`
}

// Config converts the request, parsing its durations
func (r SpeedRequest) Config() (SpeedConfig, error) {
	cfg := SpeedConfig{
		Type:            SpeedType(strings.ToUpper(r.Type)),
		AnimationFrames: r.AnimationFrames,
		Multiplier:      r.Multiplier,
	}
	var err error
	if r.RealDuration != "" {
		if cfg.RealDuration, err = ParseDuration(r.RealDuration); err != nil {
			return cfg, err
		}
	}
	if r.AnimationDuration != "" {
		if cfg.AnimationDuration, err = ParseDuration(r.AnimationDuration); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// ParseDuration reads an ISO-8601 duration such as P1W or PT12H
func ParseDuration(s string) (time.Duration, error) {
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", s, err)
	}
	return d.ToTimeDuration(), nil
}

// TotalFrames returns how many frames the interval [start, finish] spans
// under cfg. All three models reduce to real_seconds/multiplier*fps; the
// result is rounded and never below 1.
func TotalFrames(start, finish time.Time, cfg SpeedConfig, fps float64) (int, error) {
	span := finish.Sub(start)
	var frames float64
	switch cfg.Type {
	case FrameSpeed:
		if cfg.RealDuration <= 0 {
			return 0, fmt.Errorf("%w: frame speed needs a positive real duration", ErrInvalidSpeed)
		}
		frames = float64(span) / float64(cfg.RealDuration) * cfg.AnimationFrames
	case DurationSpeed:
		if cfg.RealDuration <= 0 || cfg.AnimationDuration <= 0 {
			return 0, fmt.Errorf("%w: duration speed needs positive durations", ErrInvalidSpeed)
		}
		multiplier := float64(cfg.RealDuration) / float64(cfg.AnimationDuration)
		frames = span.Seconds() / multiplier * fps
	case MultiplierSpeed:
		if cfg.Multiplier <= 0 {
			return 0, fmt.Errorf("%w: multiplier must be positive", ErrInvalidSpeed)
		}
		frames = span.Seconds() / cfg.Multiplier * fps
	default:
		return DefaultTotalFrames, nil
	}
	n := int(math.Round(frames))
	if n < 1 {
		n = 1
	}
	return n, nil
}
