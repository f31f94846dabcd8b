package frames

import (
	"math"
	"time"
)

// Settings fixes the mapping for one animation run
type Settings struct {
	Start       time.Time     `json:"start"`
	Finish      time.Time     `json:"finish"`
	Duration    time.Duration `json:"duration"`
	StartFrame  int           `json:"start_frame"`
	TotalFrames int           `json:"total_frames"`
	FPS         float64       `json:"fps"`
}

// NewSettings builds animation settings. A finish at or before start is
// pushed to start plus one day.
func NewSettings(start, finish time.Time, startFrame int, fps float64, speed SpeedConfig) (Settings, error) {
	if !finish.After(start) {
		finish = start.Add(24 * time.Hour)
	}
	total, err := TotalFrames(start, finish, speed, fps)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Start:       start,
		Finish:      finish,
		Duration:    finish.Sub(start),
		StartFrame:  startFrame,
		TotalFrames: total,
		FPS:         fps,
	}, nil
}

// EndFrame is the last frame of the animation range. The range holds
// exactly TotalFrames frames.
func (s Settings) EndFrame() int {
	return s.StartFrame + s.TotalFrames - 1
}

// FrameForDate maps a date onto the unclamped frame axis
func (s Settings) FrameForDate(date time.Time) float64 {
	return FrameForDate(date, s.Start, s.Finish, s.StartFrame, s.TotalFrames)
}

// DateForFrame maps a frame back to a date
func (s Settings) DateForFrame(frame float64) time.Time {
	return DateForFrame(frame, s.Start, s.Finish, s.StartFrame, s.TotalFrames)
}

// ClampFrame rounds a frame and clamps it into [StartFrame, EndFrame]
func (s Settings) ClampFrame(frame float64) int {
	f := int(math.Round(frame))
	if f < s.StartFrame {
		return s.StartFrame
	}
	if end := s.EndFrame(); f > end {
		return end
	}
	return f
}

// TaskFrames returns the rounded, unclamped frames at which a task starts
// and finishes. A finish before start collapses onto the finish frame.
func (s Settings) TaskFrames(start, finish time.Time) (startFrame, finishFrame int) {
	if finish.Before(start) {
		start = finish
	}
	startFrame = int(math.Round(s.FrameForDate(start)))
	finishFrame = int(math.Round(s.FrameForDate(finish)))
	return startFrame, finishFrame
}

// ProgressAtFrame returns how far through [taskStart, taskFinish] the frame
// is, clamped to [0,1]
func ProgressAtFrame(frame int, taskStart, taskFinish int) float64 {
	if taskFinish <= taskStart {
		if frame >= taskFinish {
			return 1
		}
		return 0
	}
	p := float64(frame-taskStart) / float64(taskFinish-taskStart)
	return math.Max(0, math.Min(1, p))
}
