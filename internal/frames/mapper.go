package frames

import (
	"math"
	"time"
)

// FrameForDate maps date linearly onto [startFrame, startFrame+totalFrames].
// The result is not clamped. When start equals finish the progress is 0 at or
// before start and 1 after it.
func FrameForDate(date, start, finish time.Time, startFrame, totalFrames int) float64 {
	return float64(startFrame) + Progress(date, start, finish)*float64(totalFrames)
}

// DateForFrame is the inverse of FrameForDate
func DateForFrame(frame float64, start, finish time.Time, startFrame, totalFrames int) time.Time {
	if totalFrames <= 0 {
		return start
	}
	progress := (frame - float64(startFrame)) / float64(totalFrames)
	offset := time.Duration(math.Round(progress * float64(finish.Sub(start))))
	return start.Add(offset)
}

// Progress is the fraction of [start, finish] elapsed at date, unclamped
func Progress(date, start, finish time.Time) float64 {
	span := finish.Sub(start)
	if span == 0 {
		if date.After(start) {
			return 1
		}
		return 0
	}
	return float64(date.Sub(start)) / float64(span)
}
