package service

import (
	"context"
	"fmt"

	"github.com/jengzang/bim4d-backend-go/internal/animation"
	"github.com/jengzang/bim4d-backend-go/internal/frames"
	"github.com/jengzang/bim4d-backend-go/internal/scene"
	"github.com/jengzang/bim4d-backend-go/internal/timeline"
)

// BakeResult summarizes a baked run
type BakeResult struct {
	Settings  frames.Settings `json:"settings"`
	Group     string          `json:"group"`
	Products  int             `json:"products"`
	Keyframes int             `json:"keyframes"`
}

// Bake lays out a run and writes its keyframes to the scene, replacing any
// previous animation. A running live session is stopped first.
func (s *SequenceService) Bake(ctx context.Context, scheduleID int64, req AnimationRequest) (*BakeResult, error) {
	plan, err := s.Timeline(ctx, scheduleID, req)
	if err != nil {
		return nil, err
	}
	s.StopLive()
	report, err := s.applier.Bake(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to bake animation: %w", err)
	}
	s.log.Info("animation baked", "schedule_id", scheduleID, "products", report.Products, "keyframes", report.Keyframes)
	return &BakeResult{Settings: plan.Settings, Group: plan.Group, Products: report.Products, Keyframes: report.Keyframes}, nil
}

// LiveStatus describes the live session, if any
type LiveStatus struct {
	Running  bool   `json:"running"`
	Session  string `json:"session,omitempty"`
	Frame    int    `json:"frame"`
	Products int    `json:"products"`
}

// StartLive lays out a run and restyles the scene on every playhead change
// instead of baking keyframes. It replaces any running session.
func (s *SequenceService) StartLive(ctx context.Context, scheduleID int64, req AnimationRequest) (*LiveStatus, error) {
	plan, err := s.Timeline(ctx, scheduleID, req)
	if err != nil {
		return nil, err
	}
	originals, err := s.doc.ProductColors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load product colors: %w", err)
	}

	products := len(plan.Products)
	live := s.applier.Live(plan, originals)

	s.session.Lock()
	s.stopLive()
	if err := live.Start(s.bg, s.playhead); err != nil {
		s.session.Unlock()
		return nil, err
	}
	s.mu.Lock()
	s.live = live
	s.liveProducts = products
	s.mu.Unlock()
	s.session.Unlock()

	// paint the current frame right away
	if err := live.HandleFrame(ctx, s.playhead.Frame()); err != nil {
		return nil, err
	}
	return &LiveStatus{Running: true, Session: live.ID, Frame: s.playhead.Frame(), Products: products}, nil
}

// SetFrame moves the playhead; a live session follows it
func (s *SequenceService) SetFrame(frame int) LiveStatus {
	s.playhead.SetFrame(frame)
	return s.LiveStatus()
}

// StopLive ends the live session
func (s *SequenceService) StopLive() {
	s.session.Lock()
	defer s.session.Unlock()
	s.stopLive()
}

func (s *SequenceService) stopLive() {
	s.mu.Lock()
	live := s.live
	s.live = nil
	s.mu.Unlock()
	if live != nil {
		live.Stop()
	}
}

// LiveStatus reports the current live session
func (s *SequenceService) LiveStatus() LiveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := LiveStatus{Frame: s.playhead.Frame()}
	if s.live != nil && s.live.Running() {
		st.Running = true
		st.Session = s.live.ID
		st.Products = s.liveProducts
	}
	return st
}

// SceneObjects returns the current scene state of every touched product
func (s *SequenceService) SceneObjects() []scene.Object {
	return s.scene.Objects()
}

// SceneObject returns one product's scene state
func (s *SequenceService) SceneObject(productID int64) (scene.Object, bool) {
	return s.scene.Object(productID)
}

// Keyframes lays out a run without touching the scene
func (s *SequenceService) Keyframes(ctx context.Context, scheduleID int64, req AnimationRequest) (map[int64][]animation.Keyframe, *timeline.Plan, error) {
	plan, err := s.Timeline(ctx, scheduleID, req)
	if err != nil {
		return nil, nil, err
	}
	return animation.Keyframes(plan), plan, nil
}
