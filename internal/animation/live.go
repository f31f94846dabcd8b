package animation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jengzang/bim4d-backend-go/internal/models"
	"github.com/jengzang/bim4d-backend-go/internal/profile"
	"github.com/jengzang/bim4d-backend-go/internal/timeline"
)

// LiveUpdater restyles the scene on every frame change instead of baking.
// It keeps the plan it was started with and re-resolves profiles each frame
// so switching the active group takes effect immediately.
type LiveUpdater struct {
	ID string

	scene     Scene
	store     *profile.Store
	plan      *timeline.Plan
	originals map[int64]models.RGBA
	ids       []int64
	log       *slog.Logger

	mu         sync.Mutex
	lastFrame  int
	hasFrame   bool
	unregister func()
}

// Live prepares a live updater for plan. Entries of each product are sorted
// by start frame once here.
func (a *Applier) Live(plan *timeline.Plan, originals map[int64]models.RGBA) *LiveUpdater {
	for id, entries := range plan.Products {
		sorted := append([]timeline.ProductFrame(nil), entries...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartFrame < sorted[j].StartFrame })
		plan.Products[id] = sorted
	}
	id := uuid.New().String()
	return &LiveUpdater{
		ID:        id,
		scene:     a.scene,
		store:     a.store,
		plan:      plan,
		originals: originals,
		ids:       plan.ProductIDs(),
		log:       a.log.With("live_session", id),
	}
}

// Start subscribes to frame changes
func (l *LiveUpdater) Start(ctx context.Context, events FrameEvents) error {
	if _, err := l.store.EnsureDefaultGroup(ctx); err != nil {
		return fmt.Errorf("failed to seed default group: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unregister != nil {
		return nil
	}
	l.unregister = events.OnFrameChange(func(frame int) {
		if err := l.HandleFrame(ctx, frame); err != nil {
			l.log.Warn("live update failed", "frame", frame, "error", err)
		}
	})
	l.log.Info("live updates started", "products", len(l.ids))
	return nil
}

// Stop unsubscribes and drops the stored plan
func (l *LiveUpdater) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unregister != nil {
		l.unregister()
		l.unregister = nil
	}
	l.plan = nil
	l.ids = nil
	l.hasFrame = false
	l.log.Info("live updates stopped")
}

// Running reports whether the updater still holds a plan
func (l *LiveUpdater) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.plan != nil
}

// HandleFrame writes the appearance of every product at frame. Repeating the
// previous frame is a no-op.
func (l *LiveUpdater) HandleFrame(ctx context.Context, frame int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.plan == nil || (l.hasFrame && frame == l.lastFrame) {
		return nil
	}

	group, err := l.store.ActiveGroup(ctx)
	if err != nil {
		return err
	}
	catalog, err := l.store.Catalog(ctx)
	if err != nil {
		return err
	}

	for _, id := range l.ids {
		pf := current(l.plan.Products[id], frame)
		p, _ := catalog.Resolve(pf.TaskID, pf.PredefinedType, group)
		phase, progress := pf.PhaseAt(frame)
		if p.Static() {
			phase, progress = timeline.BeforeStart, 0
		}
		orig, ok := l.originals[id]
		if !ok {
			orig = models.White
		}
		look := timeline.Look(p, phase, pf.Relationship, orig)
		if err := l.scene.SetVisible(id, look.Visible); err != nil {
			return err
		}
		if err := l.scene.SetColor(id, look.At(progress)); err != nil {
			return err
		}
	}
	l.lastFrame, l.hasFrame = frame, true
	return nil
}

// current picks the latest entry that has started by frame, or the first
// entry when none has
func current(entries []timeline.ProductFrame, frame int) *timeline.ProductFrame {
	pick := &entries[0]
	for i := range entries {
		if entries[i].Bounds[1].Start <= frame {
			pick = &entries[i]
		}
	}
	return pick
}
