package animation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jengzang/bim4d-backend-go/internal/profile"
	"github.com/jengzang/bim4d-backend-go/internal/timeline"
)

// Applier writes plans and snapshots into a scene
type Applier struct {
	scene Scene
	store *profile.Store
	log   *slog.Logger
}

// NewApplier creates an applier
func NewApplier(scene Scene, store *profile.Store, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{scene: scene, store: store, log: logger.With("component", "animation")}
}

// Prepare makes sure the DEFAULT profile group exists
func (a *Applier) Prepare(ctx context.Context) error {
	if _, err := a.store.EnsureDefaultGroup(ctx); err != nil {
		return fmt.Errorf("failed to seed default group: %w", err)
	}
	return nil
}

// BakeReport summarizes a bake
type BakeReport struct {
	Products  int `json:"products"`
	Keyframes int `json:"keyframes"`
}

// Keyframes lays out the keyframes of every product. Segments are keyed at
// both ends so each holds its look; active alpha ramps between them. Entries
// are ordered by start frame so later tasks override earlier ones on shared
// frames.
func Keyframes(plan *timeline.Plan) map[int64][]Keyframe {
	out := make(map[int64][]Keyframe, len(plan.Products))
	for _, id := range plan.ProductIDs() {
		entries := append([]timeline.ProductFrame(nil), plan.Products[id]...)
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].StartFrame < entries[j].StartFrame })
		var kfs []Keyframe
		for _, pf := range entries {
			for _, seg := range pf.Segments {
				if seg.Interval.Empty() {
					continue
				}
				kfs = append(kfs,
					Keyframe{Frame: seg.Interval.Start, Property: PropertyVisible, Visible: seg.Look.Visible},
					Keyframe{Frame: seg.Interval.Start, Property: PropertyColor, Color: seg.Look.At(0)},
				)
				if seg.Interval.End > seg.Interval.Start {
					kfs = append(kfs,
						Keyframe{Frame: seg.Interval.End, Property: PropertyVisible, Visible: seg.Look.Visible},
						Keyframe{Frame: seg.Interval.End, Property: PropertyColor, Color: seg.Look.At(1)},
					)
				}
			}
		}
		out[id] = kfs
	}
	return out
}

// Bake replaces the animation of every planned product. All keyframes are
// computed before the first scene write.
func (a *Applier) Bake(ctx context.Context, plan *timeline.Plan) (BakeReport, error) {
	if err := a.Prepare(ctx); err != nil {
		return BakeReport{}, err
	}
	all := Keyframes(plan)
	report := BakeReport{}
	for _, id := range plan.ProductIDs() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := a.scene.ClearAnimation(id); err != nil {
			return report, fmt.Errorf("failed to clear animation of %d: %w", id, err)
		}
		kfs := all[id]
		for _, kf := range kfs {
			if err := a.scene.InsertKeyframe(id, kf); err != nil {
				return report, fmt.Errorf("failed to key product %d: %w", id, err)
			}
		}
		if len(kfs) > 0 {
			if err := a.scene.SetVisible(id, kfs[0].Visible); err != nil {
				return report, err
			}
			if err := a.scene.SetColor(id, kfs[1].Color); err != nil {
				return report, err
			}
		}
		report.Products++
		report.Keyframes += len(kfs)
	}
	a.log.Info("animation baked", "products", report.Products, "keyframes", report.Keyframes)
	return report, nil
}

// ApplySnapshot writes a single-date appearance
func (a *Applier) ApplySnapshot(ctx context.Context, looks map[int64]timeline.ProductLook) error {
	for id, look := range looks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.scene.SetVisible(id, look.Visible); err != nil {
			return fmt.Errorf("failed to set visibility of %d: %w", id, err)
		}
		if err := a.scene.SetColor(id, look.Color); err != nil {
			return fmt.Errorf("failed to set color of %d: %w", id, err)
		}
	}
	return nil
}
