// Package scene is an in-memory stand-in for the host's object store. It
// records current appearance and keyframe tracks so they can be served to a
// viewer.
package scene

import (
	"sort"
	"sync"

	"github.com/jengzang/bim4d-backend-go/internal/animation"
	"github.com/jengzang/bim4d-backend-go/internal/models"
)

// Object is the recorded state of one product
type Object struct {
	ProductID int64                `json:"product_id"`
	Visible   bool                 `json:"visible"`
	Color     models.RGBA          `json:"color"`
	Keyframes []animation.Keyframe `json:"keyframes,omitempty"`
}

// Recorder implements animation.Scene
type Recorder struct {
	mu      sync.RWMutex
	objects map[int64]*Object
}

// NewRecorder returns an empty scene
func NewRecorder() *Recorder {
	return &Recorder{objects: make(map[int64]*Object)}
}

func (r *Recorder) object(id int64) *Object {
	o, ok := r.objects[id]
	if !ok {
		o = &Object{ProductID: id, Visible: true, Color: models.White}
		r.objects[id] = o
	}
	return o
}

// ClearAnimation drops every keyframe of a product
func (r *Recorder) ClearAnimation(productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.object(productID).Keyframes = nil
	return nil
}

// SetVisible sets the current visibility
func (r *Recorder) SetVisible(productID int64, visible bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.object(productID).Visible = visible
	return nil
}

// SetColor sets the current color
func (r *Recorder) SetColor(productID int64, c models.RGBA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.object(productID).Color = c
	return nil
}

// InsertKeyframe adds a keyframe, replacing one of the same property at the
// same frame
func (r *Recorder) InsertKeyframe(productID int64, kf animation.Keyframe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.object(productID)
	for i, existing := range o.Keyframes {
		if existing.Frame == kf.Frame && existing.Property == kf.Property {
			o.Keyframes[i] = kf
			return nil
		}
	}
	o.Keyframes = append(o.Keyframes, kf)
	sort.SliceStable(o.Keyframes, func(i, j int) bool { return o.Keyframes[i].Frame < o.Keyframes[j].Frame })
	return nil
}

// Object returns a copy of one product's state
func (r *Recorder) Object(productID int64) (Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.objects[productID]
	if !ok {
		return Object{}, false
	}
	cp := *o
	cp.Keyframes = append([]animation.Keyframe(nil), o.Keyframes...)
	return cp, true
}

// Objects returns copies of every recorded product, by id
func (r *Recorder) Objects() []Object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Object, 0, len(r.objects))
	for _, o := range r.objects {
		cp := *o
		cp.Keyframes = append([]animation.Keyframe(nil), o.Keyframes...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Reset forgets every object
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects = make(map[int64]*Object)
}
