// Package animation writes timeline plans into a scene, either as baked
// keyframes or live on every frame change.
package animation

import "github.com/jengzang/bim4d-backend-go/internal/models"

// Property is an animatable object property
type Property string

// Property constants
const (
	PropertyVisible Property = "visible"
	PropertyColor   Property = "color"
)

// Keyframe pins a property value at a frame
type Keyframe struct {
	Frame    int         `json:"frame"`
	Property Property    `json:"property"`
	Visible  bool        `json:"visible,omitempty"`
	Color    models.RGBA `json:"color,omitempty"`
}

// Scene is the write surface of the host application
type Scene interface {
	ClearAnimation(productID int64) error
	SetVisible(productID int64, visible bool) error
	SetColor(productID int64, c models.RGBA) error
	InsertKeyframe(productID int64, kf Keyframe) error
}

// FrameEvents lets the live updater follow the host's current frame
type FrameEvents interface {
	OnFrameChange(fn func(frame int)) (unregister func())
}
