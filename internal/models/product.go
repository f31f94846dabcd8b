package models

import (
	"encoding/json"
	"fmt"
)

// Product is a scene object that tasks build or remove
type Product struct {
	ID       int64  `json:"id" db:"id"`
	GlobalID string `json:"global_id,omitempty" db:"global_id"`
	Name     string `json:"name" db:"name"`
	Color    RGBA   `json:"color" db:"color"` // original viewport color
}

// TaskProduct is an edge between a task and a product
type TaskProduct struct {
	TaskID       int64        `json:"task_id" db:"task_id"`
	ProductID    int64        `json:"product_id" db:"product_id"`
	Relationship Relationship `json:"relationship" db:"relationship"`
}

// RGBA is a color with float components in [0,1]
type RGBA [4]float64

// White is the neutral original color
var White = RGBA{1, 1, 1, 1}

// ColorFromSlice accepts 3 or 4 components; alpha defaults to 1
func ColorFromSlice(v []float64) (RGBA, error) {
	if len(v) != 3 && len(v) != 4 {
		return RGBA{}, fmt.Errorf("color needs 3 or 4 components, got %d", len(v))
	}
	c := RGBA{v[0], v[1], v[2], 1}
	if len(v) == 4 {
		c[3] = v[3]
	}
	return c, c.Validate()
}

// Validate checks every component lies in [0,1]
func (c RGBA) Validate() error {
	for i, v := range c {
		if v < 0 || v > 1 {
			return fmt.Errorf("color component %d out of range: %g", i, v)
		}
	}
	return nil
}

// WithAlpha returns a copy with the alpha component replaced
func (c RGBA) WithAlpha(a float64) RGBA {
	c[3] = a
	return c
}

// UnmarshalJSON accepts [r,g,b] or [r,g,b,a]
func (c *RGBA) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 3 && len(v) != 4 {
		return fmt.Errorf("color needs 3 or 4 components, got %d", len(v))
	}
	*c = RGBA{v[0], v[1], v[2], 1}
	if len(v) == 4 {
		c[3] = v[3]
	}
	return nil
}
