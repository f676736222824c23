package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// BoundingBox is an axis aligned box in image fractions (0..1), measured
// from the top left corner.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is one polygon vertex in image fractions.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is an outline around a labelled region.
type Polygon []Point

// Both geometry types are stored as JSON text.

func (b BoundingBox) Value() (driver.Value, error) {
	return marshalText(b)
}

func (b *BoundingBox) Scan(src any) error {
	return unmarshalText(src, b)
}

func (p Polygon) Value() (driver.Value, error) {
	return marshalText(p)
}

func (p *Polygon) Scan(src any) error {
	return unmarshalText(src, p)
}

func marshalText(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalText(src any, dst any) error {
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), dst)
	case []byte:
		return json.Unmarshal(v, dst)
	default:
		return fmt.Errorf("model: cannot scan %T into %T", src, dst)
	}
}

// valid reports whether the box lies inside the image.
func (b BoundingBox) valid() bool {
	return inUnit(b.Left) && inUnit(b.Top) && b.Width >= 0 && b.Height >= 0 &&
		b.Left+b.Width <= 1.0001 && b.Top+b.Height <= 1.0001
}

func (p Polygon) valid() bool {
	if len(p) < 3 {
		return false
	}
	for _, pt := range p {
		if !inUnit(pt.X) || !inUnit(pt.Y) {
			return false
		}
	}
	return true
}

func inUnit(f float64) bool {
	return f >= 0 && f <= 1
}
