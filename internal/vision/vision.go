// Package vision finds labelled objects in food photos.
package vision

import (
	"context"

	"github.com/sakif/fitlog/internal/model"
)

// Label is one detected object instance.
type Label struct {
	Name       string
	Confidence float64
	Box        model.BoundingBox
}

// Detector finds objects in an encoded image (JPEG or PNG).
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Label, error)
}
