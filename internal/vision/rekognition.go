package vision

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/sakif/fitlog/internal/model"
)

const (
	defaultMaxLabels     = 20
	defaultMinConfidence = 75
)

// RekognitionAPI is the part of *rekognition.Client the detector uses.
type RekognitionAPI interface {
	DetectLabels(ctx context.Context, in *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// Rekognition detects labels with AWS Rekognition. Only labels that come
// with instance bounding boxes are returned; scene labels ("Food",
// "Indoors") have none and are dropped.
type Rekognition struct {
	client        RekognitionAPI
	maxLabels     int32
	minConfidence float32
}

func NewRekognition(client RekognitionAPI) *Rekognition {
	return &Rekognition{client: client, maxLabels: defaultMaxLabels, minConfidence: defaultMinConfidence}
}

// NewRekognitionFromConfig builds the client from an AWS config.
func NewRekognitionFromConfig(cfg aws.Config) *Rekognition {
	return NewRekognition(rekognition.NewFromConfig(cfg))
}

func (r *Rekognition) Detect(ctx context.Context, image []byte) ([]Label, error) {
	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(r.maxLabels),
		MinConfidence: aws.Float32(r.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("vision: detecting labels: %w", err)
	}
	return labelsFromOutput(out, r.minConfidence), nil
}

// labelsFromOutput flattens Rekognition's label/instance tree into one
// Label per instance, most confident first.
func labelsFromOutput(out *rekognition.DetectLabelsOutput, minConfidence float32) []Label {
	var labels []Label
	for _, l := range out.Labels {
		name := aws.ToString(l.Name)
		if name == "" {
			continue
		}
		for _, inst := range l.Instances {
			if inst.BoundingBox == nil {
				continue
			}
			conf := aws.ToFloat32(inst.Confidence)
			if conf == 0 {
				conf = aws.ToFloat32(l.Confidence)
			}
			if conf < minConfidence {
				continue
			}
			labels = append(labels, Label{
				Name:       name,
				Confidence: float64(conf),
				Box:        clampBox(inst.BoundingBox),
			})
		}
	}
	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Confidence > labels[j].Confidence
	})
	return labels
}

// clampBox pulls a box back inside the image. Rekognition reports boxes
// that overhang the edge by a little for objects cut off by the frame.
func clampBox(b *types.BoundingBox) model.BoundingBox {
	left := float64(aws.ToFloat32(b.Left))
	top := float64(aws.ToFloat32(b.Top))
	right := clamp(left + float64(aws.ToFloat32(b.Width)))
	bottom := clamp(top + float64(aws.ToFloat32(b.Height)))
	left, top = clamp(left), clamp(top)
	return model.BoundingBox{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
