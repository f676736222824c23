package model

import (
	"strings"

	"github.com/sakif/fitlog/internal/apperror"
)

// Tag is a user defined label name. Tags may nest one under another.
type Tag struct {
	ID          string  `json:"id"          db:"id"          gorm:"primaryKey"`
	UserID      string  `json:"user_id"     db:"user_id"     gorm:"index;not null"`
	ParentID    *string `json:"parent_id"   db:"parent_id"   gorm:"index"`
	Tag         string  `json:"tag"         db:"tag"         gorm:"not null"`
	Description *string `json:"description" db:"description"`
}

type TagPatch struct {
	ParentID    Field[string]
	Tag         Field[string]
	Description Field[string]
}

func DecodeTagPatch(raw Fields) (TagPatch, error) {
	var (
		p   TagPatch
		err error
	)
	if p.ParentID, err = decodeID(raw, "parent_id"); err != nil {
		return p, err
	}
	if p.Tag, err = decodeString(raw, "tag"); err != nil {
		return p, err
	}
	if p.Description, err = decodeString(raw, "description"); err != nil {
		return p, err
	}
	return p, nil
}

func (p TagPatch) Apply(t Tag) Tag {
	p.ParentID.applyPtr(&t.ParentID)
	p.Tag.applyVal(&t.Tag)
	p.Description.applyPtr(&t.Description)
	return t
}

func ValidateTag(t Tag) error {
	if strings.TrimSpace(t.Tag) == "" {
		return apperror.ValidationFailed("tag", "tag name is required")
	}
	if t.ParentID != nil && t.ID != "" && *t.ParentID == t.ID {
		return apperror.ValidationFailed("parent_id", "a tag cannot be its own parent")
	}
	return nil
}

// PhotoLabel places a tag on a photo, optionally on a region of it.
type PhotoLabel struct {
	ID              string       `json:"id"               db:"id"               gorm:"primaryKey"`
	UserID          string       `json:"user_id"          db:"user_id"          gorm:"index;not null"`
	PhotoID         string       `json:"photo_id"         db:"photo_id"         gorm:"index;not null"`
	TagID           string       `json:"tag_id"           db:"tag_id"           gorm:"index;not null"`
	BoundingBox     *BoundingBox `json:"bounding_box"     db:"bounding_box"     gorm:"type:text"`
	BoundingPolygon *Polygon     `json:"bounding_polygon" db:"bounding_polygon" gorm:"type:text"`
}

type LabelPatch struct {
	PhotoID         Field[string]
	TagID           Field[string]
	BoundingBox     Field[BoundingBox]
	BoundingPolygon Field[Polygon]
}

func DecodeLabelPatch(raw Fields) (LabelPatch, error) {
	var (
		p   LabelPatch
		err error
	)
	if p.PhotoID, err = decodeID(raw, "photo_id"); err != nil {
		return p, err
	}
	if p.TagID, err = decodeID(raw, "tag_id"); err != nil {
		return p, err
	}
	if p.BoundingBox, err = decodeJSON[BoundingBox](raw, "bounding_box"); err != nil {
		return p, err
	}
	if p.BoundingPolygon, err = decodeJSON[Polygon](raw, "bounding_polygon"); err != nil {
		return p, err
	}
	return p, nil
}

func (p LabelPatch) Apply(l PhotoLabel) PhotoLabel {
	p.PhotoID.applyVal(&l.PhotoID)
	p.TagID.applyVal(&l.TagID)
	p.BoundingBox.applyPtr(&l.BoundingBox)
	p.BoundingPolygon.applyPtr(&l.BoundingPolygon)
	return l
}

// ValidateLabel checks the record's own fields. Ownership of the photo and
// tag is checked by the label service.
func ValidateLabel(l PhotoLabel) error {
	if l.TagID == "" {
		return apperror.ValidationFailed("tag_id", "tag_id is required")
	}
	if l.PhotoID == "" {
		return apperror.ValidationFailed("photo_id", "photo_id is required")
	}
	if l.BoundingBox != nil && !l.BoundingBox.valid() {
		return apperror.ValidationFailed("bounding_box", "bounding_box must lie within the image (0..1)")
	}
	if l.BoundingPolygon != nil && !l.BoundingPolygon.valid() {
		return apperror.ValidationFailed("bounding_polygon", "bounding_polygon needs at least 3 points within the image (0..1)")
	}
	return nil
}
