package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"gorm.io/gorm"

	"github.com/sakif/fitlog/internal/model"
)

// ===== TAGS =====

func (db *DB) CreateTag(ctx context.Context, t *model.Tag) error {
	t.ID = xid.New().String()
	if err := db.gorm.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("postgres: creating tag: %w", err)
	}
	return nil
}

func (db *DB) GetTag(ctx context.Context, userID, id string) (*model.Tag, error) {
	var t model.Tag
	if err := db.gorm.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&t).Error; err != nil {
		return nil, notFound(err, "tag", id, "getting tag "+id)
	}
	return &t, nil
}

func (db *DB) FindTagByName(ctx context.Context, userID, name string) (*model.Tag, error) {
	var t model.Tag
	err := db.gorm.WithContext(ctx).
		Where("user_id = ? AND LOWER(tag) = ?", userID, strings.ToLower(strings.TrimSpace(name))).
		Order("id ASC").
		Take(&t).Error
	if err != nil {
		return nil, notFound(err, "tag", name, "finding tag "+name)
	}
	return &t, nil
}

func (db *DB) ListTags(ctx context.Context, userID string) ([]model.Tag, error) {
	tags := []model.Tag{}
	if err := db.gorm.WithContext(ctx).Where("user_id = ?", userID).
		Order("LOWER(tag) ASC, id ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing tags: %w", err)
	}
	return tags, nil
}

func (db *DB) UpdateTag(ctx context.Context, t *model.Tag) error {
	result := db.gorm.WithContext(ctx).Model(&model.Tag{}).
		Where("id = ? AND user_id = ?", t.ID, t.UserID).
		Updates(map[string]any{"parent_id": t.ParentID, "tag": t.Tag, "description": t.Description})
	return expectOne(result, "tag", t.ID, "updating tag "+t.ID)
}

func (db *DB) DeleteTag(ctx context.Context, userID, id string) error {
	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ? AND user_id = ?", id, userID).
			Delete(&model.PhotoLabel{}).Error; err != nil {
			return fmt.Errorf("postgres: deleting labels of tag %s: %w", id, err)
		}
		if err := tx.Model(&model.Tag{}).Where("parent_id = ? AND user_id = ?", id, userID).
			Update("parent_id", nil).Error; err != nil {
			return fmt.Errorf("postgres: detaching child tags of %s: %w", id, err)
		}
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Tag{})
		return expectOne(result, "tag", id, "deleting tag "+id)
	})
}

// ===== PHOTO LABELS =====

func (db *DB) CreateLabel(ctx context.Context, l *model.PhotoLabel) error {
	l.ID = xid.New().String()
	if err := db.gorm.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("postgres: creating label: %w", err)
	}
	return nil
}

func (db *DB) GetLabel(ctx context.Context, userID, id string) (*model.PhotoLabel, error) {
	var l model.PhotoLabel
	if err := db.gorm.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&l).Error; err != nil {
		return nil, notFound(err, "label", id, "getting label "+id)
	}
	return &l, nil
}

func (db *DB) ListLabels(ctx context.Context, userID, photoID string) ([]model.PhotoLabel, error) {
	labels := []model.PhotoLabel{}
	if err := db.gorm.WithContext(ctx).Where("user_id = ? AND photo_id = ?", userID, photoID).
		Order("id ASC").Find(&labels).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing labels: %w", err)
	}
	return labels, nil
}

func (db *DB) UpdateLabel(ctx context.Context, l *model.PhotoLabel) error {
	result := db.gorm.WithContext(ctx).Model(&model.PhotoLabel{}).
		Where("id = ? AND user_id = ?", l.ID, l.UserID).
		Updates(map[string]any{
			"photo_id":         l.PhotoID,
			"tag_id":           l.TagID,
			"bounding_box":     l.BoundingBox,
			"bounding_polygon": l.BoundingPolygon,
		})
	return expectOne(result, "label", l.ID, "updating label "+l.ID)
}

func (db *DB) DeleteLabel(ctx context.Context, userID, id string) error {
	result := db.gorm.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.PhotoLabel{})
	return expectOne(result, "label", id, "deleting label "+id)
}
