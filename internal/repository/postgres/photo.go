package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"gorm.io/gorm"

	"github.com/sakif/fitlog/internal/model"
)

func (db *DB) CreatePhoto(ctx context.Context, p *model.Photo) error {
	p.ID = xid.New().String()
	if p.FileName == "" {
		p.FileName = p.ID
	}
	if p.UploadTime.IsZero() {
		p.UploadTime = time.Now().UTC()
	}
	if err := db.gorm.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("postgres: creating photo: %w", err)
	}
	return nil
}

func (db *DB) GetPhoto(ctx context.Context, userID, id string) (*model.Photo, error) {
	var p model.Photo
	if err := db.gorm.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&p).Error; err != nil {
		return nil, notFound(err, "photo", id, "getting photo "+id)
	}
	return &p, nil
}

func (db *DB) ListPhotos(ctx context.Context, userID, date string) ([]model.Photo, error) {
	q := db.gorm.WithContext(ctx).Where("user_id = ?", userID)
	if date != "" {
		q = q.Where("date = ?", date)
	}
	photos := []model.Photo{}
	if err := q.Order("upload_time DESC, id DESC").Find(&photos).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing photos: %w", err)
	}
	return photos, nil
}

func (db *DB) UpdatePhoto(ctx context.Context, p *model.Photo) error {
	result := db.gorm.WithContext(ctx).Model(&model.Photo{}).
		Where("id = ? AND user_id = ?", p.ID, p.UserID).
		Updates(map[string]any{"date": p.Date, "time": p.Time, "food_id": p.FoodID})
	return expectOne(result, "photo", p.ID, "updating photo "+p.ID)
}

func (db *DB) DeletePhoto(ctx context.Context, userID, id string) error {
	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("photo_id = ? AND user_id = ?", id, userID).
			Delete(&model.PhotoLabel{}).Error; err != nil {
			return fmt.Errorf("postgres: deleting labels of photo %s: %w", id, err)
		}
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Photo{})
		return expectOne(result, "photo", id, "deleting photo "+id)
	})
}
