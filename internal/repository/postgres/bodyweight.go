package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fitlog/internal/model"
)

func (db *DB) CreateBodyweight(ctx context.Context, b *model.Bodyweight) error {
	b.ID = xid.New().String()
	b.CreatedAt = time.Now().UTC()
	if err := db.gorm.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("postgres: creating bodyweight: %w", err)
	}
	return nil
}

func (db *DB) GetBodyweight(ctx context.Context, userID, id string) (*model.Bodyweight, error) {
	var b model.Bodyweight
	if err := db.gorm.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&b).Error; err != nil {
		return nil, notFound(err, "bodyweight", id, "getting bodyweight "+id)
	}
	return &b, nil
}

func (db *DB) ListBodyweights(ctx context.Context, userID, date string) ([]model.Bodyweight, error) {
	q := db.gorm.WithContext(ctx).Where("user_id = ?", userID)
	if date != "" {
		q = q.Where("date = ?", date)
	}
	weights := []model.Bodyweight{}
	if err := q.Order("date DESC, COALESCE(time, '') DESC, created_at DESC").Find(&weights).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing bodyweights: %w", err)
	}
	return weights, nil
}

func (db *DB) UpdateBodyweight(ctx context.Context, b *model.Bodyweight) error {
	result := db.gorm.WithContext(ctx).Model(&model.Bodyweight{}).
		Where("id = ? AND user_id = ?", b.ID, b.UserID).
		Updates(map[string]any{"date": b.Date, "time": b.Time, "bodyweight": b.Bodyweight})
	return expectOne(result, "bodyweight", b.ID, "updating bodyweight "+b.ID)
}

func (db *DB) DeleteBodyweight(ctx context.Context, userID, id string) error {
	result := db.gorm.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Bodyweight{})
	return expectOne(result, "bodyweight", id, "deleting bodyweight "+id)
}
