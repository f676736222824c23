package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/repository"
)

func (db *DB) CreateFood(ctx context.Context, f *model.Food, photoIDs []string) error {
	now := time.Now().UTC()
	f.ID = xid.New().String()
	f.CreatedAt = now
	f.UpdatedAt = now

	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkGroup(tx, f); err != nil {
			return err
		}
		if err := tx.Create(f).Error; err != nil {
			return fmt.Errorf("postgres: creating food: %w", err)
		}
		if err := attachPhotos(tx, f.UserID, f.ID, photoIDs); err != nil {
			return err
		}
		var err error
		f.Photos, err = photoIDsFor(tx, f.UserID, f.ID)
		return err
	})
}

func (db *DB) GetFood(ctx context.Context, userID, id string) (*model.Food, error) {
	tx := db.gorm.WithContext(ctx)

	var f model.Food
	if err := tx.Where("id = ? AND user_id = ?", id, userID).Take(&f).Error; err != nil {
		return nil, notFound(err, "food", id, "getting food "+id)
	}
	var err error
	if f.Photos, err = photoIDsFor(tx, userID, id); err != nil {
		return nil, err
	}
	return &f, nil
}

func (db *DB) ListFoods(ctx context.Context, userID string, filter repository.FoodFilter) ([]model.Food, error) {
	q := db.gorm.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Date != "" {
		q = q.Where("date = ?", filter.Date)
	}
	if filter.NameContains != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(filter.NameContains))
	}
	if filter.QuantityContains != "" {
		q = q.Where(`LOWER(COALESCE(quantity, '')) LIKE ? ESCAPE '\'`, likePattern(filter.QuantityContains))
	}

	foods := []model.Food{}
	if err := q.Order("date DESC, created_at ASC, id ASC").Find(&foods).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing foods: %w", err)
	}
	if err := db.fillPhotos(ctx, userID, foods); err != nil {
		return nil, err
	}
	return foods, nil
}

func (db *DB) FoodGroup(ctx context.Context, userID, id string) ([]model.Food, error) {
	f, err := db.GetFood(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	root := f.ID
	if f.ParentID != nil {
		root = *f.ParentID
	}

	foods := []model.Food{}
	err = db.gorm.WithContext(ctx).
		Where("user_id = ? AND (id = ? OR parent_id = ?)", userID, root, root).
		Order("created_at ASC, id ASC").
		Find(&foods).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: loading food group %s: %w", root, err)
	}
	if err := db.fillPhotos(ctx, userID, foods); err != nil {
		return nil, err
	}
	return foods, nil
}

// lockFood reads one of the user's entries under a row lock. Group checks
// and deletes both lock the rows they depend on, so a parent cannot vanish
// between the check and the write.
func lockFood(tx *gorm.DB, userID, id string) (*model.Food, error) {
	var f model.Food
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&f).Error
	if err != nil {
		return nil, notFound(err, "food", id, "locking food "+id)
	}
	return &f, nil
}

func checkGroup(tx *gorm.DB, f *model.Food) error {
	if f.ParentID == nil {
		return nil
	}
	parent, err := lockFood(tx, f.UserID, *f.ParentID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	var children int64
	if err := tx.Model(&model.Food{}).
		Where("user_id = ? AND parent_id = ?", f.UserID, f.ID).
		Count(&children).Error; err != nil {
		return fmt.Errorf("postgres: counting children of %s: %w", f.ID, err)
	}
	return model.ValidateGroup(*f, parent, int(children))
}

func (db *DB) UpdateFood(ctx context.Context, f *model.Food, photoIDs []string) error {
	f.UpdatedAt = time.Now().UTC()

	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockFood(tx, f.UserID, f.ID); err != nil {
			return err
		}
		if err := checkGroup(tx, f); err != nil {
			return err
		}
		result := tx.Model(&model.Food{}).
			Where("id = ? AND user_id = ?", f.ID, f.UserID).
			Updates(map[string]any{
				"date":       f.Date,
				"time":       f.Time,
				"name":       f.Name,
				"quantity":   f.Quantity,
				"calories":   f.Calories,
				"protein":    f.Protein,
				"parent_id":  f.ParentID,
				"updated_at": f.UpdatedAt,
			})
		if err := expectOne(result, "food", f.ID, "updating food "+f.ID); err != nil {
			return err
		}
		if err := attachPhotos(tx, f.UserID, f.ID, photoIDs); err != nil {
			return err
		}
		var err error
		f.Photos, err = photoIDsFor(tx, f.UserID, f.ID)
		return err
	})
}

func (db *DB) DeleteFoods(ctx context.Context, userID string, ids []string) ([]string, error) {
	var removed []string

	err := db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := make(map[string]bool)
		for _, id := range ids {
			if _, err := lockFood(tx, userID, id); err != nil {
				return err
			}

			var children []string
			if err := tx.Model(&model.Food{}).
				Where("user_id = ? AND parent_id = ?", userID, id).
				Order("created_at ASC, id ASC").
				Pluck("id", &children).Error; err != nil {
				return fmt.Errorf("postgres: reading children of %s: %w", id, err)
			}

			for _, gid := range append([]string{id}, children...) {
				if !seen[gid] {
					seen[gid] = true
					removed = append(removed, gid)
				}
			}
		}
		if len(removed) == 0 {
			return nil
		}

		if err := tx.Model(&model.Photo{}).
			Where("user_id = ? AND food_id IN ?", userID, removed).
			Update("food_id", nil).Error; err != nil {
			return fmt.Errorf("postgres: detaching photos: %w", err)
		}
		if err := tx.Where("user_id = ? AND parent_id IN ?", userID, removed).
			Delete(&model.Food{}).Error; err != nil {
			return fmt.Errorf("postgres: deleting children: %w", err)
		}
		if err := tx.Where("user_id = ? AND id IN ?", userID, removed).
			Delete(&model.Food{}).Error; err != nil {
			return fmt.Errorf("postgres: deleting foods: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (db *DB) DailyCalories(ctx context.Context, userID, from, to string) ([]model.DailyCalories, error) {
	days := []model.DailyCalories{}
	err := db.gorm.WithContext(ctx).Raw(
		`SELECT f.date AS date, SUM(f.calories) AS calories
		 FROM foods f
		 LEFT JOIN foods p ON p.id = f.parent_id
		 WHERE f.user_id = ? AND f.date >= ? AND f.date <= ?
		   AND (f.parent_id IS NULL OR p.calories IS NULL)
		 GROUP BY f.date
		 ORDER BY f.date DESC`,
		userID, from, to,
	).Scan(&days).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: summing calories: %w", err)
	}
	return days, nil
}

func attachPhotos(tx *gorm.DB, userID, foodID string, photoIDs []string) error {
	for _, pid := range photoIDs {
		var p model.Photo
		err := tx.Select("id", "user_id").Where("id = ?", pid).Take(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("photo", pid)
		}
		if err != nil {
			return fmt.Errorf("postgres: checking photo %s: %w", pid, err)
		}
		if p.UserID != userID {
			return apperror.Forbidden(fmt.Sprintf("photo %s belongs to another user", pid))
		}

		if err := tx.Model(&model.Photo{}).
			Where("id = ? AND user_id = ?", pid, userID).
			Update("food_id", foodID).Error; err != nil {
			return fmt.Errorf("postgres: attaching photo %s: %w", pid, err)
		}
	}
	return nil
}

func photoIDsFor(tx *gorm.DB, userID, foodID string) ([]string, error) {
	ids := []string{}
	err := tx.Model(&model.Photo{}).
		Where("user_id = ? AND food_id = ?", userID, foodID).
		Order("upload_time ASC, id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing photos of food %s: %w", foodID, err)
	}
	return ids, nil
}

func (db *DB) fillPhotos(ctx context.Context, userID string, foods []model.Food) error {
	if len(foods) == 0 {
		return nil
	}
	ids := make([]string, len(foods))
	for i := range foods {
		ids[i] = foods[i].ID
		foods[i].Photos = []string{}
	}

	var photos []model.Photo
	err := db.gorm.WithContext(ctx).
		Select("id", "food_id").
		Where("user_id = ? AND food_id IN ?", userID, ids).
		Order("upload_time ASC, id ASC").
		Find(&photos).Error
	if err != nil {
		return fmt.Errorf("postgres: listing food photos: %w", err)
	}

	byFood := make(map[string][]string, len(photos))
	for _, p := range photos {
		if p.FoodID != nil {
			byFood[*p.FoodID] = append(byFood[*p.FoodID], p.ID)
		}
	}
	for i := range foods {
		if p, ok := byFood[foods[i].ID]; ok {
			foods[i].Photos = p
		}
	}
	return nil
}
