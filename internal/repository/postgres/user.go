package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"gorm.io/gorm"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
)

func (db *DB) CreateUser(ctx context.Context, u *model.User, p *model.UserProfile) error {
	now := time.Now().UTC()
	u.ID = xid.New().String()
	u.CreatedAt = now
	u.UpdatedAt = now
	p.ID = u.ID

	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return fmt.Errorf("postgres: checking email: %w", err)
		}
		if n > 0 {
			return apperror.Conflict("user", u.Email)
		}

		if err := tx.Create(u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("user", u.Email)
			}
			return fmt.Errorf("postgres: inserting user: %w", err)
		}
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("postgres: inserting profile: %w", err)
		}
		return nil
	})
}

func (db *DB) getUser(ctx context.Context, what, query string, arg any) (*model.User, error) {
	var u model.User
	if err := db.gorm.WithContext(ctx).Where(query, arg).Take(&u).Error; err != nil {
		return nil, notFound(err, "user", fmt.Sprint(arg), "getting user by "+what)
	}
	return &u, nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", "id = ?", id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", "email = ?", email)
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return db.getUser(ctx, "github id", "github_id = ?", githubID)
}

func (db *DB) LinkGitHub(ctx context.Context, userID string, githubID int64) error {
	result := db.gorm.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"github_id":      githubID,
			"verified_email": true,
			"updated_at":     time.Now().UTC(),
		})
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return apperror.Conflict("github account", fmt.Sprint(githubID))
	}
	return expectOne(result, "user", userID, "linking github account")
}

func (db *DB) UpdatePassword(ctx context.Context, userID, hash string) error {
	result := db.gorm.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()})
	return expectOne(result, "user", userID, "updating password")
}

func (db *DB) GetProfile(ctx context.Context, id string) (*model.UserProfile, error) {
	var p model.UserProfile
	if err := db.gorm.WithContext(ctx).Where("id = ?", id).Take(&p).Error; err != nil {
		return nil, notFound(err, "user", id, "getting profile "+id)
	}
	return &p, nil
}

func (db *DB) ListProfiles(ctx context.Context, ids []string) ([]model.UserProfile, error) {
	q := db.gorm.WithContext(ctx).Order("LOWER(display_name) ASC, id ASC")
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	profiles := []model.UserProfile{}
	if err := q.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing profiles: %w", err)
	}
	return profiles, nil
}

func (db *DB) UpdateProfile(ctx context.Context, p *model.UserProfile) error {
	result := db.gorm.WithContext(ctx).Model(&model.UserProfile{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"display_name":    p.DisplayName,
			"gender":          p.Gender,
			"preferred_units": p.PreferredUnits,
			"target_weight":   p.TargetWeight,
			"target_calories": p.TargetCalories,
			"weight_goal":     p.WeightGoal,
			"country":         p.Country,
			"state":           p.State,
			"city":            p.City,
		})
	return expectOne(result, "user", p.ID, "updating profile "+p.ID)
}

func (db *DB) TouchActivity(ctx context.Context, userID string, at time.Time, minAge time.Duration) error {
	tx := db.gorm.WithContext(ctx)

	var p model.UserProfile
	if err := tx.Select("id", "last_activity").Where("id = ?", userID).Take(&p).Error; err != nil {
		return notFound(err, "user", userID, "reading last activity")
	}
	if p.LastActivity != nil && at.Sub(*p.LastActivity) < minAge {
		return nil
	}

	if err := tx.Model(&model.UserProfile{}).Where("id = ?", userID).
		Update("last_activity", at.UTC()).Error; err != nil {
		return fmt.Errorf("postgres: touching last activity: %w", err)
	}
	return nil
}
