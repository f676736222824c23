// Package repository defines the storage interfaces the services depend on.
//
// Services never see SQL. Two implementations exist: sqlite (database/sql
// with sqlx, the default) and postgres (GORM). Both honour the same rules:
//
//   - Every read and write is scoped to a user ID; a record owned by
//     someone else is reported as apperror.NotFound.
//   - Operations that touch more than one row run in one transaction.
//   - Storage failures are wrapped; only apperror values are meant for
//     clients.
package repository

import (
	"context"
	"time"

	"github.com/sakif/fitlog/internal/model"
)

// FoodFilter narrows ListFoods. Empty fields do not filter.
type FoodFilter struct {
	Date string // exact YYYY-MM-DD

	// Case-insensitive substring matches.
	NameContains     string
	QuantityContains string
}

type FoodRepository interface {
	// CreateFood inserts f and attaches photoIDs to it in one transaction.
	// A missing photo is NotFound and another user's photo is Forbidden;
	// either way nothing is written. The group rules of model.ValidateGroup
	// are checked inside the same transaction.
	CreateFood(ctx context.Context, f *model.Food, photoIDs []string) error

	// GetFood returns one of the user's entries with its attached photos.
	GetFood(ctx context.Context, userID, id string) (*model.Food, error)

	// ListFoods returns matching entries ordered by date descending, then
	// creation order.
	ListFoods(ctx context.Context, userID string, filter FoodFilter) ([]model.Food, error)

	// FoodGroup returns the entry id, its parent and every child of either,
	// ordered by creation.
	FoodGroup(ctx context.Context, userID, id string) ([]model.Food, error)

	// UpdateFood writes f and attaches photoIDs in one transaction, with
	// the same photo and group rules as CreateFood.
	UpdateFood(ctx context.Context, f *model.Food, photoIDs []string) error

	// DeleteFoods removes the entries and all their children in one
	// transaction, detaches photos that pointed at any of them and returns
	// every removed ID. An unknown ID aborts the whole delete with NotFound.
	DeleteFoods(ctx context.Context, userID string, ids []string) ([]string, error)

	// DailyCalories sums calories of top-level entries per day between
	// from and to inclusive, newest first. An entry counts as top-level
	// when it has no parent or its parent has no calorie value.
	DailyCalories(ctx context.Context, userID, from, to string) ([]model.DailyCalories, error)
}

type UserRepository interface {
	// CreateUser inserts the account and its profile together. A taken
	// email is Conflict.
	CreateUser(ctx context.Context, u *model.User, p *model.UserProfile) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	// LinkGitHub records the GitHub account and marks the email verified.
	LinkGitHub(ctx context.Context, userID string, githubID int64) error
	UpdatePassword(ctx context.Context, userID, hash string) error

	GetProfile(ctx context.Context, id string) (*model.UserProfile, error)
	// ListProfiles returns the profiles for ids, or every profile when ids
	// is empty, ordered by display name.
	ListProfiles(ctx context.Context, ids []string) ([]model.UserProfile, error)
	UpdateProfile(ctx context.Context, p *model.UserProfile) error
	// TouchActivity sets last_activity to at when it is older than
	// at - minAge, so a busy client does not write on every request.
	TouchActivity(ctx context.Context, userID string, at time.Time, minAge time.Duration) error
}

type PhotoRepository interface {
	CreatePhoto(ctx context.Context, p *model.Photo) error
	GetPhoto(ctx context.Context, userID, id string) (*model.Photo, error)
	// ListPhotos returns the user's photos, newest upload first, optionally
	// for one date.
	ListPhotos(ctx context.Context, userID, date string) ([]model.Photo, error)
	UpdatePhoto(ctx context.Context, p *model.Photo) error
	// DeletePhoto removes the photo and its labels.
	DeletePhoto(ctx context.Context, userID, id string) error
}

type TagRepository interface {
	CreateTag(ctx context.Context, t *model.Tag) error
	GetTag(ctx context.Context, userID, id string) (*model.Tag, error)
	// FindTagByName matches case-insensitively; NotFound when absent.
	FindTagByName(ctx context.Context, userID, name string) (*model.Tag, error)
	ListTags(ctx context.Context, userID string) ([]model.Tag, error)
	UpdateTag(ctx context.Context, t *model.Tag) error
	// DeleteTag removes the tag and its labels and detaches child tags.
	DeleteTag(ctx context.Context, userID, id string) error

	CreateLabel(ctx context.Context, l *model.PhotoLabel) error
	GetLabel(ctx context.Context, userID, id string) (*model.PhotoLabel, error)
	ListLabels(ctx context.Context, userID, photoID string) ([]model.PhotoLabel, error)
	UpdateLabel(ctx context.Context, l *model.PhotoLabel) error
	DeleteLabel(ctx context.Context, userID, id string) error
}

type BodyweightRepository interface {
	CreateBodyweight(ctx context.Context, b *model.Bodyweight) error
	GetBodyweight(ctx context.Context, userID, id string) (*model.Bodyweight, error)
	// ListBodyweights returns the user's weigh-ins, newest first,
	// optionally for one date.
	ListBodyweights(ctx context.Context, userID, date string) ([]model.Bodyweight, error)
	UpdateBodyweight(ctx context.Context, b *model.Bodyweight) error
	DeleteBodyweight(ctx context.Context, userID, id string) error
}

// Store is everything a storage backend provides.
type Store interface {
	FoodRepository
	UserRepository
	PhotoRepository
	TagRepository
	BodyweightRepository

	Ping(ctx context.Context) error
	Close() error
}
