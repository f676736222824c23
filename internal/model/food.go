// Package model defines the records the application stores and the pure
// functions that turn a partial JSON body into a change to one of them.
//
// Each entity follows the same three steps:
//
//	Decode<Entity>Patch(fields) -> patch      what the client asked for
//	patch.Apply(existing)       -> updated    merge onto the stored record
//	Validate<Entity>(updated)   -> error      check the result before commit
//
// None of them touch storage, so handlers and services can compose them
// and tests can exercise them without a database.
package model

import (
	"strings"
	"time"

	"github.com/sakif/fitlog/internal/apperror"
)

// MaxFoodNameLength bounds a logged food name.
const MaxFoodNameLength = 200

// Food is one logged consumption record. A Food with ParentID set is a
// member of the group led by its parent; groups are one level deep.
type Food struct {
	ID        string    `json:"id"         db:"id"         gorm:"primaryKey"`
	UserID    string    `json:"user_id"    db:"user_id"    gorm:"index;not null"`
	Date      string    `json:"date"       db:"date"       gorm:"index;not null"`
	Time      *string   `json:"time"       db:"time"`
	Name      string    `json:"name"       db:"name"       gorm:"not null"`
	Quantity  *string   `json:"quantity"   db:"quantity"`
	Calories  *float64  `json:"calories"   db:"calories"`
	Protein   *float64  `json:"protein"    db:"protein"`
	ParentID  *string   `json:"parent_id"  db:"parent_id"  gorm:"index"`
	Photos    []string  `json:"photos"     db:"-"          gorm:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FoodPatch is a decoded create or update body.
type FoodPatch struct {
	Date     Field[string]
	Time     Field[string]
	Name     Field[string]
	Quantity Field[string]
	Calories Field[float64]
	Protein  Field[float64]
	ParentID Field[string]

	// PhotoIDs lists photos to attach to the entry. Attaching is additive.
	PhotoIDs []string
}

// DecodeFoodPatch reads a food body. calories and protein are lenient: a
// value that is not a number is dropped without error. user_id and id are
// never read from the body.
func DecodeFoodPatch(raw Fields) (FoodPatch, error) {
	var (
		p   FoodPatch
		err error
	)
	if p.Date, err = decodeDate(raw, "date"); err != nil {
		return p, err
	}
	if p.Time, err = decodeTime(raw, "time"); err != nil {
		return p, err
	}
	if p.Name, err = decodeString(raw, "name"); err != nil {
		return p, err
	}
	if p.Quantity, err = decodeText(raw, "quantity"); err != nil {
		return p, err
	}
	if p.ParentID, err = decodeID(raw, "parent_id"); err != nil {
		return p, err
	}
	if p.PhotoIDs, err = decodeIDs(raw, "photo_ids"); err != nil {
		return p, err
	}
	p.Calories = decodeLenientNumber(raw, "calories")
	p.Protein = decodeLenientNumber(raw, "protein")
	return p, nil
}

// Apply returns f with the patch merged in. f is not modified.
func (p FoodPatch) Apply(f Food) Food {
	p.Date.applyVal(&f.Date)
	p.Time.applyPtr(&f.Time)
	p.Name.applyVal(&f.Name)
	p.Quantity.applyPtr(&f.Quantity)
	p.Calories.applyPtr(&f.Calories)
	p.Protein.applyPtr(&f.Protein)
	p.ParentID.applyPtr(&f.ParentID)
	if f.Quantity != nil && *f.Quantity == "" {
		f.Quantity = nil
	}
	return f
}

// ValidateFood checks a record on its own. Rules that need other records
// (the parent's owner and depth) live in the food service.
func ValidateFood(f Food) error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return apperror.ValidationFailed("name", "food name is required")
	}
	if len(name) > MaxFoodNameLength {
		return apperror.ValidationFailed("name", "food name must be 200 characters or less")
	}
	if !ValidDate(f.Date) {
		return apperror.ValidationFailed("date", "date must be formatted as YYYY-MM-DD")
	}
	if f.Time != nil && !ValidTime(*f.Time) {
		return apperror.ValidationFailed("time", "time must be formatted as HH:MM or HH:MM:SS")
	}
	if !validNumber(f.Calories) || !validNumber(f.Protein) {
		return apperror.ValidationFailed("calories", "nutrition values must be finite numbers")
	}
	if f.ParentID != nil && f.ID != "" && *f.ParentID == f.ID {
		return apperror.ValidationFailed("parent_id", "a food entry cannot be its own parent")
	}
	return nil
}

// ValidateGroup checks f against the rows it depends on. parent is the
// stored parent, nil when the user has no such entry, and children is how
// many entries already name f as their parent. Groups are one level deep.
func ValidateGroup(f Food, parent *Food, children int) error {
	if f.ParentID == nil {
		return nil
	}
	if parent == nil {
		return apperror.ValidationFailed("parent_id", "parent entry not found")
	}
	if parent.ParentID != nil {
		return apperror.ValidationFailed("parent_id", "the parent entry is itself part of a group")
	}
	if children > 0 {
		return apperror.ValidationFailed("parent_id", "an entry with children cannot join another group")
	}
	return nil
}

// DailyCalories is one row of the calorie history. Calories is nil when
// every entry of the day had no calorie value.
type DailyCalories struct {
	Date     string   `json:"date"     db:"date"`
	Calories *float64 `json:"calories" db:"calories"`
}
