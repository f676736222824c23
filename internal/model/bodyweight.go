package model

import (
	"time"

	"github.com/sakif/fitlog/internal/apperror"
)

// Bodyweight is one weigh-in. The unit follows the profile's
// preferred_units; it is not converted.
type Bodyweight struct {
	ID         string    `json:"id"         db:"id"         gorm:"primaryKey"`
	UserID     string    `json:"user_id"    db:"user_id"    gorm:"index;not null"`
	Date       string    `json:"date"       db:"date"       gorm:"index;not null"`
	Time       *string   `json:"time"       db:"time"`
	Bodyweight float64   `json:"bodyweight" db:"bodyweight" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type BodyweightPatch struct {
	Date       Field[string]
	Time       Field[string]
	Bodyweight Field[float64]
}

// DecodeBodyweightPatch is strict about the weight: a value that does not
// parse is an error.
func DecodeBodyweightPatch(raw Fields) (BodyweightPatch, error) {
	var (
		p   BodyweightPatch
		err error
	)
	if p.Date, err = decodeDate(raw, "date"); err != nil {
		return p, err
	}
	if p.Time, err = decodeTime(raw, "time"); err != nil {
		return p, err
	}
	if p.Bodyweight, err = decodeStrictNumber(raw, "bodyweight"); err != nil {
		return p, err
	}
	return p, nil
}

func (p BodyweightPatch) Apply(b Bodyweight) Bodyweight {
	p.Date.applyVal(&b.Date)
	p.Time.applyPtr(&b.Time)
	p.Bodyweight.applyVal(&b.Bodyweight)
	return b
}

func ValidateBodyweight(b Bodyweight) error {
	if !ValidDate(b.Date) {
		return apperror.ValidationFailed("date", "date must be formatted as YYYY-MM-DD")
	}
	if b.Time != nil && !ValidTime(*b.Time) {
		return apperror.ValidationFailed("time", "time must be formatted as HH:MM or HH:MM:SS")
	}
	if !validNumber(&b.Bodyweight) || b.Bodyweight <= 0 {
		return apperror.ValidationFailed("bodyweight", "bodyweight must be a positive number")
	}
	return nil
}
