package model

import (
	"net/mail"
	"strings"
	"time"

	"github.com/sakif/fitlog/internal/apperror"
)

// MaxDisplayNameLength bounds a profile display name.
const MaxDisplayNameLength = 100

// User is an account. Passwords are only ever held as a bcrypt hash.
type User struct {
	ID            string    `json:"id"             db:"id"             gorm:"primaryKey"`
	Email         string    `json:"email"          db:"email"          gorm:"uniqueIndex;not null"`
	PasswordHash  string    `json:"-"              db:"password_hash"  gorm:"not null"`
	VerifiedEmail bool      `json:"verified_email" db:"verified_email" gorm:"not null;default:false"`
	GitHubID      *int64    `json:"-"              db:"github_id"      gorm:"column:github_id;uniqueIndex"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"     db:"updated_at"`
}

// NormalizeEmail lowercases and trims an address so lookups are exact.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address shape. Deliverability is not checked.
func ValidateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperror.ValidationFailed("email", "email address is invalid")
	}
	return nil
}

// UserProfile holds the public and preference fields of an account. Its ID
// is the owning user's ID.
type UserProfile struct {
	ID             string     `json:"id"              db:"id"              gorm:"primaryKey"`
	DisplayName    string     `json:"display_name"    db:"display_name"    gorm:"not null"`
	Gender         *string    `json:"gender"          db:"gender"`
	PreferredUnits *string    `json:"preferred_units" db:"preferred_units"`
	TargetWeight   *float64   `json:"target_weight"   db:"target_weight"`
	TargetCalories *float64   `json:"target_calories" db:"target_calories"`
	WeightGoal     *string    `json:"weight_goal"     db:"weight_goal"`
	Country        *string    `json:"country"         db:"country"`
	State          *string    `json:"state"           db:"state"`
	City           *string    `json:"city"            db:"city"`
	LastActivity   *time.Time `json:"last_activity"   db:"last_activity"`
}

// PublicProfile is what other users may see of a profile.
type PublicProfile struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	LastActivity *time.Time `json:"last_activity"`
}

func (p UserProfile) Public() PublicProfile {
	return PublicProfile{ID: p.ID, Name: p.DisplayName, LastActivity: p.LastActivity}
}

// ProfilePatch is a decoded profile update. Numeric targets are strict:
// unlike food values, a target that does not parse is an error.
type ProfilePatch struct {
	DisplayName    Field[string]
	Gender         Field[string]
	PreferredUnits Field[string]
	TargetWeight   Field[float64]
	TargetCalories Field[float64]
	WeightGoal     Field[string]
	Country        Field[string]
	State          Field[string]
	City           Field[string]
}

func DecodeProfilePatch(raw Fields) (ProfilePatch, error) {
	var (
		p   ProfilePatch
		err error
	)
	strs := []struct {
		key string
		dst *Field[string]
	}{
		{"display_name", &p.DisplayName},
		{"gender", &p.Gender},
		{"preferred_units", &p.PreferredUnits},
		{"weight_goal", &p.WeightGoal},
		{"country", &p.Country},
		{"state", &p.State},
		{"city", &p.City},
	}
	for _, s := range strs {
		if *s.dst, err = decodeString(raw, s.key); err != nil {
			return p, err
		}
	}
	if p.TargetWeight, err = decodeStrictNumber(raw, "target_weight"); err != nil {
		return p, err
	}
	if p.TargetCalories, err = decodeStrictNumber(raw, "target_calories"); err != nil {
		return p, err
	}
	return p, nil
}

func (p ProfilePatch) Apply(u UserProfile) UserProfile {
	p.DisplayName.applyVal(&u.DisplayName)
	p.Gender.applyPtr(&u.Gender)
	p.PreferredUnits.applyPtr(&u.PreferredUnits)
	p.TargetWeight.applyPtr(&u.TargetWeight)
	p.TargetCalories.applyPtr(&u.TargetCalories)
	p.WeightGoal.applyPtr(&u.WeightGoal)
	p.Country.applyPtr(&u.Country)
	p.State.applyPtr(&u.State)
	p.City.applyPtr(&u.City)
	return u
}

func ValidateProfile(u UserProfile) error {
	name := strings.TrimSpace(u.DisplayName)
	if name == "" {
		return apperror.ValidationFailed("display_name", "display name is required")
	}
	if len(name) > MaxDisplayNameLength {
		return apperror.ValidationFailed("display_name", "display name must be 100 characters or less")
	}
	if !validNumber(u.TargetWeight) || (u.TargetWeight != nil && *u.TargetWeight < 0) {
		return apperror.ValidationFailed("target_weight", "target_weight must be a non-negative number")
	}
	if !validNumber(u.TargetCalories) || (u.TargetCalories != nil && *u.TargetCalories < 0) {
		return apperror.ValidationFailed("target_calories", "target_calories must be a non-negative number")
	}
	return nil
}
