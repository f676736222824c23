package model

import (
	"time"

	"github.com/sakif/fitlog/internal/apperror"
)

// Photo is the metadata of an uploaded image. The bytes live in the blob
// store under FileName. FoodID is a weak link: deleting the food clears it.
type Photo struct {
	ID          string    `json:"id"           db:"id"           gorm:"primaryKey"`
	UserID      string    `json:"user_id"      db:"user_id"      gorm:"index;not null"`
	FileName    string    `json:"file_name"    db:"file_name"    gorm:"not null"`
	ContentType string    `json:"content_type" db:"content_type" gorm:"not null"`
	Size        int64     `json:"size"         db:"size"`
	Date        string    `json:"date"         db:"date"         gorm:"index;not null"`
	Time        *string   `json:"time"         db:"time"`
	UploadTime  time.Time `json:"upload_time"  db:"upload_time"`
	FoodID      *string   `json:"food_id"      db:"food_id"      gorm:"index"`
}

// PhotoPatch is a decoded photo metadata update.
type PhotoPatch struct {
	Date   Field[string]
	Time   Field[string]
	FoodID Field[string]
}

func DecodePhotoPatch(raw Fields) (PhotoPatch, error) {
	var (
		p   PhotoPatch
		err error
	)
	if p.Date, err = decodeDate(raw, "date"); err != nil {
		return p, err
	}
	if p.Time, err = decodeTime(raw, "time"); err != nil {
		return p, err
	}
	if p.FoodID, err = decodeID(raw, "food_id"); err != nil {
		return p, err
	}
	return p, nil
}

func (p PhotoPatch) Apply(ph Photo) Photo {
	p.Date.applyVal(&ph.Date)
	p.Time.applyPtr(&ph.Time)
	p.FoodID.applyPtr(&ph.FoodID)
	return ph
}

func ValidatePhoto(ph Photo) error {
	if !ValidDate(ph.Date) {
		return apperror.ValidationFailed("date", "date must be formatted as YYYY-MM-DD")
	}
	if ph.Time != nil && !ValidTime(*ph.Time) {
		return apperror.ValidationFailed("time", "time must be formatted as HH:MM or HH:MM:SS")
	}
	return nil
}
