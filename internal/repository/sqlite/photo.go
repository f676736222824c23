package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
)

const photoColumns = `id, user_id, file_name, content_type, size, date, time, upload_time, food_id`

// CreatePhoto stores the metadata row. The caller picks FileName; when it
// is empty the generated ID is used, which is how uploads are keyed.
func (db *DB) CreatePhoto(ctx context.Context, p *model.Photo) error {
	p.ID = xid.New().String()
	if p.FileName == "" {
		p.FileName = p.ID
	}
	if p.UploadTime.IsZero() {
		p.UploadTime = time.Now().UTC()
	}

	_, err := db.conn.NamedExecContext(ctx,
		`INSERT INTO photos (`+photoColumns+`)
		 VALUES (:id, :user_id, :file_name, :content_type, :size, :date, :time, :upload_time, :food_id)`, p)
	if err != nil {
		return fmt.Errorf("sqlite: creating photo: %w", err)
	}
	return nil
}

func (db *DB) GetPhoto(ctx context.Context, userID, id string) (*model.Photo, error) {
	var p model.Photo
	err := db.conn.GetContext(ctx, &p,
		`SELECT `+photoColumns+` FROM photos WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("photo", id)
		}
		return nil, fmt.Errorf("sqlite: getting photo %s: %w", id, err)
	}
	return &p, nil
}

func (db *DB) ListPhotos(ctx context.Context, userID, date string) ([]model.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE user_id = ?`
	args := []any{userID}
	if date != "" {
		query += ` AND date = ?`
		args = append(args, date)
	}

	photos := []model.Photo{}
	if err := db.conn.SelectContext(ctx, &photos, query+` ORDER BY upload_time DESC, id DESC`, args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing photos: %w", err)
	}
	return photos, nil
}

func (db *DB) UpdatePhoto(ctx context.Context, p *model.Photo) error {
	result, err := db.conn.NamedExecContext(ctx,
		`UPDATE photos SET date = :date, time = :time, food_id = :food_id
		 WHERE id = :id AND user_id = :user_id`, p)
	if err != nil {
		return fmt.Errorf("sqlite: updating photo %s: %w", p.ID, err)
	}
	return expectOne(result, "photo", p.ID)
}

func (db *DB) DeletePhoto(ctx context.Context, userID, id string) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM photo_labels WHERE photo_id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("sqlite: deleting labels of photo %s: %w", id, err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("sqlite: deleting photo %s: %w", id, err)
		}
		return expectOne(result, "photo", id)
	})
}
