package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
)

const bodyweightColumns = `id, user_id, date, time, bodyweight, created_at`

func (db *DB) CreateBodyweight(ctx context.Context, b *model.Bodyweight) error {
	b.ID = xid.New().String()
	b.CreatedAt = time.Now().UTC()

	_, err := db.conn.NamedExecContext(ctx,
		`INSERT INTO bodyweights (`+bodyweightColumns+`)
		 VALUES (:id, :user_id, :date, :time, :bodyweight, :created_at)`, b)
	if err != nil {
		return fmt.Errorf("sqlite: creating bodyweight: %w", err)
	}
	return nil
}

func (db *DB) GetBodyweight(ctx context.Context, userID, id string) (*model.Bodyweight, error) {
	var b model.Bodyweight
	err := db.conn.GetContext(ctx, &b,
		`SELECT `+bodyweightColumns+` FROM bodyweights WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("bodyweight", id)
		}
		return nil, fmt.Errorf("sqlite: getting bodyweight %s: %w", id, err)
	}
	return &b, nil
}

func (db *DB) ListBodyweights(ctx context.Context, userID, date string) ([]model.Bodyweight, error) {
	query := `SELECT ` + bodyweightColumns + ` FROM bodyweights WHERE user_id = ?`
	args := []any{userID}
	if date != "" {
		query += ` AND date = ?`
		args = append(args, date)
	}

	weights := []model.Bodyweight{}
	if err := db.conn.SelectContext(ctx, &weights,
		query+` ORDER BY date DESC, COALESCE(time, '') DESC, created_at DESC`, args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing bodyweights: %w", err)
	}
	return weights, nil
}

func (db *DB) UpdateBodyweight(ctx context.Context, b *model.Bodyweight) error {
	result, err := db.conn.NamedExecContext(ctx,
		`UPDATE bodyweights SET date = :date, time = :time, bodyweight = :bodyweight
		 WHERE id = :id AND user_id = :user_id`, b)
	if err != nil {
		return fmt.Errorf("sqlite: updating bodyweight %s: %w", b.ID, err)
	}
	return expectOne(result, "bodyweight", b.ID)
}

func (db *DB) DeleteBodyweight(ctx context.Context, userID, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM bodyweights WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting bodyweight %s: %w", id, err)
	}
	return expectOne(result, "bodyweight", id)
}
