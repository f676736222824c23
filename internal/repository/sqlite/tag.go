package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
)

const (
	tagColumns   = `id, user_id, parent_id, tag, description`
	labelColumns = `id, user_id, photo_id, tag_id, bounding_box, bounding_polygon`
)

// ===== TAGS =====

func (db *DB) CreateTag(ctx context.Context, t *model.Tag) error {
	t.ID = xid.New().String()
	_, err := db.conn.NamedExecContext(ctx,
		`INSERT INTO tags (`+tagColumns+`) VALUES (:id, :user_id, :parent_id, :tag, :description)`, t)
	if err != nil {
		return fmt.Errorf("sqlite: creating tag: %w", err)
	}
	return nil
}

func (db *DB) GetTag(ctx context.Context, userID, id string) (*model.Tag, error) {
	var t model.Tag
	err := db.conn.GetContext(ctx, &t,
		`SELECT `+tagColumns+` FROM tags WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tag", id)
		}
		return nil, fmt.Errorf("sqlite: getting tag %s: %w", id, err)
	}
	return &t, nil
}

func (db *DB) FindTagByName(ctx context.Context, userID, name string) (*model.Tag, error) {
	var t model.Tag
	err := db.conn.GetContext(ctx, &t,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? AND LOWER(tag) = ? ORDER BY id LIMIT 1`,
		userID, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tag", name)
		}
		return nil, fmt.Errorf("sqlite: finding tag %q: %w", name, err)
	}
	return &t, nil
}

func (db *DB) ListTags(ctx context.Context, userID string) ([]model.Tag, error) {
	tags := []model.Tag{}
	if err := db.conn.SelectContext(ctx, &tags,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? ORDER BY LOWER(tag) ASC, id ASC`, userID); err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	return tags, nil
}

func (db *DB) UpdateTag(ctx context.Context, t *model.Tag) error {
	result, err := db.conn.NamedExecContext(ctx,
		`UPDATE tags SET parent_id = :parent_id, tag = :tag, description = :description
		 WHERE id = :id AND user_id = :user_id`, t)
	if err != nil {
		return fmt.Errorf("sqlite: updating tag %s: %w", t.ID, err)
	}
	return expectOne(result, "tag", t.ID)
}

func (db *DB) DeleteTag(ctx context.Context, userID, id string) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM photo_labels WHERE tag_id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("sqlite: deleting labels of tag %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tags SET parent_id = NULL WHERE parent_id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("sqlite: detaching child tags of %s: %w", id, err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("sqlite: deleting tag %s: %w", id, err)
		}
		return expectOne(result, "tag", id)
	})
}

// ===== PHOTO LABELS =====

func (db *DB) CreateLabel(ctx context.Context, l *model.PhotoLabel) error {
	l.ID = xid.New().String()
	_, err := db.conn.NamedExecContext(ctx,
		`INSERT INTO photo_labels (`+labelColumns+`)
		 VALUES (:id, :user_id, :photo_id, :tag_id, :bounding_box, :bounding_polygon)`, l)
	if err != nil {
		return fmt.Errorf("sqlite: creating label: %w", err)
	}
	return nil
}

func (db *DB) GetLabel(ctx context.Context, userID, id string) (*model.PhotoLabel, error) {
	var l model.PhotoLabel
	err := db.conn.GetContext(ctx, &l,
		`SELECT `+labelColumns+` FROM photo_labels WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("label", id)
		}
		return nil, fmt.Errorf("sqlite: getting label %s: %w", id, err)
	}
	return &l, nil
}

func (db *DB) ListLabels(ctx context.Context, userID, photoID string) ([]model.PhotoLabel, error) {
	labels := []model.PhotoLabel{}
	if err := db.conn.SelectContext(ctx, &labels,
		`SELECT `+labelColumns+` FROM photo_labels WHERE user_id = ? AND photo_id = ? ORDER BY id ASC`,
		userID, photoID); err != nil {
		return nil, fmt.Errorf("sqlite: listing labels: %w", err)
	}
	return labels, nil
}

func (db *DB) UpdateLabel(ctx context.Context, l *model.PhotoLabel) error {
	result, err := db.conn.NamedExecContext(ctx,
		`UPDATE photo_labels
		 SET photo_id = :photo_id, tag_id = :tag_id, bounding_box = :bounding_box, bounding_polygon = :bounding_polygon
		 WHERE id = :id AND user_id = :user_id`, l)
	if err != nil {
		return fmt.Errorf("sqlite: updating label %s: %w", l.ID, err)
	}
	return expectOne(result, "label", l.ID)
}

func (db *DB) DeleteLabel(ctx context.Context, userID, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM photo_labels WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting label %s: %w", id, err)
	}
	return expectOne(result, "label", id)
}
