package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/repository"
)

const foodColumns = `id, user_id, date, time, name, quantity, calories, protein, parent_id, created_at, updated_at`

func (db *DB) CreateFood(ctx context.Context, f *model.Food, photoIDs []string) error {
	now := time.Now().UTC()
	f.ID = xid.New().String()
	f.CreatedAt = now
	f.UpdatedAt = now

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkGroup(ctx, tx, f); err != nil {
			return err
		}
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO foods (`+foodColumns+`)
			 VALUES (:id, :user_id, :date, :time, :name, :quantity, :calories, :protein, :parent_id, :created_at, :updated_at)`,
			f,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating food: %w", err)
		}
		if err := attachPhotos(ctx, tx, f.UserID, f.ID, photoIDs); err != nil {
			return err
		}
		f.Photos, err = photoIDsFor(ctx, tx, f.UserID, f.ID)
		return err
	})
}

func (db *DB) GetFood(ctx context.Context, userID, id string) (*model.Food, error) {
	var f model.Food
	err := db.conn.GetContext(ctx, &f,
		`SELECT `+foodColumns+` FROM foods WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("food", id)
		}
		return nil, fmt.Errorf("sqlite: getting food %s: %w", id, err)
	}

	if f.Photos, err = photoIDsFor(ctx, db.conn, userID, id); err != nil {
		return nil, err
	}
	return &f, nil
}

func (db *DB) ListFoods(ctx context.Context, userID string, filter repository.FoodFilter) ([]model.Food, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if filter.Date != "" {
		where = append(where, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.NameContains != "" {
		where = append(where, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.NameContains))
	}
	if filter.QuantityContains != "" {
		where = append(where, `LOWER(COALESCE(quantity, '')) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.QuantityContains))
	}

	foods := []model.Food{}
	err := db.conn.SelectContext(ctx, &foods,
		`SELECT `+foodColumns+` FROM foods
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY date DESC, created_at ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing foods: %w", err)
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
	err = db.conn.SelectContext(ctx, &foods,
		`SELECT `+foodColumns+` FROM foods
		 WHERE user_id = ? AND (id = ? OR parent_id = ?)
		 ORDER BY created_at ASC, id ASC`,
		userID, root, root,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading food group %s: %w", root, err)
	}
	if err := db.fillPhotos(ctx, userID, foods); err != nil {
		return nil, err
	}
	return foods, nil
}

// checkGroup runs inside the write transaction; the single connection
// keeps another writer from changing the parent until it commits.
func checkGroup(ctx context.Context, tx *sqlx.Tx, f *model.Food) error {
	if f.ParentID == nil {
		return nil
	}

	var parent *model.Food
	var p model.Food
	err := tx.GetContext(ctx, &p,
		`SELECT `+foodColumns+` FROM foods WHERE id = ? AND user_id = ?`, *f.ParentID, f.UserID)
	switch {
	case err == nil:
		parent = &p
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("sqlite: loading parent %s: %w", *f.ParentID, err)
	}

	var children int
	if err := tx.GetContext(ctx, &children,
		`SELECT COUNT(*) FROM foods WHERE user_id = ? AND parent_id = ?`, f.UserID, f.ID); err != nil {
		return fmt.Errorf("sqlite: counting children of %s: %w", f.ID, err)
	}
	return model.ValidateGroup(*f, parent, children)
}

func (db *DB) UpdateFood(ctx context.Context, f *model.Food, photoIDs []string) error {
	f.UpdatedAt = time.Now().UTC()

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkGroup(ctx, tx, f); err != nil {
			return err
		}
		result, err := tx.NamedExecContext(ctx,
			`UPDATE foods
			 SET date = :date, time = :time, name = :name, quantity = :quantity,
			     calories = :calories, protein = :protein, parent_id = :parent_id, updated_at = :updated_at
			 WHERE id = :id AND user_id = :user_id`,
			f,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating food %s: %w", f.ID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rows == 0 {
			return apperror.NotFound("food", f.ID)
		}
		if err := attachPhotos(ctx, tx, f.UserID, f.ID, photoIDs); err != nil {
			return err
		}
		f.Photos, err = photoIDsFor(ctx, tx, f.UserID, f.ID)
		return err
	})
}

func (db *DB) DeleteFoods(ctx context.Context, userID string, ids []string) ([]string, error) {
	var removed []string

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		seen := make(map[string]bool)
		for _, id := range ids {
			var n int
			if err := tx.GetContext(ctx, &n,
				`SELECT COUNT(*) FROM foods WHERE id = ? AND user_id = ?`, id, userID); err != nil {
				return fmt.Errorf("sqlite: checking food %s: %w", id, err)
			}
			if n == 0 {
				return apperror.NotFound("food", id)
			}

			var children []string
			if err := tx.SelectContext(ctx, &children,
				`SELECT id FROM foods WHERE user_id = ? AND parent_id = ? ORDER BY created_at ASC, id ASC`,
				userID, id); err != nil {
				return fmt.Errorf("sqlite: reading children of %s: %w", id, err)
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

		stmts := []struct {
			query string
			what  string
		}{
			{`UPDATE photos SET food_id = NULL WHERE user_id = ? AND food_id IN (?)`, "detaching photos"},
			{`DELETE FROM foods WHERE user_id = ? AND parent_id IN (?)`, "deleting children"},
			{`DELETE FROM foods WHERE user_id = ? AND id IN (?)`, "deleting foods"},
		}
		for _, s := range stmts {
			q, args, err := in(s.query, userID, removed)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("sqlite: %s: %w", s.what, err)
			}
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
	err := db.conn.SelectContext(ctx, &days,
		`SELECT f.date AS date, SUM(f.calories) AS calories
		 FROM foods f
		 LEFT JOIN foods p ON p.id = f.parent_id
		 WHERE f.user_id = ? AND f.date >= ? AND f.date <= ?
		   AND (f.parent_id IS NULL OR p.calories IS NULL)
		 GROUP BY f.date
		 ORDER BY f.date DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: summing calories: %w", err)
	}
	return days, nil
}

// attachPhotos points each photo at foodID. Photos are checked one by one
// so the error names the offending ID.
func attachPhotos(ctx context.Context, tx *sqlx.Tx, userID, foodID string, photoIDs []string) error {
	for _, pid := range photoIDs {
		var owner string
		err := tx.GetContext(ctx, &owner, `SELECT user_id FROM photos WHERE id = ?`, pid)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("photo", pid)
		}
		if err != nil {
			return fmt.Errorf("sqlite: checking photo %s: %w", pid, err)
		}
		if owner != userID {
			return apperror.Forbidden(fmt.Sprintf("photo %s belongs to another user", pid))
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE photos SET food_id = ? WHERE id = ? AND user_id = ?`, foodID, pid, userID); err != nil {
			return fmt.Errorf("sqlite: attaching photo %s: %w", pid, err)
		}
	}
	return nil
}

func photoIDsFor(ctx context.Context, q sqlx.QueryerContext, userID, foodID string) ([]string, error) {
	ids := []string{}
	if err := sqlx.SelectContext(ctx, q, &ids,
		`SELECT id FROM photos WHERE user_id = ? AND food_id = ? ORDER BY upload_time ASC, id ASC`,
		userID, foodID); err != nil {
		return nil, fmt.Errorf("sqlite: listing photos of food %s: %w", foodID, err)
	}
	return ids, nil
}

// fillPhotos sets Photos on every entry with one query.
func (db *DB) fillPhotos(ctx context.Context, userID string, foods []model.Food) error {
	if len(foods) == 0 {
		return nil
	}
	ids := make([]string, len(foods))
	for i := range foods {
		ids[i] = foods[i].ID
		foods[i].Photos = []string{}
	}

	q, args, err := in(
		`SELECT id, food_id FROM photos WHERE user_id = ? AND food_id IN (?) ORDER BY upload_time ASC, id ASC`,
		userID, ids)
	if err != nil {
		return err
	}
	var links []struct {
		ID     string `db:"id"`
		FoodID string `db:"food_id"`
	}
	if err := db.conn.SelectContext(ctx, &links, q, args...); err != nil {
		return fmt.Errorf("sqlite: listing food photos: %w", err)
	}

	byFood := make(map[string][]string, len(links))
	for _, l := range links {
		byFood[l.FoodID] = append(byFood[l.FoodID], l.ID)
	}
	for i := range foods {
		if p, ok := byFood[foods[i].ID]; ok {
			foods[i].Photos = p
		}
	}
	return nil
}
