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

const (
	userColumns    = `id, email, password_hash, verified_email, github_id, created_at, updated_at`
	profileColumns = `id, display_name, gender, preferred_units, target_weight, target_calories, weight_goal, country, state, city, last_activity`
)

// CreateUser inserts the user and its profile. The email is checked inside
// the transaction, and the UNIQUE constraint backs that check up when two
// signups race.
func (db *DB) CreateUser(ctx context.Context, u *model.User, p *model.UserProfile) error {
	now := time.Now().UTC()
	u.ID = xid.New().String()
	u.CreatedAt = now
	u.UpdatedAt = now
	p.ID = u.ID

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE email = ?`, u.Email); err != nil {
			return fmt.Errorf("sqlite: checking email: %w", err)
		}
		if n > 0 {
			return apperror.Conflict("user", u.Email)
		}

		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES (:id, :email, :password_hash, :verified_email, :github_id, :created_at, :updated_at)`, u)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("user", u.Email)
			}
			return fmt.Errorf("sqlite: inserting user: %w", err)
		}

		_, err = tx.NamedExecContext(ctx,
			`INSERT INTO user_profiles (`+profileColumns+`)
			 VALUES (:id, :display_name, :gender, :preferred_units, :target_weight, :target_calories,
			         :weight_goal, :country, :state, :city, :last_activity)`, p)
		if err != nil {
			return fmt.Errorf("sqlite: inserting profile: %w", err)
		}
		return nil
	})
}

func (db *DB) getUser(ctx context.Context, what string, query string, arg any) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", what, err)
	}
	return &u, nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", `id = ?`, id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", `email = ?`, email)
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return db.getUser(ctx, "github id", `github_id = ?`, githubID)
}

func (db *DB) LinkGitHub(ctx context.Context, userID string, githubID int64) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET github_id = ?, verified_email = 1, updated_at = ? WHERE id = ?`,
		githubID, time.Now().UTC(), userID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("github account", fmt.Sprint(githubID))
		}
		return fmt.Errorf("sqlite: linking github account: %w", err)
	}
	return expectOne(result, "user", userID)
}

func (db *DB) UpdatePassword(ctx context.Context, userID, hash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("sqlite: updating password: %w", err)
	}
	return expectOne(result, "user", userID)
}

func (db *DB) GetProfile(ctx context.Context, id string) (*model.UserProfile, error) {
	var p model.UserProfile
	err := db.conn.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM user_profiles WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}
	return &p, nil
}

func (db *DB) ListProfiles(ctx context.Context, ids []string) ([]model.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles`
	var args []any
	if len(ids) > 0 {
		q, a, err := in(query+` WHERE id IN (?)`, ids)
		if err != nil {
			return nil, err
		}
		query, args = q, a
	}

	profiles := []model.UserProfile{}
	if err := db.conn.SelectContext(ctx, &profiles, query+` ORDER BY LOWER(display_name) ASC, id ASC`, args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing profiles: %w", err)
	}
	return profiles, nil
}

func (db *DB) UpdateProfile(ctx context.Context, p *model.UserProfile) error {
	result, err := db.conn.NamedExecContext(ctx,
		`UPDATE user_profiles
		 SET display_name = :display_name, gender = :gender, preferred_units = :preferred_units,
		     target_weight = :target_weight, target_calories = :target_calories, weight_goal = :weight_goal,
		     country = :country, state = :state, city = :city
		 WHERE id = :id`, p)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile %s: %w", p.ID, err)
	}
	return expectOne(result, "user", p.ID)
}

func (db *DB) TouchActivity(ctx context.Context, userID string, at time.Time, minAge time.Duration) error {
	var last sql.NullTime
	err := db.conn.GetContext(ctx, &last, `SELECT last_activity FROM user_profiles WHERE id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("user", userID)
		}
		return fmt.Errorf("sqlite: reading last activity: %w", err)
	}
	if last.Valid && at.Sub(last.Time) < minAge {
		return nil
	}

	if _, err := db.conn.ExecContext(ctx,
		`UPDATE user_profiles SET last_activity = ? WHERE id = ?`, at.UTC(), userID); err != nil {
		return fmt.Errorf("sqlite: touching last activity: %w", err)
	}
	return nil
}

// expectOne turns an update that matched nothing into NotFound.
func expectOne(result sql.Result, resource, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
