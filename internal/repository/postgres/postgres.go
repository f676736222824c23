// Package postgres implements repository.Store on PostgreSQL through gorm.
//
// It is selected when DATABASE_URL is set. The schema comes from
// AutoMigrate over the model structs, so the table and column names match
// the SQLite store. Ownership is always part of the WHERE clause, never a
// follow-up check.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB is the PostgreSQL store.
type DB struct {
	gorm *gorm.DB
}

// New connects to dsn and migrates the schema. Query logging goes to log
// at debug level, slow queries at warn.
func New(dsn string, log *slog.Logger) (*DB, error) {
	g, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: logger.NewSlogLogger(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	if err := g.AutoMigrate(
		&model.User{},
		&model.UserProfile{},
		&model.Food{},
		&model.Photo{},
		&model.Tag{},
		&model.PhotoLabel{},
		&model.Bodyweight{},
	); err != nil {
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return &DB{gorm: g}, nil
}

func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// tables lists every table, children before parents.
var tables = []string{"photo_labels", "bodyweights", "tags", "photos", "foods", "user_profiles", "users"}

// Truncate empties every table. Tests use it to start from a clean slate.
func (db *DB) Truncate(ctx context.Context) error {
	return db.gorm.WithContext(ctx).Exec(`TRUNCATE ` + strings.Join(tables, ", ")).Error
}

// notFound maps gorm's missing-row error onto apperror and wraps the rest.
func notFound(err error, resource, id, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource, id)
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

// expectOne turns a write that matched nothing into NotFound.
func expectOne(result *gorm.DB, resource, id, op string) error {
	if result.Error != nil {
		return fmt.Errorf("postgres: %s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// likePattern turns user input into a LIKE pattern matching it anywhere,
// with the LIKE wildcards in the input escaped.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
