package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitlog/internal/repository"
	"github.com/sakif/fitlog/internal/repository/repotest"
)

// These tests need a live server. Point FITLOG_TEST_POSTGRES_DSN at a
// throwaway database; every table in it is truncated between tests.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("FITLOG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FITLOG_TEST_POSTGRES_DSN not set")
	}

	db, err := New(dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, db.Truncate(context.Background()))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoreConformance(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.Store {
		return newTestDB(t)
	})
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_OFF"))
}
