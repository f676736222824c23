package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/repository"
	"github.com/sakif/fitlog/internal/repository/repotest"
)

// newTestDB returns a fresh in-memory database that is closed when the
// test finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoreConformance(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.Store {
		return newTestDB(t)
	})
}

// =========================================================================
// SQLITE SPECIFIC TESTS
// =========================================================================

func TestNewIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fitlog.db")

	db, err := New(path)
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	u := &model.User{Email: "kept@example.com", PasswordHash: "h"}
	if err := db.CreateUser(context.Background(), u, &model.UserProfile{DisplayName: "Kept"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	db.Close()

	db, err = New(path)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer db.Close()

	got, err := db.GetUserByEmail(context.Background(), "kept@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() after reopen error = %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("ID = %q, want %q", got.ID, u.ID)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestLinkGitHubConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := &model.User{Email: "a@example.com", PasswordHash: "h"}
	b := &model.User{Email: "b@example.com", PasswordHash: "h"}
	for _, u := range []*model.User{a, b} {
		if err := db.CreateUser(ctx, u, &model.UserProfile{DisplayName: u.Email}); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
	}

	if err := db.LinkGitHub(ctx, a.ID, 7); err != nil {
		t.Fatalf("LinkGitHub(a) error = %v", err)
	}
	err := db.LinkGitHub(ctx, b.ID, 7)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("LinkGitHub(b) error = %v, want ErrConflict", err)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db := newTestDB(t)

	f := &model.Food{UserID: "no-such-user", Name: "Ghost", Date: "2024-05-01"}
	if err := db.CreateFood(context.Background(), f, nil); err == nil {
		t.Error("CreateFood() for a missing user should fail")
	}
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Egg", "%egg%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
		{`c:\`, `%c:\\%`},
	}
	for _, tt := range tests {
		if got := likePattern(tt.in); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
