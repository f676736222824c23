package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/fitlog/internal/auth"
	"github.com/sakif/fitlog/internal/blob"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/repository/sqlite"
	"github.com/sakif/fitlog/internal/vision"
)

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================
//
// The services run against a real in-memory SQLite store and a blob store
// in a temp dir. Only the label detector is faked.

type env struct {
	db       *sqlite.DB
	blobs    *blob.Disk
	detector *fakeDetector

	accounts    *AccountService
	foods       *FoodService
	photos      *PhotoService
	tags        *TagService
	bodyweights *BodyweightService
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := blob.NewDisk(t.TempDir())
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("test-secret-at-least-16", time.Hour)
	require.NoError(t, err)

	logger := quietLogger()
	detector := &fakeDetector{}
	return &env{
		db:          db,
		blobs:       blobs,
		detector:    detector,
		accounts:    NewAccountService(db, tokens, auth.NewPasswordServiceForTest(4), logger),
		foods:       NewFoodService(db, db, logger),
		photos:      NewPhotoService(db, db, blobs, logger),
		tags:        NewTagService(db, db, blobs, detector, logger),
		bodyweights: NewBodyweightService(db, logger),
	}
}

// signup creates a user with password "password" and returns its id.
func (e *env) signup(t *testing.T, email string) string {
	t.Helper()
	sess, err := e.accounts.Signup(context.Background(), SignupInput{
		Name:     email,
		Email:    email,
		Password: "password",
	})
	require.NoError(t, err)
	return sess.User.ID
}

func (e *env) food(t *testing.T, userID string, f model.Food) *model.Food {
	t.Helper()
	patch := model.FoodPatch{Name: model.Some(f.Name)}
	if f.Date != "" {
		patch.Date = model.Some(f.Date)
	}
	if f.Quantity != nil {
		patch.Quantity = model.Some(*f.Quantity)
	}
	if f.Calories != nil {
		patch.Calories = model.Some(*f.Calories)
	}
	if f.Protein != nil {
		patch.Protein = model.Some(*f.Protein)
	}
	if f.ParentID != nil {
		patch.ParentID = model.Some(*f.ParentID)
	}
	created, err := e.foods.Create(context.Background(), userID, patch)
	require.NoError(t, err)
	return created
}

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func (e *env) upload(t *testing.T, userID string) *model.Photo {
	t.Helper()
	p, err := e.photos.Upload(context.Background(), userID, Upload{
		Body: bytes.NewReader(pngHeader),
		Size: int64(len(pngHeader)),
		Date: "2024-05-01",
	})
	require.NoError(t, err)
	return p
}

type fakeDetector struct {
	labels []vision.Label
	err    error
	calls  int
}

func (f *fakeDetector) Detect(_ context.Context, image []byte) ([]vision.Label, error) {
	f.calls++
	return f.labels, f.err
}

func ptr[T any](v T) *T { return &v }

func fixedClock(date string) func() time.Time {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return d.Add(12 * time.Hour) }
}
