package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
)

// ===== UPLOAD TESTS =====

func TestPhotoUpload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.photos.now = fixedClock("2024-05-07")
	alice := e.signup(t, "alice@example.com")

	body := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2048)...)
	p, err := e.photos.Upload(ctx, alice, Upload{
		Body: bytes.NewReader(body),
		Size: int64(len(body)),
		Time: "08:30",
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.ContentType)
	assert.Equal(t, "2024-05-07", p.Date)
	require.NotNil(t, p.Time)
	assert.Equal(t, "08:30", *p.Time)

	got, rc, err := e.photos.Open(ctx, alice, p.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, data, "the sniffed header must not be lost")
	assert.Equal(t, p.ID, got.ID)
}

func TestPhotoUploadRejects(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "alice@example.com")

	tests := []struct {
		name string
		up   Upload
	}{
		{"empty", Upload{Body: strings.NewReader("")}},
		{"not an image", Upload{Body: strings.NewReader("just some text")}},
		{"bad date", Upload{Body: bytes.NewReader(pngHeader), Date: "May 1st"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.photos.Upload(context.Background(), alice, tt.up)
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
		})
	}

	photos, err := e.photos.List(context.Background(), alice, "")
	require.NoError(t, err)
	assert.Empty(t, photos)
}

// ===== OWNERSHIP TESTS =====

func TestPhotoOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")
	bob := e.signup(t, "bob@example.com")
	p := e.upload(t, alice)

	_, err := e.photos.Get(ctx, bob, p.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	_, _, err = e.photos.Open(ctx, bob, p.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	err = e.photos.Delete(ctx, bob, p.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

// ===== UPDATE TESTS =====

func TestPhotoUpdateFood(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")
	bob := e.signup(t, "bob@example.com")

	p := e.upload(t, alice)
	own := e.food(t, alice, model.Food{Name: "Curry"})
	foreign := e.food(t, bob, model.Food{Name: "Stew"})

	updated, err := e.photos.Update(ctx, alice, p.ID, model.PhotoPatch{FoodID: model.Some(own.ID)})
	require.NoError(t, err)
	require.NotNil(t, updated.FoodID)
	assert.Equal(t, own.ID, *updated.FoodID)

	_, err = e.photos.Update(ctx, alice, p.ID, model.PhotoPatch{FoodID: model.Some(foreign.ID)})
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)

	cleared, err := e.photos.Update(ctx, alice, p.ID, model.PhotoPatch{FoodID: model.Null[string]()})
	require.NoError(t, err)
	assert.Nil(t, cleared.FoodID)
}

// ===== LIST / DELETE TESTS =====

func TestPhotoListAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")
	p := e.upload(t, alice)
	e.upload(t, alice)

	photos, err := e.photos.List(ctx, alice, "2024-05-01")
	require.NoError(t, err)
	assert.Len(t, photos, 2)

	photos, err = e.photos.List(ctx, alice, "2024-05-02")
	require.NoError(t, err)
	assert.Empty(t, photos)

	_, err = e.photos.List(ctx, alice, "nope")
	assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)

	require.NoError(t, e.photos.Delete(ctx, alice, p.ID))
	_, err = e.blobs.Get(ctx, p.FileName)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "bytes should be gone, got %v", err)
	_, err = e.photos.Get(ctx, alice, p.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}
