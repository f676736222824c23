package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/vision"
)

// ===== TAG TESTS =====

func TestTagCRUD(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")
	bob := e.signup(t, "bob@example.com")

	fruit, err := e.tags.Create(ctx, alice, model.TagPatch{Tag: model.Some(" Fruit ")})
	require.NoError(t, err)
	assert.Equal(t, "Fruit", fruit.Tag)

	apple, err := e.tags.Create(ctx, alice, model.TagPatch{Tag: model.Some("Apple"), ParentID: model.Some(fruit.ID)})
	require.NoError(t, err)
	assert.Equal(t, fruit.ID, *apple.ParentID)

	bobs, err := e.tags.Create(ctx, bob, model.TagPatch{Tag: model.Some("Bob's")})
	require.NoError(t, err)

	t.Run("foreign parent", func(t *testing.T) {
		_, err := e.tags.Create(ctx, alice, model.TagPatch{Tag: model.Some("X"), ParentID: model.Some(bobs.ID)})
		assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := e.tags.Create(ctx, alice, model.TagPatch{})
		assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
	})

	t.Run("update", func(t *testing.T) {
		got, err := e.tags.Update(ctx, alice, apple.ID, model.TagPatch{Description: model.Some("red")})
		require.NoError(t, err)
		assert.Equal(t, "Apple", got.Tag)
		assert.Equal(t, "red", *got.Description)
	})

	t.Run("delete detaches children", func(t *testing.T) {
		require.NoError(t, e.tags.Delete(ctx, alice, fruit.ID))
		got, err := e.tags.Get(ctx, alice, apple.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)

		tags, err := e.tags.List(ctx, alice)
		require.NoError(t, err)
		assert.Len(t, tags, 1)
	})

	t.Run("another user's tag", func(t *testing.T) {
		err := e.tags.Delete(ctx, alice, bobs.ID)
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	})
}

// ===== LABEL TESTS =====

func TestLabels(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")
	bob := e.signup(t, "bob@example.com")

	photo := e.upload(t, alice)
	tag, err := e.tags.Create(ctx, alice, model.TagPatch{Tag: model.Some("Rice")})
	require.NoError(t, err)
	bobTag, err := e.tags.Create(ctx, bob, model.TagPatch{Tag: model.Some("Rice")})
	require.NoError(t, err)

	box := model.BoundingBox{Left: 0.1, Top: 0.1, Width: 0.5, Height: 0.5}
	l, err := e.tags.CreateLabel(ctx, alice, photo.ID, model.LabelPatch{
		TagID:       model.Some(tag.ID),
		BoundingBox: model.Some(box),
		// The photo in the path wins.
		PhotoID: model.Some("ignored"),
	})
	require.NoError(t, err)
	assert.Equal(t, photo.ID, l.PhotoID)
	assert.Equal(t, box, *l.BoundingBox)

	t.Run("another user's tag", func(t *testing.T) {
		_, err := e.tags.CreateLabel(ctx, alice, photo.ID, model.LabelPatch{TagID: model.Some(bobTag.ID)})
		assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
	})

	t.Run("another user's photo", func(t *testing.T) {
		_, err := e.tags.CreateLabel(ctx, bob, photo.ID, model.LabelPatch{TagID: model.Some(bobTag.ID)})
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	})

	t.Run("box outside the image", func(t *testing.T) {
		_, err := e.tags.UpdateLabel(ctx, alice, l.ID, model.LabelPatch{
			BoundingBox: model.Some(model.BoundingBox{Left: 0.8, Width: 0.5}),
		})
		assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
	})

	labels, err := e.tags.Labels(ctx, alice, photo.ID)
	require.NoError(t, err)
	assert.Len(t, labels, 1)

	require.NoError(t, e.tags.DeleteLabel(ctx, alice, l.ID))
	labels, err = e.tags.Labels(ctx, alice, photo.ID)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

// ===== DETECTION TESTS =====

func TestDetect(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")
	photo := e.upload(t, alice)

	existing, err := e.tags.Create(ctx, alice, model.TagPatch{Tag: model.Some("egg")})
	require.NoError(t, err)

	box := model.BoundingBox{Left: 0.2, Top: 0.2, Width: 0.1, Height: 0.1}
	e.detector.labels = []vision.Label{
		{Name: "Egg", Confidence: 99, Box: box},
		{Name: "Egg", Confidence: 95, Box: box},
		{Name: "Toast", Confidence: 90, Box: box},
	}

	labels, err := e.tags.Detect(ctx, alice, photo.ID)
	require.NoError(t, err)
	require.Len(t, labels, 3)
	assert.Equal(t, existing.ID, labels[0].TagID)
	assert.Equal(t, existing.ID, labels[1].TagID)

	toast, err := e.db.FindTagByName(ctx, alice, "toast")
	require.NoError(t, err)
	assert.Equal(t, toast.ID, labels[2].TagID)

	tags, err := e.tags.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, tags, 2, "detection must reuse tags by name")

	stored, err := e.tags.Labels(ctx, alice, photo.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestDetectUnavailable(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "alice@example.com")
	photo := e.upload(t, alice)

	e.tags.detector = nil
	_, err := e.tags.Detect(context.Background(), alice, photo.ID)
	assert.True(t, errors.Is(err, apperror.ErrUnavailable), "got %v", err)
}

func TestDetectError(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "alice@example.com")
	photo := e.upload(t, alice)

	e.detector.err = errors.New("throttled")
	_, err := e.tags.Detect(context.Background(), alice, photo.ID)
	assert.ErrorContains(t, err, "throttled")
	assert.Equal(t, 1, e.detector.calls)
}
