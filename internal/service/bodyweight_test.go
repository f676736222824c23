package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
)

func TestBodyweight(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.bodyweights.now = fixedClock("2024-05-07")
	alice := e.signup(t, "alice@example.com")
	bob := e.signup(t, "bob@example.com")

	b, err := e.bodyweights.Create(ctx, alice, model.BodyweightPatch{Bodyweight: model.Some(72.5)})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-07", b.Date)
	assert.Equal(t, 72.5, b.Bodyweight)

	t.Run("missing weight", func(t *testing.T) {
		_, err := e.bodyweights.Create(ctx, alice, model.BodyweightPatch{Date: model.Some("2024-05-01")})
		assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
	})

	t.Run("cannot clear weight", func(t *testing.T) {
		_, err := e.bodyweights.Update(ctx, alice, b.ID, model.BodyweightPatch{Bodyweight: model.Null[float64]()})
		assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
	})

	t.Run("update", func(t *testing.T) {
		got, err := e.bodyweights.Update(ctx, alice, b.ID, model.BodyweightPatch{Time: model.Some("07:00")})
		require.NoError(t, err)
		assert.Equal(t, 72.5, got.Bodyweight)
		assert.Equal(t, "07:00", *got.Time)
	})

	t.Run("ownership", func(t *testing.T) {
		_, err := e.bodyweights.Get(ctx, bob, b.ID)
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
		err = e.bodyweights.Delete(ctx, bob, b.ID)
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	})

	weights, err := e.bodyweights.List(ctx, alice, "2024-05-07")
	require.NoError(t, err)
	assert.Len(t, weights, 1)

	require.NoError(t, e.bodyweights.Delete(ctx, alice, b.ID))
	weights, err = e.bodyweights.List(ctx, alice, "")
	require.NoError(t, err)
	assert.Empty(t, weights)
}
