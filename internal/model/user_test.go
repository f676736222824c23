package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitlog/internal/apperror"
)

func TestDecodeProfilePatch_StrictTargets(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		want    *float64
	}{
		{"number", `{"target_calories": 2200}`, false, ptr(2200.0)},
		{"numeric string", `{"target_calories": "2200.5"}`, false, ptr(2200.5)},
		{"empty string clears", `{"target_calories": ""}`, false, nil},
		{"null clears", `{"target_calories": null}`, false, nil},
		{"garbage rejected", `{"target_calories": "a lot"}`, true, nil},
		{"object rejected", `{"target_calories": {}}`, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodeProfilePatch(mustFields(t, tt.body))
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperror.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.True(t, p.TargetCalories.Set)
			assert.Equal(t, tt.want, p.TargetCalories.Value)
		})
	}
}

func TestProfilePatch_ApplyAndValidate(t *testing.T) {
	existing := UserProfile{ID: "u1", DisplayName: "Sam", City: ptr("Oslo")}

	p, err := DecodeProfilePatch(mustFields(t, `{"display_name":"  ","city":null}`))
	require.NoError(t, err)
	updated := p.Apply(existing)

	assert.Equal(t, "", updated.DisplayName)
	assert.Nil(t, updated.City)
	assert.True(t, errors.Is(ValidateProfile(updated), apperror.ErrValidation))

	// original state is preserved for the caller to keep
	assert.Equal(t, "Sam", existing.DisplayName)
	assert.NoError(t, ValidateProfile(existing))
}

func TestValidateProfile_NegativeTarget(t *testing.T) {
	err := ValidateProfile(UserProfile{DisplayName: "Sam", TargetWeight: ptr(-3.0)})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "target_weight", appErr.Field)
}

func TestUserProfile_Public(t *testing.T) {
	p := UserProfile{ID: "u1", DisplayName: "Sam", City: ptr("Oslo"), TargetCalories: ptr(2000.0)}
	pub := p.Public()
	assert.Equal(t, PublicProfile{ID: "u1", Name: "Sam"}, pub)
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("sam@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("Sam <sam@example.com>"))
	assert.Equal(t, "sam@example.com", NormalizeEmail("  Sam@Example.COM "))
}
