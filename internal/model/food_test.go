package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitlog/internal/apperror"
)

func mustFields(t *testing.T, body string) Fields {
	t.Helper()
	raw, err := DecodeFields([]byte(body))
	require.NoError(t, err)
	return raw
}

func ptr[T any](v T) *T { return &v }

// ===== DECODE TESTS =====

func TestDecodeFields_RejectsNonObject(t *testing.T) {
	for _, body := range []string{`[]`, `"food"`, `null`, `{`, ``} {
		_, err := DecodeFields([]byte(body))
		assert.True(t, errors.Is(err, apperror.ErrValidation), "body %q", body)
	}
}

func TestDecodeFoodPatch_LenientNumbers(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantSet bool
		want    *float64
	}{
		{"number", `{"calories": 120.5}`, true, ptr(120.5)},
		{"numeric string", `{"calories": " 80 "}`, true, ptr(80.0)},
		{"explicit null clears", `{"calories": null}`, true, nil},
		{"garbage is dropped", `{"calories": "lots"}`, false, nil},
		{"empty string is dropped", `{"calories": ""}`, false, nil},
		{"boolean is dropped", `{"calories": true}`, false, nil},
		{"NaN string is dropped", `{"calories": "NaN"}`, false, nil},
		{"absent", `{}`, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodeFoodPatch(mustFields(t, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSet, p.Calories.Set)
			assert.Equal(t, tt.want, p.Calories.Value)
		})
	}
}

func TestDecodeFoodPatch_IgnoresUserID(t *testing.T) {
	p, err := DecodeFoodPatch(mustFields(t, `{"name":"Egg","user_id":"someone-else","id":"forged"}`))
	require.NoError(t, err)

	f := p.Apply(Food{ID: "real", UserID: "me", Date: "2024-05-01"})
	assert.Equal(t, "me", f.UserID)
	assert.Equal(t, "real", f.ID)
	assert.Equal(t, "Egg", f.Name)
}

func TestDecodeFoodPatch_QuantityAcceptsNumber(t *testing.T) {
	p, err := DecodeFoodPatch(mustFields(t, `{"quantity": 2}`))
	require.NoError(t, err)
	require.NotNil(t, p.Quantity.Value)
	assert.Equal(t, "2", *p.Quantity.Value)
}

func TestDecodeFoodPatch_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad date", `{"date":"01/05/2024"}`, "date"},
		{"bad time", `{"time":"25:99"}`, "time"},
		{"name not a string", `{"name": 12}`, "name"},
		{"photo_ids not a list", `{"photo_ids":"p1"}`, "photo_ids"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFoodPatch(mustFields(t, tt.body))
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestDecodeFoodPatch_PhotoIDs(t *testing.T) {
	p, err := DecodeFoodPatch(mustFields(t, `{"photo_ids":["p1"," ","p2 "]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, p.PhotoIDs)
}

// ===== APPLY TESTS =====

func TestFoodPatch_Apply_KeepsAbsentFields(t *testing.T) {
	existing := Food{
		ID:       "f1",
		UserID:   "u1",
		Date:     "2024-05-01",
		Name:     "Oats",
		Quantity: ptr("1 cup"),
		Calories: ptr(300.0),
		Protein:  ptr(10.0),
	}

	p, err := DecodeFoodPatch(mustFields(t, `{"protein": null, "calories": "oops", "name": " Porridge "}`))
	require.NoError(t, err)
	updated := p.Apply(existing)

	assert.Equal(t, "Porridge", updated.Name)
	assert.Equal(t, ptr(300.0), updated.Calories, "unparseable value keeps stored value")
	assert.Nil(t, updated.Protein, "explicit null clears")
	assert.Equal(t, ptr("1 cup"), updated.Quantity)
	assert.Equal(t, "2024-05-01", updated.Date)

	// the input record is untouched
	assert.Equal(t, "Oats", existing.Name)
	assert.NotNil(t, existing.Protein)
}

func TestFoodPatch_Apply_DoesNotAlias(t *testing.T) {
	p, err := DecodeFoodPatch(mustFields(t, `{"calories": 10}`))
	require.NoError(t, err)

	a := p.Apply(Food{})
	*a.Calories = 99
	b := p.Apply(Food{})
	assert.Equal(t, 10.0, *b.Calories)
}

// ===== VALIDATE TESTS =====

func TestValidateFood(t *testing.T) {
	valid := Food{ID: "f1", Date: "2024-05-01", Name: "Egg"}

	tests := []struct {
		name   string
		mutate func(f *Food)
		field  string
	}{
		{"valid", func(f *Food) {}, ""},
		{"missing name", func(f *Food) { f.Name = "  " }, "name"},
		{"bad date", func(f *Food) { f.Date = "" }, "date"},
		{"bad time", func(f *Food) { f.Time = ptr("noon") }, "time"},
		{"own parent", func(f *Food) { f.ParentID = ptr("f1") }, "parent_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			err := ValidateFood(f)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestValidateGroup(t *testing.T) {
	top := &Food{ID: "p", Name: "Sandwich"}
	nested := &Food{ID: "c", Name: "Bread", ParentID: ptr("p")}

	tests := []struct {
		name     string
		food     Food
		parent   *Food
		children int
		wantErr  bool
	}{
		{"no parent", Food{Name: "Apple"}, nil, 3, false},
		{"valid parent", Food{Name: "Ham", ParentID: ptr("p")}, top, 0, false},
		{"missing parent", Food{Name: "Ham", ParentID: ptr("x")}, nil, 0, true},
		{"parent is a child", Food{Name: "Ham", ParentID: ptr("c")}, nested, 0, true},
		{"entry has children", Food{ID: "f", Name: "Ham", ParentID: ptr("p")}, top, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGroup(tt.food, tt.parent, tt.children)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
