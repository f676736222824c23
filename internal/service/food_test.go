package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
)

// ===== CREATE / GET TESTS =====

func TestFoodCreateStampsOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")
	bob := e.signup(t, "bob@example.com")

	f := e.food(t, alice, model.Food{Name: "  Oats  ", Calories: ptr(150.0)})
	assert.Equal(t, alice, f.UserID)
	assert.Equal(t, "Oats", f.Name)

	_, err := e.foods.Get(ctx, bob, f.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "another user's entry must be not found, got %v", err)

	group, err := e.foods.Get(ctx, alice, f.ID)
	require.NoError(t, err)
	require.Len(t, group, 1)
	assert.Equal(t, f.ID, group[0].ID)
}

func TestFoodCreateDefaultsToToday(t *testing.T) {
	e := newEnv(t)
	e.foods.now = fixedClock("2024-05-07")
	alice := e.signup(t, "alice@example.com")

	f := e.food(t, alice, model.Food{Name: "Apple"})
	assert.Equal(t, "2024-05-07", f.Date)
}

func TestFoodCreateValidation(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "alice@example.com")

	tests := []struct {
		name  string
		patch model.FoodPatch
	}{
		{"missing name", model.FoodPatch{}},
		{"blank name", model.FoodPatch{Name: model.Some("   ")}},
		{"bad date", model.FoodPatch{Name: model.Some("Apple"), Date: model.Some("07/05/2024")}},
		{"bad time", model.FoodPatch{Name: model.Some("Apple"), Time: model.Some("noon")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.foods.Create(context.Background(), alice, tt.patch)
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
		})
	}
}

func TestFoodGetReturnsWholeGroup(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "alice@example.com")

	parent := e.food(t, alice, model.Food{Name: "Sandwich"})
	bread := e.food(t, alice, model.Food{Name: "Bread", ParentID: &parent.ID})
	cheese := e.food(t, alice, model.Food{Name: "Cheese", ParentID: &parent.ID})

	group, err := e.foods.Get(context.Background(), alice, bread.ID)
	require.NoError(t, err)
	var got []string
	for _, f := range group {
		got = append(got, f.ID)
	}
	assert.ElementsMatch(t, []string{parent.ID, bread.ID, cheese.ID}, got)
}

// ===== GROUP RULE TESTS =====

func TestFoodParentRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")
	bob := e.signup(t, "bob@example.com")

	parent := e.food(t, alice, model.Food{Name: "Salad"})
	child := e.food(t, alice, model.Food{Name: "Lettuce", ParentID: &parent.ID})
	foreign := e.food(t, bob, model.Food{Name: "Bob's lunch"})

	tests := []struct {
		name     string
		parentID string
	}{
		{"missing parent", "does-not-exist"},
		{"another user's parent", foreign.ID},
		{"parent is itself a child", child.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.foods.Create(ctx, alice, model.FoodPatch{
				Name:     model.Some("Tomato"),
				ParentID: model.Some(tt.parentID),
			})
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
		})
	}

	t.Run("entry with children cannot join a group", func(t *testing.T) {
		other := e.food(t, alice, model.Food{Name: "Dinner"})
		_, err := e.foods.Update(ctx, alice, parent.ID, model.FoodPatch{ParentID: model.Some(other.ID)})
		assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
	})

	t.Run("own id as parent", func(t *testing.T) {
		_, err := e.foods.Update(ctx, alice, child.ID, model.FoodPatch{ParentID: model.Some(child.ID)})
		assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
	})
}

// ===== UPDATE TESTS =====

func TestFoodUpdateMergesPatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")

	f := e.food(t, alice, model.Food{Name: "Rice", Quantity: ptr("1 cup"), Calories: ptr(200.0)})

	updated, err := e.foods.Update(ctx, alice, f.ID, model.FoodPatch{
		Calories: model.Some(210.0),
		Quantity: model.Null[string](),
	})
	require.NoError(t, err)
	assert.Equal(t, "Rice", updated.Name)
	assert.Nil(t, updated.Quantity)
	require.NotNil(t, updated.Calories)
	assert.Equal(t, 210.0, *updated.Calories)

	stored, err := e.db.GetFood(ctx, alice, f.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Quantity)
	assert.Equal(t, 210.0, *stored.Calories)
}

func TestFoodUpdateOtherUsersEntry(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "alice@example.com")
	bob := e.signup(t, "bob@example.com")
	f := e.food(t, alice, model.Food{Name: "Rice"})

	_, err := e.foods.Update(context.Background(), bob, f.ID, model.FoodPatch{Name: model.Some("Mine now")})
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

// ===== DELETE TESTS =====

func TestFoodDeleteReturnsChildren(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")

	parent := e.food(t, alice, model.Food{Name: "Burrito"})
	beans := e.food(t, alice, model.Food{Name: "Beans", ParentID: &parent.ID})
	rice := e.food(t, alice, model.Food{Name: "Rice", ParentID: &parent.ID})
	keep := e.food(t, alice, model.Food{Name: "Water"})

	removed, err := e.foods.Delete(ctx, alice, []string{parent.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{parent.ID, beans.ID, rice.ID}, removed)

	_, err = e.foods.Get(ctx, alice, keep.ID)
	assert.NoError(t, err)
}

func TestFoodDeleteRejectsEmpty(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "alice@example.com")

	for _, ids := range [][]string{nil, {""}} {
		_, err := e.foods.Delete(context.Background(), alice, ids)
		assert.True(t, errors.Is(err, apperror.ErrValidation), "ids %q: got %v", ids, err)
	}
}

func TestFoodDeleteUnknownIDKeepsEverything(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")
	f := e.food(t, alice, model.Food{Name: "Toast"})

	_, err := e.foods.Delete(ctx, alice, []string{f.ID, "missing"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)

	_, err = e.foods.Get(ctx, alice, f.ID)
	assert.NoError(t, err, "a failed bulk delete must not remove anything")
}

// ===== PHOTO ATTACH TESTS =====

func TestFoodAttachPhotos(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")
	bob := e.signup(t, "bob@example.com")

	own := e.upload(t, alice)
	foreign := e.upload(t, bob)

	t.Run("own photo", func(t *testing.T) {
		f, err := e.foods.Create(ctx, alice, model.FoodPatch{
			Name:     model.Some("Pizza"),
			PhotoIDs: []string{own.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{own.ID}, f.Photos)
	})

	t.Run("another user's photo", func(t *testing.T) {
		_, err := e.foods.Create(ctx, alice, model.FoodPatch{
			Name:     model.Some("Pasta"),
			PhotoIDs: []string{foreign.ID},
		})
		assert.True(t, errors.Is(err, apperror.ErrForbidden), "got %v", err)

		p, err := e.db.GetPhoto(ctx, bob, foreign.ID)
		require.NoError(t, err)
		assert.Nil(t, p.FoodID)
	})

	t.Run("missing photo", func(t *testing.T) {
		_, err := e.foods.Create(ctx, alice, model.FoodPatch{
			Name:     model.Some("Soup"),
			PhotoIDs: []string{"nope"},
		})
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	})
}

// ===== SEARCH TESTS =====

func TestFoodSearch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")
	bob := e.signup(t, "bob@example.com")

	large := ptr("1 large")
	e.food(t, alice, model.Food{Name: "Egg", Date: "2024-05-01", Quantity: large, Calories: ptr(70.0)})
	e.food(t, alice, model.Food{Name: "egg", Date: "2024-05-02", Quantity: large, Calories: ptr(70.0)})
	e.food(t, alice, model.Food{Name: "Egg", Date: "2024-05-03", Quantity: large, Calories: ptr(70.0)})
	e.food(t, alice, model.Food{Name: "Egg", Date: "2024-05-04", Quantity: ptr("2 large"), Calories: ptr(140.0)})
	e.food(t, alice, model.Food{Name: "Scrambled eggs", Date: "2024-05-01", Calories: ptr(200.0)})
	e.food(t, alice, model.Food{Name: "Scrambled eggs", Date: "2024-05-02", Calories: ptr(200.0)})
	e.food(t, alice, model.Food{Name: "Eggplant", Date: "2024-05-05"})
	e.food(t, alice, model.Food{Name: "Toast", Date: "2024-05-05"})
	for range 3 {
		e.food(t, bob, model.Food{Name: "Egg", Quantity: ptr("3 large")})
	}

	got, err := e.foods.Search(ctx, alice, "EGG")
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, Archetype{Name: "Egg", Quantity: large, Calories: ptr(70.0), Count: 3}, got[0])
	assert.Equal(t, "Scrambled eggs", got[1].Name)
	assert.Equal(t, 2, got[1].Count)
	// Single entries, most recent first.
	assert.Equal(t, "Eggplant", got[2].Name)
	assert.Equal(t, "Egg", got[3].Name)
	assert.Equal(t, "2 large", *got[3].Quantity)

	all, err := e.foods.Search(ctx, alice, "  ")
	require.NoError(t, err)
	require.Len(t, all, SearchLimit)
	assert.Equal(t, "Egg", all[0].Name)
	assert.Equal(t, 3, all[0].Count)
	assert.Equal(t, "Scrambled eggs", all[1].Name)
}

func TestRankArchetypes(t *testing.T) {
	at := func(date string, min int) (string, time.Time) {
		return date, time.Date(2024, 5, 1, 8, min, 0, 0, time.UTC)
	}
	food := func(name string, cal *float64, date string, created time.Time) model.Food {
		return model.Food{Name: name, Calories: cal, Date: date, CreatedAt: created}
	}

	t.Run("nil and zero are different archetypes", func(t *testing.T) {
		d, c := at("2024-05-01", 0)
		got := rankArchetypes([]model.Food{
			food("Tea", nil, d, c),
			food("Tea", ptr(0.0), d, c),
		}, SearchLimit)
		assert.Len(t, got, 2)
	})

	t.Run("spelling tie goes to the most recent", func(t *testing.T) {
		d1, c1 := at("2024-05-01", 0)
		d2, c2 := at("2024-05-01", 5)
		got := rankArchetypes([]model.Food{
			food("coffee", nil, d1, c1),
			food("Coffee", nil, d2, c2),
		}, SearchLimit)
		require.Len(t, got, 1)
		assert.Equal(t, "Coffee", got[0].Name)
		assert.Equal(t, 2, got[0].Count)
	})

	t.Run("full tie goes to the name", func(t *testing.T) {
		d, c := at("2024-05-01", 0)
		got := rankArchetypes([]model.Food{
			food("Banana", nil, d, c),
			food("Apple", nil, d, c),
		}, SearchLimit)
		require.Len(t, got, 2)
		assert.Equal(t, "Apple", got[0].Name)
		assert.Equal(t, "Banana", got[1].Name)
	})

	t.Run("limit", func(t *testing.T) {
		var foods []model.Food
		for i, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
			d, c := at("2024-05-01", i)
			foods = append(foods, food(name, nil, d, c))
		}
		got := rankArchetypes(foods, SearchLimit)
		require.Len(t, got, SearchLimit)
		assert.Equal(t, "g", got[0].Name)
	})
}

// ===== SUMMARY TESTS =====

func TestCalorieTrend(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	day := func(date string, cal *float64) model.DailyCalories {
		return model.DailyCalories{Date: date, Calories: cal}
	}

	tests := []struct {
		name    string
		history []model.DailyCalories
		want    *float64
	}{
		{
			name: "null day counts as zero",
			history: []model.DailyCalories{
				day("2024-05-07", ptr(700.0)),
				day("2024-05-06", nil),
				day("2024-05-05", ptr(500.0)),
			},
			want: ptr(100.0),
		},
		{
			name: "flat",
			history: []model.DailyCalories{
				day("2024-05-01", ptr(2000.0)),
				day("2024-05-03", ptr(2000.0)),
				day("2024-05-04", ptr(2000.0)),
			},
			want: ptr(0.0),
		},
		{
			name: "two samples give no trend",
			history: []model.DailyCalories{
				day("2024-05-06", ptr(500.0)),
				day("2024-05-07", ptr(900.0)),
			},
		},
		{name: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calorieTrend(tt.history, start)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-6)
		})
	}
}

func TestFoodSummary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.foods.now = fixedClock("2024-05-07")
	alice := e.signup(t, "alice@example.com")

	_, err := e.accounts.UpdateProfile(ctx, alice, alice, model.ProfilePatch{TargetCalories: model.Some(2000.0)})
	require.NoError(t, err)

	e.food(t, alice, model.Food{Name: "Old", Date: "2024-04-30", Calories: ptr(999.0)})
	e.food(t, alice, model.Food{Name: "Lunch", Date: "2024-05-05", Calories: ptr(500.0)})
	e.food(t, alice, model.Food{Name: "Water", Date: "2024-05-06"})
	e.food(t, alice, model.Food{Name: "Breakfast", Date: "2024-05-07", Calories: ptr(400.0)})
	meal := e.food(t, alice, model.Food{Name: "Dinner", Date: "2024-05-07", Calories: ptr(300.0)})
	// Counted through its parent's total.
	e.food(t, alice, model.Food{Name: "Side", Date: "2024-05-07", Calories: ptr(100.0), ParentID: &meal.ID})

	got, err := e.foods.Summary(ctx, alice, "")
	require.NoError(t, err)

	require.Len(t, got.History, 3)
	assert.Equal(t, "2024-05-07", got.History[0].Date)
	assert.Equal(t, 700.0, *got.History[0].Calories)
	assert.Equal(t, "2024-05-06", got.History[1].Date)
	assert.Nil(t, got.History[1].Calories)
	assert.Equal(t, 500.0, *got.History[2].Calories)

	require.NotNil(t, got.Trend)
	assert.InDelta(t, 100.0, *got.Trend, 1e-6)
	require.NotNil(t, got.GoalCalories)
	assert.Equal(t, 2000.0, *got.GoalCalories)

	t.Run("explicit date", func(t *testing.T) {
		got, err := e.foods.Summary(ctx, alice, "2024-05-05")
		require.NoError(t, err)
		require.Len(t, got.History, 2)
		assert.Nil(t, got.Trend)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := e.foods.Summary(ctx, alice, "yesterday")
		assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
	})
}

// ===== NUTRITION TESTS =====

func TestFoodNutrition(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice@example.com")

	e.food(t, alice, model.Food{Name: "Greek yogurt", Quantity: ptr("170 g"), Calories: ptr(100.0), Protein: ptr(17.0)})
	e.food(t, alice, model.Food{Name: "Greek Yogurt", Quantity: ptr("170 g"), Calories: ptr(140.0)})
	e.food(t, alice, model.Food{Name: "Greek yogurt", Quantity: ptr("1 cup")})

	got, err := e.foods.Nutrition(ctx, alice, "greek yogurt", "g")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)
	require.NotNil(t, got.Mean.Calories)
	assert.Equal(t, 120.0, *got.Mean.Calories)
	require.NotNil(t, got.Mean.Protein)
	assert.Equal(t, 17.0, *got.Mean.Protein)

	got, err = e.foods.Nutrition(ctx, alice, "greek yogurt", "cup")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)
	assert.Nil(t, got.Mean.Calories)

	_, err = e.foods.Nutrition(ctx, alice, "", "")
	assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
}
