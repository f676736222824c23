// Package repotest is a conformance suite for repository.Store
// implementations. Each backend's tests call Run with a constructor that
// returns an empty store.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/repository"
)

// NewStore returns an empty store and registers its cleanup on t.
type NewStore func(t *testing.T) repository.Store

// Run executes every conformance test as a subtest.
func Run(t *testing.T, newStore NewStore) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s repository.Store)
	}{
		{"FoodCreateAndGet", testFoodCreateAndGet},
		{"FoodOwnership", testFoodOwnership},
		{"FoodListFilters", testFoodListFilters},
		{"FoodGroup", testFoodGroup},
		{"FoodGroupRules", testFoodGroupRules},
		{"FoodUpdate", testFoodUpdate},
		{"FoodDeleteCascade", testFoodDeleteCascade},
		{"FoodDeleteIsAtomic", testFoodDeleteIsAtomic},
		{"FoodPhotoAttach", testFoodPhotoAttach},
		{"DailyCalories", testDailyCalories},
		{"Users", testUsers},
		{"Profiles", testProfiles},
		{"Photos", testPhotos},
		{"TagsAndLabels", testTagsAndLabels},
		{"Bodyweights", testBodyweights},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func ptr[T any](v T) *T { return &v }

func createUser(t *testing.T, s repository.Store, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(context.Background(), u, &model.UserProfile{DisplayName: email}))
	return u
}

func createFood(t *testing.T, s repository.Store, f model.Food) *model.Food {
	t.Helper()
	if f.Date == "" {
		f.Date = "2024-05-01"
	}
	require.NoError(t, s.CreateFood(context.Background(), &f, nil))
	return &f
}

func createPhoto(t *testing.T, s repository.Store, userID string) *model.Photo {
	t.Helper()
	p := &model.Photo{UserID: userID, ContentType: "image/jpeg", Date: "2024-05-01"}
	require.NoError(t, s.CreatePhoto(context.Background(), p))
	return p
}

func ids(foods []model.Food) []string {
	out := make([]string, len(foods))
	for i, f := range foods {
		out[i] = f.ID
	}
	return out
}

// ===== FOOD TESTS =====

func testFoodCreateAndGet(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := createUser(t, s, "a@example.com")

	f := createFood(t, s, model.Food{
		UserID:   u.ID,
		Name:     "Egg",
		Quantity: ptr("1 large"),
		Calories: ptr(78.0),
		Time:     ptr("08:30"),
	})
	require.NotEmpty(t, f.ID)
	assert.False(t, f.CreatedAt.IsZero())

	got, err := s.GetFood(ctx, u.ID, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Egg", got.Name)
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, ptr("1 large"), got.Quantity)
	assert.Equal(t, ptr(78.0), got.Calories)
	assert.Nil(t, got.Protein)
	assert.Equal(t, ptr("08:30"), got.Time)
	assert.Equal(t, "2024-05-01", got.Date)
	assert.Empty(t, got.Photos)
}

func testFoodOwnership(t *testing.T, s repository.Store) {
	ctx := context.Background()
	alice := createUser(t, s, "alice@example.com")
	bob := createUser(t, s, "bob@example.com")
	f := createFood(t, s, model.Food{UserID: alice.ID, Name: "Toast"})

	_, err := s.GetFood(ctx, bob.ID, f.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	foods, err := s.ListFoods(ctx, bob.ID, repository.FoodFilter{})
	require.NoError(t, err)
	assert.Empty(t, foods)

	stolen := *f
	stolen.UserID = bob.ID
	stolen.Name = "Mine now"
	assert.True(t, errors.Is(s.UpdateFood(ctx, &stolen, nil), apperror.ErrNotFound))

	_, err = s.DeleteFoods(ctx, bob.ID, []string{f.ID})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	got, err := s.GetFood(ctx, alice.ID, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Toast", got.Name)
}

func testFoodListFilters(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := createUser(t, s, "a@example.com")
	createFood(t, s, model.Food{UserID: u.ID, Name: "Greek Yogurt", Date: "2024-05-01", Quantity: ptr("200 g")})
	createFood(t, s, model.Food{UserID: u.ID, Name: "yogurt drink", Date: "2024-05-02", Quantity: ptr("1 bottle")})
	createFood(t, s, model.Food{UserID: u.ID, Name: "Coffee 100%", Date: "2024-05-02"})
	createFood(t, s, model.Food{UserID: u.ID, Name: "Coffee", Date: "2024-05-03"})

	all, err := s.ListFoods(ctx, u.ID, repository.FoodFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "2024-05-03", all[0].Date, "newest date first")
	assert.Equal(t, "yogurt drink", all[1].Name, "creation order within a day")

	byDate, err := s.ListFoods(ctx, u.ID, repository.FoodFilter{Date: "2024-05-02"})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	byName, err := s.ListFoods(ctx, u.ID, repository.FoodFilter{NameContains: "YOGURT"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	literal, err := s.ListFoods(ctx, u.ID, repository.FoodFilter{NameContains: "0%"})
	require.NoError(t, err)
	require.Len(t, literal, 1, "%% in the query is literal")
	assert.Equal(t, "Coffee 100%", literal[0].Name)

	byUnits, err := s.ListFoods(ctx, u.ID, repository.FoodFilter{NameContains: "yogurt", QuantityContains: "G"})
	require.NoError(t, err)
	require.Len(t, byUnits, 1)
	assert.Equal(t, "Greek Yogurt", byUnits[0].Name)
}

func testFoodGroup(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := createUser(t, s, "a@example.com")
	parent := createFood(t, s, model.Food{UserID: u.ID, Name: "Sandwich"})
	bread := createFood(t, s, model.Food{UserID: u.ID, Name: "Bread", ParentID: &parent.ID})
	ham := createFood(t, s, model.Food{UserID: u.ID, Name: "Ham", ParentID: &parent.ID})
	other := createFood(t, s, model.Food{UserID: u.ID, Name: "Apple"})

	group, err := s.FoodGroup(ctx, u.ID, ham.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{parent.ID, bread.ID, ham.ID}, ids(group))

	group, err = s.FoodGroup(ctx, u.ID, parent.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{parent.ID, bread.ID, ham.ID}, ids(group))

	group, err = s.FoodGroup(ctx, u.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, ids(group))
}

func testFoodGroupRules(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := createUser(t, s, "a@example.com")
	other := createUser(t, s, "b@example.com")
	parent := createFood(t, s, model.Food{UserID: u.ID, Name: "Sandwich"})
	child := createFood(t, s, model.Food{UserID: u.ID, Name: "Bread", ParentID: &parent.ID})
	foreign := createFood(t, s, model.Food{UserID: other.ID, Name: "Soup"})
	missing := "missing"

	tests := []struct {
		name     string
		parentID *string
	}{
		{"missing parent", &missing},
		{"another user's parent", &foreign.ID},
		{"child as parent", &child.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := model.Food{UserID: u.ID, Name: "Ham", Date: "2024-05-01", ParentID: tt.parentID}
			err := s.CreateFood(ctx, &f, nil)
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
		})
	}

	left, err := s.ListFoods(ctx, u.ID, repository.FoodFilter{})
	require.NoError(t, err)
	assert.Len(t, left, 2, "rejected entries are not written")

	// An entry with children cannot join another group.
	standalone := createFood(t, s, model.Food{UserID: u.ID, Name: "Apple"})
	parent.ParentID = &standalone.ID
	err = s.UpdateFood(ctx, parent, nil)
	assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)

	got, err := s.GetFood(ctx, u.ID, parent.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
}

func testFoodUpdate(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := createUser(t, s, "a@example.com")
	f := createFood(t, s, model.Food{UserID: u.ID, Name: "Rice", Calories: ptr(200.0)})

	f.Name = "Brown rice"
	f.Calories = nil
	f.Protein = ptr(5.0)
	require.NoError(t, s.UpdateFood(ctx, f, nil))

	got, err := s.GetFood(ctx, u.ID, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brown rice", got.Name)
	assert.Nil(t, got.Calories)
	assert.Equal(t, ptr(5.0), got.Protein)

	missing := model.Food{ID: "nope", UserID: u.ID, Name: "x", Date: "2024-05-01"}
	assert.True(t, errors.Is(s.UpdateFood(ctx, &missing, nil), apperror.ErrNotFound))
}

func testFoodDeleteCascade(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := createUser(t, s, "a@example.com")
	parent := createFood(t, s, model.Food{UserID: u.ID, Name: "Salad"})
	c1 := createFood(t, s, model.Food{UserID: u.ID, Name: "Lettuce", ParentID: &parent.ID})
	c2 := createFood(t, s, model.Food{UserID: u.ID, Name: "Dressing", ParentID: &parent.ID})
	keep := createFood(t, s, model.Food{UserID: u.ID, Name: "Bread"})

	photo := createPhoto(t, s, u.ID)
	require.NoError(t, s.UpdateFood(ctx, c1, []string{photo.ID}))

	removed, err := s.DeleteFoods(ctx, u.ID, []string{parent.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{parent.ID, c1.ID, c2.ID}, removed)

	left, err := s.ListFoods(ctx, u.ID, repository.FoodFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, ids(left))

	p, err := s.GetPhoto(ctx, u.ID, photo.ID)
	require.NoError(t, err, "photo survives the food")
	assert.Nil(t, p.FoodID)
}

func testFoodDeleteIsAtomic(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := createUser(t, s, "a@example.com")
	a := createFood(t, s, model.Food{UserID: u.ID, Name: "A"})
	b := createFood(t, s, model.Food{UserID: u.ID, Name: "B"})

	_, err := s.DeleteFoods(ctx, u.ID, []string{a.ID, "missing", b.ID})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	left, err := s.ListFoods(ctx, u.ID, repository.FoodFilter{})
	require.NoError(t, err)
	assert.Len(t, left, 2)

	removed, err := s.DeleteFoods(ctx, u.ID, []string{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, removed)
}

func testFoodPhotoAttach(t *testing.T, s repository.Store) {
	ctx := context.Background()
	alice := createUser(t, s, "alice@example.com")
	bob := createUser(t, s, "bob@example.com")
	mine := createPhoto(t, s, alice.ID)
	theirs := createPhoto(t, s, bob.ID)

	// Another user's photo: nothing is written.
	f := &model.Food{UserID: alice.ID, Name: "Pizza", Date: "2024-05-01"}
	err := s.CreateFood(ctx, f, []string{mine.ID, theirs.ID})
	assert.True(t, errors.Is(err, apperror.ErrForbidden), "got %v", err)

	foods, err := s.ListFoods(ctx, alice.ID, repository.FoodFilter{})
	require.NoError(t, err)
	assert.Empty(t, foods)
	for _, p := range []struct{ user, id string }{{alice.ID, mine.ID}, {bob.ID, theirs.ID}} {
		got, err := s.GetPhoto(ctx, p.user, p.id)
		require.NoError(t, err)
		assert.Nil(t, got.FoodID)
	}

	err = s.CreateFood(ctx, &model.Food{UserID: alice.ID, Name: "Pizza", Date: "2024-05-01"}, []string{"missing"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	ok := &model.Food{UserID: alice.ID, Name: "Pizza", Date: "2024-05-01"}
	require.NoError(t, s.CreateFood(ctx, ok, []string{mine.ID}))
	assert.Equal(t, []string{mine.ID}, ok.Photos)

	got, err := s.GetPhoto(ctx, alice.ID, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, &ok.ID, got.FoodID)

	listed, err := s.ListFoods(ctx, alice.ID, repository.FoodFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, []string{mine.ID}, listed[0].Photos)
}

func testDailyCalories(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := createUser(t, s, "a@example.com")
	other := createUser(t, s, "b@example.com")

	// Day 1: plain entries.
	createFood(t, s, model.Food{UserID: u.ID, Name: "Oats", Date: "2024-05-01", Calories: ptr(300.0)})
	createFood(t, s, model.Food{UserID: u.ID, Name: "Milk", Date: "2024-05-01", Calories: ptr(100.0)})

	// Day 2: a placeholder parent whose children carry the calories.
	p1 := createFood(t, s, model.Food{UserID: u.ID, Name: "Burrito", Date: "2024-05-02"})
	createFood(t, s, model.Food{UserID: u.ID, Name: "Beans", Date: "2024-05-02", Calories: ptr(250.0), ParentID: &p1.ID})
	createFood(t, s, model.Food{UserID: u.ID, Name: "Rice", Date: "2024-05-02", Calories: ptr(200.0), ParentID: &p1.ID})

	// Day 3: a parent carrying the total; its children are skipped.
	p2 := createFood(t, s, model.Food{UserID: u.ID, Name: "Curry", Date: "2024-05-03", Calories: ptr(600.0)})
	createFood(t, s, model.Food{UserID: u.ID, Name: "Sauce", Date: "2024-05-03", Calories: ptr(150.0), ParentID: &p2.ID})

	// Day 4: nothing with calories.
	createFood(t, s, model.Food{UserID: u.ID, Name: "Water", Date: "2024-05-04"})

	// Outside the window, and another user.
	createFood(t, s, model.Food{UserID: u.ID, Name: "Old", Date: "2024-04-01", Calories: ptr(999.0)})
	createFood(t, s, model.Food{UserID: other.ID, Name: "Theirs", Date: "2024-05-01", Calories: ptr(999.0)})

	days, err := s.DailyCalories(ctx, u.ID, "2024-04-28", "2024-05-04")
	require.NoError(t, err)
	require.Len(t, days, 4)

	assert.Equal(t, "2024-05-04", days[0].Date)
	assert.Nil(t, days[0].Calories)
	assert.Equal(t, "2024-05-03", days[1].Date)
	assert.InDelta(t, 600.0, *days[1].Calories, 1e-9)
	assert.Equal(t, "2024-05-02", days[2].Date)
	assert.InDelta(t, 450.0, *days[2].Calories, 1e-9)
	assert.Equal(t, "2024-05-01", days[3].Date)
	assert.InDelta(t, 400.0, *days[3].Calories, 1e-9)
}

// ===== USER TESTS =====

func testUsers(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := createUser(t, s, "sam@example.com")
	assert.NotEmpty(t, u.ID)

	dup := &model.User{Email: "sam@example.com", PasswordHash: "h"}
	err := s.CreateUser(ctx, dup, &model.UserProfile{DisplayName: "Other Sam"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)

	byEmail, err := s.GetUserByEmail(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.False(t, byEmail.VerifiedEmail)
	assert.Nil(t, byEmail.GitHubID)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	require.NoError(t, s.LinkGitHub(ctx, u.ID, 4242))
	byGitHub, err := s.GetUserByGitHubID(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byGitHub.ID)
	assert.True(t, byGitHub.VerifiedEmail)

	require.NoError(t, s.UpdatePassword(ctx, u.ID, "new-hash"))
	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", byID.PasswordHash)

	assert.True(t, errors.Is(s.UpdatePassword(ctx, "missing", "x"), apperror.ErrNotFound))
}

func testProfiles(t *testing.T, s repository.Store) {
	ctx := context.Background()
	a := createUser(t, s, "b-user@example.com")
	b := createUser(t, s, "a-user@example.com")

	p, err := s.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "b-user@example.com", p.DisplayName)
	assert.Nil(t, p.LastActivity)

	p.DisplayName = "Zed"
	p.TargetCalories = ptr(2100.0)
	p.City = ptr("Oslo")
	require.NoError(t, s.UpdateProfile(ctx, p))

	got, err := s.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Zed", got.DisplayName)
	assert.Equal(t, ptr(2100.0), got.TargetCalories)
	assert.Equal(t, ptr("Oslo"), got.City)

	all, err := s.ListProfiles(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "ordered by display name")

	some, err := s.ListProfiles(ctx, []string{a.ID})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, a.ID, some[0].ID)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.TouchActivity(ctx, a.ID, now, time.Minute))
	got, err = s.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastActivity)
	assert.True(t, got.LastActivity.Equal(now))

	// Within minAge: not rewritten.
	require.NoError(t, s.TouchActivity(ctx, a.ID, now.Add(30*time.Second), time.Minute))
	got, err = s.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.LastActivity.Equal(now))

	later := now.Add(2 * time.Minute)
	require.NoError(t, s.TouchActivity(ctx, a.ID, later, time.Minute))
	got, err = s.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.LastActivity.Equal(later))
}

// ===== PHOTO TESTS =====

func testPhotos(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := createUser(t, s, "a@example.com")
	other := createUser(t, s, "b@example.com")

	p := createPhoto(t, s, u.ID)
	assert.Equal(t, p.ID, p.FileName, "file name defaults to the id")
	assert.False(t, p.UploadTime.IsZero())

	second := &model.Photo{UserID: u.ID, ContentType: "image/png", Date: "2024-05-02", UploadTime: p.UploadTime.Add(time.Second)}
	require.NoError(t, s.CreatePhoto(ctx, second))

	_, err := s.GetPhoto(ctx, other.ID, p.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	all, err := s.ListPhotos(ctx, u.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest upload first")

	dated, err := s.ListPhotos(ctx, u.ID, "2024-05-01")
	require.NoError(t, err)
	assert.Len(t, dated, 1)

	f := createFood(t, s, model.Food{UserID: u.ID, Name: "Cake"})
	p.Time = ptr("12:00")
	p.FoodID = &f.ID
	require.NoError(t, s.UpdatePhoto(ctx, p))
	got, err := s.GetPhoto(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, &f.ID, got.FoodID)
	assert.Equal(t, ptr("12:00"), got.Time)

	tag := &model.Tag{UserID: u.ID, Tag: "cake"}
	require.NoError(t, s.CreateTag(ctx, tag))
	require.NoError(t, s.CreateLabel(ctx, &model.PhotoLabel{UserID: u.ID, PhotoID: p.ID, TagID: tag.ID}))

	assert.True(t, errors.Is(s.DeletePhoto(ctx, other.ID, p.ID), apperror.ErrNotFound))
	require.NoError(t, s.DeletePhoto(ctx, u.ID, p.ID))
	_, err = s.GetPhoto(ctx, u.ID, p.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	labels, err := s.ListLabels(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

// ===== TAG TESTS =====

func testTagsAndLabels(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := createUser(t, s, "a@example.com")
	other := createUser(t, s, "b@example.com")
	photo := createPhoto(t, s, u.ID)

	food := &model.Tag{UserID: u.ID, Tag: "Food", Description: ptr("anything edible")}
	require.NoError(t, s.CreateTag(ctx, food))
	fruit := &model.Tag{UserID: u.ID, Tag: "Fruit", ParentID: &food.ID}
	require.NoError(t, s.CreateTag(ctx, fruit))

	found, err := s.FindTagByName(ctx, u.ID, "  fRUIT ")
	require.NoError(t, err)
	assert.Equal(t, fruit.ID, found.ID)
	_, err = s.FindTagByName(ctx, other.ID, "fruit")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	tags, err := s.ListTags(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "Food", tags[0].Tag)

	fruit.Description = ptr("sweet")
	require.NoError(t, s.UpdateTag(ctx, fruit))
	got, err := s.GetTag(ctx, u.ID, fruit.ID)
	require.NoError(t, err)
	assert.Equal(t, ptr("sweet"), got.Description)

	box := &model.BoundingBox{Left: 0.1, Top: 0.1, Width: 0.2, Height: 0.3}
	poly := &model.Polygon{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	label := &model.PhotoLabel{UserID: u.ID, PhotoID: photo.ID, TagID: food.ID, BoundingBox: box, BoundingPolygon: poly}
	require.NoError(t, s.CreateLabel(ctx, label))

	gotLabel, err := s.GetLabel(ctx, u.ID, label.ID)
	require.NoError(t, err)
	assert.Equal(t, box, gotLabel.BoundingBox)
	assert.Equal(t, poly, gotLabel.BoundingPolygon)

	gotLabel.TagID = fruit.ID
	gotLabel.BoundingBox = nil
	require.NoError(t, s.UpdateLabel(ctx, gotLabel))
	labels, err := s.ListLabels(ctx, u.ID, photo.ID)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, fruit.ID, labels[0].TagID)
	assert.Nil(t, labels[0].BoundingBox)

	_, err = s.GetLabel(ctx, other.ID, label.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	// Deleting the parent tag detaches the child; deleting the child
	// removes its labels.
	require.NoError(t, s.DeleteTag(ctx, u.ID, food.ID))
	got, err = s.GetTag(ctx, u.ID, fruit.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)

	require.NoError(t, s.DeleteTag(ctx, u.ID, fruit.ID))
	labels, err = s.ListLabels(ctx, u.ID, photo.ID)
	require.NoError(t, err)
	assert.Empty(t, labels)

	assert.True(t, errors.Is(s.DeleteLabel(ctx, u.ID, label.ID), apperror.ErrNotFound))
}

// ===== BODYWEIGHT TESTS =====

func testBodyweights(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := createUser(t, s, "a@example.com")
	other := createUser(t, s, "b@example.com")

	first := &model.Bodyweight{UserID: u.ID, Date: "2024-05-01", Bodyweight: 80.5}
	require.NoError(t, s.CreateBodyweight(ctx, first))
	second := &model.Bodyweight{UserID: u.ID, Date: "2024-05-02", Time: ptr("07:00"), Bodyweight: 80.1}
	require.NoError(t, s.CreateBodyweight(ctx, second))

	all, err := s.ListBodyweights(ctx, u.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	one, err := s.ListBodyweights(ctx, u.ID, "2024-05-01")
	require.NoError(t, err)
	assert.Len(t, one, 1)

	first.Bodyweight = 79.9
	require.NoError(t, s.UpdateBodyweight(ctx, first))
	got, err := s.GetBodyweight(ctx, u.ID, first.ID)
	require.NoError(t, err)
	assert.InDelta(t, 79.9, got.Bodyweight, 1e-9)

	_, err = s.GetBodyweight(ctx, other.ID, first.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteBodyweight(ctx, other.ID, first.ID), apperror.ErrNotFound))

	require.NoError(t, s.DeleteBodyweight(ctx, u.ID, first.ID))
	all, err = s.ListBodyweights(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
