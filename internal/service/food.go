// Package service contains the business rules of the application.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)     → parses requests, writes responses
//	Service (rules)    → ownership, validation, aggregation
//	Repository (data)  → reads and writes the database
//
// Services never see an *http.Request and never write SQL. They receive
// repository interfaces, so the same service runs against SQLite, Postgres
// or an in-memory store in tests.
//
// Every method takes the caller's user id explicitly. Ownership is not a
// check done after loading a record; the id is part of every repository
// call, so another user's record is simply not found.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/repository"
)

const (
	// SearchLimit is how many archetypes a food search returns.
	SearchLimit = 5

	// SummaryDays is the length of the calorie history window, today
	// included.
	SummaryDays = 7
)

// FoodService handles food log entries.
type FoodService struct {
	foods  repository.FoodRepository
	users  repository.UserRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewFoodService(foods repository.FoodRepository, users repository.UserRepository, logger *slog.Logger) *FoodService {
	return &FoodService{foods: foods, users: users, logger: logger, now: time.Now}
}

func (s *FoodService) today() string {
	return s.now().Format(model.DateLayout)
}

// Create logs a new entry for userID. The owner always comes from the
// session; the patch has no way to carry one.
func (s *FoodService) Create(ctx context.Context, userID string, patch model.FoodPatch) (*model.Food, error) {
	f := patch.Apply(model.Food{UserID: userID, Date: s.today()})
	f.Name = strings.TrimSpace(f.Name)

	if err := model.ValidateFood(f); err != nil {
		return nil, err
	}

	if err := s.foods.CreateFood(ctx, &f, patch.PhotoIDs); err != nil {
		return nil, fmt.Errorf("service/food: creating entry: %w", err)
	}

	s.logger.Info("food entry created",
		slog.String("id", f.ID),
		slog.String("userID", userID),
		slog.Int("photos", len(f.Photos)),
	)
	return &f, nil
}

// Get returns the entry together with the rest of its group: the parent
// and every child of that parent. A standalone entry comes back alone.
func (s *FoodService) Get(ctx context.Context, userID, id string) ([]model.Food, error) {
	group, err := s.foods.FoodGroup(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("service/food: getting %s: %w", id, err)
	}
	return group, nil
}

// List returns the entries logged on date, or every entry when date is
// empty.
func (s *FoodService) List(ctx context.Context, userID, date string) ([]model.Food, error) {
	if date != "" && !model.ValidDate(date) {
		return nil, apperror.ValidationFailed("date", "date must be formatted as YYYY-MM-DD")
	}
	foods, err := s.foods.ListFoods(ctx, userID, repository.FoodFilter{Date: date})
	if err != nil {
		return nil, fmt.Errorf("service/food: listing: %w", err)
	}
	return foods, nil
}

// Update merges patch into the stored entry. Fields absent from the patch
// keep their values.
func (s *FoodService) Update(ctx context.Context, userID, id string, patch model.FoodPatch) (*model.Food, error) {
	existing, err := s.foods.GetFood(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("service/food: loading %s: %w", id, err)
	}

	f := patch.Apply(*existing)
	f.Name = strings.TrimSpace(f.Name)
	if err := model.ValidateFood(f); err != nil {
		return nil, err
	}

	if err := s.foods.UpdateFood(ctx, &f, patch.PhotoIDs); err != nil {
		return nil, fmt.Errorf("service/food: updating %s: %w", id, err)
	}

	s.logger.Info("food entry updated", slog.String("id", id), slog.String("userID", userID))
	return &f, nil
}

// Delete removes the entries and their children in one transaction and
// returns every removed id. One unknown id fails the whole request.
func (s *FoodService) Delete(ctx context.Context, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, apperror.ValidationFailed("id", "at least one id is required")
	}
	for _, id := range ids {
		if id == "" {
			return nil, apperror.ValidationFailed("id", "ids must not be empty")
		}
	}

	removed, err := s.foods.DeleteFoods(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("service/food: deleting: %w", err)
	}

	s.logger.Info("food entries deleted",
		slog.String("userID", userID),
		slog.Any("ids", removed),
	)
	return removed, nil
}

// Search returns the caller's most frequently logged archetypes whose
// name contains q. A blank q matches every entry.
func (s *FoodService) Search(ctx context.Context, userID, q string) ([]Archetype, error) {
	q = strings.TrimSpace(q)

	foods, err := s.foods.ListFoods(ctx, userID, repository.FoodFilter{NameContains: q})
	if err != nil {
		return nil, fmt.Errorf("service/food: searching %q: %w", q, err)
	}
	return rankArchetypes(foods, SearchLimit), nil
}

// Summary is the calorie overview of the trailing week.
type Summary struct {
	History      []model.DailyCalories `json:"history"`
	Trend        *float64              `json:"trend"`
	GoalCalories *float64              `json:"goal_calories"`
}

// Summary totals calories per day for the SummaryDays days ending on
// today, or on the server's current date when today is empty.
func (s *FoodService) Summary(ctx context.Context, userID, today string) (*Summary, error) {
	if today == "" {
		today = s.today()
	}
	end, err := time.Parse(model.DateLayout, today)
	if err != nil {
		return nil, apperror.ValidationFailed("date", "date must be formatted as YYYY-MM-DD")
	}
	start := end.AddDate(0, 0, -(SummaryDays - 1))

	history, err := s.foods.DailyCalories(ctx, userID, start.Format(model.DateLayout), today)
	if err != nil {
		return nil, fmt.Errorf("service/food: summarising: %w", err)
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/food: loading profile: %w", err)
	}

	return &Summary{
		History:      history,
		Trend:        calorieTrend(history, start),
		GoalCalories: profile.TargetCalories,
	}, nil
}

// Nutrition is a historical lookup: matching entries and their means.
type Nutrition struct {
	Foods []model.Food
	Mean  NutritionMean
	Count int
}

// NutritionMean holds the mean over the non-null values of each field;
// a field with no values at all has a nil mean.
type NutritionMean struct {
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
}

// Nutrition finds the caller's entries whose name contains name and,
// when units is given, whose quantity contains units.
func (s *FoodService) Nutrition(ctx context.Context, userID, name, units string) (*Nutrition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}

	foods, err := s.foods.ListFoods(ctx, userID, repository.FoodFilter{
		NameContains:     name,
		QuantityContains: strings.TrimSpace(units),
	})
	if err != nil {
		return nil, fmt.Errorf("service/food: nutrition lookup: %w", err)
	}

	var cal, prot mean
	for _, f := range foods {
		cal.add(f.Calories)
		prot.add(f.Protein)
	}
	return &Nutrition{
		Foods: foods,
		Mean:  NutritionMean{Calories: cal.value(), Protein: prot.value()},
		Count: len(foods),
	}, nil
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil || math.IsNaN(*v) {
		return
	}
	m.sum += *v
	m.n++
}

func (m mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}
