package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/repository"
)

// BodyweightService handles weigh-ins.
type BodyweightService struct {
	repo   repository.BodyweightRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewBodyweightService(repo repository.BodyweightRepository, logger *slog.Logger) *BodyweightService {
	return &BodyweightService{repo: repo, logger: logger, now: time.Now}
}

func (s *BodyweightService) Create(ctx context.Context, userID string, patch model.BodyweightPatch) (*model.Bodyweight, error) {
	if !patch.Bodyweight.Set || patch.Bodyweight.Value == nil {
		return nil, apperror.ValidationFailed("bodyweight", "bodyweight is required")
	}
	b := patch.Apply(model.Bodyweight{UserID: userID, Date: s.now().Format(model.DateLayout)})
	if err := model.ValidateBodyweight(b); err != nil {
		return nil, err
	}
	if err := s.repo.CreateBodyweight(ctx, &b); err != nil {
		return nil, fmt.Errorf("service/bodyweight: creating: %w", err)
	}
	s.logger.Info("bodyweight recorded", slog.String("id", b.ID), slog.String("userID", userID))
	return &b, nil
}

func (s *BodyweightService) Get(ctx context.Context, userID, id string) (*model.Bodyweight, error) {
	b, err := s.repo.GetBodyweight(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("service/bodyweight: getting %s: %w", id, err)
	}
	return b, nil
}

func (s *BodyweightService) List(ctx context.Context, userID, date string) ([]model.Bodyweight, error) {
	if date != "" && !model.ValidDate(date) {
		return nil, apperror.ValidationFailed("date", "date must be formatted as YYYY-MM-DD")
	}
	weights, err := s.repo.ListBodyweights(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("service/bodyweight: listing: %w", err)
	}
	return weights, nil
}

func (s *BodyweightService) Update(ctx context.Context, userID, id string, patch model.BodyweightPatch) (*model.Bodyweight, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Bodyweight.Set && patch.Bodyweight.Value == nil {
		return nil, apperror.ValidationFailed("bodyweight", "bodyweight cannot be cleared")
	}
	b := patch.Apply(*existing)
	if err := model.ValidateBodyweight(b); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBodyweight(ctx, &b); err != nil {
		return nil, fmt.Errorf("service/bodyweight: updating %s: %w", id, err)
	}
	return &b, nil
}

func (s *BodyweightService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteBodyweight(ctx, userID, id); err != nil {
		return fmt.Errorf("service/bodyweight: deleting %s: %w", id, err)
	}
	s.logger.Info("bodyweight deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}
