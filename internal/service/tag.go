package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/blob"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/repository"
	"github.com/sakif/fitlog/internal/vision"
)

// maxDetectBytes caps the image sent for label detection. Rekognition
// accepts at most 5 MB of raw bytes.
const maxDetectBytes = 5 << 20

// TagService handles tags and the labels that put them on photos.
type TagService struct {
	tags     repository.TagRepository
	photos   repository.PhotoRepository
	blobs    blob.Store
	detector vision.Detector
	logger   *slog.Logger
}

// NewTagService creates the service. detector may be nil, in which case
// Detect reports that detection is unavailable.
func NewTagService(
	tags repository.TagRepository,
	photos repository.PhotoRepository,
	blobs blob.Store,
	detector vision.Detector,
	logger *slog.Logger,
) *TagService {
	return &TagService{tags: tags, photos: photos, blobs: blobs, detector: detector, logger: logger}
}

// ===== TAGS =====

func (s *TagService) Create(ctx context.Context, userID string, patch model.TagPatch) (*model.Tag, error) {
	t := patch.Apply(model.Tag{UserID: userID})
	t.Tag = strings.TrimSpace(t.Tag)
	if err := s.validateTag(ctx, t); err != nil {
		return nil, err
	}
	if err := s.tags.CreateTag(ctx, &t); err != nil {
		return nil, fmt.Errorf("service/tag: creating tag: %w", err)
	}
	s.logger.Info("tag created", slog.String("id", t.ID), slog.String("userID", userID))
	return &t, nil
}

func (s *TagService) Get(ctx context.Context, userID, id string) (*model.Tag, error) {
	t, err := s.tags.GetTag(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("service/tag: getting %s: %w", id, err)
	}
	return t, nil
}

func (s *TagService) List(ctx context.Context, userID string) ([]model.Tag, error) {
	tags, err := s.tags.ListTags(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/tag: listing: %w", err)
	}
	return tags, nil
}

func (s *TagService) Update(ctx context.Context, userID, id string, patch model.TagPatch) (*model.Tag, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	t := patch.Apply(*existing)
	t.Tag = strings.TrimSpace(t.Tag)
	if err := s.validateTag(ctx, t); err != nil {
		return nil, err
	}
	if err := s.tags.UpdateTag(ctx, &t); err != nil {
		return nil, fmt.Errorf("service/tag: updating %s: %w", id, err)
	}
	return &t, nil
}

// Delete removes the tag and its labels. Child tags lose their parent.
func (s *TagService) Delete(ctx context.Context, userID, id string) error {
	if err := s.tags.DeleteTag(ctx, userID, id); err != nil {
		return fmt.Errorf("service/tag: deleting %s: %w", id, err)
	}
	s.logger.Info("tag deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}

func (s *TagService) validateTag(ctx context.Context, t model.Tag) error {
	if err := model.ValidateTag(t); err != nil {
		return err
	}
	if t.ParentID == nil {
		return nil
	}
	if _, err := s.tags.GetTag(ctx, t.UserID, *t.ParentID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("parent_id", "parent tag not found")
		}
		return fmt.Errorf("service/tag: loading parent %s: %w", *t.ParentID, err)
	}
	return nil
}

// ===== LABELS =====

// Labels lists the labels on one of the caller's photos.
func (s *TagService) Labels(ctx context.Context, userID, photoID string) ([]model.PhotoLabel, error) {
	if _, err := s.photos.GetPhoto(ctx, userID, photoID); err != nil {
		return nil, fmt.Errorf("service/tag: loading photo %s: %w", photoID, err)
	}
	labels, err := s.tags.ListLabels(ctx, userID, photoID)
	if err != nil {
		return nil, fmt.Errorf("service/tag: listing labels: %w", err)
	}
	return labels, nil
}

// CreateLabel puts a tag on photoID. The photo comes from the URL and
// wins over any photo_id in the body.
func (s *TagService) CreateLabel(ctx context.Context, userID, photoID string, patch model.LabelPatch) (*model.PhotoLabel, error) {
	if _, err := s.photos.GetPhoto(ctx, userID, photoID); err != nil {
		return nil, fmt.Errorf("service/tag: loading photo %s: %w", photoID, err)
	}
	l := patch.Apply(model.PhotoLabel{UserID: userID})
	l.PhotoID = photoID
	if err := s.validateLabel(ctx, l); err != nil {
		return nil, err
	}
	if err := s.tags.CreateLabel(ctx, &l); err != nil {
		return nil, fmt.Errorf("service/tag: creating label: %w", err)
	}
	return &l, nil
}

func (s *TagService) UpdateLabel(ctx context.Context, userID, id string, patch model.LabelPatch) (*model.PhotoLabel, error) {
	existing, err := s.tags.GetLabel(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("service/tag: loading label %s: %w", id, err)
	}
	l := patch.Apply(*existing)
	if err := s.validateLabel(ctx, l); err != nil {
		return nil, err
	}
	if err := s.tags.UpdateLabel(ctx, &l); err != nil {
		return nil, fmt.Errorf("service/tag: updating label %s: %w", id, err)
	}
	return &l, nil
}

func (s *TagService) DeleteLabel(ctx context.Context, userID, id string) error {
	if err := s.tags.DeleteLabel(ctx, userID, id); err != nil {
		return fmt.Errorf("service/tag: deleting label %s: %w", id, err)
	}
	return nil
}

// validateLabel checks the fields, then that the tag and photo are both
// the caller's.
func (s *TagService) validateLabel(ctx context.Context, l model.PhotoLabel) error {
	if err := model.ValidateLabel(l); err != nil {
		return err
	}
	if _, err := s.tags.GetTag(ctx, l.UserID, l.TagID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("tag_id", "tag not found")
		}
		return fmt.Errorf("service/tag: loading tag %s: %w", l.TagID, err)
	}
	if _, err := s.photos.GetPhoto(ctx, l.UserID, l.PhotoID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("photo_id", "photo not found")
		}
		return fmt.Errorf("service/tag: loading photo %s: %w", l.PhotoID, err)
	}
	return nil
}

// Detect runs label detection on a stored photo. Every detected object
// becomes a label, tagged with the caller's tag of the same name
// (case-insensitive), which is created when missing.
func (s *TagService) Detect(ctx context.Context, userID, photoID string) ([]model.PhotoLabel, error) {
	if s.detector == nil {
		return nil, apperror.Unavailable("label detection")
	}

	photo, err := s.photos.GetPhoto(ctx, userID, photoID)
	if err != nil {
		return nil, fmt.Errorf("service/tag: loading photo %s: %w", photoID, err)
	}
	rc, err := s.blobs.Get(ctx, photo.FileName)
	if err != nil {
		return nil, fmt.Errorf("service/tag: opening photo %s: %w", photoID, err)
	}
	image, err := io.ReadAll(io.LimitReader(rc, maxDetectBytes+1))
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("service/tag: reading photo %s: %w", photoID, err)
	}
	if len(image) > maxDetectBytes {
		return nil, apperror.ValidationFailed("photo", "the photo is too large for label detection")
	}

	found, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("service/tag: detecting labels on %s: %w", photoID, err)
	}

	tagIDs := make(map[string]string)
	labels := make([]model.PhotoLabel, 0, len(found))
	for _, d := range found {
		key := strings.ToLower(d.Name)
		tagID, ok := tagIDs[key]
		if !ok {
			if tagID, err = s.tagNamed(ctx, userID, d.Name); err != nil {
				return nil, err
			}
			tagIDs[key] = tagID
		}

		box := d.Box
		l := model.PhotoLabel{UserID: userID, PhotoID: photoID, TagID: tagID, BoundingBox: &box}
		if err := model.ValidateLabel(l); err != nil {
			s.logger.Warn("skipping detected label",
				slog.String("photoID", photoID),
				slog.String("name", d.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := s.tags.CreateLabel(ctx, &l); err != nil {
			return nil, fmt.Errorf("service/tag: storing detected label: %w", err)
		}
		labels = append(labels, l)
	}

	s.logger.Info("labels detected",
		slog.String("photoID", photoID),
		slog.String("userID", userID),
		slog.Int("labels", len(labels)),
	)
	return labels, nil
}

func (s *TagService) tagNamed(ctx context.Context, userID, name string) (string, error) {
	t, err := s.tags.FindTagByName(ctx, userID, name)
	if err == nil {
		return t.ID, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return "", fmt.Errorf("service/tag: finding tag %q: %w", name, err)
	}
	t = &model.Tag{UserID: userID, Tag: name}
	if err := s.tags.CreateTag(ctx, t); err != nil {
		return "", fmt.Errorf("service/tag: creating tag %q: %w", name, err)
	}
	return t.ID, nil
}
