package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/blob"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/repository"
)

// sniffLen is how much of an upload http.DetectContentType looks at.
const sniffLen = 512

// PhotoService stores photo metadata in the repository and the bytes in a
// blob.Store, keyed by the photo's id.
type PhotoService struct {
	photos repository.PhotoRepository
	foods  repository.FoodRepository
	blobs  blob.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewPhotoService(photos repository.PhotoRepository, foods repository.FoodRepository, blobs blob.Store, logger *slog.Logger) *PhotoService {
	return &PhotoService{photos: photos, foods: foods, blobs: blobs, logger: logger, now: time.Now}
}

// Upload is a new photo: its bytes and the optional date and time fields
// of the upload form.
type Upload struct {
	Body io.Reader
	Size int64
	Date string
	Time string
}

// Upload stores a new photo. The content type is sniffed from the bytes;
// the client's claim is ignored. Only images are accepted.
func (s *PhotoService) Upload(ctx context.Context, userID string, up Upload) (*model.Photo, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("service/photo: reading upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, apperror.ValidationFailed("file", "the file is empty")
	}
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperror.ValidationFailed("file", "the file is not an image")
	}

	p := model.Photo{
		UserID:      userID,
		ContentType: contentType,
		Size:        up.Size,
		Date:        strings.TrimSpace(up.Date),
	}
	if p.Date == "" {
		p.Date = s.now().Format(model.DateLayout)
	}
	if t := strings.TrimSpace(up.Time); t != "" {
		p.Time = &t
	}
	if err := model.ValidatePhoto(p); err != nil {
		return nil, err
	}

	if err := s.photos.CreatePhoto(ctx, &p); err != nil {
		return nil, fmt.Errorf("service/photo: creating photo: %w", err)
	}
	body := io.MultiReader(bytes.NewReader(head), up.Body)
	if err := s.blobs.Put(ctx, p.FileName, contentType, body, up.Size); err != nil {
		// Without its bytes the row is useless.
		if derr := s.photos.DeletePhoto(ctx, userID, p.ID); derr != nil {
			s.logger.Error("removing photo after failed upload",
				slog.String("id", p.ID),
				slog.String("error", derr.Error()),
			)
		}
		return nil, fmt.Errorf("service/photo: storing bytes: %w", err)
	}

	s.logger.Info("photo uploaded",
		slog.String("id", p.ID),
		slog.String("userID", userID),
		slog.String("contentType", contentType),
		slog.Int64("size", up.Size),
	)
	return &p, nil
}

func (s *PhotoService) Get(ctx context.Context, userID, id string) (*model.Photo, error) {
	p, err := s.photos.GetPhoto(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("service/photo: getting %s: %w", id, err)
	}
	return p, nil
}

func (s *PhotoService) List(ctx context.Context, userID, date string) ([]model.Photo, error) {
	if date != "" && !model.ValidDate(date) {
		return nil, apperror.ValidationFailed("date", "date must be formatted as YYYY-MM-DD")
	}
	photos, err := s.photos.ListPhotos(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("service/photo: listing: %w", err)
	}
	return photos, nil
}

// Open returns the photo's metadata and a reader over its bytes. The
// caller closes the reader.
func (s *PhotoService) Open(ctx context.Context, userID, id string) (*model.Photo, io.ReadCloser, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, p.FileName)
	if err != nil {
		return nil, nil, fmt.Errorf("service/photo: opening %s: %w", id, err)
	}
	return p, rc, nil
}

// Update changes the photo's date, time or food entry. The food entry
// must be the caller's.
func (s *PhotoService) Update(ctx context.Context, userID, id string, patch model.PhotoPatch) (*model.Photo, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p := patch.Apply(*existing)
	if err := model.ValidatePhoto(p); err != nil {
		return nil, err
	}
	if p.FoodID != nil {
		if _, err := s.foods.GetFood(ctx, userID, *p.FoodID); err != nil {
			return nil, fmt.Errorf("service/photo: checking food %s: %w", *p.FoodID, err)
		}
	}

	if err := s.photos.UpdatePhoto(ctx, &p); err != nil {
		return nil, fmt.Errorf("service/photo: updating %s: %w", id, err)
	}
	s.logger.Info("photo updated", slog.String("id", id), slog.String("userID", userID))
	return &p, nil
}

// Delete removes the row with its labels, then the bytes. A failure to
// remove the bytes is logged and leaves an orphaned object behind.
func (s *PhotoService) Delete(ctx context.Context, userID, id string) error {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.photos.DeletePhoto(ctx, userID, id); err != nil {
		return fmt.Errorf("service/photo: deleting %s: %w", id, err)
	}
	if err := s.blobs.Delete(ctx, p.FileName); err != nil {
		s.logger.Error("deleting photo bytes",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
	s.logger.Info("photo deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}
