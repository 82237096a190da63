package service

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/repository"
)

// AdminAnnouncementService handles admin announcement flows.
type AdminAnnouncementService interface {
	List(ctx context.Context) ([]models.Announcement, error)
	Get(ctx context.Context, id string) (models.Announcement, error)
	Create(ctx context.Context, payload dto.AnnouncementRequest, actor ActivityActor) (models.Announcement, error)
	Update(ctx context.Context, id string, payload dto.AnnouncementRequest, actor ActivityActor) (models.Announcement, error)
	Delete(ctx context.Context, id string, actor ActivityActor) error
	SetPublished(ctx context.Context, id string, published bool, actor ActivityActor) (models.Announcement, error)
	TogglePin(ctx context.Context, id string, actor ActivityActor) (models.Announcement, error)
}

type adminAnnouncementService struct {
	repo      repository.AnnouncementRepository
	cache     *cache.Cache
	validator *validator.Validate
	activity  ActivityRecorder
	policy    *bluemonday.Policy
	logger    zerolog.Logger
}

// NewAdminAnnouncementService constructs the service.
func NewAdminAnnouncementService(repo repository.AnnouncementRepository, c *cache.Cache, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AdminAnnouncementService {
	return &adminAnnouncementService{
		repo:      repo,
		cache:     c,
		validator: validate,
		activity:  activity,
		policy:    contentPolicy(),
		logger:    logger.With().Str("component", "admin_announcement_service").Logger(),
	}
}

// List returns every announcement, drafts included, newest first.
func (s *adminAnnouncementService) List(ctx context.Context) ([]models.Announcement, error) {
	items, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Announcement{}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return announcementTime(items[i]).After(announcementTime(items[j]))
	})
	return items, nil
}

func (s *adminAnnouncementService) Get(ctx context.Context, id string) (models.Announcement, error) {
	return s.repo.Get(ctx, id)
}

func (s *adminAnnouncementService) Create(ctx context.Context, payload dto.AnnouncementRequest, actor ActivityActor) (models.Announcement, error) {
	input, err := s.input(payload)
	if err != nil {
		return models.Announcement{}, err
	}

	announcement, err := s.repo.Create(ctx, input)
	if err != nil {
		return models.Announcement{}, err
	}

	s.changed(ctx, actor, "announcement.created", announcement.ID, map[string]interface{}{
		"title":     announcement.Title,
		"published": payload.IsPublished,
	})
	return announcement, nil
}

func (s *adminAnnouncementService) Update(ctx context.Context, id string, payload dto.AnnouncementRequest, actor ActivityActor) (models.Announcement, error) {
	input, err := s.input(payload)
	if err != nil {
		return models.Announcement{}, err
	}

	announcement, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return models.Announcement{}, err
	}

	s.changed(ctx, actor, "announcement.updated", id, map[string]interface{}{"title": announcement.Title})
	return announcement, nil
}

func (s *adminAnnouncementService) Delete(ctx context.Context, id string, actor ActivityActor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, actor, "announcement.deleted", id, nil)
	return nil
}

func (s *adminAnnouncementService) SetPublished(ctx context.Context, id string, published bool, actor ActivityActor) (models.Announcement, error) {
	var (
		announcement models.Announcement
		err          error
		action       = "announcement.unpublished"
	)
	if published {
		announcement, err = s.repo.Publish(ctx, id)
		action = "announcement.published"
	} else {
		announcement, err = s.repo.Unpublish(ctx, id)
	}
	if err != nil {
		return models.Announcement{}, err
	}

	s.changed(ctx, actor, action, id, nil)
	return announcement, nil
}

func (s *adminAnnouncementService) TogglePin(ctx context.Context, id string, actor ActivityActor) (models.Announcement, error) {
	announcement, err := s.repo.TogglePin(ctx, id)
	if err != nil {
		return models.Announcement{}, err
	}

	s.changed(ctx, actor, "announcement.pin_toggled", id, map[string]interface{}{"pinned": announcement.IsPinned})
	return announcement, nil
}

// input strips markup the students' view would drop anyway, then validates
// the form, so content that sanitizes to nothing is rejected.
func (s *adminAnnouncementService) input(payload dto.AnnouncementRequest) (models.AnnouncementInput, error) {
	payload.Content = s.policy.Sanitize(payload.Content)
	payload = payload.Normalize()
	if err := s.validator.Struct(payload); err != nil {
		return models.AnnouncementInput{}, err
	}
	return payload.ToInput(), nil
}

func (s *adminAnnouncementService) changed(ctx context.Context, actor ActivityActor, action, id string, metadata map[string]interface{}) {
	invalidate(ctx, s.cache, s.logger, cache.TagAnnouncements)
	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "announcement",
		EntityID:   id,
		Metadata:   metadata,
	})
}
