package repository

import (
	"context"

	"github.com/noah-isme/gema-arena/internal/models"
)

// AnnouncementRepository covers published and managed announcements.
type AnnouncementRepository interface {
	Published(ctx context.Context) ([]models.Announcement, error)
	All(ctx context.Context) ([]models.Announcement, error)
	Get(ctx context.Context, id string) (models.Announcement, error)
	Create(ctx context.Context, input models.AnnouncementInput) (models.Announcement, error)
	Update(ctx context.Context, id string, input models.AnnouncementInput) (models.Announcement, error)
	Delete(ctx context.Context, id string) error
	Publish(ctx context.Context, id string) (models.Announcement, error)
	Unpublish(ctx context.Context, id string) (models.Announcement, error)
	TogglePin(ctx context.Context, id string) (models.Announcement, error)
}

type announcementRepository struct {
	upstream Upstream
}

// NewAnnouncementRepository constructs the announcement repository.
func NewAnnouncementRepository(upstream Upstream) AnnouncementRepository {
	return &announcementRepository{upstream: upstream}
}

func (r *announcementRepository) Published(ctx context.Context) ([]models.Announcement, error) {
	return r.list(ctx, "/announcements")
}

func (r *announcementRepository) All(ctx context.Context) ([]models.Announcement, error) {
	return r.list(ctx, "/announcements/all")
}

func (r *announcementRepository) list(ctx context.Context, path string) ([]models.Announcement, error) {
	announcements := make([]models.Announcement, 0)
	if err := r.upstream.Get(ctx, path, &announcements); err != nil {
		return nil, err
	}
	return announcements, nil
}

func (r *announcementRepository) Get(ctx context.Context, id string) (models.Announcement, error) {
	var announcement models.Announcement
	if err := r.upstream.Get(ctx, resourcePath("/announcements/%s", id), &announcement); err != nil {
		return models.Announcement{}, err
	}
	return announcement, nil
}

func (r *announcementRepository) Create(ctx context.Context, input models.AnnouncementInput) (models.Announcement, error) {
	var announcement models.Announcement
	if err := r.upstream.Post(ctx, "/announcements", input, &announcement); err != nil {
		return models.Announcement{}, err
	}
	return announcement, nil
}

func (r *announcementRepository) Update(ctx context.Context, id string, input models.AnnouncementInput) (models.Announcement, error) {
	var announcement models.Announcement
	if err := r.upstream.Patch(ctx, resourcePath("/announcements/%s", id), input, &announcement); err != nil {
		return models.Announcement{}, err
	}
	return announcement, nil
}

func (r *announcementRepository) Delete(ctx context.Context, id string) error {
	return r.upstream.Delete(ctx, resourcePath("/announcements/%s", id), nil)
}

func (r *announcementRepository) Publish(ctx context.Context, id string) (models.Announcement, error) {
	return r.action(ctx, id, "publish")
}

func (r *announcementRepository) Unpublish(ctx context.Context, id string) (models.Announcement, error) {
	return r.action(ctx, id, "unpublish")
}

func (r *announcementRepository) TogglePin(ctx context.Context, id string) (models.Announcement, error) {
	return r.action(ctx, id, "toggle-pin")
}

func (r *announcementRepository) action(ctx context.Context, id, action string) (models.Announcement, error) {
	var announcement models.Announcement
	if err := r.upstream.Post(ctx, resourcePath("/announcements/%s/", id)+action, nil, &announcement); err != nil {
		return models.Announcement{}, err
	}
	return announcement, nil
}
