package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/repository"
)

// AnnouncementService exposes the published announcements.
type AnnouncementService interface {
	Published(ctx context.Context) ([]models.Announcement, error)
}

type announcementService struct {
	repo   repository.AnnouncementRepository
	cache  *cache.Cache
	logger zerolog.Logger
	policy *bluemonday.Policy
}

// NewAnnouncementService constructs the announcement service.
func NewAnnouncementService(repo repository.AnnouncementRepository, c *cache.Cache, logger zerolog.Logger) AnnouncementService {
	return &announcementService{
		repo:   repo,
		cache:  c,
		logger: logger.With().Str("component", "announcement_service").Logger(),
		policy: contentPolicy(),
	}
}

// contentPolicy allows the formatting admins use in announcements.
func contentPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("p", "strong", "em", "a", "ul", "ol", "li", "br")
	policy.AllowAttrs("href", "title", "target").OnElements("a")
	return policy
}

// Published returns the published announcements, pinned first and newest
// first within each group, with sanitised content.
func (s *announcementService) Published(ctx context.Context) ([]models.Announcement, error) {
	items, err := cache.Remember(ctx, s.cache, cache.Key("announcements", "published"), []string{cache.TagAnnouncements}, s.repo.Published)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Announcement, 0, len(items))
	for _, item := range items {
		if item.IsPublished != nil && !*item.IsPublished {
			continue
		}
		item.Title = strings.TrimSpace(item.Title)
		item.Content = s.policy.Sanitize(item.Content)
		visible = append(visible, item)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].IsPinned != visible[j].IsPinned {
			return visible[i].IsPinned
		}
		return announcementTime(visible[i]).After(announcementTime(visible[j]))
	})
	return visible, nil
}

func announcementTime(a models.Announcement) time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}
	if a.CreatedAt != nil {
		return *a.CreatedAt
	}
	return time.Time{}
}
