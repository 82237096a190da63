package models

import "time"

// AnnouncementAuthor is the embedded author of an announcement.
type AnnouncementAuthor struct {
	Name string `json:"name"`
}

// Announcement is a news post managed by admins.
type Announcement struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Content     string              `json:"content"`
	Author      *AnnouncementAuthor `json:"author,omitempty"`
	AuthorID    string              `json:"authorId,omitempty"`
	IsPinned    bool                `json:"isPinned"`
	IsPublished *bool               `json:"isPublished,omitempty"`
	PublishedAt *time.Time          `json:"publishedAt,omitempty"`
	CreatedAt   *time.Time          `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time          `json:"updatedAt,omitempty"`
}

// AnnouncementInput is the admin create/update payload of an announcement.
type AnnouncementInput struct {
	Title       *string `json:"title,omitempty"`
	Content     *string `json:"content,omitempty"`
	IsPinned    *bool   `json:"isPinned,omitempty"`
	IsPublished *bool   `json:"isPublished,omitempty"`
}
