package repository

import (
	"context"
	"fmt"
	"net/url"

	"github.com/noah-isme/gema-arena/pkg/arena"
)

// Upstream is the subset of the arena client used by the repositories.
type Upstream interface {
	Get(ctx context.Context, path string, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
	Patch(ctx context.Context, path string, body, out interface{}) error
	Delete(ctx context.Context, path string, out interface{}) error
}

var _ Upstream = (*arena.Client)(nil)

// Pagination is the page/limit pair forwarded upstream.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) normalize(defaultLimit int) Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	return p
}

func resourcePath(format string, ids ...string) string {
	escaped := make([]interface{}, len(ids))
	for i, id := range ids {
		escaped[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, escaped...)
}

func limitPath(path string, limit int) string {
	if limit <= 0 {
		return path
	}
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))
	return path + "?" + query.Encode()
}
