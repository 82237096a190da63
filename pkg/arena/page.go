package arena

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// PageMeta mirrors the upstream pagination block.
type PageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is a paginated upstream listing.
type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// HasNext reports whether another page can be requested.
func (p Page[T]) HasNext() bool {
	return p.Meta.Page > 0 && p.Meta.Page < p.Meta.TotalPages
}

// PagePath appends page/limit query parameters to path.
func PagePath(path string, page, limit int) string {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	values.Set("limit", strconv.Itoa(limit))
	return path + "?" + values.Encode()
}

// Flexible decodes endpoints that answer either with a bare payload or with a
// `{data: ...}` wrapper.
type Flexible[T any] struct {
	Value T
}

// UnmarshalJSON accepts `T` or `{"data": T}`.
func (f *Flexible[T]) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '{' {
		var wrapper struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err == nil && len(wrapper.Data) > 0 && !bytes.Equal(wrapper.Data, []byte("null")) {
			if err := json.Unmarshal(wrapper.Data, &f.Value); err != nil {
				return fmt.Errorf("decode wrapped payload: %w", err)
			}
			return nil
		}
	}

	return json.Unmarshal(trimmed, &f.Value)
}
