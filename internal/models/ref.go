package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// refID extracts the identifier of an expanded reference, accepting both
// `id` and `_id`.
type refID struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
}

func (r refID) value() string {
	if id := strings.TrimSpace(r.ID); id != "" {
		return id
	}
	return strings.TrimSpace(r.LegacyID)
}

// decodeRef decodes a reference that is either a bare JSON string or an
// object. expanded receives the object form; the bare id is returned.
func decodeRef(raw []byte, expanded interface{}) (id string, isExpanded bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false, nil
	}

	switch trimmed[0] {
	case '"':
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return "", false, err
		}
		return strings.TrimSpace(value), false, nil
	case '{':
		var ids refID
		if err := json.Unmarshal(trimmed, &ids); err != nil {
			return "", false, err
		}
		if err := json.Unmarshal(trimmed, expanded); err != nil {
			return "", false, err
		}
		return ids.value(), true, nil
	default:
		return "", false, fmt.Errorf("reference must be a string or an object, got %s", string(trimmed[:1]))
	}
}

// ChallengeSummary is the expanded form of a challenge reference.
type ChallengeSummary struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title,omitempty"`
	Difficulty int    `json:"difficulty,omitempty"`
}

// ChallengeRef is either a bare challenge id or an expanded challenge.
type ChallengeRef struct {
	id       string
	expanded *ChallengeSummary
}

// ChallengeRefID builds the bare-id variant.
func ChallengeRefID(id string) ChallengeRef {
	return ChallengeRef{id: strings.TrimSpace(id)}
}

// ExpandedChallengeRef builds the expanded variant.
func ExpandedChallengeRef(summary ChallengeSummary) ChallengeRef {
	return ChallengeRef{id: strings.TrimSpace(summary.ID), expanded: &summary}
}

// ID narrows either variant to the challenge id.
func (r ChallengeRef) ID() string {
	return r.id
}

// Expanded returns the expanded challenge when present.
func (r ChallengeRef) Expanded() (ChallengeSummary, bool) {
	if r.expanded == nil {
		return ChallengeSummary{}, false
	}
	return *r.expanded, true
}

// UnmarshalJSON accepts `"id"` or `{"id"|"_id": ..., "title": ..., "difficulty": ...}`.
func (r *ChallengeRef) UnmarshalJSON(raw []byte) error {
	var summary ChallengeSummary
	id, expanded, err := decodeRef(raw, &summary)
	if err != nil {
		return fmt.Errorf("challenge reference: %w", err)
	}
	r.id = id
	r.expanded = nil
	if expanded {
		summary.ID = id
		r.expanded = &summary
	}
	return nil
}

// MarshalJSON writes the expanded form when known, otherwise the bare id.
func (r ChallengeRef) MarshalJSON() ([]byte, error) {
	if r.expanded != nil {
		return json.Marshal(r.expanded)
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

// UserSummary is the expanded form of a user reference.
type UserSummary struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	StudentID string `json:"studentId,omitempty"`
}

// UserRef is either a bare user id or an expanded user.
type UserRef struct {
	id       string
	expanded *UserSummary
}

// UserRefID builds the bare-id variant.
func UserRefID(id string) UserRef {
	return UserRef{id: strings.TrimSpace(id)}
}

// ID narrows either variant to the user id.
func (r UserRef) ID() string {
	return r.id
}

// Expanded returns the expanded user when present.
func (r UserRef) Expanded() (UserSummary, bool) {
	if r.expanded == nil {
		return UserSummary{}, false
	}
	return *r.expanded, true
}

func (r *UserRef) UnmarshalJSON(raw []byte) error {
	var summary UserSummary
	id, expanded, err := decodeRef(raw, &summary)
	if err != nil {
		return fmt.Errorf("user reference: %w", err)
	}
	r.id = id
	r.expanded = nil
	if expanded {
		summary.ID = id
		r.expanded = &summary
	}
	return nil
}

func (r UserRef) MarshalJSON() ([]byte, error) {
	if r.expanded != nil {
		return json.Marshal(r.expanded)
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

// ItemRef is either a bare shop item id or an expanded item.
type ItemRef struct {
	id       string
	expanded *ShopItem
}

// ItemRefID builds the bare-id variant.
func ItemRefID(id string) ItemRef {
	return ItemRef{id: strings.TrimSpace(id)}
}

// ID narrows either variant to the item id.
func (r ItemRef) ID() string {
	return r.id
}

// Expanded returns the expanded item when present.
func (r ItemRef) Expanded() (ShopItem, bool) {
	if r.expanded == nil {
		return ShopItem{}, false
	}
	return *r.expanded, true
}

func (r *ItemRef) UnmarshalJSON(raw []byte) error {
	var item ShopItem
	id, expanded, err := decodeRef(raw, &item)
	if err != nil {
		return fmt.Errorf("item reference: %w", err)
	}
	r.id = id
	r.expanded = nil
	if expanded {
		item.ID = id
		r.expanded = &item
	}
	return nil
}

func (r ItemRef) MarshalJSON() ([]byte, error) {
	if r.expanded != nil {
		return json.Marshal(r.expanded)
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}
