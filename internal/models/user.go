package models

import (
	"strings"
	"time"
)

// Role is the platform role of a user.
type Role string

// Known roles.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Tier is a named band of user levels.
type Tier string

// Tier bands from lowest to highest.
const (
	TierNewbie       Tier = "Newbie"
	TierBeginner     Tier = "Beginner"
	TierIntermediate Tier = "Intermediate"
	TierAdvanced     Tier = "Advanced"
	TierExpert       Tier = "Expert"
	TierMaster       Tier = "Master"
)

type tierBand struct {
	tier     Tier
	minLevel int
	maxLevel int
	color    string
}

var tierBands = []tierBand{
	{TierNewbie, 0, 10, "#808080"},
	{TierBeginner, 11, 20, "#32CD32"},
	{TierIntermediate, 21, 30, "#1E90FF"},
	{TierAdvanced, 31, 40, "#9932CC"},
	{TierExpert, 41, 50, "#FFD700"},
	{TierMaster, 51, 60, "#FF4500"},
}

// TierForLevel returns the tier band containing level. Levels above the
// last band stay Master.
func TierForLevel(level int) Tier {
	for _, band := range tierBands {
		if level <= band.maxLevel {
			return band.tier
		}
	}
	return TierMaster
}

// TierColor returns the display color of a tier.
func TierColor(tier Tier) string {
	for _, band := range tierBands {
		if strings.EqualFold(string(band.tier), string(tier)) {
			return band.color
		}
	}
	return tierBands[0].color
}

// User is the authenticated platform user.
type User struct {
	ID         string     `json:"id"`
	StudentID  string     `json:"studentId"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	Level      int        `json:"level"`
	XP         int        `json:"xp"`
	XPRequired int        `json:"xpRequired"`
	XPProgress float64    `json:"xpProgress"`
	Coins      int        `json:"coins"`
	Tier       Tier       `json:"tier"`
	TierColor  string     `json:"tierColor"`
	Role       Role       `json:"role,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return strings.EqualFold(string(u.Role), string(RoleAdmin))
}

// WithTierDefaults fills tier and color when the backend omitted them.
func (u User) WithTierDefaults() User {
	if u.Tier == "" {
		u.Tier = TierForLevel(u.Level)
	}
	if u.TierColor == "" {
		u.TierColor = TierColor(u.Tier)
	}
	return u
}

// LeaderboardEntry is one row of a leaderboard.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Level     int    `json:"level"`
	Tier      Tier   `json:"tier"`
	TierColor string `json:"tierColor,omitempty"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

// LoginInput is the login payload.
type LoginInput struct {
	StudentID string `json:"studentId"`
	Password  string `json:"password"`
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
	Password  string `json:"password"`
	Email     string `json:"email,omitempty"`
}

// GrantCoinsInput is the admin coin grant payload.
type GrantCoinsInput struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}
