package models

import "time"

// TestCase is an input/expected-output pair shown with a challenge.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput,omitempty"`
}

// Challenge is a weekly coding challenge as served by the arena backend.
type Challenge struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	ProblemStatement string     `json:"problemStatement"`
	StarterCode      string     `json:"starterCode"`
	Difficulty       int        `json:"difficulty"`
	BaseXPReward     int        `json:"baseXpReward"`
	BonusCoins       int        `json:"bonusCoins"`
	TestCases        []TestCase `json:"testCases"`
	EvaluationPrompt string     `json:"evaluationPrompt,omitempty"`
	WeekNumber       *int       `json:"weekNumber,omitempty"`
	Year             *int       `json:"year,omitempty"`
	IsActive         *bool      `json:"isActive,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

// Active reports whether the challenge is open. A missing flag counts as active.
func (c Challenge) Active() bool {
	return c.IsActive == nil || *c.IsActive
}

// DifficultyLabel returns the display label of the challenge difficulty.
func (c Challenge) DifficultyLabel() string {
	return DifficultyLabel(c.Difficulty)
}

var difficultyLabels = map[int]string{
	1: "Very Easy",
	2: "Easy",
	3: "Medium",
	4: "Hard",
	5: "Very Hard",
}

// DifficultyLabel maps a 1-5 difficulty to its label.
func DifficultyLabel(difficulty int) string {
	if label, ok := difficultyLabels[difficulty]; ok {
		return label
	}
	return "Unknown"
}

// ChallengeInput is the admin create/update payload of a challenge.
type ChallengeInput struct {
	Title            *string    `json:"title,omitempty"`
	Description      *string    `json:"description,omitempty"`
	ProblemStatement *string    `json:"problemStatement,omitempty"`
	StarterCode      *string    `json:"starterCode,omitempty"`
	Difficulty       *int       `json:"difficulty,omitempty"`
	BaseXPReward     *int       `json:"baseXpReward,omitempty"`
	BonusCoins       *int       `json:"bonusCoins,omitempty"`
	TestCases        []TestCase `json:"testCases,omitempty"`
	EvaluationPrompt *string    `json:"evaluationPrompt,omitempty"`
	WeekNumber       *int       `json:"weekNumber,omitempty"`
	Year             *int       `json:"year,omitempty"`
	IsActive         *bool      `json:"isActive,omitempty"`
}
