package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/gema-arena/internal/models"
)

// TestCaseRequest is one test case row of the challenge form.
type TestCaseRequest struct {
	Input          string `json:"input" validate:"required"`
	ExpectedOutput string `json:"expectedOutput"`
}

// ChallengeRequest is the admin challenge form, used for create and edit.
type ChallengeRequest struct {
	Title            string            `json:"title" validate:"required,min=1,max=200"`
	Description      string            `json:"description" validate:"required"`
	ProblemStatement string            `json:"problemStatement" validate:"required"`
	StarterCode      string            `json:"starterCode"`
	TestCases        []TestCaseRequest `json:"testCases" validate:"required,min=1,dive"`
	EvaluationPrompt string            `json:"evaluationPrompt"`
	Difficulty       int               `json:"difficulty" validate:"min=1,max=5"`
	BaseXPReward     int               `json:"baseXpReward" validate:"min=0"`
	BonusCoins       int               `json:"bonusCoins" validate:"min=0"`
	WeekNumber       *int              `json:"weekNumber" validate:"omitempty,min=1,max=53"`
	Year             *int              `json:"year" validate:"omitempty,min=2000"`
	IsActive         bool              `json:"isActive"`
}

// Normalize returns a copy with surrounding whitespace removed from the text
// fields, so validation sees what gets sent. Test case outputs keep theirs.
func (r ChallengeRequest) Normalize() ChallengeRequest {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.ProblemStatement = strings.TrimSpace(r.ProblemStatement)
	r.EvaluationPrompt = strings.TrimSpace(r.EvaluationPrompt)
	if r.TestCases != nil {
		testCases := make([]TestCaseRequest, len(r.TestCases))
		for i, testCase := range r.TestCases {
			testCase.Input = strings.TrimSpace(testCase.Input)
			testCases[i] = testCase
		}
		r.TestCases = testCases
	}
	return r
}

// ToInput converts the form to the upstream payload.
func (r ChallengeRequest) ToInput() models.ChallengeInput {
	title := strings.TrimSpace(r.Title)
	testCases := make([]models.TestCase, 0, len(r.TestCases))
	for _, testCase := range r.TestCases {
		testCases = append(testCases, models.TestCase{
			Input:          testCase.Input,
			ExpectedOutput: testCase.ExpectedOutput,
		})
	}

	input := models.ChallengeInput{
		Title:            &title,
		Description:      &r.Description,
		ProblemStatement: &r.ProblemStatement,
		StarterCode:      &r.StarterCode,
		Difficulty:       &r.Difficulty,
		BaseXPReward:     &r.BaseXPReward,
		BonusCoins:       &r.BonusCoins,
		TestCases:        testCases,
		WeekNumber:       r.WeekNumber,
		Year:             r.Year,
		IsActive:         &r.IsActive,
	}
	if prompt := strings.TrimSpace(r.EvaluationPrompt); prompt != "" {
		input.EvaluationPrompt = &prompt
	}
	return input
}

// ShopItemRequest is the admin shop item form.
type ShopItemRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"required"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
	CoinPrice   int    `json:"coinPrice" validate:"min=1"`
	Stock       *int   `json:"stock" validate:"omitempty,min=0"`
	MinLevel    int    `json:"minLevel" validate:"min=1,max=60"`
	IsActive    bool   `json:"isActive"`
}

// Normalize returns a copy with trimmed text fields.
func (r ShopItemRequest) Normalize() ShopItemRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.ImageURL = strings.TrimSpace(r.ImageURL)
	return r
}

// ToInput converts the form to the upstream payload.
func (r ShopItemRequest) ToInput() models.ShopItemInput {
	name := strings.TrimSpace(r.Name)
	input := models.ShopItemInput{
		Name:        &name,
		Description: &r.Description,
		CoinPrice:   &r.CoinPrice,
		Stock:       r.Stock,
		MinLevel:    &r.MinLevel,
		IsActive:    &r.IsActive,
	}
	if url := strings.TrimSpace(r.ImageURL); url != "" {
		input.ImageURL = &url
	}
	return input
}

// PurchaseRequest is the optional body of a purchase.
type PurchaseRequest struct {
	Quantity int `json:"quantity" validate:"omitempty,min=1"`
}

// GrantCoinsRequest is the admin coin grant form.
type GrantCoinsRequest struct {
	Amount int    `json:"amount" validate:"min=1"`
	Reason string `json:"reason" validate:"required,min=1,max=200"`
}

// Normalize returns a copy with a trimmed reason.
func (r GrantCoinsRequest) Normalize() GrantCoinsRequest {
	r.Reason = strings.TrimSpace(r.Reason)
	return r
}

// AnnouncementRequest is the admin announcement form.
type AnnouncementRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Content     string `json:"content" validate:"required"`
	IsPinned    bool   `json:"isPinned"`
	IsPublished bool   `json:"isPublished"`
}

// Normalize returns a copy with trimmed title and content.
func (r AnnouncementRequest) Normalize() AnnouncementRequest {
	r.Title = strings.TrimSpace(r.Title)
	r.Content = strings.TrimSpace(r.Content)
	return r
}

// ToInput converts the form to the upstream payload.
func (r AnnouncementRequest) ToInput() models.AnnouncementInput {
	title := strings.TrimSpace(r.Title)
	return models.AnnouncementInput{
		Title:       &title,
		Content:     &r.Content,
		IsPinned:    &r.IsPinned,
		IsPublished: &r.IsPublished,
	}
}

// ReviewRequest is the admin bonus review form.
type ReviewRequest struct {
	ExplanationScore int    `json:"explanationScore" validate:"min=0,max=100"`
	BonusXP          int    `json:"bonusXp" validate:"min=0,max=500"`
	BonusCoins       int    `json:"bonusCoins" validate:"min=0,max=100"`
	Feedback         string `json:"feedback" validate:"max=1000"`
}

// Normalize returns a copy with trimmed feedback.
func (r ReviewRequest) Normalize() ReviewRequest {
	r.Feedback = strings.TrimSpace(r.Feedback)
	return r
}

// ToInput converts the form to the upstream payload. Zero bonuses are omitted.
func (r ReviewRequest) ToInput() models.ReviewInput {
	input := models.ReviewInput{
		ExplanationScore: r.ExplanationScore,
		Feedback:         strings.TrimSpace(r.Feedback),
	}
	if r.BonusXP > 0 {
		bonus := r.BonusXP
		input.BonusXP = &bonus
	}
	if r.BonusCoins > 0 {
		bonus := r.BonusCoins
		input.BonusCoins = &bonus
	}
	return input
}

// AdminActivityListRequest filters the admin audit trail.
type AdminActivityListRequest struct {
	Page       int
	PageSize   int
	ActorID    string
	Action     string
	EntityType string
}

// AdminActivityResponse serialises an audit entry.
type AdminActivityResponse struct {
	ID         uint                   `json:"id"`
	ActorID    string                 `json:"actorId"`
	ActorName  string                 `json:"actorName,omitempty"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}

// NewAdminActivityResponse converts an activity model.
func NewAdminActivityResponse(model models.ActivityLog) AdminActivityResponse {
	metadata := map[string]interface{}{}
	for key, value := range model.Metadata {
		metadata[key] = value
	}
	return AdminActivityResponse{
		ID:         model.ID,
		ActorID:    model.ActorID,
		ActorName:  model.ActorName,
		Action:     model.Action,
		EntityType: model.EntityType,
		EntityID:   model.EntityID,
		Metadata:   metadata,
		CreatedAt:  model.CreatedAt,
	}
}

// AdminActivityListResponse is a page of audit entries.
type AdminActivityListResponse struct {
	Items      []AdminActivityResponse `json:"items"`
	Pagination PaginationMeta          `json:"pagination"`
}

// UploadResponse describes a stored shop image.
type UploadResponse struct {
	URL       string `json:"url"`
	SizeBytes int64  `json:"sizeBytes"`
	MimeType  string `json:"mimeType"`
	Checksum  string `json:"checksum"`
	FileName  string `json:"fileName"`
}
