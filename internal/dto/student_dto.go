package dto

import (
	"github.com/noah-isme/gema-arena/internal/models"
)

// Workspace navigation actions.
const (
	NavigateSelect = "select"
	NavigatePrev   = "prev"
	NavigateNext   = "next"
	NavigateSkip   = "skip"
)

// NavigateRequest moves the workspace selection.
type NavigateRequest struct {
	Action string `json:"action" validate:"required,oneof=select prev next skip"`
	Index  *int   `json:"index" validate:"required_if=Action select,omitempty,min=0"`
}

// DraftRequest edits the draft of the selected challenge. Absent fields are
// left untouched.
type DraftRequest struct {
	Code        *string `json:"code" validate:"omitempty,max=100000"`
	Explanation *string `json:"explanation" validate:"omitempty,max=10000"`
	Language    *string `json:"language" validate:"omitempty,max=50"`
}

// Workspace websocket message types.
const (
	WorkspaceMessageSnapshot = "snapshot"
	WorkspaceMessageNavigate = "navigate"
	WorkspaceMessageDraft    = "draft"
	WorkspaceMessageSubmit   = "submit"
)

// WorkspaceMessage is one command received over the workspace websocket.
type WorkspaceMessage struct {
	Type     string           `json:"type" validate:"required,oneof=snapshot navigate draft submit"`
	Navigate *NavigateRequest `json:"navigate,omitempty" validate:"required_if=Type navigate,omitempty"`
	Draft    *DraftRequest    `json:"draft,omitempty" validate:"required_if=Type draft,omitempty"`
}

// SubmissionView is a submission annotated with its derived UI status.
type SubmissionView struct {
	models.Submission
	UIStatus string `json:"uiStatus"`
}

// SubmissionListResponse is a page of the viewer's submissions.
type SubmissionListResponse struct {
	Items      []SubmissionView `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
	Polling    bool             `json:"polling"`
	NextPollMs int64            `json:"nextPollMs,omitempty"`
}

// SubmissionDetailResponse is one submission plus its polling state.
type SubmissionDetailResponse struct {
	Submission SubmissionView `json:"submission"`
	Polling    bool           `json:"polling"`
	NextPollMs int64          `json:"nextPollMs,omitempty"`
}

// TransactionView is a ledger entry with its display label.
type TransactionView struct {
	models.Transaction
	TypeLabel string `json:"typeLabel"`
}

// TransactionListResponse is a page of the viewer's ledger.
type TransactionListResponse struct {
	Items      []TransactionView `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// PurchaseListResponse is a page of the viewer's purchases.
type PurchaseListResponse struct {
	Items      []models.Purchase `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// ShopCatalogResponse lists the shop items with affordability for the viewer.
type ShopCatalogResponse struct {
	Items []models.ShopItem `json:"items"`
	Coins int               `json:"coins"`
	Level int               `json:"level"`
}
