package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/utils"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

const (
	workspacePingInterval = 30 * time.Second
	workspaceWriteTimeout = 10 * time.Second
	workspaceOutboxSize   = 8
)

// Workspace websocket frame types sent to the client.
const (
	FrameSnapshot  = "snapshot"
	FrameNotice    = "notice"
	FrameSubmitted = "submitted"
	FrameError     = "error"
)

// WorkspaceFrame is one message pushed over the workspace websocket.
type WorkspaceFrame struct {
	Type     string                     `json:"type"`
	Snapshot *service.WorkspaceSnapshot `json:"snapshot,omitempty"`
	Result   interface{}                `json:"result,omitempty"`
	Notice   string                     `json:"notice,omitempty"`
	Error    string                     `json:"error,omitempty"`
	Details  interface{}                `json:"details,omitempty"`
	Polling  bool                       `json:"polling,omitempty"`
}

// WorkspaceHandler serves the master-detail challenge workspace over REST and
// a websocket that also pushes status changes found by polling.
type WorkspaceHandler struct {
	service      service.ChallengeService
	validator    *validator.Validate
	submitLimits *middleware.UserLimiter
	logger       zerolog.Logger
}

// NewWorkspaceHandler constructs the handler. submitLimit guards submissions
// over both REST and the websocket and may be nil.
func NewWorkspaceHandler(service service.ChallengeService, validate *validator.Validate, submitLimit *middleware.UserLimiter, logger zerolog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		service:      service,
		validator:    validate,
		submitLimits: submitLimit,
		logger:       logger.With().Str("component", "workspace_handler").Logger(),
	}
}

// Register binds the workspace routes.
func (h *WorkspaceHandler) Register(router fiber.Router) {
	router.Get("/challenges/current", h.current)

	router.Use("/workspace/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/workspace/ws", websocket.New(h.handleConnection))

	router.Get("/workspace", h.workspace)
	router.Post("/workspace/navigate", h.navigate)
	router.Put("/workspace/draft", h.draft)
	if h.submitLimits != nil {
		router.Post("/workspace/submit", h.submitLimits.Handler(), h.submit)
	} else {
		router.Post("/workspace/submit", h.submit)
	}
}

func (h *WorkspaceHandler) workspace(c *fiber.Ctx) error {
	view, err := h.service.Workspace(requestContext(c), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load workspace")
	}
	if view.Notice != "" {
		return utils.SendNotice(c, view.Notice, view)
	}
	return utils.SendSuccess(c, "workspace", view)
}

func (h *WorkspaceHandler) current(c *fiber.Ctx) error {
	view, err := h.service.Current(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load current challenge")
	}
	if view.Notice != "" {
		return utils.SendNotice(c, view.Notice, view)
	}
	return utils.SendSuccess(c, "current challenge", view)
}

func (h *WorkspaceHandler) navigate(c *fiber.Ctx) error {
	var payload dto.NavigateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	snapshot, err := h.service.Navigate(requestContext(c), middleware.UserID(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to navigate workspace")
	}
	return utils.SendSuccess(c, "workspace", snapshot)
}

func (h *WorkspaceHandler) draft(c *fiber.Ctx) error {
	var payload dto.DraftRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	snapshot, err := h.service.EditDraft(requestContext(c), middleware.UserID(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update draft")
	}
	return utils.SendSuccess(c, "draft updated", snapshot)
}

func (h *WorkspaceHandler) submit(c *fiber.Ctx) error {
	outcome, err := h.service.Submit(requestContext(c), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrSubmitNotAllowed) {
			return utils.Fail(c, fiber.StatusUnprocessableEntity, "submission not allowed", outcome.Snapshot)
		}
		return respondError(c, h.logger, err, "failed to submit solution")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "solution submitted", outcome)
}

func (h *WorkspaceHandler) handleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals(middleware.LocalUserID).(string)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user id missing"))
		_ = conn.Close()
		return
	}

	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	logger := h.logger.With().Str("user_id", userID).Logger()
	if correlation, _ := conn.Locals("correlation_id").(string); correlation != "" {
		logger = logger.With().Str("correlation_id", correlation).Logger()
	}

	pushes, unsubscribe := h.service.Subscribe(userID)
	defer unsubscribe()

	logger.Info().Msg("workspace websocket connected")
	defer logger.Info().Msg("workspace websocket disconnected")

	_ = conn.SetWriteDeadline(time.Now().Add(workspaceWriteTimeout))
	if err := conn.WriteJSON(h.workspaceFrame(ctx, userID)); err != nil {
		logger.Debug().Err(err).Msg("failed to write initial workspace frame")
		return
	}

	outbox := make(chan WorkspaceFrame, workspaceOutboxSize)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		h.readCommands(ctx, cancel, conn, userID, outbox, logger)
	}()
	// The connection is released once this returns, so the reader must be gone.
	defer func() {
		cancel()
		_ = conn.Close()
		<-readerDone
	}()

	ping := time.NewTicker(workspacePingInterval)
	defer ping.Stop()

	for {
		var frame WorkspaceFrame
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case snapshot, ok := <-pushes:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "workspace closed"))
				_ = conn.Close()
				return
			}
			frame = WorkspaceFrame{Type: FrameSnapshot, Snapshot: &snapshot}
		case frame = <-outbox:
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(workspaceWriteTimeout)); err != nil {
				logger.Debug().Err(err).Msg("workspace ping failed")
				return
			}
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(workspaceWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			logger.Debug().Err(err).Msg("failed to write workspace frame")
			return
		}
		if frame.Type == FrameError && frame.Error == sessionExpiredMessage {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, sessionExpiredMessage))
			_ = conn.Close()
			return
		}
	}
}

const sessionExpiredMessage = "session expired"

// readCommands runs the client commands one at a time and queues their
// replies for the writer loop.
func (h *WorkspaceHandler) readCommands(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, userID string, outbox chan<- WorkspaceFrame, logger zerolog.Logger) {
	defer cancel()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("workspace websocket read failed")
			}
			return
		}

		frame := h.dispatch(ctx, userID, raw)
		select {
		case outbox <- frame:
		case <-ctx.Done():
			return
		}
	}
}

func (h *WorkspaceHandler) dispatch(ctx context.Context, userID string, raw []byte) WorkspaceFrame {
	var msg dto.WorkspaceMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return WorkspaceFrame{Type: FrameError, Error: "invalid message"}
	}
	if err := h.validator.Struct(msg); err != nil {
		return h.errorFrame(err, nil)
	}

	switch msg.Type {
	case dto.WorkspaceMessageNavigate:
		snapshot, err := h.service.Navigate(ctx, userID, *msg.Navigate)
		if err != nil {
			return h.errorFrame(err, nil)
		}
		return WorkspaceFrame{Type: FrameSnapshot, Snapshot: &snapshot}
	case dto.WorkspaceMessageDraft:
		snapshot, err := h.service.EditDraft(ctx, userID, *msg.Draft)
		if err != nil {
			return h.errorFrame(err, nil)
		}
		return WorkspaceFrame{Type: FrameSnapshot, Snapshot: &snapshot}
	case dto.WorkspaceMessageSubmit:
		if h.submitLimits != nil && !h.submitLimits.Allow(userID) {
			return WorkspaceFrame{Type: FrameError, Error: middleware.LimitReachedMessage}
		}
		outcome, err := h.service.Submit(ctx, userID)
		if err != nil {
			return h.errorFrame(err, &outcome.Snapshot)
		}
		return WorkspaceFrame{Type: FrameSubmitted, Snapshot: &outcome.Snapshot, Result: outcome.Result, Polling: outcome.Polling}
	default:
		return h.workspaceFrame(ctx, userID)
	}
}

func (h *WorkspaceHandler) workspaceFrame(ctx context.Context, userID string) WorkspaceFrame {
	view, err := h.service.Workspace(ctx, userID)
	if err != nil {
		return h.errorFrame(err, nil)
	}
	if view.Notice != "" {
		return WorkspaceFrame{Type: FrameNotice, Notice: view.Notice}
	}
	return WorkspaceFrame{Type: FrameSnapshot, Snapshot: view.Snapshot, Polling: view.Polling}
}

func (h *WorkspaceHandler) errorFrame(err error, snapshot *service.WorkspaceSnapshot) WorkspaceFrame {
	switch {
	case isValidationError(err):
		return WorkspaceFrame{Type: FrameError, Error: "validation failed", Details: dto.ValidationDetails(err)}
	case errors.Is(err, service.ErrSubmitNotAllowed):
		frame := WorkspaceFrame{Type: FrameError, Error: err.Error()}
		if snapshot != nil && snapshot.Version > 0 {
			frame.Snapshot = snapshot
		}
		return frame
	case errors.Is(err, service.ErrWorkspaceClosed):
		return WorkspaceFrame{Type: FrameError, Error: "workspace closed, reload it"}
	case arena.IsUnauthorized(err):
		return WorkspaceFrame{Type: FrameError, Error: sessionExpiredMessage}
	}
	if notice, ok := service.UnavailableNotice(err); ok {
		return WorkspaceFrame{Type: FrameNotice, Notice: notice}
	}
	if apiErr, ok := arena.AsAPIError(err); ok && apiErr.StatusCode < 500 {
		return WorkspaceFrame{Type: FrameError, Error: apiErr.Message}
	}
	h.logger.Error().Err(err).Msg("workspace command failed")
	return WorkspaceFrame{Type: FrameError, Error: "arena is unavailable, try again later"}
}
