package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/utils"
)

// SubmissionEvent is one server-sent status event.
type SubmissionEvent struct {
	Type        string               `json:"type"`
	Submissions []dto.SubmissionView `json:"submissions,omitempty"`
	Error       string               `json:"error,omitempty"`
	NextPollMs  int64                `json:"nextPollMs,omitempty"`
	At          time.Time            `json:"at"`
}

// SubmissionHandler serves the submission history and its live status streams.
type SubmissionHandler struct {
	service   service.SubmissionService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewSubmissionHandler constructs the handler. keepAlive is the interval of
// comment frames sent on idle streams.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger, keepAlive time.Duration) *SubmissionHandler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &SubmissionHandler{
		service:   service,
		logger:    logger.With().Str("component", "submission_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the submission routes.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/stats", h.stats)
	router.Get("/stream", h.streamList)
	router.Get("/:id", h.get)
	router.Get("/:id/stream", h.streamDetail)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	req, err := listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.List(requestContext(c), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list submissions")
	}
	return utils.OK(c, result, "submissions", result.Pagination)
}

func (h *SubmissionHandler) stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(requestContext(c), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load submission stats")
	}
	return utils.SendSuccess(c, "submission stats", stats)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	result, err := h.service.Get(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load submission")
	}
	return utils.SendSuccess(c, "submission", result)
}

func (h *SubmissionHandler) streamList(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	return h.stream(c, service.ListWatchKey(userID), func(ctx context.Context) (string, error) {
		return h.service.WatchList(ctx, userID)
	})
}

func (h *SubmissionHandler) streamDetail(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	submissionID := c.Params("id")
	return h.stream(c, service.DetailWatchKey(userID, submissionID), func(ctx context.Context) (string, error) {
		return h.service.WatchDetail(ctx, userID, submissionID)
	})
}

// stream subscribes before starting the watch so the first event of a watch
// that settles immediately is not lost. The stream ends after a done event.
func (h *SubmissionHandler) stream(c *fiber.Ctx, key string, start func(context.Context) (string, error)) error {
	events, cleanup := h.service.Subscribe(key)

	if _, err := start(requestContext(c)); err != nil {
		cleanup()
		return respondError(c, h.logger, err, "failed to watch submissions")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := requestLogger(h.logger, c).With().Str("watch_key", key).Logger()
	keepAlive := h.keepAlive

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cleanup()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := writeSubmissionEvent(w, event); err != nil {
					logger.Debug().Err(err).Msg("failed to write submission event")
					return
				}
				if event.Type == service.WatchEventDone {
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Msg("submission stream closed")
					return
				}
			}
		}
	})

	return nil
}

func writeSubmissionEvent(w *bufio.Writer, event service.WatchEvent) error {
	views := make([]dto.SubmissionView, 0, len(event.Submissions))
	for i := range event.Submissions {
		views = append(views, dto.SubmissionView{
			Submission: event.Submissions[i],
			UIStatus:   string(service.StatusOf(&event.Submissions[i])),
		})
	}

	payload, err := json.Marshal(SubmissionEvent{
		Type:        event.Type,
		Submissions: views,
		Error:       event.Error,
		NextPollMs:  event.NextPollMs,
		At:          event.At,
	})
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
