package handler_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/handler"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

type stubSubmissionService struct {
	list       dto.SubmissionListResponse
	lastList   dto.ListRequest
	events     []service.WatchEvent
	watchErr   error
	subscribed []string
	watched    []string
}

func (s *stubSubmissionService) List(_ context.Context, _ string, req dto.ListRequest) (dto.SubmissionListResponse, error) {
	s.lastList = req
	return s.list, nil
}

func (s *stubSubmissionService) Get(_ context.Context, _ string, id string) (dto.SubmissionDetailResponse, error) {
	if id == "missing" {
		return dto.SubmissionDetailResponse{}, &arena.APIError{StatusCode: http.StatusNotFound, Message: "Submission not found"}
	}
	return dto.SubmissionDetailResponse{Submission: dto.SubmissionView{Submission: models.Submission{ID: id}}}, nil
}

func (s *stubSubmissionService) Stats(context.Context, string) (models.SubmissionStats, error) {
	return models.SubmissionStats{Total: 2, Passed: 1}, nil
}

func (s *stubSubmissionService) WatchList(_ context.Context, userID string) (string, error) {
	if s.watchErr != nil {
		return "", s.watchErr
	}
	key := service.ListWatchKey(userID)
	s.watched = append(s.watched, key)
	return key, nil
}

func (s *stubSubmissionService) WatchDetail(_ context.Context, userID, submissionID string) (string, error) {
	key := service.DetailWatchKey(userID, submissionID)
	s.watched = append(s.watched, key)
	return key, nil
}

// Subscribe hands out the scripted events; the channel is buffered so they
// are already queued when the stream starts.
func (s *stubSubmissionService) Subscribe(key string) (<-chan service.WatchEvent, func()) {
	s.subscribed = append(s.subscribed, key)
	channel := make(chan service.WatchEvent, len(s.events))
	for _, event := range s.events {
		event.Key = key
		channel <- event
	}
	return channel, func() {}
}

func submissionApp(svc service.SubmissionService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/submissions", asUser("u1", "STUDENT"))
	handler.NewSubmissionHandler(svc, zerolog.Nop(), time.Second).Register(group)
	return app
}

func TestSubmissionListPassesPagination(t *testing.T) {
	svc := &stubSubmissionService{list: dto.SubmissionListResponse{
		Items:      []dto.SubmissionView{{Submission: models.Submission{ID: "s1", Status: models.SubmissionStatusPending}, UIStatus: "ongoing"}},
		Pagination: dto.PaginationMeta{Page: 2, Limit: 5, Total: 6, TotalPages: 2},
		Polling:    true,
		NextPollMs: 5000,
	}}
	app := submissionApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions?page=2&limit=5", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, dto.ListRequest{Page: 2, Limit: 5}, svc.lastList)

	var body struct {
		Data dto.SubmissionListResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Data.Polling)
	require.Equal(t, int64(5000), body.Data.NextPollMs)
}

func TestSubmissionListRejectsBadLimit(t *testing.T) {
	app := submissionApp(&stubSubmissionService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions?limit=lots", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmissionNotFoundPassesThrough(t *testing.T) {
	app := submissionApp(&stubSubmissionService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/missing", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Submission not found", decodeEnvelope(t, resp).Message)
}

func TestSubmissionStatsRouteIsNotAnID(t *testing.T) {
	app := submissionApp(&stubSubmissionService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/stats", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data models.SubmissionStats `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, 2, body.Data.Total)
}

func readSSE(t *testing.T, body io.Reader) []handler.SubmissionEvent {
	t.Helper()
	var events []handler.SubmissionEvent
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event handler.SubmissionEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		events = append(events, event)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestSubmissionStreamEndsAfterDone(t *testing.T) {
	now := time.Now().UTC()
	svc := &stubSubmissionService{events: []service.WatchEvent{
		{Type: service.WatchEventUpdate, Submissions: []models.Submission{{ID: "s1", Status: models.SubmissionStatusEvaluating}}, NextPollMs: 5000, At: now},
		{Type: service.WatchEventDone, Submissions: []models.Submission{{ID: "s1", Status: models.SubmissionStatusPassed}}, At: now},
	}}
	app := submissionApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/stream", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	defer resp.Body.Close()

	events := readSSE(t, resp.Body)
	require.Len(t, events, 2)
	require.Equal(t, service.WatchEventUpdate, events[0].Type)
	require.Equal(t, "ongoing", events[0].Submissions[0].UIStatus)
	require.Equal(t, service.WatchEventDone, events[1].Type)
	require.Equal(t, "completed", events[1].Submissions[0].UIStatus)

	require.Equal(t, []string{service.ListWatchKey("u1")}, svc.subscribed)
	require.Equal(t, []string{service.ListWatchKey("u1")}, svc.watched)
}

func TestSubmissionDetailStreamUsesDetailKey(t *testing.T) {
	svc := &stubSubmissionService{events: []service.WatchEvent{{Type: service.WatchEventDone, At: time.Now().UTC()}}}
	app := submissionApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/s9/stream", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	events := readSSE(t, resp.Body)
	require.Len(t, events, 1)
	require.Equal(t, []string{service.DetailWatchKey("u1", "s9")}, svc.subscribed)
}

func TestSubmissionStreamWatchFailure(t *testing.T) {
	svc := &stubSubmissionService{watchErr: &arena.APIError{StatusCode: http.StatusBadGateway, Message: "bad gateway"}}
	app := submissionApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/stream", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}
