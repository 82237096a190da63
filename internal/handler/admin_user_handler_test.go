package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/handler"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

type stubAdminUserService struct {
	listed   dto.ListRequest
	analyzed string
	actor    service.ActivityActor
}

func (s *stubAdminUserService) Users(context.Context, dto.ListRequest) (service.ListResult[models.User], error) {
	return service.ListResult[models.User]{}, nil
}

func (s *stubAdminUserService) GrantCoins(context.Context, string, dto.GrantCoinsRequest, service.ActivityActor) (models.User, error) {
	return models.User{}, nil
}

func (s *stubAdminUserService) PendingReviews(context.Context, dto.ListRequest) (service.ListResult[dto.SubmissionView], error) {
	return service.ListResult[dto.SubmissionView]{}, nil
}

func (s *stubAdminUserService) Review(context.Context, string, dto.ReviewRequest, service.ActivityActor) (models.ReviewResult, error) {
	return models.ReviewResult{}, nil
}

func (s *stubAdminUserService) PendingAnalysis(_ context.Context, req dto.ListRequest) (service.ListResult[dto.SubmissionView], error) {
	s.listed = req
	return service.ListResult[dto.SubmissionView]{
		Items:      []dto.SubmissionView{{Submission: models.Submission{ID: "s1", Status: models.SubmissionStatusPending}, UIStatus: "ongoing"}},
		Pagination: dto.PaginationMeta{Page: req.Page, Limit: req.Limit, Total: 1, TotalPages: 1},
	}, nil
}

func (s *stubAdminUserService) Analyze(_ context.Context, id string, actor service.ActivityActor) (dto.SubmissionView, error) {
	if id == "missing" {
		return dto.SubmissionView{}, &arena.APIError{StatusCode: http.StatusNotFound, Message: "Submission not found"}
	}
	s.analyzed = id
	s.actor = actor
	return dto.SubmissionView{Submission: models.Submission{ID: id, Status: models.SubmissionStatusPassed}, UIStatus: "completed"}, nil
}

func TestAdminPendingAnalysisAndTrigger(t *testing.T) {
	svc := &stubAdminUserService{}
	app := adminApp(func(r fiber.Router) {
		handler.NewAdminUserHandler(svc, zerolog.Nop()).Register(r)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/analysis?page=2&limit=20", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, dto.ListRequest{Page: 2, Limit: 20}, svc.listed)

	var listed struct {
		Data []dto.SubmissionView `json:"data"`
	}
	decodeResponse(t, resp, &listed)
	require.Len(t, listed.Data, 1)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/admin/analysis/s1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "s1", svc.analyzed)
	require.Equal(t, "admin-1", svc.actor.ID)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/admin/analysis/missing", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
