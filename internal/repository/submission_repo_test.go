package repository

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-arena/internal/models"
)

func TestSubmissionRepositoryPendingAnalysis(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/submissions/pending-analysis", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.Equal(t, "20", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[{"id":"s1","status":"PENDING","challengeId":{"_id":"c1","title":"Sum"}}],"meta":{"page":2,"limit":20,"total":21,"totalPages":2}}`))
	})

	page, err := NewSubmissionRepository(client).PendingAnalysis(context.Background(), Pagination{Page: 2})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.Equal(t, "c1", page.Data[0].Challenge.ID())
	require.Equal(t, 21, page.Meta.Total)
}

func TestSubmissionRepositoryAnalyze(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/submissions/s1/analyze", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"s1","status":"PASSED","aiScore":87}`))
	})

	submission, err := NewSubmissionRepository(client).Analyze(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPassed, submission.Status)
	require.InDelta(t, 87, *submission.AIScore, 0.001)
}
