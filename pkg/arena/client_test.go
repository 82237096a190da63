package arena

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL + "/", Logger: zerolog.Nop()})
	require.NoError(t, err)
	return client
}

func TestClientSendsBearerTokenAndJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "/widgets", r.URL.Path)

		var payload widget
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "gear", payload.Name)

		_ = json.NewEncoder(w).Encode(widget{ID: "w1", Name: payload.Name})
	})

	ctx := WithToken(context.Background(), "secret-token")
	var out widget
	require.NoError(t, client.Post(ctx, "/widgets", widget{Name: "gear"}, &out))
	require.Equal(t, "w1", out.ID)
}

func TestClientOmitsAuthorizationWithoutToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Delete(context.Background(), "/widgets/1", nil))
}

func TestClientEmptyBodyLeavesOutputUntouched(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	out := widget{ID: "keep"}
	require.NoError(t, client.Get(context.Background(), "/widgets/1", &out))
	require.Equal(t, "keep", out.ID)
}

func TestClientMarksTransportFailures(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, err := New(Config{BaseURL: baseURL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	err = client.Get(context.Background(), "/widgets", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnreachable))
	_, isAPI := AsAPIError(err)
	require.False(t, isAPI)
}

func TestClientDecodesErrorEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"statusCode":409,"message":"already submitted","error":"Conflict"}`))
	})

	err := client.Get(context.Background(), "/submissions", nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, 409, apiErr.StatusCode)
	require.Equal(t, "already submitted", apiErr.Message)
	require.Equal(t, "Conflict", apiErr.Kind)
}

func TestClientJoinsValidationMessages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"statusCode":400,"message":["code should not be empty","explanation too short"],"error":"Bad Request"}`))
	})

	err := client.Post(context.Background(), "/submissions", map[string]string{}, nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, "code should not be empty; explanation too short", apiErr.Message)
}

func TestClientFallsBackToStatusText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream down</html>"))
	})

	err := client.Get(context.Background(), "/challenges/active", nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestClientInvokesUnauthorizedHook(t *testing.T) {
	var calls atomic.Int32
	var seenToken atomic.Value

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"statusCode":401,"message":"Unauthorized"}`))
	})
	client.SetUnauthorizedHook(func(_ context.Context, token string) {
		calls.Add(1)
		seenToken.Store(token)
	})

	err := client.Get(WithToken(context.Background(), "stale"), "/auth/me", nil)
	require.True(t, IsUnauthorized(err))
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, "stale", seenToken.Load())
}

func TestFlexibleAcceptsBareAndWrappedPayloads(t *testing.T) {
	var bare Flexible[widget]
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","name":"bare"}`), &bare))
	require.Equal(t, "a", bare.Value.ID)

	var wrapped Flexible[widget]
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"id":"b","name":"wrapped"}}`), &wrapped))
	require.Equal(t, "b", wrapped.Value.ID)

	var list Flexible[[]widget]
	require.NoError(t, json.Unmarshal([]byte(`[{"id":"c"}]`), &list))
	require.Len(t, list.Value, 1)

	var paged Flexible[[]widget]
	require.NoError(t, json.Unmarshal([]byte(`{"data":[{"id":"d"},{"id":"e"}],"meta":{"page":1}}`), &paged))
	require.Len(t, paged.Value, 2)
}

func TestIsChallengeUnavailable(t *testing.T) {
	require.True(t, IsChallengeUnavailable(&APIError{StatusCode: 404, Message: "No active challenge found"}))
	require.True(t, IsChallengeUnavailable(&APIError{StatusCode: 403, Message: "Challenges are only available on weekends"}))
	require.False(t, IsChallengeUnavailable(&APIError{StatusCode: 500, Message: "no active challenge"}))
	require.False(t, IsChallengeUnavailable(&APIError{StatusCode: 404, Message: "Submission not found"}))
}

func TestPagePath(t *testing.T) {
	require.Equal(t, "/submissions?limit=20&page=1", PagePath("/submissions", 0, 0))
	require.Equal(t, "/users?limit=50&page=3", PagePath("/users", 3, 50))
}

func TestClientPingTreatsClientErrorsAsReachable(t *testing.T) {
	status := int32(http.StatusNotFound)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/challenges/current", r.URL.Path)
		w.WriteHeader(int(atomic.LoadInt32(&status)))
		_, _ = w.Write([]byte(`{"message":"No active challenge this week"}`))
	})

	require.NoError(t, client.Ping(context.Background()))

	atomic.StoreInt32(&status, http.StatusBadGateway)
	err := client.Ping(context.Background())
	require.Error(t, err)
	require.Equal(t, http.StatusBadGateway, StatusCode(err))
}

func TestClientPingReportsUnreachableBackend(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := New(Config{BaseURL: server.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.True(t, errors.Is(client.Ping(context.Background()), ErrUnreachable))
}
