package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/service"
)

func TestWorkspaceResponseContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "workspace_response.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	workspace := service.NewWorkspace("u1", service.WorkspaceOptions{}, zerolog.Nop())
	defer workspace.Close()

	evaluated := time.Now().UTC()
	snapshot, err := workspace.Sync(context.Background(),
		[]models.Challenge{
			{ID: "c2", Title: "Palindromes", Difficulty: 3},
			{ID: "c1", Title: "Sum of Two", Difficulty: 1},
		},
		[]models.Submission{{
			ID:          "s1",
			Challenge:   models.ChallengeRefID("c1"),
			Status:      models.SubmissionStatusPassed,
			CreatedAt:   evaluated.Add(-time.Minute),
			EvaluatedAt: &evaluated,
		}},
	)
	require.NoError(t, err)

	app := workspaceApp(&stubChallengeService{view: service.WorkspaceView{Snapshot: &snapshot}})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/workspace", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
