package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/", 5*time.Second, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("not a url", 0, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestClient_Import(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/import", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ImportRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"/tmp/a.pdf"}, req.Paths)

		_ = json.NewEncoder(w).Encode(invoice.Task{
			ID:    "t1",
			Items: []*invoice.Item{{ID: "i1", OldName: "a.pdf", Status: invoice.StatusPending}},
		})
	})

	task, err := c.Import(context.Background(), []string{"/tmp/a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "t1", task.ID)
	require.Len(t, task.Items, 1)
	assert.Equal(t, "a.pdf", task.Items[0].OldName)
}

func TestClient_RecognizeSendsCredentialOverride(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sk-session", body["session_api_key"])
		assert.Equal(t, []any{"i1"}, body["item_ids"])
		_ = json.NewEncoder(w).Encode(invoice.Task{ID: "t1"})
	})

	key := "sk-session"
	_, err := c.Recognize(context.Background(), RecognizeRequest{TaskID: "t1", ItemIDs: []string{"i1"}, SessionAPIKey: &key})
	require.NoError(t, err)
}

func TestClient_PatchItemPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/items/t1/i1", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"manual_name": "x.pdf"}, body)
		_ = json.NewEncoder(w).Encode(invoice.Task{ID: "t1"})
	})

	name := "x.pdf"
	_, err := c.PatchItem(context.Background(), "t1", "i1", invoice.ItemPatch{ManualName: &name})
	require.NoError(t, err)
}

func TestClient_CommitPlanIsDryRun(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req CommitPlanRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.DryRun)
		_ = json.NewEncoder(w).Encode(invoice.CommitPlan{
			TaskID: req.TaskID,
			DryRun: true,
			Plan:   []invoice.CommitPlanItem{{ItemID: "i1", Action: invoice.ActionRename, ConflictType: invoice.ConflictNone}},
		})
	})

	plan, err := c.CommitPlan(context.Background(), "t1", []string{"i1"})
	require.NoError(t, err)
	assert.True(t, plan.DryRun)
	require.Len(t, plan.Plan, 1)
	assert.Equal(t, invoice.ActionRename, plan.Plan[0].Action)
}

func TestClient_StructuredError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Task not found: t9"}`))
	})

	_, err := c.GetTask(context.Background(), "t9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBackend))

	rErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, rErr.Status)
	assert.Equal(t, "Task not found: t9", errors.Normalize(err))
}

func TestClient_ValidationErrorList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"msg":"field required"},{"msg":"bad type"}]}`))
	})

	_, err := c.ClearItems(context.Background(), "t1")
	require.Error(t, err)
	assert.Equal(t, "field required; bad type", errors.Normalize(err))
}

func TestClient_UnstructuredError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.GetSettings(context.Background())
	require.Error(t, err)
	assert.Equal(t, "backend returned status 500", errors.Normalize(err))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewClient(srv.URL, time.Second, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.GetTask(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTransport))
}
