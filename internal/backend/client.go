package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
)

// maxErrorBody bounds how much of a failed response is read for its detail.
const maxErrorBody = 64 * 1024

// Client calls the rename backend over HTTP with JSON bodies.
type Client struct {
	base *url.URL
	http *http.Client
	log  zerolog.Logger
}

var _ Service = (*Client)(nil)

// NewClient creates a client for the backend at baseURL.
// timeout bounds each request; zero means no timeout.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid backend url: %q", baseURL))
	}
	return &Client{
		base: u,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}, nil
}

func (c *Client) Import(ctx context.Context, paths []string) (*invoice.Task, error) {
	return call[invoice.Task](ctx, c, http.MethodPost, "/api/import", ImportRequest{Paths: paths})
}

func (c *Client) Recognize(ctx context.Context, req RecognizeRequest) (*invoice.Task, error) {
	return call[invoice.Task](ctx, c, http.MethodPost, "/api/recognize", req)
}

func (c *Client) PreviewNames(ctx context.Context, req PreviewRequest) (*invoice.Task, error) {
	return call[invoice.Task](ctx, c, http.MethodPost, "/api/preview-names", req)
}

func (c *Client) GetTask(ctx context.Context, taskID string) (*invoice.Task, error) {
	return call[invoice.Task](ctx, c, http.MethodGet, "/api/tasks/"+url.PathEscape(taskID), nil)
}

func (c *Client) PatchItem(ctx context.Context, taskID, itemID string, patch invoice.ItemPatch) (*invoice.Task, error) {
	path := "/api/items/" + url.PathEscape(taskID) + "/" + url.PathEscape(itemID)
	return call[invoice.Task](ctx, c, http.MethodPatch, path, patch)
}

func (c *Client) SyncItems(ctx context.Context, taskID string, edits []invoice.LocalEdit) (*invoice.Task, error) {
	return call[invoice.Task](ctx, c, http.MethodPost, "/api/sync-items", SyncItemsRequest{TaskID: taskID, Items: edits})
}

func (c *Client) RemoveItems(ctx context.Context, taskID string, itemIDs []string) (*invoice.Task, error) {
	return call[invoice.Task](ctx, c, http.MethodPost, "/api/remove-items", ItemsRequest{TaskID: taskID, ItemIDs: itemIDs})
}

func (c *Client) ClearItems(ctx context.Context, taskID string) (*invoice.Task, error) {
	return call[invoice.Task](ctx, c, http.MethodPost, "/api/clear-items", ItemsRequest{TaskID: taskID})
}

func (c *Client) GetSettings(ctx context.Context) (*invoice.Settings, error) {
	return call[invoice.Settings](ctx, c, http.MethodGet, "/api/settings", nil)
}

func (c *Client) UpdateSettings(ctx context.Context, update invoice.SettingsUpdate) (*invoice.Settings, error) {
	return call[invoice.Settings](ctx, c, http.MethodPut, "/api/settings", update)
}

func (c *Client) CommitPlan(ctx context.Context, taskID string, itemIDs []string) (*invoice.CommitPlan, error) {
	req := CommitPlanRequest{TaskID: taskID, ItemIDs: itemIDs, DryRun: true}
	return call[invoice.CommitPlan](ctx, c, http.MethodPost, "/api/commit-plan", req)
}

func (c *Client) CommitRename(ctx context.Context, taskID string, itemIDs []string) (*invoice.CommitResults, error) {
	return call[invoice.CommitResults](ctx, c, http.MethodPost, "/api/commit-rename", ItemsRequest{TaskID: taskID, ItemIDs: itemIDs})
}

func (c *Client) CommitResults(ctx context.Context, taskID string, results []invoice.CommitResult) (*invoice.CommitResults, error) {
	req := CommitResultsRequest{TaskID: taskID, Results: results}
	return call[invoice.CommitResults](ctx, c, http.MethodPost, "/api/commit-results", req)
}

// call performs one request and returns the decoded response.
func call[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request and decodes the response into out.
// Transport failures become TRANSPORT errors; non-2xx responses become BACKEND
// errors carrying the server's detail string.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternal(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return errors.NewInternal(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return errors.NewTransport(err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewTransport(fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

// decodeError turns a non-2xx response into a BACKEND error.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body ErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		e := errors.NewBackend(resp.StatusCode, body.Detail)
		if body.Code != "" {
			e.Message = body.Code + ": " + body.Detail
		}
		return e
	}

	// Validation failures may carry a list of details.
	var list struct {
		Detail []struct {
			Msg string `json:"msg"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(data, &list); err == nil && len(list.Detail) > 0 {
		msgs := make([]string, 0, len(list.Detail))
		for _, d := range list.Detail {
			msgs = append(msgs, d.Msg)
		}
		return errors.NewBackend(resp.StatusCode, strings.Join(msgs, "; "))
	}

	return errors.NewBackend(resp.StatusCode, "")
}
