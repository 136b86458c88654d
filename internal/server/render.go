package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/invoicename/internal/backend"
	"github.com/hpungsan/invoicename/internal/errors"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError writes err as {"detail", "code"} with its status.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	rErr, ok := errors.As(err)
	if !ok {
		rErr = errors.NewInternal(err)
	}
	if rErr.Status >= 500 {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	renderJSON(w, rErr.Status, backend.ErrorBody{Detail: rErr.Message, Code: string(rErr.Code)})
}

// decodeBody decodes a JSON request body into T.
func decodeBody[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, errors.NewInvalidRequest("invalid request body: " + err.Error())
	}
	return v, nil
}

// renderMarkdown converts markdown text to an HTML page body.
func renderMarkdown(md string) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
