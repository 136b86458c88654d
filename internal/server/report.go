package server

import (
	"fmt"
	"html"
	"net/http"

	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
)

const reportPage = `<!DOCTYPE html>
<html lang="zh-CN">
<head><meta charset="utf-8"><title>%s</title></head>
<body>
%s</body>
</html>
`

// handleReport serves a task report as HTML, or as markdown with ?format=md.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	task, err := s.mustTask(r.PathValue("id"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	task.Refresh()
	md := invoice.Markdown(task)

	if r.URL.Query().Get("format") == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(md))
		return
	}

	body, err := renderMarkdown(md)
	if err != nil {
		s.renderError(w, r, errors.NewInternal(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, reportPage, html.EscapeString("发票改名报告 "+task.ID), body)
}
