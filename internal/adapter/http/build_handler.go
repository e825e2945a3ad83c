package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/chiwei-platform/executor-k8s/internal/domain"
	"github.com/chiwei-platform/executor-k8s/internal/service"
	"github.com/go-chi/chi/v5"
)

type BuildHandler struct {
	svc *service.ExecutionService
}

func NewBuildHandler(svc *service.ExecutionService) *BuildHandler {
	return &BuildHandler{svc: svc}
}

func (h *BuildHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req domain.BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	if err := h.svc.StartBuild(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"buildId": req.BuildID})
}

func (h *BuildHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.StopBuild(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"stopped": id})
}

// StreamLogs 把 Pod 日志流原样转发给客户端，每次读到数据即 Flush。
func (h *BuildHandler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stream, err := h.svc.StreamBuildLogs(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return
			}
			_ = rc.Flush()
		}
		if readErr != nil {
			if readErr != io.EOF {
				slog.Warn("log stream interrupted", "build_id", id, "error", readErr)
			}
			return
		}
	}
}

func (h *BuildHandler) HistoryLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	since := r.URL.Query().Get("since")
	if since == "" {
		since = "1h"
	}
	logs, err := h.svc.HistoryLogs(r.Context(), id, since)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"logs": logs})
}

func (h *BuildHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	execs, err := h.svc.ListExecutions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, execs)
}
