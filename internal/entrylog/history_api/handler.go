package history_api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	entrylog "ms-admission/internal/entrylog/service"
	"ms-admission/internal/logger"
	"ms-admission/internal/models"
	"ms-admission/internal/utils"
)

type Handler struct {
	HistoryService *entrylog.HistoryService
	Logger         *logger.Logger
	Location       *time.Location
	Clock          utils.Clock
}

func NewHandler(historyService *entrylog.HistoryService, log *logger.Logger, loc *time.Location) *Handler {
	return &Handler{HistoryService: historyService, Logger: log, Location: loc, Clock: historyService.Clock}
}

// RegisterRoutes mounts the history routes under an /api router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/history", func(r chi.Router) {
		r.Get("/", h.ListHistory)
		r.Get("/stats", h.DailyStats)
		r.Get("/{id}", h.GetEntry)
		r.Put("/{id}", h.UpdateEntry)
		r.Delete("/{id}", h.DeleteEntry)
	})
	r.Get("/export/history", h.ExportHistory)
}

// ListHistory serves ?tkt_number=&limit=.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.WriteBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	logs, err := h.HistoryService.ListHistory(r.Context(), r.URL.Query().Get("tkt_number"), limit)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	out := make([]*models.EntryLogResponse, 0, len(logs))
	for i := range logs {
		out = append(out, logs[i].ToResponse(h.Location))
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"logs":    out,
	})
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	log, err := h.HistoryService.GetEntry(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"log":     log.ToResponse(h.Location),
	})
}

func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	var req models.UpdateEntryLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteBadRequest(w, "invalid request body")
		return
	}

	log, err := h.HistoryService.UpdateEntry(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "entry log updated",
		"log":     log.ToResponse(h.Location),
	})
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	if err := h.HistoryService.DeleteEntry(r.Context(), id); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "entry log deleted",
	})
}

func (h *Handler) DailyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.HistoryService.DailyStats(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.HistoryService.ExportCSV(r.Context(), &buf); err != nil {
		h.Logger.Error("EXPORT", fmt.Sprintf("History export failed: %v", err))
		utils.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s", utils.ExportFileName("entry_history", h.Clock.Now().In(h.Location))))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteBadRequest(w, "invalid entry log id")
		return 0, false
	}
	return id, true
}
