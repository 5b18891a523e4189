package admission_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-admission/internal/admission"
	"ms-admission/internal/logger"
	"ms-admission/internal/models"
	"ms-admission/internal/sse"
	"ms-admission/internal/utils"
)

const keepAliveInterval = 25 * time.Second

type Handler struct {
	Service  *admission.Service
	Emitter  *sse.AdmissionEventEmitter
	Logger   *logger.Logger
	Location *time.Location
}

func NewHandler(service *admission.Service, emitter *sse.AdmissionEventEmitter, log *logger.Logger, loc *time.Location) *Handler {
	return &Handler{Service: service, Emitter: emitter, Logger: log, Location: loc}
}

// RegisterRoutes mounts the admission routes under an /api router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/entry", func(r chi.Router) {
		r.Post("/judge", h.JudgeEntry)
		r.Get("/stream", h.StreamEntries)
	})
}

// JudgeEntry handles POST /api/entry/judge with body {"tkt_number": "..."}.
// NG verdicts are a 200 response; only bad input and storage failures are errors.
func (h *Handler) JudgeEntry(w http.ResponseWriter, r *http.Request) {
	var req models.JudgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteBadRequest(w, "invalid request body")
		return
	}

	verdict, entry, err := h.Service.Admit(r.Context(), req.PassNumber)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.JudgeResponse{
		Success:   true,
		Judgement: verdict.ToResponse(h.Location),
		EntryLog:  entry.ToResponse(h.Location),
	})
}

// StreamEntries handles GET /api/entry/stream, a server-sent event feed of recorded
// attempts. ?tkt_number= narrows it to one pass.
func (h *Handler) StreamEntries(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The server write timeout would otherwise cut long-lived streams.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	passNumber := r.URL.Query().Get("tkt_number")
	ctx := r.Context()
	events := h.Emitter.Subscribe(ctx, passNumber)

	setupSSEHeaders(w)
	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to admission stream (filter=%q)", passNumber))

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(h.toPayload(event))
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize admission event: %v", err))
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: admission\ndata: %s\n\n", event.EventID, data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", "Client disconnected from admission stream")
			return
		}
	}
}

type eventPayload struct {
	EventID    string `json:"event_id"`
	PassNumber string `json:"tkt_number"`
	Result     string `json:"result"`
	Comment    string `json:"comment"`
	IsReentry  bool   `json:"is_reentry"`
	EntryLogID int64  `json:"entry_log_id"`
	EntryTime  string `json:"entry_time"`
}

func (h *Handler) toPayload(e models.AdmissionEvent) eventPayload {
	return eventPayload{
		EventID:    e.EventID,
		PassNumber: e.PassNumber,
		Result:     string(e.Result),
		Comment:    e.Comment,
		IsReentry:  e.IsReentry,
		EntryLogID: e.EntryLogID,
		EntryTime:  e.EntryTime.In(h.Location).Format(time.RFC3339),
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
