package ticket_api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-admission/internal/logger"
	"ms-admission/internal/models"
	qr "ms-admission/internal/tickets/qr_generator"
	tickets "ms-admission/internal/tickets/service"
	"ms-admission/internal/utils"
)

type Handler struct {
	TicketService  *tickets.TicketService
	QRGenerator    *qr.QRGenerator
	Logger         *logger.Logger
	Location       *time.Location
	Clock          utils.Clock
	UploadMaxBytes int64
}

func NewHandler(ticketService *tickets.TicketService, log *logger.Logger, loc *time.Location, uploadMaxBytes int64) *Handler {
	return &Handler{
		TicketService:  ticketService,
		QRGenerator:    qr.NewQRGenerator(qr.DefaultSize),
		Logger:         log,
		Location:       loc,
		Clock:          ticketService.Clock,
		UploadMaxBytes: uploadMaxBytes,
	}
}

// RegisterRoutes mounts the ticket routes under an /api router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Post("/", h.CreateTicket)
		r.Post("/import", h.ImportTickets)
		r.Get("/{tkt_number}", h.GetTicket)
		r.Put("/{tkt_number}", h.UpdateTicket)
		r.Delete("/{tkt_number}", h.DeleteTicket)
		r.Get("/{tkt_number}/qr", h.PassQR)
	})
	r.Get("/export/tickets", h.ExportTickets)
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	list, err := h.TicketService.ListTickets(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	out := make([]*models.TicketResponse, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToResponse(h.Location))
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"tickets": out,
	})
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.TicketService.GetTicket(r.Context(), chi.URLParam(r, "tkt_number"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"ticket":  ticket.ToResponse(h.Location),
	})
}

func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteBadRequest(w, "invalid request body")
		return
	}

	ticket, err := h.TicketService.RegisterTicket(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "ticket registered",
		"ticket":  ticket.ToResponse(h.Location),
	})
}

func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteBadRequest(w, "invalid request body")
		return
	}

	ticket, err := h.TicketService.UpdateTicket(r.Context(), chi.URLParam(r, "tkt_number"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "ticket updated",
		"ticket":  ticket.ToResponse(h.Location),
	})
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	if err := h.TicketService.DeleteTicket(r.Context(), chi.URLParam(r, "tkt_number")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "ticket deleted",
	})
}

// ImportTickets handles a multipart upload with the CSV in the "file" field.
func (h *Handler) ImportTickets(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.UploadMaxBytes)
	if err := r.ParseMultipartForm(h.UploadMaxBytes); err != nil {
		utils.WriteBadRequest(w, "upload too large or not multipart")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		utils.WriteBadRequest(w, "no file selected")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		utils.WriteBadRequest(w, "please select a CSV file")
		return
	}

	result, err := h.TicketService.ImportCSV(r.Context(), file)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"message":       fmt.Sprintf("import finished: %d succeeded, %d failed", result.SuccessCount, result.ErrorCount),
		"success_count": result.SuccessCount,
		"error_count":   result.ErrorCount,
		"errors":        result.Errors,
	})
}

func (h *Handler) ExportTickets(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.TicketService.ExportCSV(r.Context(), &buf); err != nil {
		h.Logger.Error("EXPORT", fmt.Sprintf("Ticket export failed: %v", err))
		utils.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s", utils.ExportFileName("tickets", h.Clock.Now().In(h.Location))))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// PassQR returns a PNG QR code of a registered pass number.
func (h *Handler) PassQR(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.TicketService.GetTicket(r.Context(), chi.URLParam(r, "tkt_number"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	png, err := h.QRGenerator.GeneratePassQR(ticket.PassNumber)
	if err != nil {
		h.Logger.Error("QR", fmt.Sprintf("Failed to render QR for %s: %v", ticket.PassNumber, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse{Error: "failed to render QR code"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
