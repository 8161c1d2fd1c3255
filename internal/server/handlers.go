package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"parking-allocator/internal/parking"
)

type Handler struct {
	allocator   *parking.InstrumentedAllocator
	serviceName string
}

// NewHandler serves the allocator built at startup; handlers never replace it.
func NewHandler(allocator *parking.InstrumentedAllocator, serviceName string) *Handler {
	return &Handler{
		allocator:   allocator,
		serviceName: serviceName,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) Admit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req AdmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	plate := strings.TrimSpace(req.Plate)
	if plate == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Plate is required")
		return
	}

	category, err := parking.ParseVehicleCategory(req.Category)
	if err != nil {
		writeAllocatorError(w, r, err)
		return
	}

	ticket, err := h.allocator.Admit(ctx, plate, category)
	if err != nil {
		writeAllocatorError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle admitted", AdmitResponse{
		Ticket:       ticket,
		Plate:        plate,
		Category:     category,
		SpotCategory: parking.SpotFor(category),
	})
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Ticket == parking.NoTicket {
		WriteError(ctx, w, http.StatusBadRequest, "Ticket is required")
		return
	}

	plate, err := h.allocator.Release(ctx, req.Ticket)
	if err != nil {
		writeAllocatorError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle released", ReleaseResponse{
		Ticket: req.Ticket,
		Plate:  plate,
	})
}

func (h *Handler) TicketStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticket, err := parking.ParseTicket(chi.URLParam(r, "ticket"))
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid ticket number")
		return
	}

	details, err := h.allocator.Status(ctx, ticket)
	if err != nil {
		writeAllocatorError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Ticket found", TicketStatusResponse{
		VehicleDetails:  details,
		ParkedAtDisplay: details.FormattedParkedAt(),
	})
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	WriteSuccess(ctx, w, "Availability retrieved", AvailabilityResponse{
		Categories: h.allocator.Availability(ctx),
	})
}

func writeAllocatorError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, parking.ErrLotFull):
		status = http.StatusConflict
	case errors.Is(err, parking.ErrUnknownTicket):
		status = http.StatusNotFound
	case errors.Is(err, parking.ErrInvalidCategory):
		status = http.StatusBadRequest
	}
	WriteError(r.Context(), w, status, err.Error())
}
