package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"parking-allocator/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type AdmitRequest struct {
	Plate    string `json:"plate"`
	Category string `json:"category"`
}

type AdmitResponse struct {
	Ticket       parking.Ticket          `json:"ticket"`
	Plate        string                  `json:"plate"`
	Category     parking.VehicleCategory `json:"category"`
	SpotCategory parking.SpotCategory    `json:"spot_category"`
}

type ReleaseRequest struct {
	Ticket parking.Ticket `json:"ticket"`
}

type ReleaseResponse struct {
	Ticket parking.Ticket `json:"ticket"`
	Plate  string         `json:"plate"`
}

type TicketStatusResponse struct {
	parking.VehicleDetails
	ParkedAtDisplay string `json:"parked_at_display"`
}

type AvailabilityResponse struct {
	Categories []parking.CategoryAvailability `json:"categories"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
