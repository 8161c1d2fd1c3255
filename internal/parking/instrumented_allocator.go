package parking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"parking-allocator/internal/logging"
	"parking-allocator/internal/telemetry"
)

// InstrumentedAllocator adds spans, metrics and logs around an Allocator.
// It is the entry point used by the shell and the HTTP server.
type InstrumentedAllocator struct {
	*Allocator
	tracer trace.Tracer

	admissions        metric.Int64Counter
	releases          metric.Int64Counter
	occupiedSpots     metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
}

func NewInstrumentedAllocator(allocator *Allocator, provider *telemetry.Provider) (*InstrumentedAllocator, error) {
	meter := provider.Meter()

	admissions, err := meter.Int64Counter("parking_admissions_total",
		metric.WithDescription("Total number of admission attempts"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	releases, err := meter.Int64Counter("parking_releases_total",
		metric.WithDescription("Total number of release attempts"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupiedSpots, err := meter.Int64UpDownCounter("parking_occupied_spots",
		metric.WithDescription("Spots currently charged, by counter category"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("parking_operation_duration_seconds",
		metric.WithDescription("Duration of allocator operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedAllocator{
		Allocator:         allocator,
		tracer:            provider.Tracer(),
		admissions:        admissions,
		releases:          releases,
		occupiedSpots:     occupiedSpots,
		operationDuration: operationDuration,
	}, nil
}

// Admit builds a vehicle for plate and category and parks it.
func (ia *InstrumentedAllocator) Admit(ctx context.Context, plate string, category VehicleCategory) (Ticket, error) {
	ctx, span := ia.tracer.Start(ctx, "allocator.admit",
		trace.WithAttributes(
			attribute.String("vehicle.plate", plate),
			attribute.String("vehicle.category", category.String()),
		))
	defer span.End()

	start := time.Now()

	ticket, charged, err := ia.admit(plate, category)

	labels := []attribute.KeyValue{
		attribute.String("operation", "admit"),
		attribute.String("vehicle_category", category.String()),
		attribute.String("status", outcome(err)),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.Warn(ctx, "admission rejected", "plate", plate, "category", category.String(), "error", err)
	} else {
		span.SetAttributes(
			attribute.Int64("ticket", int64(ticket)),
			attribute.String("spot.charged_category", charged.String()),
		)
		if charged != category {
			span.AddEvent("spilled_over", trace.WithAttributes(
				attribute.String("charged_category", charged.String()),
			))
		}
		ia.occupiedSpots.Add(ctx, 1, metric.WithAttributes(attribute.String("counter", charged.String())))
		logging.Info(ctx, "vehicle admitted", "plate", plate, "ticket", ticket.String(), "charged", charged.String())
	}

	ia.admissions.Add(ctx, 1, metric.WithAttributes(labels...))
	ia.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels[0], labels[2]))

	return ticket, err
}

func (ia *InstrumentedAllocator) admit(plate string, category VehicleCategory) (Ticket, VehicleCategory, error) {
	vehicle, err := NewVehicle(plate, category)
	if err != nil {
		return NoTicket, 0, err
	}
	return ia.Allocator.admit(vehicle)
}

// Release frees the spot of ticket and returns the plate.
func (ia *InstrumentedAllocator) Release(ctx context.Context, ticket Ticket) (string, error) {
	ctx, span := ia.tracer.Start(ctx, "allocator.release",
		trace.WithAttributes(attribute.Int64("ticket", int64(ticket))))
	defer span.End()

	start := time.Now()

	details, counter, err := ia.Allocator.release(ticket)

	labels := []attribute.KeyValue{
		attribute.String("operation", "release"),
		attribute.String("status", outcome(err)),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.Warn(ctx, "release rejected", "ticket", ticket.String(), "error", err)
	} else {
		span.SetAttributes(
			attribute.String("vehicle.plate", details.Plate),
			attribute.String("vehicle.category", details.VehicleCategory.String()),
		)
		labels = append(labels, attribute.String("vehicle_category", details.VehicleCategory.String()))
		ia.occupiedSpots.Add(ctx, -1, metric.WithAttributes(attribute.String("counter", counter.String())))
		logging.Info(ctx, "vehicle released", "plate", details.Plate, "ticket", ticket.String(), "counter", counter.String())
	}

	ia.releases.Add(ctx, 1, metric.WithAttributes(labels...))
	ia.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels[0], labels[1]))

	return details.Plate, err
}

func (ia *InstrumentedAllocator) Status(ctx context.Context, ticket Ticket) (VehicleDetails, error) {
	ctx, span := ia.tracer.Start(ctx, "allocator.status",
		trace.WithAttributes(attribute.Int64("ticket", int64(ticket))))
	defer span.End()

	start := time.Now()

	details, err := ia.Allocator.Status(ticket)
	if err != nil {
		span.AddEvent("ticket_not_found")
	} else {
		span.SetAttributes(attribute.String("ticket.status", details.TicketStatus.String()))
	}

	ia.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "status"),
		attribute.String("status", outcome(err)),
	))

	return details, err
}

func (ia *InstrumentedAllocator) Availability(ctx context.Context) Availability {
	ctx, span := ia.tracer.Start(ctx, "allocator.availability")
	defer span.End()

	start := time.Now()

	report := ia.Allocator.Availability()
	for _, c := range report {
		span.SetAttributes(attribute.Int("remaining."+c.Category.String(), c.Remaining))
	}

	ia.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "availability"),
		attribute.String("status", "success"),
	))

	return report
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrLotFull):
		return "full"
	case errors.Is(err, ErrUnknownTicket):
		return "unknown_ticket"
	case errors.Is(err, ErrInvalidCategory):
		return "invalid_category"
	default:
		return "failed"
	}
}
