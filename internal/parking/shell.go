package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const shellUsage = `Commands:
  park <plate> <compact|large|two_wheeler>   (1)
  leave <ticket>                             (2)
  availability                               (3)
  status <ticket>                            (4)
  exit                                       (5)
`

// menuAliases maps the numbered gate menu onto shell commands.
var menuAliases = map[string]string{
	"1": "park",
	"2": "leave",
	"3": "availability",
	"4": "status",
	"5": "exit",
}

// Shell is a line-oriented front end for an allocator. Allocator failures
// are printed and never stop the loop.
type Shell struct {
	allocator *InstrumentedAllocator
	tracer    trace.Tracer
	scanner   *bufio.Scanner
	out       io.Writer
}

func NewShell(allocator *InstrumentedAllocator, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		allocator: allocator,
		tracer:    allocator.tracer,
		scanner:   bufio.NewScanner(in),
		out:       out,
	}
}

// Run processes commands until input ends, "exit" is read or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for ctx.Err() == nil && s.scanner.Scan() {
		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := s.tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))
		done := s.processCommand(cmdCtx, input)
		cmdSpan.End()

		if done {
			break
		}
	}

	span.AddEvent("shell_ended")
	return s.scanner.Err()
}

func (s *Shell) processCommand(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	if alias, ok := menuAliases[command]; ok {
		command = alias
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "park":
		s.handlePark(ctx, parts)
	case "leave":
		s.handleLeave(ctx, parts)
	case "availability":
		s.handleAvailability(ctx)
	case "status":
		s.handleStatus(ctx, parts)
	case "help":
		fmt.Fprint(s.out, shellUsage)
	case "exit", "quit":
		return true
	default:
		span.AddEvent("unknown_command")
		fmt.Fprintf(s.out, "Unknown command: %s\n", parts[0])
	}
	return false
}

func (s *Shell) handlePark(ctx context.Context, parts []string) {
	if len(parts) != 3 {
		fmt.Fprintln(s.out, "Usage: park <plate> <compact|large|two_wheeler>")
		return
	}

	category, err := ParseVehicleCategory(parts[2])
	if err != nil {
		fmt.Fprintln(s.out, "Invalid vehicle type.")
		return
	}

	ticket, err := s.allocator.Admit(ctx, parts[1], category)
	switch {
	case errors.Is(err, ErrLotFull):
		fmt.Fprintf(s.out, "Sorry, no %s spot available\n", category)
	case err != nil:
		fmt.Fprintf(s.out, "Error: %s\n", err)
	default:
		fmt.Fprintf(s.out, "Ticket number: %s\n", ticket)
	}
}

func (s *Shell) handleLeave(ctx context.Context, parts []string) {
	ticket, ok := s.ticketArg(parts, "leave")
	if !ok {
		return
	}

	plate, err := s.allocator.Release(ctx, ticket)
	if err != nil {
		fmt.Fprintln(s.out, "Invalid ticket number.")
		return
	}

	fmt.Fprintf(s.out, "Vehicle Number: %s.\n", plate)
}

func (s *Shell) handleAvailability(ctx context.Context) {
	fmt.Fprint(s.out, s.allocator.Availability(ctx).String())
}

func (s *Shell) handleStatus(ctx context.Context, parts []string) {
	ticket, ok := s.ticketArg(parts, "status")
	if !ok {
		return
	}

	details, err := s.allocator.Status(ctx, ticket)
	if err != nil {
		fmt.Fprintln(s.out, "Invalid ticket number.")
		return
	}

	fmt.Fprintf(s.out, "Vehicle Number: %s\n", details.Plate)
	fmt.Fprintf(s.out, "Vehicle Type: %s\n", details.VehicleCategory)
	fmt.Fprintf(s.out, "Parking Spot Type: %s\n", details.SpotCategory)
	fmt.Fprintf(s.out, "Parking Time: %s\n", details.FormattedParkedAt())
	fmt.Fprintf(s.out, "Ticket Status: %s\n", details.TicketStatus)
}

func (s *Shell) ticketArg(parts []string, command string) (Ticket, bool) {
	if len(parts) != 2 {
		fmt.Fprintf(s.out, "Usage: %s <ticket>\n", command)
		return NoTicket, false
	}

	ticket, err := ParseTicket(parts[1])
	if err != nil {
		fmt.Fprintln(s.out, "Invalid ticket number.")
		return NoTicket, false
	}
	return ticket, true
}
