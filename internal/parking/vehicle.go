package parking

import (
	"fmt"
	"strings"
	"time"

	"parking-allocator/internal/clock"
)

// VehicleCategory is the kind of vehicle requesting a spot.
type VehicleCategory int

const (
	VehicleCompact VehicleCategory = iota + 1
	VehicleLarge
	VehicleTwoWheeler
)

// VehicleCategories lists every category in report order.
var VehicleCategories = []VehicleCategory{VehicleCompact, VehicleLarge, VehicleTwoWheeler}

func (c VehicleCategory) String() string {
	switch c {
	case VehicleCompact:
		return "compact"
	case VehicleLarge:
		return "large"
	case VehicleTwoWheeler:
		return "two_wheeler"
	default:
		return fmt.Sprintf("VehicleCategory(%d)", int(c))
	}
}

func (c VehicleCategory) Valid() bool {
	return c >= VehicleCompact && c <= VehicleTwoWheeler
}

func (c VehicleCategory) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, int(c))
	}
	return []byte(c.String()), nil
}

func (c *VehicleCategory) UnmarshalText(text []byte) error {
	parsed, err := ParseVehicleCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseVehicleCategory accepts category names, the car/bus/motorcycle
// aliases and the menu numbers 1-3.
func ParseVehicleCategory(s string) (VehicleCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compact", "car", "1":
		return VehicleCompact, nil
	case "large", "bus", "2":
		return VehicleLarge, nil
	case "two_wheeler", "two-wheeler", "twowheeler", "motorcycle", "3":
		return VehicleTwoWheeler, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
}

// SpotCategory is the physical size class of a parking space.
type SpotCategory int

const (
	SpotSmall SpotCategory = iota + 1
	SpotMedium
	SpotLarge
)

func (s SpotCategory) String() string {
	switch s {
	case SpotSmall:
		return "small"
	case SpotMedium:
		return "medium"
	case SpotLarge:
		return "large"
	default:
		return fmt.Sprintf("SpotCategory(%d)", int(s))
	}
}

func (s SpotCategory) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SpotCategory) UnmarshalText(text []byte) error {
	for _, candidate := range []SpotCategory{SpotSmall, SpotMedium, SpotLarge} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown spot category %q", text)
}

// SpotFor returns the spot size a vehicle category is parked in.
func SpotFor(c VehicleCategory) SpotCategory {
	switch c {
	case VehicleTwoWheeler:
		return SpotSmall
	case VehicleLarge:
		return SpotLarge
	default:
		return SpotMedium
	}
}

type TicketStatus int

const (
	TicketActive TicketStatus = iota + 1
	TicketPaid
	TicketLost
)

func (s TicketStatus) String() string {
	switch s {
	case TicketActive:
		return "active"
	case TicketPaid:
		return "paid"
	case TicketLost:
		return "lost"
	default:
		return fmt.Sprintf("TicketStatus(%d)", int(s))
	}
}

func (s TicketStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TicketStatus) UnmarshalText(text []byte) error {
	for _, candidate := range []TicketStatus{TicketActive, TicketPaid, TicketLost} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown ticket status %q", text)
}

// Vehicle is a single parking request. Once admitted it is owned by the
// Allocator; read its state through Allocator.Status afterwards.
type Vehicle struct {
	plate        string
	category     VehicleCategory
	spotCategory SpotCategory
	parkedAt     time.Time
	exitedAt     time.Time
	status       TicketStatus
	ticket       Ticket

	// charged is the occupancy counter incremented on admission.
	charged VehicleCategory
}

func NewVehicle(plate string, category VehicleCategory) (*Vehicle, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, int(category))
	}

	return &Vehicle{
		plate:        plate,
		category:     category,
		spotCategory: SpotFor(category),
		parkedAt:     clock.Now(),
		status:       TicketActive,
	}, nil
}

// The accessors below read without locking. Once the vehicle is admitted,
// calling them while another goroutine releases it is a data race.

func (v *Vehicle) Plate() string { return v.plate }

func (v *Vehicle) Category() VehicleCategory { return v.category }

func (v *Vehicle) SpotCategory() SpotCategory { return v.spotCategory }

func (v *Vehicle) ParkedAt() time.Time { return v.parkedAt }

func (v *Vehicle) Status() TicketStatus { return v.status }

// Ticket returns the ticket issued on admission, or NoTicket.
func (v *Vehicle) Ticket() Ticket { return v.ticket }

// ExitedAt reports the exit time and whether the vehicle has left.
func (v *Vehicle) ExitedAt() (time.Time, bool) {
	return v.exitedAt, !v.exitedAt.IsZero()
}

func (v *Vehicle) assignTicket(ticket Ticket) {
	v.ticket = ticket
}

// markReleased is not idempotent: a second call moves the exit time.
func (v *Vehicle) markReleased(at time.Time) {
	v.exitedAt = at
	v.status = TicketPaid
}

func (v *Vehicle) markLost() {
	v.status = TicketLost
}

func (v *Vehicle) details() VehicleDetails {
	d := VehicleDetails{
		Ticket:          v.ticket,
		Plate:           v.plate,
		VehicleCategory: v.category,
		SpotCategory:    v.spotCategory,
		ParkedAt:        v.parkedAt,
		TicketStatus:    v.status,
	}
	if exited, ok := v.ExitedAt(); ok {
		d.ExitedAt = &exited
	}
	return d
}
