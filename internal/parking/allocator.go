package parking

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"parking-allocator/internal/clock"
)

// Capacities is the number of spots reserved for each vehicle category.
// Compact vehicles may also use Large spots that Large vehicles leave free.
type Capacities struct {
	Compact    int
	Large      int
	TwoWheeler int
}

// DefaultCapacities is the layout of the reference facility.
var DefaultCapacities = Capacities{Compact: 7, Large: 3, TwoWheeler: 10}

func (c Capacities) of(category VehicleCategory) int {
	switch category {
	case VehicleCompact:
		return c.Compact
	case VehicleLarge:
		return c.Large
	case VehicleTwoWheeler:
		return c.TwoWheeler
	default:
		return 0
	}
}

func (c Capacities) validate() error {
	if c.Compact < 0 || c.Large < 0 || c.TwoWheeler < 0 {
		return fmt.Errorf("capacities must not be negative: %+v", c)
	}
	return nil
}

// ReleaseAccounting selects which occupancy counter a release decrements.
type ReleaseAccounting int

const (
	// ReleaseCharged decrements the counter the vehicle was charged to on
	// admission, so a Compact vehicle that spilled into a Large spot frees
	// that Large spot.
	ReleaseCharged ReleaseAccounting = iota
	// ReleaseNominal decrements the counter of the vehicle's own category.
	// Spilled Compact vehicles then leave the Large counter overstated and
	// the Compact counter understated.
	ReleaseNominal
)

func (r ReleaseAccounting) String() string {
	if r == ReleaseNominal {
		return "nominal"
	}
	return "charged"
}

func ParseReleaseAccounting(s string) (ReleaseAccounting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "charged":
		return ReleaseCharged, nil
	case "nominal":
		return ReleaseNominal, nil
	default:
		return ReleaseCharged, fmt.Errorf("unknown release accounting %q", s)
	}
}

// VehicleDetails is a point-in-time copy of an admitted vehicle.
type VehicleDetails struct {
	Ticket          Ticket          `json:"ticket"`
	Plate           string          `json:"plate"`
	VehicleCategory VehicleCategory `json:"vehicle_category"`
	SpotCategory    SpotCategory    `json:"spot_category"`
	ParkedAt        time.Time       `json:"parked_at"`
	ExitedAt        *time.Time      `json:"exited_at,omitempty"`
	TicketStatus    TicketStatus    `json:"ticket_status"`
}

const parkedAtLayout = "02-01-2006, 15:04:05"

// FormattedParkedAt renders the parking time as DD-MM-YYYY, HH:MM:SS in UTC.
func (d VehicleDetails) FormattedParkedAt() string {
	return d.ParkedAt.UTC().Format(parkedAtLayout)
}

// CategoryAvailability is the free space left for one vehicle category.
type CategoryAvailability struct {
	Category  VehicleCategory `json:"category"`
	Capacity  int             `json:"capacity"`
	Occupied  int             `json:"occupied"`
	Remaining int             `json:"remaining"`
	Full      bool            `json:"full"`
}

type Availability []CategoryAvailability

func (a Availability) String() string {
	var b strings.Builder
	for _, c := range a {
		if c.Full {
			fmt.Fprintf(&b, "%s parking is full\n", c.Category)
			continue
		}
		fmt.Fprintf(&b, "Free %s: %d\n", c.Category, c.Remaining)
	}
	return b.String()
}

// For returns the entry of one category.
func (a Availability) For(category VehicleCategory) (CategoryAvailability, bool) {
	for _, c := range a {
		if c.Category == category {
			return c, true
		}
	}
	return CategoryAvailability{}, false
}

type Option func(*Allocator)

func WithReleaseAccounting(accounting ReleaseAccounting) Option {
	return func(a *Allocator) {
		a.accounting = accounting
	}
}

// WithClock replaces the clock used for exit times and the ticket seed.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		a.now = now
	}
}

// Allocator hands out spots by vehicle category and keeps the ticket books.
// Every exported method is a single critical section over counters and maps.
type Allocator struct {
	mu sync.Mutex

	capacity   Capacities
	occupied   map[VehicleCategory]int
	accounting ReleaseAccounting
	now        func() time.Time
	tickets    *ticketSequence

	// active holds tickets currently occupying a spot; history keeps every
	// admission and is never pruned.
	active  map[Ticket]*Vehicle
	history map[Ticket]*Vehicle
}

func NewAllocator(capacity Capacities, opts ...Option) (*Allocator, error) {
	if err := capacity.validate(); err != nil {
		return nil, err
	}

	a := &Allocator{
		capacity: capacity,
		occupied: make(map[VehicleCategory]int, len(VehicleCategories)),
		now:      clock.Now,
		active:   make(map[Ticket]*Vehicle),
		history:  make(map[Ticket]*Vehicle),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.tickets = newTicketSequence(a.now())

	return a, nil
}

func (a *Allocator) Capacities() Capacities {
	return a.capacity
}

func (a *Allocator) ReleaseAccounting() ReleaseAccounting {
	return a.accounting
}

// Admit parks the vehicle and returns its ticket, or ErrLotFull when the
// vehicle's category has no room left. A rejected admission changes nothing.
func (a *Allocator) Admit(v *Vehicle) (Ticket, error) {
	ticket, _, err := a.admit(v)
	return ticket, err
}

// admit also reports the counter the vehicle was charged to.
func (a *Allocator) admit(v *Vehicle) (Ticket, VehicleCategory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if v.ticket != NoTicket {
		return NoTicket, 0, fmt.Errorf("%w: %s holds ticket %s", ErrAlreadyTicketed, v.plate, v.ticket)
	}
	if !v.category.Valid() {
		return NoTicket, 0, fmt.Errorf("%w: %d", ErrInvalidCategory, int(v.category))
	}
	if a.isFull(v.category) {
		return NoTicket, 0, fmt.Errorf("%w: no %s spot available", ErrLotFull, v.category)
	}

	ticket := a.tickets.next()
	v.assignTicket(ticket)
	v.charged = a.charge(v.category)
	a.occupied[v.charged]++
	a.active[ticket] = v
	a.history[ticket] = v

	return ticket, v.charged, nil
}

func (a *Allocator) isFull(category VehicleCategory) bool {
	switch category {
	case VehicleLarge:
		return a.occupied[VehicleLarge] >= a.capacity.Large
	case VehicleTwoWheeler:
		return a.occupied[VehicleTwoWheeler] >= a.capacity.TwoWheeler
	case VehicleCompact:
		return a.occupied[VehicleCompact]+a.occupied[VehicleLarge] >= a.capacity.Compact+a.capacity.Large
	default:
		return true
	}
}

// charge picks the counter an admission increments. Compact vehicles fill
// Compact spots first and spill into Large ones.
func (a *Allocator) charge(category VehicleCategory) VehicleCategory {
	if category == VehicleCompact && a.occupied[VehicleCompact] >= a.capacity.Compact {
		return VehicleLarge
	}
	return category
}

// Release frees the spot held by ticket and returns the vehicle's plate.
// The ticket stays resolvable through Status.
func (a *Allocator) Release(ticket Ticket) (string, error) {
	v, _, err := a.release(ticket)
	if err != nil {
		return "", err
	}
	return v.Plate, nil
}

// release also reports the counter that was decremented.
func (a *Allocator) release(ticket Ticket) (VehicleDetails, VehicleCategory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	v, ok := a.active[ticket]
	if !ok {
		return VehicleDetails{}, 0, fmt.Errorf("%w: %s", ErrUnknownTicket, ticket)
	}

	counter := v.charged
	if a.accounting == ReleaseNominal {
		counter = v.category
	}
	a.occupied[counter]--
	v.markReleased(a.now())
	delete(a.active, ticket)

	return v.details(), counter, nil
}

// Status reports a ticket's vehicle, including tickets already released.
func (a *Allocator) Status(ticket Ticket) (VehicleDetails, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	v, ok := a.history[ticket]
	if !ok {
		return VehicleDetails{}, fmt.Errorf("%w: %s", ErrUnknownTicket, ticket)
	}
	return v.details(), nil
}

// MarkLost flags an active ticket as lost. The spot stays occupied and the
// ticket stays active until it is released.
func (a *Allocator) MarkLost(ticket Ticket) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	v, ok := a.active[ticket]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTicket, ticket)
	}
	v.markLost()
	return nil
}

// Availability reports capacity minus occupancy per category. It does not
// apply the Compact spillover rule.
func (a *Allocator) Availability() Availability {
	a.mu.Lock()
	defer a.mu.Unlock()

	report := make(Availability, 0, len(VehicleCategories))
	for _, category := range VehicleCategories {
		capacity := a.capacity.of(category)
		occupied := a.occupied[category]
		remaining := capacity - occupied
		report = append(report, CategoryAvailability{
			Category:  category,
			Capacity:  capacity,
			Occupied:  occupied,
			Remaining: max(remaining, 0),
			Full:      remaining <= 0,
		})
	}
	return report
}

// Occupancy returns a copy of the occupancy counters. Under nominal release
// accounting a counter may be negative.
func (a *Allocator) Occupancy() map[VehicleCategory]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := make(map[VehicleCategory]int, len(VehicleCategories))
	for _, category := range VehicleCategories {
		snapshot[category] = a.occupied[category]
	}
	return snapshot
}

// ActiveTickets returns the number of vehicles currently parked.
func (a *Allocator) ActiveTickets() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.active)
}
