package parking

import (
	"strconv"
	"sync/atomic"
	"time"
)

// Ticket identifies one admission.
type Ticket uint64

// NoTicket is the zero Ticket, held by vehicles that were never admitted.
const NoTicket Ticket = 0

func (t Ticket) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

func ParseTicket(s string) (Ticket, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return NoTicket, err
	}
	return Ticket(n), nil
}

// ticketSequence hands out strictly increasing tickets. It starts from the
// clock in hundredths of a second so numbers keep the familiar shape, but
// uniqueness comes from the atomic increment alone.
type ticketSequence struct {
	last atomic.Uint64
}

func newTicketSequence(seed time.Time) *ticketSequence {
	s := &ticketSequence{}
	if centis := seed.UnixMilli() / 10; centis > 0 {
		s.last.Store(uint64(centis))
	}
	return s
}

func (s *ticketSequence) next() Ticket {
	return Ticket(s.last.Add(1))
}
