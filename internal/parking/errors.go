package parking

import "errors"

var (
	ErrLotFull         = errors.New("parking lot is full")
	ErrUnknownTicket   = errors.New("unknown ticket")
	ErrInvalidCategory = errors.New("invalid vehicle category")
	ErrAlreadyTicketed = errors.New("vehicle already holds a ticket")
)
