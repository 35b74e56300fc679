package state

import "main/internal/schema"

// Book tracks signed lot positions per instrument. Positive is long,
// negative is short, zero is flat. Only confirmed fills mutate it.
//
// Book is not safe for concurrent use; callers serialize access.
type Book struct {
	positions map[string]int64
}

// NewBook creates an empty position book.
func NewBook() *Book {
	return &Book{positions: make(map[string]int64)}
}

// ApplyFill updates the position for a filled order and returns the new
// signed lot count.
func (b *Book) ApplyFill(instrumentID string, side schema.OrderSide, volume int64) int64 {
	current := b.positions[instrumentID]
	next := current
	switch side {
	case schema.OrderSideBuy:
		next = current + volume
	case schema.OrderSideSell:
		next = current - volume
	}
	b.positions[instrumentID] = next
	return next
}

// Position returns the current signed lot count for an instrument.
func (b *Book) Position(instrumentID string) int64 {
	return b.positions[instrumentID]
}

// Count returns the number of tracked instruments.
func (b *Book) Count() int {
	return len(b.positions)
}
