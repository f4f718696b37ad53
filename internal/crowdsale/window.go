package crowdsale

import "fmt"

// SaleWindow is the purchase admission gate: a closed time interval plus a
// halt switch only the administrator may flip. It is not safe for concurrent
// use on its own; Sale serializes access to it.
type SaleWindow struct {
	startTime     uint64
	endTime       uint64
	administrator string
	state         SaleState
}

// NewSaleWindow creates a window open on [startTime, endTime].
func NewSaleWindow(startTime, endTime uint64, administrator string) (*SaleWindow, error) {
	if startTime >= endTime {
		return nil, fmt.Errorf("%w: start time %d must be before end time %d", ErrInvalidConfig, startTime, endTime)
	}
	if administrator == "" {
		return nil, fmt.Errorf("%w: administrator is required", ErrInvalidConfig)
	}

	return &SaleWindow{
		startTime:     startTime,
		endTime:       endTime,
		administrator: administrator,
	}, nil
}

// IsOpen reports whether a purchase at now is admissible.
func (w *SaleWindow) IsOpen(now uint64) bool {
	return w.Admit(now) == nil
}

// Admit returns nil if a purchase at now is admissible, or an error wrapping
// ErrSaleNotOpen that says why it is not.
func (w *SaleWindow) Admit(now uint64) error {
	switch {
	case w.state.Halted:
		return fmt.Errorf("%w: crowdsale has been halted", ErrSaleNotOpen)
	case now < w.startTime:
		return fmt.Errorf("%w: crowdsale has not started", ErrSaleNotOpen)
	case now > w.endTime:
		return fmt.Errorf("%w: crowdsale has ended", ErrSaleNotOpen)
	}
	return nil
}

// ToggleHalt flips the halt switch and returns its new value.
func (w *SaleWindow) ToggleHalt(caller string) (bool, error) {
	if caller != w.administrator {
		return w.state.Halted, ErrUnauthorized
	}
	w.state.Halted = !w.state.Halted
	return w.state.Halted, nil
}

// Halted reports the halt switch.
func (w *SaleWindow) Halted() bool { return w.state.Halted }

// Administrator returns the identity allowed to toggle the halt switch.
func (w *SaleWindow) Administrator() string { return w.administrator }

// StartTime returns the first second purchases are admitted.
func (w *SaleWindow) StartTime() uint64 { return w.startTime }

// EndTime returns the last second purchases are admitted.
func (w *SaleWindow) EndTime() uint64 { return w.endTime }
