// Package scheduler owns the response-window countdowns: the time a
// restaurant gets to accept or reject a paid order before auto-rejection.
package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"swaad_backend/pkg/utils"
)

// ExpireFunc handles a fired response window. It must itself re-check that the
// order is still pending; timer cancellation is best-effort only.
type ExpireFunc func(orderID int64)

// ResponseWindow schedules at most one live timer per order id. Scheduling
// again for the same order first cancels the prior timer.
type ResponseWindow struct {
	mu     sync.Mutex
	timers map[int64]*time.Timer
	window time.Duration
	log    zerolog.Logger
}

// NewResponseWindow creates a scheduler with the given window duration.
func NewResponseWindow(window time.Duration) *ResponseWindow {
	return &ResponseWindow{
		timers: make(map[int64]*time.Timer),
		window: window,
		log:    utils.ComponentLogger("scheduler"),
	}
}

// Window returns the configured response window duration.
func (s *ResponseWindow) Window() time.Duration {
	return s.window
}

// Schedule starts the response window for an order, replacing any prior timer.
func (s *ResponseWindow) Schedule(orderID int64, onExpire ExpireFunc) {
	s.ScheduleAfter(orderID, s.window, onExpire)
}

// ScheduleAfter starts a timer with an explicit delay; the deadline sweep uses
// it to fire recovered windows immediately.
func (s *ResponseWindow) ScheduleAfter(orderID int64, delay time.Duration, onExpire ExpireFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.timers[orderID]; ok {
		prior.Stop()
		s.log.Warn().Int64("order_id", orderID).Msg("Replacing existing response-window timer")
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// Claim the entry only if it is still this timer's own. A callback
		// that lost a Stop race against Cancel or a reschedule must not
		// consume the replacement timer's entry and fire its window early.
		live := s.timers[orderID] == t
		if live {
			delete(s.timers, orderID)
		}
		s.mu.Unlock()
		if !live {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Int64("order_id", orderID).Interface("panic", r).Msg("Response-window callback panicked")
			}
		}()
		onExpire(orderID)
	})
	s.timers[orderID] = t
}

// Cancel stops the order's timer if one is live. Best-effort: it cannot undo
// a callback that already started.
func (s *ResponseWindow) Cancel(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.timers[orderID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.timers, orderID)
	return true
}

// Active reports whether the order currently has a live timer.
func (s *ResponseWindow) Active(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[orderID]
	return ok
}
