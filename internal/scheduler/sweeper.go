package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"swaad_backend/pkg/utils"
)

// OverdueLister finds pending orders whose persisted response deadline passed.
type OverdueLister interface {
	ListPendingPastDeadline(now time.Time) ([]int64, error)
}

// Sweeper periodically compares persisted response deadlines against the
// clock. In-process timers are lost on restart; the sweep restores the
// auto-reject guarantee for orders that were mid-window when the process died.
type Sweeper struct {
	lister   OverdueLister
	windows  *ResponseWindow
	interval time.Duration
	onExpire ExpireFunc
	stop     chan struct{}
	log      zerolog.Logger
}

// NewSweeper creates a sweeper over the given window scheduler.
func NewSweeper(lister OverdueLister, windows *ResponseWindow, interval time.Duration, onExpire ExpireFunc) *Sweeper {
	return &Sweeper{
		lister:   lister,
		windows:  windows,
		interval: interval,
		onExpire: onExpire,
		stop:     make(chan struct{}),
		log:      utils.ComponentLogger("sweeper"),
	}
}

// Start runs the sweep loop until Stop is called. An immediate first sweep
// covers the restart-recovery case.
func (s *Sweeper) Start() {
	go func() {
		s.sweep()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweep loop.
func (s *Sweeper) Stop() {
	close(s.stop)
}

func (s *Sweeper) sweep() {
	ids, err := s.lister.ListPendingPastDeadline(time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("Deadline sweep query failed")
		return
	}
	for _, id := range ids {
		// Orders with a live timer are already owned by it.
		if s.windows.Active(id) {
			continue
		}
		s.log.Info().Int64("order_id", id).Msg("Recovered expired response window")
		s.onExpire(id)
	}
}
