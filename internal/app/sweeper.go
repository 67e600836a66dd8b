package app

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

type sweepable interface {
	Sweep() int
}

// Sweeper periodically evicts idle per-visitor payment flows.
type Sweeper struct {
	target   sweepable
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

func NewSweeper(target sweepable, interval time.Duration) *Sweeper {
	return &Sweeper{target: target, interval: interval, stop: make(chan struct{})}
}

func (s *Sweeper) Start() {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				if n := s.target.Sweep(); n > 0 {
					zlog.Debug().Int("removed", n).Msg("Swept idle payment flows")
				}
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.stop) })
}
