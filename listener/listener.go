package listener

import (
	"context"
	"sync"
	"time"

	"chainpe.com/payment-gateway/config"
	"chainpe.com/payment-gateway/log"
	"chainpe.com/payment-gateway/models"
	"chainpe.com/payment-gateway/store"
)

// EventHandler consumes settlement events in ledger order. The bool
// result reports whether the event settled a session.
type EventHandler interface {
	Reconcile(ctx context.Context, event *models.SettlementEvent) (bool, error)
}

// Supervisor runs one polling loop per watched address and keeps the
// set of loops in step with the merchant registry. Each loop owns its
// feed and cursor; the loops map is touched only from Run's goroutine.
type Supervisor struct {
	source OperationSource
	watch  *WatchSet
	cfg    *config.LedgerConfig
	events EventHandler
	loops  map[string]context.CancelFunc
	wg     sync.WaitGroup
}

func NewSupervisor(source OperationSource, st store.SessionStore, cfg *config.LedgerConfig, events EventHandler) *Supervisor {
	return &Supervisor{
		source: source,
		watch:  NewWatchSet(st),
		cfg:    cfg,
		events: events,
		loops:  map[string]context.CancelFunc{},
	}
}

// Run blocks until the context is cancelled, then waits for every
// address loop to finish its current event and exit.
func (s *Supervisor) Run(ctx context.Context) {
	log.Infof("Settlement listener started, refresh period %v", s.cfg.AddressRefreshPeriod)

	s.refresh(ctx)

	ticker := time.NewTicker(s.cfg.AddressRefreshPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping settlement listener")
			for _, cancel := range s.loops {
				cancel()
			}
			s.wg.Wait()
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Supervisor) refresh(ctx context.Context) {
	current, err := s.watch.CurrentAddresses()
	if err != nil {
		log.Errorf("Address refresh failed: %v", err)
		return
	}

	for address := range current {
		if _, running := s.loops[address]; running {
			continue
		}
		loopCtx, cancel := context.WithCancel(ctx)
		s.loops[address] = cancel
		s.wg.Add(1)
		go s.watchAddress(loopCtx, address)
	}

	for address, cancel := range s.loops {
		if _, keep := current[address]; !keep {
			log.Infof("Address %s no longer registered, stopping its loop", address)
			cancel()
			delete(s.loops, address)
		}
	}
}

// watchAddress is the per-address loop: poll, hand events to the
// reconciler in cursor order, sleep, repeat. Horizon errors are retried
// after a constant backoff and never end the loop.
func (s *Supervisor) watchAddress(ctx context.Context, address string) {
	defer s.wg.Done()

	feed := NewFeed(s.source, address, s.cfg)
	log.Infof("Watching address %s", address)

	for {
		events, err := feed.FetchNext()
		if err != nil {
			log.Errorf("Horizon poll failed for %s: %v", address, err)
			if !sleepCtx(ctx, s.cfg.ErrorBackoff) {
				return
			}
			continue
		}

		for _, event := range events {
			if ctx.Err() != nil {
				// Dropped mid-batch events are reprocessed on the next
				// start; the reconciler treats replays as no-ops.
				return
			}
			if _, err := s.events.Reconcile(ctx, event); err != nil {
				log.Errorf("Reconcile failed for tx %s: %v", event.TxHash, err)
			}
		}

		if !sleepCtx(ctx, s.cfg.PollInterval) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
