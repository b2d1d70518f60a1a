package usecases

import (
	"context"
	"time"

	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
)

// ReindexOnChange rebuilds the index after the event table is created or modified.
// Bursts within debounce collapse into one run. Failures are logged and the previous
// index contents stay in place. Returns when ctx is done or events is closed.
func (uc *IngestUseCase) ReindexOnChange(
	ctx context.Context,
	table ports.EventStore,
	events <-chan ports.FileEvent,
	debounce time.Duration,
) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case ev, ok := <-events:
			if !ok {
				timer.Stop()
				return
			}
			if ev.Operation == ports.FileDeleted {
				uc.logger.Warn("event_table_removed", "path", ev.Path)
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			n, err := uc.Reindex(ctx, table)
			if err != nil {
				uc.logger.Error("reindex_failed", "err", err)
				continue
			}
			uc.logger.Info("reindex_on_change", "events", n)
		}
	}
}
