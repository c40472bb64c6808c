package services

import (
	"context"
	"log/slog"
	"time"
)

// StartHandoffSweeper starts a background goroutine that reverts handed-off
// conversations to bot mode after the handoff timeout. The tracker also checks
// lazily on read; the sweeper covers conversations that go quiet.
func StartHandoffSweeper(ctx context.Context, tracker *Tracker, timeout, interval time.Duration) {
	if timeout <= 0 {
		slog.Info("Handoff sweeper disabled")
		return
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Handoff sweeper stopped")
				return
			case <-ticker.C:
				sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
				sweepHandoffs(sweepCtx, tracker, timeout)
				cancel()
			}
		}
	}()

	slog.Info("Handoff sweeper started", "timeout", timeout.String(), "interval", interval.String())
}

func sweepHandoffs(ctx context.Context, tracker *Tracker, timeout time.Duration) {
	stale, err := tracker.store.ListStale(ctx, time.Now().Add(-timeout))
	if err != nil {
		slog.Error("Failed to list stale handoffs", "error", err)
		return
	}

	for _, conv := range stale {
		if _, err := tracker.Transition(ctx, conv.WaID, TriggerTimeout, TransitionPayload{Reason: "handoff timeout"}); err != nil {
			slog.Error("Failed to revert stale handoff", "error", err, "waID", conv.WaID)
			continue
		}
		slog.Info("Stale handoff reverted to bot", "waID", conv.WaID)
	}
}
