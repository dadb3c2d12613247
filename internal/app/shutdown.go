package app

import (
	"context"
	"errors"

	"uptime/pkg/logger"
)

// Shutdown stops every listener, waiting for in-flight requests until ctx
// expires, then releases the rate limiter.
func (a *App) Shutdown(ctx context.Context) error {
	a.setState("shutting_down")
	logger.Info("shutdown: requested")

	a.mu.Lock()
	ls := a.listeners
	a.mu.Unlock()

	var errs []error
	for _, l := range ls {
		logger.Info("shutdown: stopping listener", "listener", l.name)
		if err := l.shutdown(ctx); err != nil {
			logger.Error("shutdown: listener error", "listener", l.name, "error", err)
			errs = append(errs, err)
		}
		// a server that never reached Serve leaves its socket open
		_ = l.ln.Close()
	}

	if a.limiter != nil {
		a.limiter.Shutdown()
	}

	err := errors.Join(errs...)
	if err == nil {
		a.setState("stopped")
		logger.Info("shutdown: complete")
	}
	return err
}
