package collector

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context cancelled on SIGTERM or SIGINT.
// shutdownFunc, if set, runs before the cancel. A second signal exits at once.
func SetupSignalHandler(parent context.Context, log *slog.Logger, shutdownFunc func(context.Context)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		var sig os.Signal
		select {
		case sig = <-sigCh:
		case <-ctx.Done():
			signal.Stop(sigCh)
			return
		}
		log.Info("Received signal, shutting down", slog.String("signal", sig.String()))

		if shutdownFunc != nil {
			shutdownFunc(ctx)
		}
		cancel()

		sig = <-sigCh
		log.Warn("Received second signal, forcing exit", slog.String("signal", sig.String()))
		os.Exit(1)
	}()

	return ctx, cancel
}
