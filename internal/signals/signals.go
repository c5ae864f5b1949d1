package signals

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SetupSignalHandler returns a context that is cancelled on SIGTERM or
// SIGINT, after calling shutdownFunc if it is not nil. A second signal
// forces exit. The returned stop function releases the handler.
func SetupSignalHandler(parent context.Context, log *slog.Logger, shutdownFunc func(context.Context)) (context.Context, func()) {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
			cancel()
		})
	}

	go func() {
		select {
		case sig := <-sigCh:
			log.Warn("received signal, shutting down", "signal", sig.String())
		case <-done:
			return
		}

		if shutdownFunc != nil {
			shutdownFunc(ctx)
		}
		cancel()

		select {
		case sig := <-sigCh:
			log.Error("received second signal, forcing exit", "signal", sig.String())
			os.Exit(1)
		case <-done:
		}
	}()

	return ctx, stop
}
