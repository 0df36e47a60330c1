package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ListenAndServe serves /metrics on host until ctx is cancelled.
func ListenAndServe(ctx context.Context, host string, logger zerolog.Logger) error {
	ln, err := net.Listen("tcp", host)
	if err != nil {
		logger.Err(err).Str("host", host).Msg("could not listen for metrics")
		return err
	}
	return Serve(ctx, ln, logger)
}

// Serve is ListenAndServe on an existing listener. The listener is closed on return.
func Serve(ctx context.Context, ln net.Listener, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("host", ln.Addr().String()).Msg("serving metrics")
		errChan <- srv.Serve(ln)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Err(err).Msg("metrics server stopped")
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
