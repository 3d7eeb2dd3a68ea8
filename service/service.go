// Package service runs a plain net/http service until it stops or its context
// is cancelled.
package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-referral/log"
)

const shutdownTimeout = 10 * time.Second

// Start registers the handlers on a fresh mux and serves it on host:port in the
// background. The returned context is done once the server has stopped, either
// because ListenAndServe failed or because ctx was cancelled.
func Start(ctx context.Context, name, host, port string, logger *log.Logger, registerHandlers func(*http.ServeMux)) context.Context {
	mux := http.NewServeMux()
	registerHandlers(mux)

	srv := &http.Server{Addr: host + ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	done, cancel := context.WithCancel(context.Background())

	go func() {
		defer cancel()
		logger.WithField("addr", srv.Addr).Infof("starting %s", name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Errorf("%s stopped", name)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
		case <-done.Done():
			return
		}
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.WithError(err).Warnf("shutdown %s", name)
		}
	}()

	return done
}
