package workers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"crosschainctl/workers/handlers"
)

func NewRouter(h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Options("/*", CORSHeaders)

	r.Get("/health", h.HealthCheck)
	r.Get("/gateway/{network}", h.Gateway)
	r.Get("/verify", h.Verify)
	r.Get("/verify/last", h.LastReport)
	r.Get("/submissions/{status}", h.GetSubmissions)
	r.Get("/balance/{holder}", h.Balance)

	return r
}

// Worker_HTTP serves handler on addr until ctx is done, then shuts down
// gracefully.
func Worker_HTTP(ctx context.Context, addr string, handler http.Handler, logger log.Logger) error {
	logger.Info("Starting HTTP service", "addr", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	logger.Info("HTTP service started")

	select {
	case err := <-errc:
		if err != nil {
			logger.Error("HTTP service failed", "err", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("HTTP service stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP service shutdown error", "err", err)
		return err
	}
	logger.Info("HTTP service shutdown normal")
	return nil
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Origin, X-Requested-With")
}
