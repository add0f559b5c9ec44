package sirihub

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
)

// Router builds the hub's HTTP surface.
func (a *App) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)

	r.HandleFunc("/hub/rest/sx", a.handleSituations).Methods(http.MethodGet)
	r.HandleFunc("/hub/rest/vm", a.handleVehicleActivities).Methods(http.MethodGet)
	r.HandleFunc("/hub/rest/et", a.handleEstimatedTimetables).Methods(http.MethodGet)
	r.HandleFunc("/hub/rest/pt", a.handleProductionTimetables).Methods(http.MethodGet)

	r.HandleFunc("/hub/subscribe/{subscriptionId}", a.handleIngest).Methods(http.MethodPost)
	r.HandleFunc("/hub/subscribe/{subscriptionId}/heartbeat", a.handleHeartbeat).Methods(http.MethodPost)

	r.HandleFunc("/hub/subscriptions/{subscriptionId}/start", a.handleStartSubscription).Methods(http.MethodPost)
	r.HandleFunc("/hub/subscriptions/{subscriptionId}/stop", a.handleStopSubscription).Methods(http.MethodPost)
	r.HandleFunc("/hub/subscriptions/{subscriptionId}", a.handleRemoveSubscription).Methods(http.MethodDelete)
	return r
}

// StartServer starts the HTTP server in the background.
func (a *App) StartServer() {
	addr := fmt.Sprintf(":%d", a.Config.Server.Port)
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()
	a.log.Info("server listening", "addr", addr)
}

// HandleGracefulShutdown blocks until an interrupt arrives, then drains
// the server and releases the hub's resources.
func (a *App) HandleGracefulShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	a.log.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.log.Warn("server shutdown error", "error", err)
		} else {
			a.log.Info("server shut down")
		}
	}
	a.Close()
}
