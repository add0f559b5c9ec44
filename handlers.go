package sirihub

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
	"github.com/theoremus-urban-solutions/siri-hub/subscription"
)

// maxDeliveryBytes caps the size of one inbound delivery.
const maxDeliveryBytes = 64 << 20

func datasetParam(r *http.Request) string {
	if v := r.URL.Query().Get("agencyId"); v != "" {
		return v
	}
	return r.URL.Query().Get("datasetId")
}

func consumerParam(r *http.Request) string {
	return r.URL.Query().Get("requestorId")
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	contentType := r.Header.Get("Content-Type")
	return strings.Contains(accept, "application/json") || strings.Contains(contentType, "application/json")
}

func (a *App) respond(w http.ResponseWriter, r *http.Request, res *siri.Response) {
	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			a.log.Warn("encoding response failed", "error", err)
		}
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	if err := xml.NewEncoder(w).Encode(res); err != nil {
		a.log.Warn("encoding response failed", "error", err)
	}
}

func (a *App) handleDelivery(w http.ResponseWriter, r *http.Request, dataType subscription.DataType) {
	sd, _ := a.deliveryFor(r.Context(), dataType, consumerParam(r), datasetParam(r))
	a.respond(w, r, &siri.Response{Siri: sd})
}

func (a *App) handleSituations(w http.ResponseWriter, r *http.Request) {
	a.handleDelivery(w, r, subscription.SituationExchange)
}

func (a *App) handleVehicleActivities(w http.ResponseWriter, r *http.Request) {
	a.handleDelivery(w, r, subscription.VehicleMonitoring)
}

func (a *App) handleEstimatedTimetables(w http.ResponseWriter, r *http.Request) {
	a.handleDelivery(w, r, subscription.EstimatedTimetable)
}

func (a *App) handleProductionTimetables(w http.ResponseWriter, r *http.Request) {
	a.handleDelivery(w, r, subscription.ProductionTimetable)
}

// handleIngest receives a delivery from an upstream feed. The subscription
// must be known and active for data to enter the stores; the heartbeat and
// byte counters are updated either way so the health evaluator sees the
// upstream is talking to us.
func (a *App) handleIngest(w http.ResponseWriter, r *http.Request) {
	subscriptionID := mux.Vars(r)["subscriptionId"]
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDeliveryBytes))
	if err != nil {
		http.Error(w, "reading body failed", http.StatusBadRequest)
		return
	}
	a.Registry.Touch(ctx, subscriptionID)
	a.Registry.AddBytes(ctx, subscriptionID, len(body))

	setup, found := a.Registry.Get(ctx, subscriptionID)
	if !found {
		http.Error(w, "unknown subscription", http.StatusNotFound)
		return
	}
	if !setup.Active {
		http.Error(w, "subscription not active", http.StatusForbidden)
		return
	}

	var delivery siri.Response
	if err := json.Unmarshal(body, &delivery); err != nil {
		http.Error(w, "malformed delivery", http.StatusBadRequest)
		return
	}

	changed := a.applyDelivery(ctx, setup, delivery.Siri)
	if changed > 0 {
		go a.pushChanges(context.WithoutCancel(ctx), setup.DataType)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"changed": changed})
}

// handleHeartbeat records upstream liveness. An optional serviceStartedTime
// parameter (RFC3339) triggers restart detection.
func (a *App) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	subscriptionID := mux.Vars(r)["subscriptionId"]
	ctx := r.Context()

	ok := false
	if raw := r.URL.Query().Get("serviceStartedTime"); raw != "" {
		startedAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "malformed serviceStartedTime", http.StatusBadRequest)
			return
		}
		ok = a.Registry.TouchWithServiceStart(ctx, subscriptionID, startedAt)
	} else {
		ok = a.Registry.Touch(ctx, subscriptionID)
	}
	if !ok {
		http.Error(w, "unknown subscription", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *App) handleStartSubscription(w http.ResponseWriter, r *http.Request) {
	subscriptionID := mux.Vars(r)["subscriptionId"]
	if !a.Registry.IsRegistered(r.Context(), subscriptionID) {
		http.Error(w, "unknown subscription", http.StatusNotFound)
		return
	}
	a.Registry.Start(r.Context(), subscriptionID)
	w.WriteHeader(http.StatusOK)
}

func (a *App) handleStopSubscription(w http.ResponseWriter, r *http.Request) {
	subscriptionID := mux.Vars(r)["subscriptionId"]
	if !a.Registry.IsRegistered(r.Context(), subscriptionID) {
		http.Error(w, "unknown subscription", http.StatusNotFound)
		return
	}
	a.Registry.Stop(r.Context(), subscriptionID)
	w.WriteHeader(http.StatusOK)
}

func (a *App) handleRemoveSubscription(w http.ResponseWriter, r *http.Request) {
	subscriptionID := mux.Vars(r)["subscriptionId"]
	force := r.URL.Query().Get("force") == "true"
	if !a.Registry.Remove(r.Context(), subscriptionID, force) {
		http.Error(w, "unknown subscription", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(a.StartedAt).Seconds()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := a.Registry.BuildStats(ctx, a.Config.Server.Environment, a.StartedAt, a.ElementCounts(ctx))
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		a.log.Warn("encoding stats failed", "error", err)
	}
}
