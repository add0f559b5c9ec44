package subscription

import (
	"context"
	"math/big"
	"sort"
	"time"
)

const statsTimeLayout = "2006-01-02 15:04:05"

// Stats is the diagnostic summary served on the operations surface.
type Stats struct {
	Environment   string         `json:"environment"`
	ServerStarted string         `json:"serverStarted"`
	Subscriptions []EntryStats   `json:"subscriptions"`
	Elements      map[string]int `json:"elements"`
}

// EntryStats describes one subscription: its configuration, runtime
// timestamps formatted as local time, derived status and health, and its
// counters.
type EntryStats struct {
	Setup
	Activated    string            `json:"activated"`
	LastActivity string            `json:"lastActivity"`
	Status       string            `json:"status"`
	Healthy      *bool             `json:"healthy"`
	HitCount     int64             `json:"hitcount"`
	ByteCount    *big.Int          `json:"bytecount"`
	URLList      map[string]string `json:"urllist"`
}

// BuildStats assembles the diagnostic summary: one entry per registered
// subscription plus aggregate element counts per data category and
// environment metadata.
func (r *Registry) BuildStats(ctx context.Context, environment string, serverStarted time.Time, elements map[string]int) Stats {
	ids := r.maps.Setups.Keys(ctx)
	sort.Strings(ids)

	entries := make([]EntryStats, 0, len(ids))
	for _, id := range ids {
		setup, ok := r.maps.Setups.Get(ctx, id)
		if !ok {
			continue
		}
		entry := EntryStats{
			Setup:     setup,
			HitCount:  r.hitCount(ctx, id),
			ByteCount: r.byteCount(ctx, id),
			URLList:   urlList(setup),
		}
		if activated, ok := r.maps.ActivatedAt.Get(ctx, id); ok {
			entry.Activated = activated.Local().Format(statsTimeLayout)
		}
		if last, ok := r.maps.LastActivity.Get(ctx, id); ok {
			entry.LastActivity = last.Local().Format(statsTimeLayout)
		}
		if setup.Active {
			entry.Status = "active"
			healthy := r.IsHealthy(ctx, id)
			entry.Healthy = &healthy
		} else {
			entry.Status = "deactivated"
		}
		entries = append(entries, entry)
	}

	return Stats{
		Environment:   environment,
		ServerStarted: serverStarted.Local().Format(statsTimeLayout),
		Subscriptions: entries,
		Elements:      elements,
	}
}

func (r *Registry) hitCount(ctx context.Context, subscriptionID string) int64 {
	hits, _ := r.maps.HitCount.Get(ctx, subscriptionID)
	return hits
}

func (r *Registry) byteCount(ctx context.Context, subscriptionID string) *big.Int {
	if bytes, ok := r.maps.ByteCount.Get(ctx, subscriptionID); ok && bytes != nil {
		return bytes
	}
	return big.NewInt(0)
}

func urlList(setup Setup) map[string]string {
	urls := make(map[string]string, len(setup.URLs))
	for requestType, url := range setup.URLs {
		urls[string(requestType)] = url
	}
	return urls
}
