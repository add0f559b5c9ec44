// Package push delivers data to push-mode consumers over a single-use
// HTTP channel.
package push

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 15 * time.Second

// Dispatcher posts payloads to consumer endpoints. Every call constructs
// a fresh delivery channel and tears it down afterwards, regardless of
// outcome: at most once, no retry, no queuing. Failures are logged here
// and never surface to the caller; a lost notification is recovered by
// the consumer's next poll.
type Dispatcher struct {
	timeout     time.Duration
	contentType string
	log         *slog.Logger
}

// NewDispatcher creates a Dispatcher posting payloads with the given
// content type.
func NewDispatcher(timeout time.Duration, contentType string, log *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if contentType == "" {
		contentType = "application/json"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{timeout: timeout, contentType: contentType, log: log}
}

// Dispatch synchronously posts payload to destinationAddress.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte, destinationAddress string) {
	deliveryID := uuid.NewString()
	log := d.log.With("delivery", deliveryID, "destination", destinationAddress)

	client := &http.Client{Timeout: d.timeout}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destinationAddress, bytes.NewReader(payload))
	if err != nil {
		log.Warn("push delivery failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", d.contentType)

	resp, err := client.Do(req)
	if err != nil {
		log.Warn("push delivery failed", "error", err)
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		log.Warn("push delivery rejected", "status", resp.StatusCode)
		return
	}
	log.Debug("push delivery sent", "bytes", len(payload))
}
