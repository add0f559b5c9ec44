package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
  environment: prod
store:
  trackingPeriodMinutes: 15
nats:
  url: nats://localhost:4222
subscriptions:
  - id: rut-sx
    internalId: 1
    datasetId: RUT
    vendor: rutebanken
    dataType: SX
    mode: SUBSCRIBE
    heartbeatSeconds: 60
    durationSeconds: 86400
    urls:
      Subscribe: https://upstream.example/subscribe
pushConsumers:
  - consumerId: downstream-1
    dataType: SX
    address: https://downstream.example/push
`)

	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "prod", cfg.Server.Environment)
	assert.Equal(t, 15, cfg.Store.TrackingPeriodMinutes)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)

	require.Len(t, cfg.Subscriptions, 1)
	sub := cfg.Subscriptions[0]
	assert.Equal(t, "rut-sx", sub.ID)
	assert.Equal(t, "SUBSCRIBE", sub.Mode)
	assert.Equal(t, "https://upstream.example/subscribe", sub.URLs["Subscribe"])

	require.Len(t, cfg.PushConsumers, 1)
	assert.Equal(t, "downstream-1", cfg.PushConsumers[0].ConsumerID)
}

func TestLoadAppConfigDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  environment: dev\n")

	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 16181, cfg.Server.Port)
	assert.Equal(t, "dev", cfg.Server.Environment)
	assert.Equal(t, 10, cfg.Store.TrackingPeriodMinutes)
	assert.Equal(t, 60, cfg.Store.CleanupIntervalSeconds)
	assert.Equal(t, 30, cfg.Store.SweepIntervalSeconds)
	assert.Equal(t, 300, cfg.Store.ETGraceSeconds)
	assert.Equal(t, 30, cfg.Monitor.IntervalSeconds)
	assert.Equal(t, "siri-hub", cfg.NATS.BucketPrefix)
	assert.Empty(t, cfg.NATS.URL)
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	_, err := LoadAppConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadAppConfigRejectsBadSubscription(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
subscriptions:
  - id: broken
    dataType: XX
    mode: SUBSCRIBE
    heartbeatSeconds: 60
`)

	_, err := LoadAppConfig(path)
	assert.Error(t, err)
}

func TestLoadAppConfigRejectsBadPushConsumer(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
pushConsumers:
  - consumerId: downstream-1
    dataType: SX
    address: not-a-url
`)

	_, err := LoadAppConfig(path)
	assert.Error(t, err)
}

func TestLoadAppConfigRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not\n")

	_, err := LoadAppConfig(path)
	assert.Error(t, err)
}
