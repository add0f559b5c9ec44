package config

// ServerConfig contains server configuration
type ServerConfig struct {
	Port        int    `yaml:"port" validate:"gt=0"`
	Environment string `yaml:"environment"`
}

// StoreConfig contains the housekeeping windows of the data stores
type StoreConfig struct {
	TrackingPeriodMinutes  int `yaml:"trackingPeriodMinutes" validate:"gte=0"`
	CleanupIntervalSeconds int `yaml:"cleanupIntervalSeconds" validate:"gte=0"`
	SweepIntervalSeconds   int `yaml:"sweepIntervalSeconds" validate:"gte=0"`
	ETGraceSeconds         int `yaml:"etGraceSeconds" validate:"gte=0"`
}

// NATSConfig selects the shared key-value backend. An empty URL keeps all
// state in process-local maps.
type NATSConfig struct {
	URL          string `yaml:"url" validate:"omitempty,uri"`
	BucketPrefix string `yaml:"bucketPrefix"`
}

// SubscriptionConfig declares one upstream feed subscription
type SubscriptionConfig struct {
	ID               string            `yaml:"id" validate:"required"`
	InternalID       int64             `yaml:"internalId"`
	DatasetID        string            `yaml:"datasetId" validate:"required"`
	Vendor           string            `yaml:"vendor"`
	DataType         string            `yaml:"dataType" validate:"oneof=SX VM ET PT"`
	Mode             string            `yaml:"mode" validate:"oneof=SUBSCRIBE REQUEST_RESPONSE"`
	HeartbeatSeconds int               `yaml:"heartbeatSeconds" validate:"gt=0"`
	DurationSeconds  int               `yaml:"durationSeconds" validate:"gte=0"`
	URLs             map[string]string `yaml:"urls"`
}

// PushConsumerConfig declares one push-mode consumer
type PushConsumerConfig struct {
	ConsumerID string `yaml:"consumerId" validate:"required"`
	DataType   string `yaml:"dataType" validate:"oneof=SX VM ET PT"`
	Address    string `yaml:"address" validate:"required,url"`
}

// MonitorConfig contains the health evaluation schedule
type MonitorConfig struct {
	IntervalSeconds int `yaml:"intervalSeconds" validate:"gte=0"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server        ServerConfig         `yaml:"server" validate:"required"`
	Store         StoreConfig          `yaml:"store"`
	NATS          NATSConfig           `yaml:"nats"`
	Monitor       MonitorConfig        `yaml:"monitor"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
	PushConsumers []PushConsumerConfig `yaml:"pushConsumers"`
}
