package subscription

import "time"

// Mode distinguishes push-style subscriptions, which hold a time-bounded
// lease upstream, from repeated request/response polling.
type Mode string

const (
	Subscribe       Mode = "SUBSCRIBE"
	RequestResponse Mode = "REQUEST_RESPONSE"
)

// DataType names the SIRI data category a subscription delivers.
type DataType string

const (
	SituationExchange   DataType = "SX"
	VehicleMonitoring   DataType = "VM"
	EstimatedTimetable  DataType = "ET"
	ProductionTimetable DataType = "PT"
)

// RequestType names the endpoints a subscription may expose.
type RequestType string

const (
	SubscribeRequest          RequestType = "Subscribe"
	DeleteSubscriptionRequest RequestType = "DeleteSubscription"
	CheckStatusRequest        RequestType = "CheckStatus"
	GetSituationExchange      RequestType = "GetSituationExchange"
	GetVehicleMonitoring      RequestType = "GetVehicleMonitoring"
	GetEstimatedTimetable     RequestType = "GetEstimatedTimetable"
	GetProductionTimetable    RequestType = "GetProductionTimetable"
)

// Setup is the configuration of one upstream subscription. It is stored
// as a whole and, apart from Active, never mutated in place; state
// changes re-store the full value.
type Setup struct {
	ID                string                 `json:"subscriptionId"`
	InternalID        int64                  `json:"internalId"`
	DatasetID         string                 `json:"datasetId"`
	Vendor            string                 `json:"vendor,omitempty"`
	DataType          DataType               `json:"dataType"`
	Mode              Mode                   `json:"subscriptionMode"`
	URLs              map[RequestType]string `json:"urlMap"`
	HeartbeatInterval time.Duration          `json:"heartbeatInterval"`
	Duration          time.Duration          `json:"subscriptionDuration"`
	Active            bool                   `json:"active"`
}
