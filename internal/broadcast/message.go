package broadcast

// Server -> client events.
const (
	EventSystemMetrics    = "system_metrics"
	EventProcessList      = "process_list"
	EventProcessDetails   = "process_details"
	EventProcessKilled    = "process_killed"
	EventProcessSuspended = "process_suspended"
	EventProcessResumed   = "process_resumed"
	EventAutoRefresh      = "auto_refresh"
	EventError            = "error"
)

// Message is the envelope carried on every viewer channel, in both
// directions.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ErrorPayload is the data of a failed request: only the reason.
type ErrorPayload struct {
	Error string `json:"error"`
}
