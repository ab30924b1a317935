package event

// Message types emitted by CloudWatch Logs subscription filters.
const (
	MessageTypeData    = "DATA_MESSAGE"
	MessageTypeControl = "CONTROL_MESSAGE"
)

// LogEnvelope is the decoded outer structure of one subscription record.
type LogEnvelope struct {
	MessageType         string     `json:"messageType"`
	Owner               string     `json:"owner"`
	LogGroup            string     `json:"logGroup"`
	LogStream           string     `json:"logStream"`
	SubscriptionFilters []string   `json:"subscriptionFilters"`
	LogEvents           []LogEvent `json:"logEvents"`
}

// LogEvent is a single log line inside an envelope.
type LogEvent struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"` // epoch millis
	Message   string `json:"message"`
}

// IsData reports whether the envelope carries log events.
func (e *LogEnvelope) IsData() bool {
	return e.MessageType == MessageTypeData
}
