package domain

// Message is the transport-agnostic payload handed to a notification
// transport. Attachment is a filesystem path reference; transports that
// cannot attach files may reference it in the body instead.
type Message struct {
	Recipient  string `json:"recipient"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Attachment string `json:"attachment,omitempty"`
}

// NotificationOutcome records what the dispatcher did for one run.
// Attempted stays false in dry-run mode even when the gate would have
// fired; WouldSend preserves that decision for inspection.
type NotificationOutcome struct {
	Attempted bool   `json:"attempted"`
	Delivered bool   `json:"delivered"`
	Attempts  int    `json:"attempts"`
	WouldSend bool   `json:"would_send"`
	Fallback  bool   `json:"fallback_used"`
	LastError string `json:"last_error,omitempty"`
}
