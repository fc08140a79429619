// Package proto defines the JSON bodies exchanged over HTTP.
package proto

// StatusOK is the body of every accepted webhook delivery.
type StatusOK struct {
	Status string `json:"status"`
}

// FieldError names one invalid envelope field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error is the body of every failed request.
type Error struct {
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Message is a stored message as returned by GET /messages.
type Message struct {
	MessageID  string  `json:"message_id"`
	FromMSISDN string  `json:"from_msisdn"`
	ToMSISDN   string  `json:"to_msisdn"`
	TS         string  `json:"ts"`
	Text       *string `json:"text"`
	CreatedAt  string  `json:"created_at"`
}

// MessageList is one page of messages.
type MessageList struct {
	Data   []Message `json:"data"`
	Total  int64     `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// SenderCount is one entry of Stats.MessagesPerSender.
type SenderCount struct {
	FromMSISDN string `json:"from_msisdn"`
	Count      int64  `json:"count"`
}

// Stats is the body of GET /stats.
type Stats struct {
	TotalMessages       int64         `json:"total_messages"`
	SendersCount        int64         `json:"senders_count"`
	MessagesPerSender   []SenderCount `json:"messages_per_sender"`
	FirstMessageTS      *string       `json:"first_message_ts"`
	LastMessageTS       *string       `json:"last_message_ts"`
	RecipientsCount     int64         `json:"recipients_count"`
	MessagesWithText    int64         `json:"messages_with_text"`
	MessagesWithoutText int64         `json:"messages_without_text"`
}

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
