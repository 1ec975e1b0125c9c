package mq

import "time"

// Routing keys on the events exchange.
const (
	RouteEmailReceived      = "email.received"
	RouteDraftEditRequested = "draft.edit.requested"
)

// EmailReceivedPayload 新邮件入库事件的 payload
type EmailReceivedPayload struct {
	EmailID       string    `json:"email_id"`
	AccountID     string    `json:"account_id"`
	SenderEmail   string    `json:"sender_email"`
	SenderName    string    `json:"sender_name"`
	Subject       string    `json:"subject"`
	PriorityScore int       `json:"priority_score"`
	ReceivedAt    time.Time `json:"received_at"`
}

// DraftEditRequestedPayload asks the worker to rewrite a draft with an
// AI instruction. The job row carries the authoritative state; the event
// only triggers processing.
type DraftEditRequestedPayload struct {
	JobID       string `json:"job_id"`
	DraftID     int    `json:"draft_id"`
	Instruction string `json:"instruction"`
	RequestedBy string `json:"requested_by"`
}

func (EmailReceivedPayload) RoutingKey() string      { return RouteEmailReceived }
func (DraftEditRequestedPayload) RoutingKey() string { return RouteDraftEditRequested }
