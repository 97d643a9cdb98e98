package notify

import "time"

// Task type constants
const (
	TaskSMSSend = "sms:send"
)

// SMSPayload is the queued unit of one outbound text message.
type SMSPayload struct {
	Phone   string    `json:"phone"`
	Message string    `json:"message"`
	Queued  time.Time `json:"queued"`
}
