package models

const WebhookEventPaymentSuccess = "payment.success"

type WebhookPayload struct {
	Event     string `json:"event"`
	SessionId string `json:"session_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	TxHash    string `json:"tx_hash"`
}

// NotificationTask is handed to the dispatcher after a successful Paid
// transition. It lives only until delivery succeeds or the retries
// run out; in-flight tasks do not survive a restart.
type NotificationTask struct {
	SessionId  string
	WebhookUrl string
	Payload    WebhookPayload
}
