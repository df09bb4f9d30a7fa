package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	"chainpe.com/payment-gateway/config"
	"chainpe.com/payment-gateway/log"
	"chainpe.com/payment-gateway/models"
)

const userAgent = "ChainPeGateway/1.0"
const queueDepth = 64

// Dispatcher delivers payment notifications to merchant callback urls.
// Delivery is best effort: a bounded number of immediate retries, then
// the task is dropped with an error log. Delivery outcome never feeds
// back into session state.
type Dispatcher struct {
	client     *http.Client
	retryLimit int
	queue      chan *models.NotificationTask
}

func NewDispatcher(cfg *config.WebhookConfig) *Dispatcher {
	return &Dispatcher{
		client:     &http.Client{Timeout: cfg.Timeout},
		retryLimit: cfg.RetryLimit,
		queue:      make(chan *models.NotificationTask, queueDepth),
	}
}

// Enqueue hands a task to the delivery worker. A full queue drops the
// task rather than blocking reconciliation.
func (d *Dispatcher) Enqueue(task *models.NotificationTask) {
	select {
	case d.queue <- task:
	default:
		log.Warnf("Notification queue full, dropping webhook for session %s", task.SessionId)
	}
}

// Run consumes queued tasks until the context is cancelled. Tasks still
// queued at shutdown are dropped; in-flight notifications do not
// survive a restart.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-d.queue:
			_ = d.Deliver(task)
		}
	}
}

// Deliver posts the payload to the callback url, retrying immediately on
// any failure until the retry limit is exhausted.
func (d *Dispatcher) Deliver(task *models.NotificationTask) error {
	if task.WebhookUrl == "" {
		log.Warnf("No webhook url for session %s", task.SessionId)
		return nil
	}

	body, err := json.Marshal(task.Payload)
	if err != nil {
		log.Errorf("Webhook payload marshal failed for session %s: %v", task.SessionId, err)
		return err
	}

	var lastErr error
	for attempt := 0; attempt < d.retryLimit; attempt++ {
		lastErr = d.post(task, body)
		if lastErr == nil {
			log.Infof("Webhook sent to %s for session %s (attempt %d)", task.WebhookUrl, task.SessionId, attempt+1)
			return nil
		}
		log.Warnf("Webhook attempt %d/%d failed for session %s: %v", attempt+1, d.retryLimit, task.SessionId, lastErr)
	}

	log.Errorf("Webhook failed after %d attempts for session %s, dropping", d.retryLimit, task.SessionId)
	return lastErr
}

func (d *Dispatcher) post(task *models.NotificationTask, body []byte) error {
	req, err := http.NewRequest("POST", task.WebhookUrl, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("User-Agent", userAgent)
	req.Header.Add("X-Webhook-Event", task.Payload.Event)
	req.Header.Add("X-Session-ID", task.SessionId)

	res, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(ioutil.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", res.StatusCode)
	}
	return nil
}
