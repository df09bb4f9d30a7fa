package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"chainpe.com/payment-gateway/config"
	"chainpe.com/payment-gateway/models"
)

func testDispatcher(timeout time.Duration) *Dispatcher {
	return NewDispatcher(&config.WebhookConfig{
		Timeout:    timeout,
		RetryLimit: 3,
	})
}

func testTask(url string) *models.NotificationTask {
	return &models.NotificationTask{
		SessionId:  "pay_abc123",
		WebhookUrl: url,
		Payload: models.WebhookPayload{
			Event:     models.WebhookEventPaymentSuccess,
			SessionId: "pay_abc123",
			Amount:    "50.00",
			Currency:  "USDC",
			TxHash:    "tx1",
		},
	}
}

func TestDeliverSuccess(t *testing.T) {
	assert := assert.New(t)

	var attempts int32
	var received models.WebhookPayload
	var sessionHeader string
	var eventHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		sessionHeader = r.Header.Get("X-Session-ID")
		eventHeader = r.Header.Get("X-Webhook-Event")
		assert.Equal("application/json", r.Header.Get("Content-Type"))
		assert.NoError(json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := testDispatcher(5 * time.Second)
	task := testTask(server.URL)

	assert.NoError(d.Deliver(task))
	assert.Equal(int32(1), attempts)
	assert.Equal("pay_abc123", sessionHeader)
	assert.Equal(models.WebhookEventPaymentSuccess, eventHeader)

	if diff := cmp.Diff(task.Payload, received); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestDeliverRetryBound(t *testing.T) {
	assert := assert.New(t)

	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := testDispatcher(5 * time.Second)

	err := d.Deliver(testTask(server.URL))
	assert.Error(err)
	assert.Equal(int32(3), attempts)

	// Dispatch stops permanently for the task; nothing re-delivers it.
	assert.Equal(int32(3), atomic.LoadInt32(&attempts))
}

func TestDeliverRecoversMidRetry(t *testing.T) {
	assert := assert.New(t)

	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := testDispatcher(5 * time.Second)

	assert.NoError(d.Deliver(testTask(server.URL)))
	assert.Equal(int32(3), attempts)
}

func TestDeliverTransportError(t *testing.T) {
	assert := assert.New(t)

	d := testDispatcher(time.Second)

	// Closed server: every attempt fails at the transport layer.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := d.Deliver(testTask(url))
	assert.Error(err)
}

func TestDeliverWithoutUrl(t *testing.T) {
	d := testDispatcher(time.Second)
	assert.NoError(t, d.Deliver(testTask("")))
}

func TestRunDrainsQueue(t *testing.T) {
	assert := assert.New(t)

	delivered := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		close(delivered)
	}))
	defer server.Close()

	d := testDispatcher(5 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(testTask(server.URL))

	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		assert.Fail("webhook was not delivered")
	}
}
