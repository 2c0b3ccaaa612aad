package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/txn-webhooks/internal/app"
	"github.com/mkravets/txn-webhooks/internal/di"
	"github.com/mkravets/txn-webhooks/internal/infrastructure/api/routers"
	"github.com/mkravets/txn-webhooks/internal/infrastructure/database/memstore"
	"github.com/mkravets/txn-webhooks/internal/infrastructure/queue"
)

// countingDispatcher records how many finalize requests actually went out, so
// duplicate-delivery tests can assert on dispatch counts.
type countingDispatcher struct {
	*queue.MemoryDispatcher
	enqueued atomic.Int64
}

func (d *countingDispatcher) Enqueue(ctx context.Context, transactionID string) error {
	if err := d.MemoryDispatcher.Enqueue(ctx, transactionID); err != nil {
		return err
	}
	d.enqueued.Add(1)
	return nil
}

type testServer struct {
	server     *httptest.Server
	dispatcher *countingDispatcher
}

// newTestServer assembles the full HTTP surface over the in-memory store and
// dispatcher, with finalizer workers running against the given delay.
func newTestServer(t *testing.T, processingDelay time.Duration) *testServer {
	t.Helper()

	store := memstore.New()
	dispatcher := &countingDispatcher{
		MemoryDispatcher: queue.NewMemoryDispatcher(64, 10*time.Second),
	}
	t.Cleanup(dispatcher.Close)

	container := di.NewContainer(store, dispatcher, processingDelay, 5*time.Minute, 100)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	finalizer := app.NewFinalizerProcess(dispatcher, container.FinalizeInteractor, 2)
	go finalizer.Run(ctx)

	server := httptest.NewServer(routers.NewRouter(container))
	t.Cleanup(server.Close)

	return &testServer{server: server, dispatcher: dispatcher}
}

func (s *testServer) postWebhook(t *testing.T, payload map[string]any) *http.Response {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(s.server.URL+"/v1/webhooks/transactions", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) getTransaction(t *testing.T, transactionID string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Get(s.server.URL + "/v1/transactions/" + transactionID)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func validPayload(transactionID string) map[string]any {
	return map[string]any{
		"transaction_id":      transactionID,
		"source_account":      "ACC001",
		"destination_account": "ACC002",
		"amount":              "100.50",
		"currency":            "USD",
	}
}

func TestWebhookAcceptedAndVisible(t *testing.T) {
	ts := newTestServer(t, time.Minute)

	resp := ts.postWebhook(t, validPayload("tx-1"))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	getResp, body := ts.getTransaction(t, "tx-1")
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
	assert.Equal(t, "tx-1", body["transaction_id"])
	assert.Equal(t, "100.50", body["amount"])
	assert.Equal(t, "USD", body["currency"])
	assert.Equal(t, "PENDING", body["status"])
	assert.NotEmpty(t, body["created_at"])
	assert.Nil(t, body["completed_at"])
}

func TestWebhookNumericAmountAccepted(t *testing.T) {
	ts := newTestServer(t, time.Minute)

	payload := validPayload("tx-num")
	payload["amount"] = 100.50

	resp := ts.postWebhook(t, payload)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	_, body := ts.getTransaction(t, "tx-num")
	assert.Equal(t, "100.50", body["amount"])
}

func TestWebhookRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(payload map[string]any)
	}{
		{"missing transaction id", func(p map[string]any) { delete(p, "transaction_id") }},
		{"missing source account", func(p map[string]any) { delete(p, "source_account") }},
		{"missing amount", func(p map[string]any) { delete(p, "amount") }},
		{"malformed amount", func(p map[string]any) { p["amount"] = "not-a-number" }},
		{"negative amount", func(p map[string]any) { p["amount"] = "-5.00" }},
		{"currency too short", func(p map[string]any) { p["currency"] = "US" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, time.Minute)

			payload := validPayload("tx-bad")
			tc.mutate(payload)

			resp := ts.postWebhook(t, payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			getResp, _ := ts.getTransaction(t, "tx-bad")
			assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
		})
	}
}

func TestWebhookMalformedJSON(t *testing.T) {
	ts := newTestServer(t, time.Minute)

	resp, err := http.Post(ts.server.URL+"/v1/webhooks/transactions", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUnknownTransaction(t *testing.T) {
	ts := newTestServer(t, time.Minute)

	resp, body := ts.getTransaction(t, "tx-never-seen")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Transaction not found", body["message"])
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, time.Minute)

	resp, err := http.Get(ts.server.URL + "/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "HEALTHY", body["status"])
	assert.NotEmpty(t, body["current_time"])
}

// TestDuplicateDeliveriesFinalizeOnce drives the documented redelivery
// scenario end to end: five deliveries of the same webhook, one record, one
// finalize dispatch, and the record completes after the processing delay.
func TestDuplicateDeliveriesFinalizeOnce(t *testing.T) {
	ts := newTestServer(t, 150*time.Millisecond)

	for n := 0; n < 5; n++ {
		resp := ts.postWebhook(t, validPayload("tx-3"))
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	assert.Equal(t, int64(1), ts.dispatcher.enqueued.Load())

	_, body := ts.getTransaction(t, "tx-3")
	assert.Equal(t, "PENDING", body["status"])

	require.Eventually(t, func() bool {
		_, body := ts.getTransaction(t, "tx-3")
		return body["status"] == "COMPLETED"
	}, 5*time.Second, 25*time.Millisecond)

	_, body = ts.getTransaction(t, "tx-3")
	require.NotNil(t, body["completed_at"])

	createdAt, err := time.Parse(time.RFC3339Nano, body["created_at"].(string))
	require.NoError(t, err)
	completedAt, err := time.Parse(time.RFC3339Nano, body["completed_at"].(string))
	require.NoError(t, err)
	assert.False(t, completedAt.Before(createdAt))
}
