package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-assistant-backend/internal/domain"
	"github.com/tbourn/go-assistant-backend/internal/observability"
)

// Delivery policy defaults, applied when a subscription carries
// non-positive values.
const (
	DefaultRetryAttempts = 3
	DefaultTimeout       = 30 // seconds
	DefaultBackoffBase   = 2.0
	DefaultSource        = "assistant_backend"
)

// Envelope is the JSON body POSTed to subscriber endpoints. Subscribers
// verify X-Webhook-Signature (hex HMAC-SHA256 over these exact serialized
// bytes) with their provisioned secret and acknowledge with any status
// below 400.
type Envelope struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Event     string         `json:"event"`
	Source    string         `json:"source"`
	WebhookID int64          `json:"webhook_id"`
	Data      map[string]any `json:"data"`
}

// Result is the outcome of one delivery (one event x one subscription),
// covering all retry attempts. Failed results are returned to the caller
// and then dropped; there is no outbox or redelivery queue.
type Result struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
	WebhookID  int64  `json:"webhook_id"`
}

// SubscriptionSource is the registry access the dispatcher needs:
// enumerate a user's enabled subscriptions, fetch one for diagnostics,
// and stamp last-success.
type SubscriptionSource interface {
	ListEnabled(ctx context.Context, userID int64) ([]domain.Webhook, error)
	Get(ctx context.Context, id, userID int64) (*domain.Webhook, error)
	TouchTriggered(ctx context.Context, id int64, at time.Time) error
}

// Dispatcher delivers events to webhook subscriptions. All state it
// mutates (the per-URL rate window) is owned and injected, never
// package-global, so independent dispatchers are fully isolated.
type Dispatcher struct {
	Source  SubscriptionSource
	Limiter *URLLimiter
	Client  *http.Client

	// Source name stamped into every envelope.
	SourceName string

	// BackoffBase is the exponential backoff base between attempts
	// (delay = base^attemptIndex seconds, uncapped).
	BackoffBase float64

	Log zerolog.Logger

	// sleep is a test seam; it must honor ctx cancellation.
	sleep func(ctx context.Context, d time.Duration)
}

// NewDispatcher constructs a Dispatcher with production defaults. The
// http.Client carries no global timeout; each attempt is bounded by the
// subscription's own timeout via a per-request context.
func NewDispatcher(src SubscriptionSource, limiter *URLLimiter, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		Source:      src,
		Limiter:     limiter,
		Client:      &http.Client{},
		SourceName:  DefaultSource,
		BackoffBase: DefaultBackoffBase,
		Log:         log,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// TriggerEvent fans out one event to every enabled subscription of userID
// that listens for eventType (or carries the "custom" wildcard).
// Deliveries run concurrently and are awaited collectively; one
// subscriber's failure never affects another's delivery. Unknown event
// types yield an empty result set and a logged warning, not an error.
//
// The returned error is non-nil only for store failures while loading
// subscriptions.
func (d *Dispatcher) TriggerEvent(ctx context.Context, eventType string, data map[string]any, userID int64) ([]Result, error) {
	if !domain.IsSupportedEvent(eventType) {
		d.Log.Warn().Str("event", eventType).Msg("unknown event type, dropping")
		return []Result{}, nil
	}

	subs, err := d.Source.ListEnabled(ctx, userID)
	if err != nil {
		return nil, err
	}

	var matched []domain.Webhook
	for _, w := range subs {
		if w.Subscribes(eventType) {
			matched = append(matched, w)
		}
	}
	if len(matched) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, len(matched))
	var wg sync.WaitGroup
	for i, w := range matched {
		wg.Add(1)
		go func(i int, w domain.Webhook) {
			defer wg.Done()
			results[i] = d.Deliver(ctx, w, eventType, data)
		}(i, w)
	}
	wg.Wait()

	return results, nil
}

// Deliver performs one signed delivery with bounded retries. The per-URL
// rate window is consulted exactly once per call (covering all retries);
// a rejected call short-circuits without any network traffic. A response
// status below 400 is success and stamps the subscription's last-success
// timestamp; HTTP >= 400, transport errors, and timeouts are retryable
// failures. Between attempts (never after the last) the dispatcher sleeps
// base^attemptIndex seconds: 1s, 2s, 4s, ... uncapped.
func (d *Dispatcher) Deliver(ctx context.Context, w domain.Webhook, eventType string, data map[string]any) Result {
	if !d.Limiter.Allow(w.URL) {
		d.Log.Warn().Int64("webhook_id", w.ID).Str("url", w.URL).Msg("delivery rate limit exceeded")
		observability.RecordDelivery("rate_limited")
		return Result{Success: false, Error: "rate limit exceeded", WebhookID: w.ID}
	}

	env := Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Event:     eventType,
		Source:    d.SourceName,
		WebhookID: w.ID,
		Data:      data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		observability.RecordDelivery("failed")
		return Result{Success: false, Error: err.Error(), WebhookID: w.ID}
	}
	signature := Sign(body, w.SecretKey)

	attempts := w.RetryAttempts
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	for attempt := 0; attempt < attempts; attempt++ {
		status, err := d.post(ctx, w, eventType, signature, body, time.Duration(timeout)*time.Second)
		observability.RecordDeliveryAttempt()

		switch {
		case err != nil:
			d.Log.Warn().Err(err).
				Int64("webhook_id", w.ID).
				Int("attempt", attempt+1).
				Msg("webhook delivery attempt failed")
		case status < http.StatusBadRequest:
			if terr := d.Source.TouchTriggered(ctx, w.ID, time.Now().UTC()); terr != nil {
				d.Log.Error().Err(terr).Int64("webhook_id", w.ID).Msg("recording delivery success failed")
			}
			d.Log.Info().Int64("webhook_id", w.ID).Int("status", status).Msg("webhook delivered")
			observability.RecordDelivery("success")
			return Result{Success: true, StatusCode: status, WebhookID: w.ID}
		default:
			d.Log.Warn().
				Int64("webhook_id", w.ID).
				Int("status", status).
				Int("attempt", attempt+1).
				Msg("webhook returned error status")
		}

		if attempt < attempts-1 {
			backoff := time.Duration(math.Pow(d.BackoffBase, float64(attempt)) * float64(time.Second))
			d.sleep(ctx, backoff)
			if ctx.Err() != nil {
				observability.RecordDelivery("failed")
				return Result{Success: false, Error: ctx.Err().Error(), WebhookID: w.ID}
			}
		}
	}

	observability.RecordDelivery("failed")
	return Result{Success: false, Error: "all retry attempts failed", WebhookID: w.ID}
}

// post performs a single POST attempt bounded by timeout.
func (d *Dispatcher) post(ctx context.Context, w domain.Webhook, eventType, signature string, body []byte, timeout time.Duration) (int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", eventType)
	req.Header.Set("X-Webhook-Signature", signature)
	req.Header.Set("X-Webhook-ID", strconv.FormatInt(w.ID, 10))

	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Emit satisfies the reminder engine's event sink: lifecycle events are
// fire-and-forget, so failures are logged and swallowed rather than
// surfaced to the emitting operation.
func (d *Dispatcher) Emit(ctx context.Context, eventType string, data map[string]any, userID int64) {
	if _, err := d.TriggerEvent(ctx, eventType, data, userID); err != nil {
		d.Log.Error().Err(err).Str("event", eventType).Msg("event fan-out failed")
	}
}

// TestResult summarizes a diagnostic delivery.
type TestResult struct {
	Success   bool   `json:"success"`
	WebhookID int64  `json:"webhook_id"`
	Message   string `json:"message"`
	Details   Result `json:"details"`
}

// TestWebhook pushes a synthetic payload through the full delivery
// pipeline (signing, rate limit, retries) for one subscription, on the
// "custom" channel.
func (d *Dispatcher) TestWebhook(ctx context.Context, id, userID int64) (*TestResult, error) {
	w, err := d.Source.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"test":      true,
		"message":   "This is a test webhook delivery",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	res := d.Deliver(ctx, *w, domain.EventCustom, data)

	msg := "Test webhook delivered successfully"
	if !res.Success {
		msg = "Test webhook delivery failed"
	}
	return &TestResult{Success: res.Success, WebhookID: id, Message: msg, Details: res}, nil
}

// EventTestSummary aggregates the fan-out outcome of a test event.
type EventTestSummary struct {
	EventType  string   `json:"event_type"`
	Total      int      `json:"total_webhooks"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// TestEvent fans out a synthetic payload for eventType to every matching
// subscription and reports per-subscriber outcomes.
func (d *Dispatcher) TestEvent(ctx context.Context, eventType string, data map[string]any, userID int64) (*EventTestSummary, error) {
	if data == nil {
		data = map[string]any{
			"test":      true,
			"message":   "This is a test for " + eventType,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		}
	}

	results, err := d.TriggerEvent(ctx, eventType, data, userID)
	if err != nil {
		return nil, err
	}

	s := &EventTestSummary{EventType: eventType, Total: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s, nil
}
