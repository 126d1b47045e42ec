// Package telemetry ships product analytics to PostHog and errors to Sentry.
// Delivery is best effort over a bounded queue: when the queue is full the
// event is counted and dropped, never blocking a request path. A nil
// Dispatcher is valid and discards everything.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/devparekh/tickertrust/internal/metrics"
)

const (
	queueSize   = 256
	sendTimeout = 3 * time.Second
)

// Options configures a Dispatcher. Empty keys disable the matching sink.
type Options struct {
	PostHogAPIKey string
	PostHogHost   string
	SentryDSN     string
	Logger        zerolog.Logger
}

type message struct {
	event      string
	properties map[string]any
	err        error
}

// Dispatcher queues telemetry and delivers it from a single background
// worker.
type Dispatcher struct {
	client      *http.Client
	log         zerolog.Logger
	posthogKey  string
	posthogHost string
	sentry      *sentryTarget

	queue chan message
	done  chan struct{}
	once  sync.Once
}

type sentryTarget struct {
	host      string
	publicKey string
	projectID string
}

// parseSentryDSN splits a DSN into host, public key and project id. Returns
// nil for an empty or malformed DSN.
func parseSentryDSN(dsn string) *sentryTarget {
	if dsn == "" {
		return nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil || parsed.User == nil {
		return nil
	}
	projectID := strings.Trim(parsed.Path, "/")
	publicKey := parsed.User.Username()
	if publicKey == "" || projectID == "" {
		return nil
	}
	return &sentryTarget{
		host:      parsed.Scheme + "://" + parsed.Host,
		publicKey: publicKey,
		projectID: projectID,
	}
}

// New starts a dispatcher. Returns nil when no sink is configured, which
// every method tolerates.
func New(opts Options) *Dispatcher {
	sentry := parseSentryDSN(opts.SentryDSN)
	if opts.PostHogAPIKey == "" && sentry == nil {
		return nil
	}

	host := strings.TrimSuffix(opts.PostHogHost, "/")
	if host == "" {
		host = "https://app.posthog.com"
	}

	d := &Dispatcher{
		client:      &http.Client{Timeout: sendTimeout},
		log:         opts.Logger,
		posthogKey:  opts.PostHogAPIKey,
		posthogHost: host,
		sentry:      sentry,
		queue:       make(chan message, queueSize),
		done:        make(chan struct{}),
	}
	go d.run()
	return d
}

// Event queues a product analytics event.
func (d *Dispatcher) Event(event string, properties map[string]any) {
	if d == nil {
		return
	}
	d.enqueue(message{event: event, properties: properties})
}

// Exception queues an error report. It also mirrors the error to PostHog so
// error spikes show up alongside product events.
func (d *Dispatcher) Exception(err error, context map[string]any) {
	if d == nil || err == nil {
		return
	}
	d.enqueue(message{err: err, properties: context})
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		close(d.queue)
		<-d.done
	})
}

func (d *Dispatcher) enqueue(m message) {
	select {
	case d.queue <- m:
	default:
		metrics.TelemetryDropped.Inc()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for m := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if m.err != nil {
			d.sendException(ctx, m.err, m.properties)
		} else {
			d.sendEvent(ctx, m.event, m.properties)
		}
		cancel()
	}
}

func (d *Dispatcher) sendEvent(ctx context.Context, event string, properties map[string]any) {
	if d.posthogKey == "" {
		return
	}

	distinctID := "tickertrust-service"
	if v, ok := properties["distinct_id"].(string); ok && v != "" {
		distinctID = v
	}

	props := map[string]any{
		"service":   "tickertrust",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range properties {
		props[k] = v
	}

	payload := map[string]any{
		"api_key":     d.posthogKey,
		"event":       event,
		"distinct_id": distinctID,
		"properties":  props,
	}
	if err := d.postJSON(ctx, d.posthogHost+"/capture/", payload); err != nil {
		d.log.Debug().Err(err).Str("event", event).Msg("posthog capture failed")
	}
}

func (d *Dispatcher) sendException(ctx context.Context, cause error, context map[string]any) {
	if d.sentry != nil {
		if err := d.sendSentryEnvelope(ctx, cause, context); err != nil {
			d.log.Debug().Err(err).Msg("sentry capture failed")
		}
	}

	props := map[string]any{"level": "error", "message": cause.Error()}
	for k, v := range context {
		props[k] = v
	}
	d.sendEvent(ctx, "tickertrust.exception", props)
}

func (d *Dispatcher) sendSentryEnvelope(ctx context.Context, cause error, extra map[string]any) error {
	eventID := strings.ReplaceAll(uuid.NewString(), "-", "")
	now := time.Now().UTC()

	envelopeHeader, _ := json.Marshal(map[string]any{
		"event_id": eventID,
		"sent_at":  now.Format(time.RFC3339),
		"sdk":      map[string]string{"name": "tickertrust-telemetry", "version": "0.1.0"},
	})
	itemHeader, _ := json.Marshal(map[string]string{"type": "event"})
	eventPayload, _ := json.Marshal(map[string]any{
		"event_id":  eventID,
		"timestamp": now.Unix(),
		"level":     "error",
		"platform":  "go",
		"logger":    "tickertrust",
		"message":   cause.Error(),
		"extra":     extra,
	})

	envelope := bytes.Join([][]byte{envelopeHeader, itemHeader, eventPayload}, []byte("\n"))
	endpoint := fmt.Sprintf("%s/api/%s/envelope/", d.sentry.host, d.sentry.projectID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(envelope))
	if err != nil {
		return fmt.Errorf("create sentry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-sentry-envelope")
	req.Header.Set("X-Sentry-Auth",
		fmt.Sprintf("Sentry sentry_version=7, sentry_key=%s", d.sentry.publicKey))

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sentry envelope: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sentry status %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) postJSON(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telemetry payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telemetry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telemetry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry status %d", resp.StatusCode)
	}
	return nil
}
