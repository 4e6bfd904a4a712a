// Package webhook posts deploy events to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nitro-repo/nitro-repo/module/repository/api"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const userAgent = "nitro-repo-webhook"

// Notifier delivers every DeployEvent as a JSON POST. Deliveries run in the
// background and are retried on connection errors and 5xx responses.
type Notifier struct {
	url    string
	client *retryablehttp.Client
	wg     sync.WaitGroup
	// delivered is called after each delivery attempt chain, for metrics.
	delivered func(err error)
}

type Option func(*Notifier)

// WithRetries sets the maximum number of retries per event.
func WithRetries(retries int) Option {
	return func(n *Notifier) {
		n.client.RetryMax = retries
	}
}

// WithBackoff bounds the wait between retries.
func WithBackoff(minWait, maxWait time.Duration) Option {
	return func(n *Notifier) {
		n.client.RetryWaitMin = minWait
		n.client.RetryWaitMax = maxWait
	}
}

// WithDeliveryCallback registers fn to be told the outcome of each event.
func WithDeliveryCallback(fn func(err error)) Option {
	return func(n *Notifier) {
		n.delivered = fn
	}
}

func New(url string, opts ...Option) *Notifier {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = leveledLogger{logger: log.Logger}
	n := &Notifier{url: url, client: client}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// PostDeploy queues the delivery and returns immediately.
func (n *Notifier) PostDeploy(ctx context.Context, event api.DeployEvent) {
	logger := log.Ctx(ctx).With().
		Str("webhook", n.url).
		Str("repository", event.Repository).
		Str("project", event.Project).
		Str("version", event.Version).
		Logger()
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		err := n.Send(logger.WithContext(context.WithoutCancel(ctx)), event)
		if err != nil {
			logger.Error().Err(err).Msg("Webhook delivery failed")
		} else {
			logger.Debug().Msg("Webhook delivered")
		}
		if n.delivered != nil {
			n.delivered(err)
		}
	}()
}

// Send delivers one event synchronously.
func (n *Notifier) Send(ctx context.Context, event api.DeployEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

// Wait blocks until queued deliveries finished or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// leveledLogger routes retryablehttp logging into zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.event(l.logger.Error(), keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.event(l.logger.Warn(), keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.event(l.logger.Debug(), keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.event(l.logger.Trace(), keysAndValues).Msg(msg)
}

func (l leveledLogger) event(e *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, keysAndValues[i+1])
	}
	return e
}

var _ retryablehttp.LeveledLogger = leveledLogger{}
