// Package transport serves status report requests over NATS request/reply.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/groblegark/agentstatus/internal/statusreport"
)

// Config holds configuration for the Responder.
type Config struct {
	// NatsURL is the NATS server URL (e.g., "nats://host:4222").
	NatsURL string

	// NatsToken is the auth token for NATS (optional).
	NatsToken string

	// Subject is the request subject status reports are asked on.
	Subject string

	// Queue is an optional queue group so replicas share requests.
	Queue string
}

// Executor generates a status report response.
type Executor interface {
	Execute(ctx context.Context, req statusreport.Request) statusreport.Response
}

// Responder answers status report requests arriving on a NATS subject.
// Requests are handled one at a time.
type Responder struct {
	cfg    Config
	exec   Executor
	logger *slog.Logger
}

// NewResponder creates a responder that runs each request through exec.
func NewResponder(cfg Config, exec Executor, logger *slog.Logger) *Responder {
	return &Responder{cfg: cfg, exec: exec, logger: logger}
}

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Start serves requests until ctx is canceled, reconnecting with
// exponential backoff on errors.
func (r *Responder) Start(ctx context.Context) error {
	var backoff time.Duration

	for {
		subscribed, err := r.serve(ctx)
		if ctx.Err() != nil {
			return fmt.Errorf("responder stopped: %w", ctx.Err())
		}
		backoff = nextBackoff(backoff, subscribed)
		r.logger.Warn("NATS responder error, reconnecting",
			"error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return fmt.Errorf("responder stopped: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}
}

// nextBackoff returns the wait before the next reconnect. It starts over at
// minBackoff after a session that got as far as subscribing.
func nextBackoff(prev time.Duration, subscribed bool) time.Duration {
	if subscribed || prev <= 0 {
		return minBackoff
	}
	if next := prev * 2; next < maxBackoff {
		return next
	}
	return maxBackoff
}

// serve connects, subscribes, and handles messages until ctx is canceled or
// the subscription breaks. subscribed reports whether it got that far.
func (r *Responder) serve(ctx context.Context) (subscribed bool, err error) {
	opts := []nats.Option{
		nats.Name("agentstatus"),
	}
	if r.cfg.NatsToken != "" {
		opts = append(opts, nats.Token(r.cfg.NatsToken))
	}

	nc, err := nats.Connect(r.cfg.NatsURL, opts...)
	if err != nil {
		return false, fmt.Errorf("NATS connect: %w", err)
	}
	defer nc.Close()

	var sub *nats.Subscription
	if r.cfg.Queue != "" {
		sub, err = nc.QueueSubscribeSync(r.cfg.Subject, r.cfg.Queue)
	} else {
		sub, err = nc.SubscribeSync(r.cfg.Subject)
	}
	if err != nil {
		return false, fmt.Errorf("subscribing to %s: %w", r.cfg.Subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	r.logger.Info("serving status report requests",
		"subject", r.cfg.Subject, "queue", r.cfg.Queue, "url", r.cfg.NatsURL)

	for {
		msg, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return true, fmt.Errorf("receiving request: %w", err)
		}
		r.handle(ctx, msg)
	}
}

func (r *Responder) handle(ctx context.Context, msg *nats.Msg) {
	if msg.Reply == "" {
		r.logger.Debug("dropping status report request without reply subject")
		return
	}

	var resp statusreport.Response
	req, err := statusreport.ParseRequest(msg.Data)
	if err != nil {
		resp = statusreport.Response{Code: http.StatusBadRequest, Body: err.Error()}
	} else {
		resp = r.exec.Execute(ctx, req)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		r.logger.Error("encoding status report response", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		r.logger.Warn("failed to send status report reply", "error", err)
	}
}

// Request asks a responder on subject for a status report.
func Request(ctx context.Context, nc *nats.Conn, subject string, req statusreport.Request) (statusreport.Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return statusreport.Response{}, fmt.Errorf("encoding status report request: %w", err)
	}
	msg, err := nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return statusreport.Response{}, fmt.Errorf("requesting status report on %s: %w", subject, err)
	}
	var resp statusreport.Response
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return statusreport.Response{}, fmt.Errorf("decoding status report response: %w", err)
	}
	return resp, nil
}
