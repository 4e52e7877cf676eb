// Package client is the HTTP gateway to the key directory.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"pixkeys/internal/directory/wire"
	"pixkeys/internal/pixkey/models"
	"pixkeys/internal/pixkey/ports"
	id "pixkeys/pkg/domain"
	"pixkeys/pkg/platform/circuit"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerParticipant    = "X-Participant-ISPB"
	maxErrorBody         = 4 << 10
)

// Client implements ports.DirectoryGateway over HTTP. Every mutating request
// carries the call's request id as its idempotency key, so retries are safe.
type Client struct {
	baseURL     string
	participant id.ISPB
	http        *http.Client
	breaker     *circuit.Breaker
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer

	attempts        int
	initialInterval time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRetry sets the total attempts per call and the first backoff delay.
func WithRetry(attempts int, initial time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if initial > 0 {
			c.initialInterval = initial
		}
	}
}

func New(baseURL string, participant id.ISPB, timeout time.Duration, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid directory base url: %w", err)
	}
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		participant:     participant,
		http:            &http.Client{Timeout: timeout},
		breaker:         circuit.New("directory"),
		logger:          slog.Default(),
		tracer:          otel.Tracer("pixkeys/directory"),
		attempts:        3,
		initialInterval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ ports.DirectoryGateway = (*Client)(nil)

func (c *Client) ProposeCreate(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	return c.send(ctx, "/v1/entries", call)
}

func (c *Client) ProposeOwnershipClaim(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	return c.send(ctx, "/v1/claims", call)
}

func (c *Client) ProposePortabilityClaim(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	return c.send(ctx, "/v1/claims", call)
}

func (c *Client) ConfirmClaim(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	return c.send(ctx, "/v1/claims/confirm", call)
}

func (c *Client) CancelClaim(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	return c.send(ctx, "/v1/claims/cancel", call)
}

func (c *Client) Delete(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	return c.send(ctx, "/v1/entries/delete", call)
}

// RequestStatus looks up a request id. A 404 means the directory never saw it.
func (c *Client) RequestStatus(ctx context.Context, requestID string) (models.RequestStatus, models.Ack, error) {
	ctx, span := c.tracer.Start(ctx, "directory.request_status",
		trace.WithAttributes(attribute.String("directory.request_id", requestID)))
	defer span.End()

	var status wire.Status
	if err := c.do(ctx, http.MethodGet, "/v1/requests/"+url.PathEscape(requestID), "", nil, &status); err != nil {
		var se *statusError
		if errors.As(err, &se) {
			if se.code == http.StatusNotFound {
				return models.RequestUnknown, models.Ack{}, nil
			}
			err = fmt.Errorf("%w: %v", ports.ErrDirectoryUnavailable, se)
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return "", models.Ack{}, err
	}

	ack := models.Ack{RequestID: requestID, ClaimID: status.ClaimID}
	switch models.RequestStatus(status.Status) {
	case models.RequestAccepted:
		return models.RequestAccepted, ack, nil
	case models.RequestRejected:
		return models.RequestRejected, ack, nil
	}
	return models.RequestUnknown, models.Ack{}, nil
}

// ClaimStatus looks up a claim by its directory id or, before one was
// assigned, by the request id of its proposal. A 404 means UNKNOWN.
func (c *Client) ClaimStatus(ctx context.Context, call models.DirectoryCall) (models.ClaimOutcome, error) {
	ctx, span := c.tracer.Start(ctx, "directory.claim_status", trace.WithAttributes(
		attribute.String("directory.claim_id", call.ClaimID),
		attribute.String("directory.proposal_id", call.ProposalID),
	))
	defer span.End()

	path := "/v1/claims/" + url.PathEscape(call.ClaimID)
	if call.ClaimID == "" {
		if call.ProposalID == "" {
			return models.ClaimOutcomeUnknown, nil
		}
		path = "/v1/claims?" + url.Values{"proposal_id": {call.ProposalID}}.Encode()
	}

	var state wire.ClaimState
	if err := c.do(ctx, http.MethodGet, path, "", nil, &state); err != nil {
		var se *statusError
		if errors.As(err, &se) {
			if se.code == http.StatusNotFound {
				return models.ClaimOutcomeUnknown, nil
			}
			err = fmt.Errorf("%w: %v", ports.ErrDirectoryUnavailable, se)
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return "", err
	}
	return models.ParseClaimOutcome(state.Status), nil
}

func (c *Client) send(ctx context.Context, path string, call models.DirectoryCall) (models.Ack, error) {
	action := string(call.Action)
	ctx, span := c.tracer.Start(ctx, "directory."+strings.ToLower(action), trace.WithAttributes(
		attribute.String("directory.action", action),
		attribute.String("directory.request_id", call.RequestID),
	))
	defer span.End()

	start := time.Now()
	ack, err := c.sendWithRetry(ctx, path, call)
	outcome := outcomeOf(err)
	c.metrics.observe(action, outcome, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, outcome)
		return models.Ack{}, err
	}
	return ack, nil
}

func (c *Client) sendWithRetry(ctx context.Context, path string, call models.DirectoryCall) (models.Ack, error) {
	if !c.breaker.Allow() {
		return models.Ack{}, fmt.Errorf("%w: circuit open", ports.ErrDirectoryUnavailable)
	}
	body, err := json.Marshal(wire.FromCall(call))
	if err != nil {
		return models.Ack{}, fmt.Errorf("marshal directory call: %w", err)
	}

	var ack wire.Ack
	attempt := func() error {
		err := c.do(ctx, http.MethodPost, path, call.RequestID, body, &ack)
		var se *statusError
		switch {
		case errors.As(err, &se):
			if replayed, ok := se.duplicateOf(call.RequestID); ok {
				ack = replayed
				return nil
			}
			return classify(se)
		case err != nil && ctx.Err() != nil:
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	retries := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.attempts-1)), ctx)
	err = backoff.RetryNotify(attempt, retries, func(err error, wait time.Duration) {
		c.metrics.retry(string(call.Action))
		c.logger.WarnContext(ctx, "directory call failed, retrying",
			"action", call.Action,
			"request_id", call.RequestID,
			"retry_in", wait,
			"error", err,
		)
	})

	if err == nil || errors.Is(err, ports.ErrDirectoryRejected) {
		c.recordHealthy()
	} else {
		c.recordFailure(ctx)
	}
	if err != nil {
		return models.Ack{}, err
	}
	if ack.RequestID == "" {
		ack.RequestID = call.RequestID
	}
	return ack.ToModel(), nil
}

// do performs one round trip. Transport failures map to ErrDirectoryTimeout:
// the directory may have applied the request anyway.
func (c *Client) do(ctx context.Context, method, path, requestID string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerParticipant, c.participant.String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID != "" {
		req.Header.Set(headerIdempotencyKey, requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrDirectoryTimeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: undecodable response: %v", ports.ErrDirectoryTimeout, err)
		}
		return nil
	}

	var problem wire.Problem
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if json.Unmarshal(raw, &problem) != nil || problem.Message == "" {
		problem.Message = strings.TrimSpace(string(raw))
	}
	return &statusError{code: resp.StatusCode, problem: problem, raw: raw}
}

type statusError struct {
	code    int
	problem wire.Problem
	raw     []byte
}

// duplicateOf reports whether a 409 answers a request we already made, in
// which case the body carries the original acknowledgement.
func (e *statusError) duplicateOf(requestID string) (wire.Ack, bool) {
	if e.code != http.StatusConflict {
		return wire.Ack{}, false
	}
	var ack wire.Ack
	if json.Unmarshal(e.raw, &ack) != nil || ack.RequestID != requestID {
		return wire.Ack{}, false
	}
	return ack, true
}

func (e *statusError) Error() string {
	if e.problem.Code != "" {
		return fmt.Sprintf("directory returned %d (%s): %s", e.code, e.problem.Code, e.problem.Message)
	}
	return fmt.Sprintf("directory returned %d: %s", e.code, e.problem.Message)
}

// classify turns an error status into a retry decision. Refusals are final;
// throttling and server errors are retried.
func classify(se *statusError) error {
	switch {
	case se.code == http.StatusRequestTimeout:
		return fmt.Errorf("%w: %v", ports.ErrDirectoryTimeout, se)
	case se.code == http.StatusTooManyRequests || se.code >= 500:
		return fmt.Errorf("%w: %v", ports.ErrDirectoryUnavailable, se)
	}
	return backoff.Permanent(fmt.Errorf("%w: %v", ports.ErrDirectoryRejected, se))
}

func (c *Client) recordHealthy() {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.metrics.breaker(false)
		c.logger.Info("directory circuit closed")
	}
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.metrics.breaker(true)
		c.logger.WarnContext(ctx, "directory circuit opened")
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ports.ErrDirectoryRejected):
		return "rejected"
	case errors.Is(err, ports.ErrDirectoryTimeout):
		return "timeout"
	default:
		return "unavailable"
	}
}
