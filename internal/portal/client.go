// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package portal is the resilient client for Stalker-style IPTV middleware:
// handshake, signed requests, response classification and bounded retry.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ManuGH/stbportal/internal/domain"
	"github.com/ManuGH/stbportal/internal/link"
	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/resilience"
	"github.com/ManuGH/stbportal/internal/telemetry"
)

const (
	// Body prefixes the portal uses instead of an envelope.
	unauthorizedMarker = "Authorization failed"
	accessDeniedMarker = "Access denied"

	defaultTimeout        = 10 * time.Second
	defaultUserAgent      = "Mozilla/5.0 (QtEmbedded; U; Linux; C) AppleWebKit/533.3 (KHTML, like Gecko) MAG200 stbapp ver: 2 rev: 250 Safari/533.3"
	defaultRateLimit      = 10
	defaultRateLimitBurst = 20
	defaultBreakerFails   = 5
	defaultBreakerReset   = 30 * time.Second
	maxBodyBytes          = 8 << 20

	endpointSuffix = "/server/load.php"
)

// Options configures the portal client behaviour.
type Options struct {
	Timeout          time.Duration
	UserAgent        string
	Timezone         string
	Language         string
	STBType          string
	RateLimit        rate.Limit
	RateLimitBurst   int
	BreakerThreshold int
	BreakerReset     time.Duration
	HTTPClient       *http.Client
	Logger           *zerolog.Logger
}

// Client issues signed requests against one portal endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	breaker  *resilience.CircuitBreaker
	opts     Options
	logger   zerolog.Logger
}

// Request addresses one portal action.
type Request struct {
	Type   string
	Action string
	Params url.Values
}

func (r Request) route() string { return r.Type + "/" + r.Action }

// NewClient creates a client for the portal at baseURL. baseURL may point
// at the load.php endpoint itself or at the portal root.
func NewClient(baseURL string, opts Options) *Client {
	nopts := normalizeOptions(opts)
	logger := stblog.WithComponent("portal")
	if nopts.Logger != nil {
		logger = *nopts.Logger
	}

	httpClient := nopts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: nopts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:          20,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: nopts.Timeout,
				TLSHandshakeTimeout:   5 * time.Second,
			},
		}
	}

	return &Client{
		endpoint: EndpointURL(baseURL),
		http:     httpClient,
		limiter:  rate.NewLimiter(nopts.RateLimit, nopts.RateLimitBurst),
		breaker: resilience.NewCircuitBreaker("portal", nopts.BreakerThreshold, nopts.BreakerReset,
			resilience.WithFailurePredicate(countsAsOutage)),
		opts:   nopts,
		logger: logger,
	}
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timezone == "" {
		opts.Timezone = "UTC"
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.STBType == "" {
		opts.STBType = "MAG250"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = defaultBreakerFails
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = defaultBreakerReset
	}
	return opts
}

// EndpointURL resolves the load.php endpoint for a configured portal URL.
func EndpointURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(base, ".php") {
		return base
	}
	base = strings.TrimSuffix(base, "/c")
	if strings.HasSuffix(base, "/stalker_portal") {
		return base + endpointSuffix
	}
	return base + "/stalker_portal" + endpointSuffix
}

// Endpoint returns the resolved load.php URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Breaker exposes the circuit state for diagnostics.
func (c *Client) Breaker() resilience.State { return c.breaker.State() }

// countsAsOutage keeps classified portal answers from tripping the breaker.
func countsAsOutage(err error) bool {
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Status == 0 || pe.Status >= http.StatusInternalServerError
}

// Call issues a signed request, unwraps the {"js": ...} envelope and decodes
// the payload as T.
func Call[T any](ctx context.Context, c *Client, s domain.AuthSession, req Request) (T, error) {
	var zero T
	status, body, err := c.do(ctx, s, req)
	if err != nil {
		observeOutcome(req.route(), Class(err))
		return zero, err
	}
	payload, err := classify(c.endpoint, s, status, body)
	if err != nil {
		observeOutcome(req.route(), Class(err))
		return zero, err
	}
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		err = decodeFailure(c.endpoint, status, body, err)
		observeOutcome(req.route(), Class(err))
		return zero, err
	}
	observeOutcome(req.route(), "ok")
	return v, nil
}

// classify turns a raw answer into the envelope payload or a typed error.
func classify(endpoint string, s domain.AuthSession, status int, body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	switch {
	case hasPrefixFold(trimmed, unauthorizedMarker):
		return nil, &UnauthorizedError{Session: s}
	case hasPrefixFold(trimmed, accessDeniedMarker):
		return nil, &AccessDeniedError{Message: strings.TrimSpace(snippet(trimmed))}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &ProtocolError{URL: endpoint, Status: status, Body: snippet(trimmed)}
	}

	var env struct {
		JS json.RawMessage `json:"js"`
	}
	err := json.Unmarshal(trimmed, &env)
	if err == nil && len(env.JS) == 0 {
		err = errors.New("missing js envelope")
	}
	if err != nil {
		return nil, decodeFailure(endpoint, status, trimmed, err)
	}
	return env.JS, nil
}

// decodeFailure maps an undecodable body to RegistrationBlockedError when it
// carries the structured block shape, and to ProtocolError otherwise.
func decodeFailure(endpoint string, status int, body []byte, cause error) error {
	if blocked, ok := registrationBlocked(body); ok {
		return blocked
	}
	return &ProtocolError{URL: endpoint, Status: status, Body: snippet(bytes.TrimSpace(body)), Err: cause}
}

func registrationBlocked(body []byte) (*RegistrationBlockedError, bool) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &shape); err != nil {
		return nil, false
	}
	rawStatus, hasStatus := shape["status"]
	rawBlock, hasBlock := shape["block_msg"]
	if !hasStatus || !hasBlock {
		return nil, false
	}
	var msg, block string
	_ = json.Unmarshal(shape["msg"], &msg)
	_ = json.Unmarshal(rawBlock, &block)
	if block == "" {
		block = msg
	}
	return &RegistrationBlockedError{Status: strings.Trim(string(rawStatus), `"`), Message: block}, true
}

func hasPrefixFold(b []byte, prefix string) bool {
	return len(b) >= len(prefix) && strings.EqualFold(string(b[:len(prefix)]), prefix)
}

func (c *Client) do(ctx context.Context, s domain.AuthSession, req Request) (int, []byte, error) {
	tracer := telemetry.Tracer("stbportal.portal")
	ctx, span := tracer.Start(ctx, "stbportal.portal.request", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, nil, err
	}

	u := c.buildURL(req)
	var (
		status int
		body   []byte
	)
	start := time.Now()
	err := c.breaker.Execute(func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return &ProtocolError{URL: c.endpoint, Err: err}
		}
		c.sign(httpReq, s)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return &ProtocolError{URL: c.endpoint, Err: err}
		}
		defer func() { _ = resp.Body.Close() }()

		status = resp.StatusCode
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return &ProtocolError{URL: c.endpoint, Status: status, Err: err}
		}
		if status >= http.StatusInternalServerError {
			return &ProtocolError{URL: c.endpoint, Status: status, Body: snippet(bytes.TrimSpace(body))}
		}
		return nil
	})
	duration := time.Since(start)

	if errors.Is(err, resilience.ErrCircuitOpen) {
		err = &ProtocolError{URL: c.endpoint, Err: err}
	}
	recordAttemptMetrics(req.route(), status, duration, err)

	span.SetAttributes(telemetry.PortalAttributes(req.Type, req.Action, status)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug().
			Err(err).
			Str(stblog.FieldAction, req.route()).
			Int(stblog.FieldStatus, status).
			Dur("duration", duration).
			Msg("portal request failed")
		return status, nil, err
	}
	span.SetAttributes(attribute.Int("portal.body_bytes", len(body)))
	span.SetStatus(codes.Ok, "")
	return status, body, nil
}

func (c *Client) buildURL(req Request) string {
	q := url.Values{}
	for k, vs := range req.Params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("type", req.Type)
	q.Set("action", req.Action)
	q.Set("JsHttpRequest", "1-xml")
	return c.endpoint + "?" + q.Encode()
}

// sign attaches the device cookie and the bearer token. Handshake requests
// carry an empty token.
func (c *Client) sign(req *http.Request, s domain.AuthSession) {
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("X-User-Agent", "Model: "+c.opts.STBType+"; Link: Ethernet")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", fmt.Sprintf("mac=%s; stb_lang=%s; timezone=%s",
		url.QueryEscape(s.DeviceID), c.opts.Language, url.QueryEscape(c.opts.Timezone)))
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
}

// Handshake obtains a token for deviceID and completes the profile step.
func (c *Client) Handshake(ctx context.Context, deviceID string) (domain.AuthSession, error) {
	s := domain.AuthSession{DeviceID: deviceID, ServerBaseURL: c.endpoint}

	hs, err := Call[handshakePayload](ctx, c, s, Request{
		Type:   "stb",
		Action: "handshake",
		Params: url.Values{"token": {""}, "prehash": {"0"}},
	})
	if err != nil {
		return domain.AuthSession{}, handshakeError(deviceID, err)
	}
	if strings.TrimSpace(hs.Token) == "" {
		return domain.AuthSession{}, &AuthError{DeviceID: deviceID, Reason: "empty token"}
	}
	s.Token = hs.Token

	profile, err := Call[profilePayload](ctx, c, s, Request{
		Type:   "stb",
		Action: "get_profile",
		Params: url.Values{
			"hd":               {"1"},
			"stb_type":         {c.opts.STBType},
			"sn":               {serialFor(deviceID)},
			"device_id":        {deviceID},
			"auth_second_step": {"1"},
			"not_valid_token":  {"0"},
		},
	})
	if err != nil {
		return domain.AuthSession{}, handshakeError(deviceID, err)
	}
	if profile.BlockMsg != "" {
		return domain.AuthSession{}, &RegistrationBlockedError{Status: string(profile.Status), Message: profile.BlockMsg}
	}
	if profile.Token != "" {
		s.Token = profile.Token
	}

	c.logger.Info().
		Str(stblog.FieldDeviceID, stblog.MaskDeviceID(deviceID)).
		Str(stblog.FieldBaseURL, link.SanitizeURL(c.endpoint)).
		Msg("portal handshake completed")
	return s, nil
}

// handshakeError keeps fatal classes intact and folds everything else into
// AuthError.
func handshakeError(deviceID string, err error) error {
	if IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pe *ProtocolError
	if errors.As(err, &pe) && (pe.Status == 0 || pe.Status >= http.StatusInternalServerError) {
		// outage, not a rejection: keep it retryable
		return err
	}
	return &AuthError{DeviceID: deviceID, Reason: "rejected", Err: err}
}

func serialFor(deviceID string) string {
	s := strings.ToUpper(strings.ReplaceAll(deviceID, ":", ""))
	if len(s) > 13 {
		s = s[len(s)-13:]
	}
	return s
}
