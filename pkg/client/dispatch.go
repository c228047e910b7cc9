package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for request dispatch.
var (
	ncmRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ncm_requests_total",
		Help: "Total NCM requests by endpoint, method, and status",
	}, []string{"endpoint", "method", "status"})

	ncmRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ncm_request_duration_seconds",
		Help:    "NCM request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	ncmErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ncm_errors_total",
		Help: "Total NCM errors by class",
	}, []string{"class"})
)

// dispatch performs one logical request against rawURL: auth header
// selection, pacing, bounded retry, and outcome classification. It returns
// the raw response body; nil with a nil error means "404 on a collection",
// which decodes as an empty page.
func (c *Client) dispatch(ctx context.Context, method string, ep Endpoint, rawURL string, body []byte) ([]byte, error) {
	state := c.state.Load()

	headers, err := headersFor(ep, state)
	if err != nil {
		ncmErrorsTotal.WithLabelValues(string(ErrorClassConfig)).Inc()
		return nil, err
	}

	logger := c.logger.With().
		Str("request_id", uuid.NewString()).
		Str("endpoint", ep.Name).
		Str("api_version", string(ep.Version)).
		Str("method", method).
		Logger()

	startTime := time.Now()
	defer func() {
		ncmRequestDuration.WithLabelValues(ep.Name).Observe(time.Since(startTime).Seconds())
	}()

	var out []byte
	attempt := 0

	retryErr := retryWithBackoff(ctx, c.config.Retry, logger, func() error {
		attempt++

		// Conservative spacing below the upstream's undocumented per-key rate.
		if err := state.pacer.Wait(ctx); err != nil {
			return &APIError{
				Class:    ErrorClassTransport,
				Endpoint: ep.Name,
				Attempts: attempt,
				Message:  "pacer wait cancelled",
				Err:      err,
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
		if err != nil {
			return &APIError{
				Class:    ErrorClassRequest,
				Endpoint: ep.Name,
				Attempts: attempt,
				Message:  "build request",
				Err:      err,
			}
		}
		for key, values := range headers {
			for _, value := range values {
				req.Header.Set(key, value)
			}
		}

		logger.Debug().Int("attempt", attempt).Msg("Dispatching NCM request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			ncmErrorsTotal.WithLabelValues(string(ErrorClassTransport)).Inc()
			ncmRequestsTotal.WithLabelValues(ep.Name, method, "transport_error").Inc()
			return &APIError{
				Class:    ErrorClassTransport,
				Endpoint: ep.Name,
				Attempts: attempt,
				Message:  "transport failure",
				Err:      err,
			}
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			ncmErrorsTotal.WithLabelValues(string(ErrorClassTransport)).Inc()
			return &APIError{
				Class:      ErrorClassTransport,
				StatusCode: resp.StatusCode,
				Endpoint:   ep.Name,
				Attempts:   attempt,
				Message:    "read response body",
				Err:        err,
			}
		}

		ncmRequestsTotal.WithLabelValues(ep.Name, method, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode < 300 {
			out = respBody
			return nil
		}

		// Collection reads tolerate 404: the resource set is simply empty.
		if resp.StatusCode == http.StatusNotFound && ep.Collection && method == http.MethodGet {
			out = nil
			return nil
		}

		apiErr := c.classifyStatus(ctx, resp, ep, attempt, respBody, state)
		ncmErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()

		logger.Warn().
			Int("status_code", resp.StatusCode).
			Str("error_class", string(apiErr.Class)).
			Int("attempt", attempt).
			Msg("NCM request error")

		return apiErr
	})

	if retryErr != nil {
		return nil, retryErr
	}
	return out, nil
}

// classifyStatus maps an error status to the taxonomy and records any
// server-imposed cooldown with the pacer.
func (c *Client) classifyStatus(ctx context.Context, resp *http.Response, ep Endpoint, attempt int, body []byte, state *credState) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Endpoint:   ep.Name,
		Attempts:   attempt,
		Message:    resp.Status,
		Body:       body,
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		apiErr.Class = ErrorClassAuth
	case resp.StatusCode == http.StatusNotFound:
		apiErr.Class = ErrorClassNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr.Class = ErrorClassRateLimit
		if d := parseRetryAfter(resp.Header.Get("Retry-After")); d > 0 {
			apiErr.RetryAfter = d
			state.pacer.NoteRetryAfter(ctx, d)
		}
	case resp.StatusCode >= 500:
		apiErr.Class = ErrorClassServer
	default:
		apiErr.Class = ErrorClassRequest
	}

	return apiErr
}

// headersFor selects auth headers for the endpoint's surface. A v3 endpoint
// needs the bearer token; a v2 endpoint needs all four legacy headers.
// Missing key material fails fast before any network call.
func headersFor(ep Endpoint, state *credState) (http.Header, error) {
	headers := http.Header{}
	creds := state.creds

	switch ep.Version {
	case V3:
		if !creds.HasV3() {
			return nil, &APIError{
				Class:    ErrorClassConfig,
				Endpoint: ep.Name,
				Message:  "v3 endpoint requires a bearer token",
			}
		}
		headers.Set("Authorization", "Bearer "+creds.Token)
		headers.Set("Content-Type", "application/vnd.api+json")
		headers.Set("Accept", "application/vnd.api+json")
	default:
		if !creds.HasV2() {
			return nil, &APIError{
				Class:    ErrorClassConfig,
				Endpoint: ep.Name,
				Message:  "v2 endpoint requires all four legacy API keys",
			}
		}
		headers.Set("X-CP-API-ID", creds.APIID)
		headers.Set("X-CP-API-KEY", creds.APIKey)
		headers.Set("X-ECM-API-ID", creds.ECMID)
		headers.Set("X-ECM-API-KEY", creds.ECMKey)
		headers.Set("Content-Type", "application/json")
		headers.Set("Accept", "application/json")
	}

	return headers, nil
}

// parseRetryAfter handles both forms of the header: delay seconds and an
// HTTP-date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// collectionPage is the paginated envelope shared by both surfaces: v2
// carries the continuation cursor in meta.next, v3 in links.next.
type collectionPage struct {
	Records []Record
	Next    string
}

// decodePage decodes one collection response body. A nil body (404 on a
// collection) decodes as an exhausted empty page.
func decodePage(ep Endpoint, body []byte) (collectionPage, error) {
	if len(body) == 0 {
		return collectionPage{}, nil
	}

	var envelope struct {
		Data []Record `json:"data"`
		Meta struct {
			Next *string `json:"next"`
		} `json:"meta"`
		Links struct {
			Next *string `json:"next"`
		} `json:"links"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return collectionPage{}, fmt.Errorf("decode %s page: %w", ep.Name, err)
	}

	page := collectionPage{Records: envelope.Data}
	switch ep.Version {
	case V3:
		if envelope.Links.Next != nil {
			page.Next = *envelope.Links.Next
		}
	default:
		if envelope.Meta.Next != nil {
			page.Next = *envelope.Meta.Next
		}
	}
	return page, nil
}

// decodeResource decodes a single-resource body: v3 wraps the record in a
// data envelope, v2 returns it bare.
func decodeResource(ep Endpoint, body []byte) (Record, error) {
	if len(body) == 0 {
		return nil, nil
	}

	if ep.Version == V3 {
		var envelope struct {
			Data Record `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
			return envelope.Data, nil
		}
	}

	var record Record
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("decode %s resource: %w", ep.Name, err)
	}
	return record, nil
}
