package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for pagination walks.
var (
	ncmPagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ncm_pages_fetched_total",
		Help: "Total pages fetched during pagination walks",
	}, []string{"endpoint"})

	ncmPartialWalksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ncm_partial_walks_total",
		Help: "Total walks that returned partial results",
	}, []string{"endpoint"})
)

// paginate walks ep following the server's continuation cursor until
// exhaustion or q.Limit records, whichever comes first. Records come back
// in server order; walks are not snapshot reads, so no deduplication is
// attempted. On a terminal mid-walk failure the accumulated records are
// returned together with a *PartialError.
func (c *Client) paginate(ctx context.Context, ep Endpoint, q *Query) ([]Record, error) {
	pageURL := c.collectionURL(ep, q.encode(ep))

	var records []Record
	pages := 0

	for {
		body, err := c.dispatch(ctx, http.MethodGet, ep, pageURL, nil)
		if err != nil {
			if pages == 0 {
				return nil, err
			}
			ncmPartialWalksTotal.WithLabelValues(ep.Name).Inc()
			c.logger.Error().
				Err(err).
				Str("endpoint", ep.Name).
				Int("pages", pages).
				Int("records", len(records)).
				Msg("Walk terminated early, returning partial result")
			return records, &PartialError{Endpoint: ep.Name, Fetched: len(records), Err: err}
		}

		page, err := decodePage(ep, body)
		if err != nil {
			if pages == 0 {
				return nil, err
			}
			ncmPartialWalksTotal.WithLabelValues(ep.Name).Inc()
			return records, &PartialError{Endpoint: ep.Name, Fetched: len(records), Err: err}
		}

		pages++
		ncmPagesFetchedTotal.WithLabelValues(ep.Name).Inc()
		records = append(records, page.Records...)

		c.logger.Debug().
			Str("endpoint", ep.Name).
			Int("page", pages).
			Int("page_records", len(page.Records)).
			Int("records", len(records)).
			Bool("has_next", page.Next != "").
			Msg("Page fetched")

		if q.Limit > 0 && len(records) >= q.Limit {
			records = records[:q.Limit]
			break
		}
		if page.Next == "" || len(page.Records) == 0 {
			break
		}
		pageURL = page.Next
	}

	c.logger.Info().
		Str("endpoint", ep.Name).
		Int("pages", pages).
		Int("records", len(records)).
		Msg("Walk completed")

	return records, nil
}

// collectionURL joins the endpoint path with its encoded query parameters.
func (c *Client) collectionURL(ep Endpoint, params url.Values) string {
	base := c.config.BaseURLV2
	if ep.Version == V3 {
		base = c.config.BaseURLV3
	}
	u := base + ep.Path
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// resourceURL is collectionURL without query parameters, for single-resource
// and mutation calls.
func (c *Client) resourceURL(ep Endpoint) string {
	return c.collectionURL(ep, nil)
}
