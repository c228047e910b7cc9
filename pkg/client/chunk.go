package client

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MaxFilterValues is the upstream cap on values per membership filter.
// Larger value sets are split into chunks of at most this size.
const MaxFilterValues = 100

var ncmFilterChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ncm_filter_chunks_total",
	Help: "Total filter chunks produced by oversized membership filters",
}, []string{"endpoint"})

// chunkValues splits values into contiguous chunks of at most size, in input
// order. Chunks are pairwise disjoint and their union is the input, so the
// same input always chunks identically.
func chunkValues(values []string, size int) [][]string {
	if size <= 0 || len(values) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

// chunkResult is one chunk's walk outcome, merged by chunk index.
type chunkResult struct {
	records []Record
	err     error
	done    bool
}

// chunkedList runs one unbounded walk per chunk of the oversized filter at
// filterIdx and concatenates the results in chunk order. Chunked walks
// always run unbounded; a caller limit is not composed with chunking. When
// a chunk fails terminally the remaining chunks are abandoned and the
// records of the longest complete chunk prefix come back inside a
// *PartialError.
func (c *Client) chunkedList(ctx context.Context, ep Endpoint, q *Query, filterIdx int) ([]Record, error) {
	chunks := chunkValues(q.filters[filterIdx].Values, MaxFilterValues)
	ncmFilterChunksTotal.WithLabelValues(ep.Name).Add(float64(len(chunks)))

	c.logger.Debug().
		Str("endpoint", ep.Name).
		Str("filter", q.filters[filterIdx].Key).
		Int("values", len(q.filters[filterIdx].Values)).
		Int("chunks", len(chunks)).
		Msg("Splitting oversized filter into chunks")

	queries := make([]*Query, len(chunks))
	for i, chunk := range chunks {
		derived := q.clone()
		derived.filters[filterIdx].Values = chunk
		derived.Limit = 0
		queries[i] = derived
	}

	results := make([]chunkResult, len(chunks))
	if c.config.ChunkConcurrency > 1 {
		c.walkChunksParallel(ctx, ep, queries, results)
	} else {
		c.walkChunksSequential(ctx, ep, queries, results)
	}

	return mergeChunks(ep, results)
}

// walkChunksSequential walks chunks in order, stopping at the first failure.
func (c *Client) walkChunksSequential(ctx context.Context, ep Endpoint, queries []*Query, results []chunkResult) {
	for i, q := range queries {
		records, err := c.paginate(ctx, ep, q)
		results[i] = chunkResult{records: records, err: err, done: true}
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("endpoint", ep.Name).
				Int("chunk", i).
				Msg("Chunk walk failed, abandoning remaining chunks")
			return
		}
		c.logger.Debug().
			Str("endpoint", ep.Name).
			Int("chunk", i).
			Int("records", len(records)).
			Msg("Chunk walk completed")
	}
}

// walkChunksParallel fans chunk walks out over a bounded worker pool. Workers
// drain the index queue and stop on cancellation; per-chunk ordering is
// preserved because merging is by chunk index, not arrival time.
func (c *Client) walkChunksParallel(ctx context.Context, ep Endpoint, queries []*Query, results []chunkResult) {
	workers := c.config.ChunkConcurrency
	if workers > len(queries) {
		workers = len(queries)
	}

	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	indexQueue := make(chan int, len(queries))
	for i := range queries {
		indexQueue <- i
	}
	close(indexQueue)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexQueue {
				select {
				case <-walkCtx.Done():
					return
				default:
				}

				records, err := c.paginate(walkCtx, ep, queries[i])

				mu.Lock()
				results[i] = chunkResult{records: records, err: err, done: true}
				mu.Unlock()

				if err != nil {
					c.logger.Warn().
						Err(err).
						Str("endpoint", ep.Name).
						Int("chunk", i).
						Msg("Chunk walk failed, cancelling remaining chunks")
					cancel()
					return
				}
			}
		}()
	}

	wg.Wait()
}

// mergeChunks concatenates completed chunk results in chunk order. The merge
// stops at the first chunk that failed or never ran; everything before it is
// the longest complete prefix.
func mergeChunks(ep Endpoint, results []chunkResult) ([]Record, error) {
	var merged []Record
	var cause error

	for _, result := range results {
		if !result.done || result.err != nil {
			if result.err != nil {
				cause = result.err
			}
			break
		}
		merged = append(merged, result.records...)
	}

	if cause == nil {
		// Every prefix chunk completed; check nothing beyond failed.
		complete := true
		for _, result := range results {
			if !result.done || result.err != nil {
				complete = false
				if result.err != nil {
					cause = result.err
				}
			}
		}
		if complete {
			return merged, nil
		}
	}

	if cause == nil {
		// Only reachable when the caller's context died before any chunk
		// could record its own failure.
		cause = context.Canceled
	}

	ncmPartialWalksTotal.WithLabelValues(ep.Name).Inc()
	return merged, &PartialError{Endpoint: ep.Name, Fetched: len(merged), Err: cause}
}
