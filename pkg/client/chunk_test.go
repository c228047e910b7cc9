package client

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestChunkValues(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		size       int
		wantChunks int
	}{
		{name: "under cap", count: 50, size: 100, wantChunks: 1},
		{name: "exactly cap", count: 100, size: 100, wantChunks: 1},
		{name: "one over cap", count: 101, size: 100, wantChunks: 2},
		{name: "several chunks", count: 250, size: 100, wantChunks: 3},
		{name: "empty input", count: 0, size: 100, wantChunks: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]string, tt.count)
			for i := range values {
				values[i] = fmt.Sprintf("id%d", i)
			}

			chunks := chunkValues(values, tt.size)
			if len(chunks) != tt.wantChunks {
				t.Fatalf("chunkValues() produced %d chunks, want %d", len(chunks), tt.wantChunks)
			}

			// Disjoint by construction, union equals input, order preserved.
			var flattened []string
			for i, chunk := range chunks {
				if len(chunk) > tt.size {
					t.Errorf("chunk %d has %d values, cap is %d", i, len(chunk), tt.size)
				}
				flattened = append(flattened, chunk...)
			}
			if !reflect.DeepEqual(flattened, values) && tt.count > 0 {
				t.Error("concatenated chunks differ from input")
			}
		})
	}
}

func TestChunkValues_Deterministic(t *testing.T) {
	values := make([]string, 237)
	for i := range values {
		values[i] = fmt.Sprintf("id%d", i)
	}

	first := chunkValues(values, 100)
	for run := 0; run < 5; run++ {
		again := chunkValues(values, 100)
		if !reflect.DeepEqual(first, again) {
			t.Fatal("repeated chunking of the same input produced different chunks")
		}
	}
}

func TestMergeChunks_AllComplete(t *testing.T) {
	results := []chunkResult{
		{records: []Record{{"id": "1"}, {"id": "2"}}, done: true},
		{records: []Record{{"id": "3"}}, done: true},
	}

	merged, err := mergeChunks(EndpointRouters, results)
	if err != nil {
		t.Fatalf("mergeChunks() error = %v", err)
	}
	if len(merged) != 3 {
		t.Errorf("merged %d records, want 3", len(merged))
	}
	if merged[0]["id"] != "1" || merged[2]["id"] != "3" {
		t.Error("merge did not preserve chunk order")
	}
}

func TestMergeChunks_PrefixOnFailure(t *testing.T) {
	cause := &APIError{Class: ErrorClassServer, StatusCode: 500, Endpoint: "routers"}
	results := []chunkResult{
		{records: []Record{{"id": "1"}}, done: true},
		{err: cause, done: true},
		{}, // abandoned
	}

	merged, err := mergeChunks(EndpointRouters, results)

	var partial *PartialError
	if !errors.As(err, &partial) {
		t.Fatalf("mergeChunks() error = %v, want PartialError", err)
	}
	if len(merged) != 1 || partial.Fetched != 1 {
		t.Errorf("merged %d records (Fetched=%d), want complete prefix of 1", len(merged), partial.Fetched)
	}
	if !errors.Is(err, cause) {
		t.Error("PartialError should wrap the failing chunk's error")
	}
}

func TestMergeChunks_LaterFailureKeepsPrefix(t *testing.T) {
	// Parallel walks: chunk 0 incomplete, chunk 1 finished. Only the
	// complete prefix (nothing) is returned.
	cause := &APIError{Class: ErrorClassTransport, Endpoint: "routers"}
	results := []chunkResult{
		{err: cause, done: true},
		{records: []Record{{"id": "9"}}, done: true},
	}

	merged, err := mergeChunks(EndpointRouters, results)

	var partial *PartialError
	if !errors.As(err, &partial) {
		t.Fatalf("mergeChunks() error = %v, want PartialError", err)
	}
	if len(merged) != 0 {
		t.Errorf("merged %d records, want empty prefix before failed chunk", len(merged))
	}
}
