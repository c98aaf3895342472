package ingest

import (
	"context"
	"errors"
	"testing"
)

// fakeEmbedder records batch sizes and fails on demand.
type fakeEmbedder struct {
	batches   [][]string
	failCalls map[int]int // call index -> times to fail
	calls     int
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	call := f.calls
	f.calls++
	f.batches = append(f.batches, texts)
	if remaining, ok := f.failCalls[call]; ok && remaining > 0 {
		f.failCalls[call]--
		return nil, errors.New("embedding backend down")
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{1, 2, 3}
	}
	return vectors, nil
}

func TestBatchEmbedder_SplitsBatches(t *testing.T) {
	fake := &fakeEmbedder{}
	e := NewBatchEmbedder(fake, 2, 0)

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, failed, err := e.EmbedAll(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedAll() error = %v", err)
	}
	if failed != 0 {
		t.Errorf("failed = %d, want 0", failed)
	}
	if len(vectors) != 5 {
		t.Fatalf("got %d vectors, want 5", len(vectors))
	}
	for i, v := range vectors {
		if v == nil {
			t.Errorf("vector %d is nil", i)
		}
	}

	wantBatches := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if len(fake.batches) != len(wantBatches) {
		t.Fatalf("got %d batches, want %d", len(fake.batches), len(wantBatches))
	}
	for i, batch := range fake.batches {
		if len(batch) != len(wantBatches[i]) {
			t.Errorf("batch %d size = %d, want %d", i, len(batch), len(wantBatches[i]))
		}
	}
}

func TestBatchEmbedder_RetriesTransientFailure(t *testing.T) {
	// First call fails once, then succeeds on retry.
	fake := &fakeEmbedder{failCalls: map[int]int{0: 1}}
	e := NewBatchEmbedder(fake, 10, 0)

	vectors, failed, err := e.EmbedAll(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedAll() error = %v", err)
	}
	if failed != 0 {
		t.Errorf("failed = %d, want 0 after retry", failed)
	}
	if vectors[0] == nil || vectors[1] == nil {
		t.Error("retry should have produced vectors")
	}
}

func TestBatchEmbedder_SkipsPersistentlyFailingBatch(t *testing.T) {
	// First batch fails every attempt; second batch succeeds.
	fake := &fakeEmbedder{failCalls: map[int]int{0: embedMaxRetries, 1: embedMaxRetries, 2: embedMaxRetries}}
	e := NewBatchEmbedder(fake, 2, 0)

	vectors, failed, err := e.EmbedAll(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedAll() error = %v", err)
	}
	if failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}
	if vectors[0] != nil || vectors[1] != nil {
		t.Error("failed batch entries should be nil")
	}
	if vectors[2] == nil {
		t.Error("later batch should still be embedded")
	}
}

func TestBatchEmbedder_ContextCancelled(t *testing.T) {
	fake := &fakeEmbedder{}
	e := NewBatchEmbedder(fake, 2, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := e.EmbedAll(ctx, []string{"a"})
	if err == nil {
		t.Error("EmbedAll() with cancelled context should error")
	}
}
