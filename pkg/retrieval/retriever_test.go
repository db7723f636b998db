package retrieval

import (
	"errors"
	"testing"
	"time"

	"derm-triage-be/pkg/vectorindex"
)

type stubSearcher struct {
	hits  []vectorindex.Hit
	err   error
	calls int
}

func (s *stubSearcher) Search(query []float32, topK int) ([]vectorindex.Hit, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func newTestCache() *Cache {
	return NewCache(time.Minute, 5*time.Minute)
}

func TestQueryCachesAndFlagsSecondCall(t *testing.T) {
	searcher := &stubSearcher{hits: []vectorindex.Hit{{RecordID: "a", Score: 0.9}}}
	r := NewRetriever(searcher, newTestCache())
	query := []float32{0.1, 0.2}

	first, err := r.QueryByText(query, 5)
	if err != nil {
		t.Fatal(err)
	}
	if first.ServedFromCache || first.Degraded {
		t.Errorf("first call flags = cache:%v degraded:%v, want false/false", first.ServedFromCache, first.Degraded)
	}

	second, err := r.QueryByText(query, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !second.ServedFromCache {
		t.Error("second call should be served from cache")
	}
	if second.Degraded {
		t.Error("fresh cache hit must not be marked degraded")
	}
	if searcher.calls != 1 {
		t.Errorf("index searched %d times, want 1", searcher.calls)
	}
}

func TestQueryDegradesToStaleOnIndexFailure(t *testing.T) {
	searcher := &stubSearcher{hits: []vectorindex.Hit{{RecordID: "a", Score: 0.9}}}
	cache := NewCache(time.Millisecond, time.Minute)
	r := NewRetriever(searcher, cache)
	query := []float32{0.3, 0.4}

	if _, err := r.QueryByImage(query, 3); err != nil {
		t.Fatal(err)
	}

	// Let the fresh tier expire, then break the index.
	time.Sleep(10 * time.Millisecond)
	searcher.err = errors.New("index offline")

	result, err := r.QueryByImage(query, 3)
	if err != nil {
		t.Fatalf("expected stale degrade, got error %v", err)
	}
	if !result.ServedFromCache || !result.Degraded {
		t.Errorf("flags = cache:%v degraded:%v, want true/true", result.ServedFromCache, result.Degraded)
	}
	if len(result.Hits) != 1 || result.Hits[0].RecordID != "a" {
		t.Errorf("stale hits = %#v", result.Hits)
	}
}

func TestQueryUnavailableWithoutStale(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("index offline")}
	r := NewRetriever(searcher, newTestCache())

	_, err := r.QueryByText([]float32{1, 2}, 3)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}

func TestCallerBugsAreNeverServedStale(t *testing.T) {
	searcher := &stubSearcher{hits: []vectorindex.Hit{{RecordID: "a", Score: 0.9}}}
	cache := NewCache(time.Millisecond, time.Minute)
	r := NewRetriever(searcher, cache)
	query := []float32{0.5, 0.6}

	if _, err := r.QueryByText(query, 3); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	searcher.err = vectorindex.ErrDimMismatch

	_, err := r.QueryByText(query, 3)
	if !errors.Is(err, vectorindex.ErrDimMismatch) {
		t.Errorf("got %v, want ErrDimMismatch passed through", err)
	}
}

func TestCachedResultsAreIsolatedCopies(t *testing.T) {
	searcher := &stubSearcher{hits: []vectorindex.Hit{{RecordID: "a", Score: 0.9}}}
	r := NewRetriever(searcher, newTestCache())
	query := []float32{0.7, 0.8}

	first, _ := r.QueryByText(query, 3)
	first.Hits[0].RecordID = "mutated"

	second, _ := r.QueryByText(query, 3)
	if second.Hits[0].RecordID != "a" {
		t.Errorf("cache returned mutated entry: %s", second.Hits[0].RecordID)
	}
}
