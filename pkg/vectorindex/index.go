package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	ErrInvalidTopK = errors.New("topK must be positive")
	ErrEmptyVector = errors.New("query vector is empty")
	ErrDimMismatch = errors.New("vector dimension mismatch")
)

// Record is one indexed reference case. Metadata is returned verbatim on hits.
type Record struct {
	RecordID string                 `json:"record_id"`
	Vector   []float32              `json:"vector"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Hit is a single search result.
type Hit struct {
	RecordID string                 `json:"record_id"`
	Score    float32                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

type snapshot struct {
	records []Record
	norms   []float32
}

// Index is an in-memory exact nearest-neighbor store over cosine similarity.
// Readers always operate on an immutable snapshot, so Search never observes a
// partially applied Add or Replace.
type Index struct {
	dimension int

	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[snapshot]
}

func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	ix := &Index{dimension: dimension}
	ix.snap.Store(&snapshot{})
	return ix, nil
}

func (ix *Index) Dimension() int {
	return ix.dimension
}

func (ix *Index) Len() int {
	return len(ix.snap.Load().records)
}

// Add appends records. The new snapshot is swapped in atomically.
func (ix *Index) Add(records []Record) error {
	return ix.update(func(old []Record) []Record {
		merged := make([]Record, 0, len(old)+len(records))
		merged = append(merged, old...)
		merged = append(merged, records...)
		return merged
	}, records)
}

// Replace swaps the whole corpus, used for index rebuilds.
func (ix *Index) Replace(records []Record) error {
	return ix.update(func([]Record) []Record {
		out := make([]Record, len(records))
		copy(out, records)
		return out
	}, records)
}

func (ix *Index) update(build func(old []Record) []Record, incoming []Record) error {
	for _, r := range incoming {
		if len(r.Vector) != ix.dimension {
			return fmt.Errorf("%w: record %s has dimension %d, want %d", ErrDimMismatch, r.RecordID, len(r.Vector), ix.dimension)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	records := build(ix.snap.Load().records)
	norms := make([]float32, len(records))
	for i, r := range records {
		norms[i] = norm(r.Vector)
	}
	ix.snap.Store(&snapshot{records: records, norms: norms})
	return nil
}

// Search scans the whole corpus and returns up to topK hits ordered by
// descending cosine similarity. Ties keep insertion order so results are
// deterministic. Scores are in [-1, 1]; nothing is filtered.
func (ix *Index) Search(query []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}
	if len(query) == 0 {
		return nil, ErrEmptyVector
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d", ErrDimMismatch, len(query), ix.dimension)
	}

	snap := ix.snap.Load()
	if len(snap.records) == 0 {
		return []Hit{}, nil
	}

	queryNorm := norm(query)

	type scored struct {
		idx   int
		score float32
	}
	scores := make([]scored, len(snap.records))
	for i, r := range snap.records {
		scores[i] = scored{idx: i, score: cosine(query, queryNorm, r.Vector, snap.norms[i])}
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})

	if topK > len(scores) {
		topK = len(scores)
	}

	hits := make([]Hit, 0, topK)
	for i := 0; i < topK; i++ {
		rec := snap.records[scores[i].idx]
		hits = append(hits, Hit{
			RecordID: rec.RecordID,
			Score:    scores[i].score,
			Metadata: rec.Metadata,
		})
	}
	return hits, nil
}

func cosine(a []float32, normA float32, b []float32, normB float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	denom := normA * normB
	if denom < 1e-8 {
		return 0
	}
	return dot / denom
}

func norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}
