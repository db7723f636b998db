package retrieval

import (
	"errors"
	"fmt"

	"derm-triage-be/pkg/vectorindex"
)

// ErrUnavailable is returned when the index is down and no cached result
// exists for the fingerprint.
var ErrUnavailable = errors.New("retrieval unavailable")

// Searcher is the slice of the vector index the retriever depends on.
type Searcher interface {
	Search(query []float32, topK int) ([]vectorindex.Hit, error)
}

// Retriever composes the vector index with the retrieval cache. Degrading to
// a stale cache entry when the index fails is a deliberate
// availability-over-freshness trade-off: a triage session must not fail
// outright because the index is briefly down.
type Retriever struct {
	index Searcher
	cache *Cache
}

func NewRetriever(index Searcher, cache *Cache) *Retriever {
	return &Retriever{index: index, cache: cache}
}

// QueryByText retrieves similar reference cases for a text embedding.
func (r *Retriever) QueryByText(embedding []float32, topK int) (*Result, error) {
	return r.query(ModalityText, embedding, topK)
}

// QueryByImage retrieves similar reference cases for an image embedding.
func (r *Retriever) QueryByImage(embedding []float32, topK int) (*Result, error) {
	return r.query(ModalityImage, embedding, topK)
}

func (r *Retriever) query(modality Modality, embedding []float32, topK int) (*Result, error) {
	fingerprint := Fingerprint(modality, topK, embedding)

	if cached, found := r.cache.Get(fingerprint); found {
		cached.ServedFromCache = true
		cached.Degraded = false
		return cached, nil
	}

	hits, err := r.index.Search(embedding, topK)
	if err != nil {
		if errors.Is(err, vectorindex.ErrInvalidTopK) || errors.Is(err, vectorindex.ErrDimMismatch) || errors.Is(err, vectorindex.ErrEmptyVector) {
			// Caller bug, not an availability problem. Never served stale.
			return nil, err
		}
		if stale, found := r.cache.GetStale(fingerprint); found {
			stale.ServedFromCache = true
			stale.Degraded = true
			return stale, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result := &Result{
		QueryFingerprint: fingerprint,
		Hits:             hits,
	}
	r.cache.Set(fingerprint, result)

	return result, nil
}
