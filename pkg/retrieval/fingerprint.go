package retrieval

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
)

// Modality distinguishes text and image queries in the cache key space.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// quantization step applied to each component before hashing, so that
// float noise below 1e-4 maps to the same fingerprint.
const quantStep = 1e-4

// Fingerprint returns a deterministic hash of (modality, topK, quantized
// query vector). Identical queries always produce identical fingerprints.
func Fingerprint(modality Modality, topK int, vector []float32) string {
	h := fnv.New64a()
	h.Write([]byte(modality))

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(topK))
	h.Write(buf[:])

	for _, v := range vector {
		q := int64(math.Round(float64(v) / quantStep))
		binary.LittleEndian.PutUint64(buf[:], uint64(q))
		h.Write(buf[:])
	}

	return fmt.Sprintf("%s:%d:%016x", modality, topK, h.Sum64())
}
