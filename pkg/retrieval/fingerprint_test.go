package retrieval

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	v := []float32{0.1, 0.2, 0.3}
	a := Fingerprint(ModalityText, 5, v)
	b := Fingerprint(ModalityText, 5, []float32{0.1, 0.2, 0.3})
	if a != b {
		t.Errorf("identical queries produced different fingerprints: %s vs %s", a, b)
	}
}

func TestFingerprintAbsorbsSubQuantumNoise(t *testing.T) {
	a := Fingerprint(ModalityText, 5, []float32{0.5})
	b := Fingerprint(ModalityText, 5, []float32{0.500001})
	if a != b {
		t.Errorf("noise below the quantization step changed the fingerprint")
	}
}

func TestFingerprintDistinguishesInputs(t *testing.T) {
	base := Fingerprint(ModalityText, 5, []float32{0.1, 0.2})

	if got := Fingerprint(ModalityImage, 5, []float32{0.1, 0.2}); got == base {
		t.Error("modality change did not change the fingerprint")
	}
	if got := Fingerprint(ModalityText, 7, []float32{0.1, 0.2}); got == base {
		t.Error("topK change did not change the fingerprint")
	}
	if got := Fingerprint(ModalityText, 5, []float32{0.1, 0.3}); got == base {
		t.Error("vector change did not change the fingerprint")
	}
}
