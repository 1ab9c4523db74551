package tracking

import (
	"math"
	"testing"
)

func TestUpdateEmbeddingBlendsAndNormalizes(t *testing.T) {
	current := []float64{1, 0}
	observed := []float64{0, 1}

	out := UpdateEmbedding(current, observed, 0.7)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}

	norm := math.Sqrt(out[0]*out[0] + out[1]*out[1])
	if math.Abs(norm-1.0) > 1e-9 {
		t.Errorf("norm = %v, want 1.0", norm)
	}

	// alpha weights the existing embedding, so the result leans toward it.
	if out[0] <= out[1] {
		t.Errorf("blend = %v, want first component dominant", out)
	}
}

func TestUpdateEmbeddingEmptyCurrent(t *testing.T) {
	observed := []float64{3, 4}
	out := UpdateEmbedding(nil, observed, 0.7)
	if out[0] != 3 || out[1] != 4 {
		t.Errorf("first observation = %v, want copy of %v", out, observed)
	}
	// The copy must not alias the observation.
	observed[0] = 9
	if out[0] != 3 {
		t.Error("embedding aliases the observation slice")
	}
}

func TestUpdateEmbeddingZeroObservation(t *testing.T) {
	current := []float64{1, 0}
	out := UpdateEmbedding(current, []float64{0, 0}, 0.7)
	if out[0] != 1 || out[1] != 0 {
		t.Errorf("zero observation changed embedding to %v", out)
	}
}

func TestCosineDistance(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 0}, []float64{1, 0}, 0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, 2},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 1},
		{"length mismatch", []float64{1, 0}, []float64{1}, 1},
	}
	for _, tc := range cases {
		got := CosineDistance(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: CosineDistance = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestEmbeddingStabilityRange(t *testing.T) {
	if got := EmbeddingStability([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("identical stability = %v, want 1.0", got)
	}
	if got := EmbeddingStability([]float64{1, 0}, []float64{-1, 0}); math.Abs(got) > 1e-9 {
		t.Errorf("opposite stability = %v, want 0", got)
	}
	if got := EmbeddingStability(nil, []float64{1, 0}); got != 0.5 {
		t.Errorf("degenerate stability = %v, want 0.5", got)
	}
}
