package util

import (
	"math"
	"testing"
)

func TestMeanEmpty(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestStdDevPopulation(t *testing.T) {
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2) > 1e-9 {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestPearsonPerfectCorrelation(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	ys := []float64{2, 4, 6, 8}
	if got := Pearson(xs, ys); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected 1, got %v", got)
	}
}

func TestPearsonZeroVariance(t *testing.T) {
	if got := Pearson([]float64{1, 1, 1}, []float64{2, 4, 6}); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{1, 0}
	if got := CosineSimilarity(a, b); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := CosineSimilarity(a, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := CosineSimilarity(a, []float64{0, 0}); got != 0 {
		t.Fatalf("zero magnitude should yield 0, got %v", got)
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(-0.5) != 0 || Clamp01(1.5) != 1 || Clamp01(0.3) != 0.3 {
		t.Fatalf("clamp misbehaved")
	}
	if Clamp01(math.NaN()) != 0 {
		t.Fatalf("NaN should clamp to 0")
	}
}
