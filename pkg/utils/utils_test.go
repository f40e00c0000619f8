package utils

import (
	"math"
	"testing"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("hi", 5); got != "hi" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("hello", 0); got != "hello" {
		t.Errorf("Truncate zero = %q", got)
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("one two three four", 2); got != "one two..." {
		t.Errorf("TruncateWords = %q", got)
	}
	if got := TruncateWords("one two", 5); got != "one two" {
		t.Errorf("TruncateWords short = %q", got)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("norm^2 = %f, want 1", sum)
	}

	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector should be unchanged")
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(0.12345); got != 0.12 {
		t.Errorf("Round2 = %f", got)
	}
	if got := Round2(0.955); got != 0.96 {
		t.Errorf("Round2 = %f", got)
	}
}
