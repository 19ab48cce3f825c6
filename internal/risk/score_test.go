package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		final   float64
		sev     float64
		age     int
		chronic bool
		want    float64
	}{
		{"exact match elderly chronic clamps", 0.9, 0.7, 60, true, 1.0},
		{"baseline adult", 0.5, 0.5, 30, false, 0.5},
		{"age at threshold unaffected", 0.5, 0.5, 50, false, 0.5},
		{"age above threshold scales", 0.5, 0.5, 70, false, 0.55},
		{"chronic scales", 0.5, 0.5, 30, true, 0.6},
		{"zero inputs", 0, 0, 30, false, 0},
		{"rounded to three places", 0.3333, 0.1111, 30, false, 0.244},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.final, tt.sev, tt.age, tt.chronic), 1e-9)
		})
	}
}

func TestScore_BoundedAndRounded(t *testing.T) {
	for f := 0.0; f <= 1.0; f += 0.05 {
		for s := 0.0; s <= 1.0; s += 0.1 {
			for _, age := range []int{0, 18, 50, 51, 80, 120} {
				for _, chronic := range []bool{false, true} {
					got := Score(f, s, age, chronic)
					assert.GreaterOrEqual(t, got, 0.0)
					assert.LessOrEqual(t, got, 1.0)
					assert.InDelta(t, got, math.Round(got*1000)/1000, 1e-12)
				}
			}
		}
	}
}

func TestScore_Monotonic(t *testing.T) {
	for _, chronic := range []bool{false, true} {
		prev := -1.0
		for f := 0.0; f <= 1.0; f += 0.01 {
			got := Score(f, 0.4, 40, chronic)
			assert.GreaterOrEqual(t, got, prev, "finalScore %.2f", f)
			prev = got
		}

		prev = -1.0
		for s := 0.0; s <= 1.0; s += 0.01 {
			got := Score(0.3, s, 40, chronic)
			assert.GreaterOrEqual(t, got, prev, "severity %.2f", s)
			prev = got
		}

		prev = -1.0
		for age := 51; age <= 110; age++ {
			got := Score(0.4, 0.3, age, chronic)
			assert.GreaterOrEqual(t, got, prev, "age %d", age)
			prev = got
		}
	}
}

func TestScore_AgeAtOrBelowThresholdIgnored(t *testing.T) {
	want := Score(0.6, 0.6, 50, false)
	for age := 0; age <= 50; age++ {
		assert.Equal(t, want, Score(0.6, 0.6, age, false))
	}
}

func TestScore_NegativeInputsClampToZero(t *testing.T) {
	assert.Equal(t, 0.0, Score(-1, -1, 30, false))
}
