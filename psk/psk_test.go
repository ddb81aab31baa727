package psk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestGrayInvertibleV26(t *testing.T) {
	for k := 0; k < 4; k++ {
		assert.Equal(t, k, PhaseForGray(Four, GrayForPhase(Four, k)))
	}
}

func TestGrayInvertibleV27(t *testing.T) {
	for k := 0; k < 8; k++ {
		assert.Equal(t, k, PhaseForGray(Eight, GrayForPhase(Eight, k)))
	}
}

func TestGrayInvertiblePropertyBased(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		orderIsEight := rapid.Bool().Draw(t, "order")
		order := Four
		max := 4
		if orderIsEight {
			order = Eight
			max = 8
		}
		k := rapid.IntRange(0, max-1).Draw(t, "k")
		assert.Equal(t, k, PhaseForGray(order, GrayForPhase(order, k)))
	})
}

func TestClassifyExactConstellationPoints(t *testing.T) {
	for k := 0; k < 4; k++ {
		phi := float64(k) * 2 * 3.14159265358979 / 4
		bits, quals := classify(phi, Four)
		for _, q := range quals {
			assert.GreaterOrEqual(t, q, 90)
		}
		_ = bits
	}
}
