package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndependenceKnownTable(t *testing.T) {
	// 60 sends / 9 replies vs 55 sends / 3 replies.
	// Hand-computed with Yates correction: chi2 ~= 1.870, p ~= 0.171.
	r, err := Independence([]Observation{
		{Sends: 60, Replies: 9},
		{Sends: 55, Replies: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r.DF)
	assert.InDelta(t, 1.870, r.ChiSquare, 0.01)
	assert.InDelta(t, 0.171, r.PValue, 0.005)
}

func TestIndependenceStrongSignal(t *testing.T) {
	r, err := Independence([]Observation{
		{Sends: 500, Replies: 100},
		{Sends: 500, Replies: 30},
	})
	require.NoError(t, err)
	assert.Less(t, r.PValue, 0.001)
}

func TestIndependenceNoSignal(t *testing.T) {
	r, err := Independence([]Observation{
		{Sends: 200, Replies: 20},
		{Sends: 200, Replies: 21},
	})
	require.NoError(t, err)
	assert.Greater(t, r.PValue, 0.5)
}

func TestIndependenceThreeGroups(t *testing.T) {
	r, err := Independence([]Observation{
		{Sends: 100, Replies: 10},
		{Sends: 100, Replies: 12},
		{Sends: 100, Replies: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, r.DF)
	// Third variant is far ahead; clearly significant.
	assert.Less(t, r.PValue, 0.01)
}

func TestIndependenceSkipsZeroSendVariants(t *testing.T) {
	// The zero-send variant contributes no row; two rows remain.
	r, err := Independence([]Observation{
		{Sends: 100, Replies: 10},
		{Sends: 0, Replies: 0},
		{Sends: 100, Replies: 11},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r.DF)
}

func TestIndependenceTooFewGroups(t *testing.T) {
	_, err := Independence([]Observation{{Sends: 100, Replies: 10}})
	assert.ErrorIs(t, err, ErrTooFewGroups)

	_, err = Independence([]Observation{{Sends: 100, Replies: 10}, {Sends: 0}})
	assert.ErrorIs(t, err, ErrTooFewGroups)
}

func TestIndependenceDegenerate(t *testing.T) {
	_, err := Independence([]Observation{
		{Sends: 100, Replies: 0},
		{Sends: 100, Replies: 0},
	})
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestChiSquareSFEdges(t *testing.T) {
	assert.Equal(t, 1.0, chiSquareSF(0, 1))
	assert.Equal(t, 1.0, chiSquareSF(-3, 5))
	// df=1: chi2 of 3.841 sits at p = 0.05.
	assert.InDelta(t, 0.05, chiSquareSF(3.841, 1), 0.001)
	// df=2: p = exp(-x/2); 5.991 sits at 0.05.
	assert.InDelta(t, 0.05, chiSquareSF(5.991, 2), 0.001)
	// df=5: 11.070 sits at 0.05; Wilson-Hilferty branch.
	assert.InDelta(t, 0.05, chiSquareSF(11.070, 5), 0.003)
	assert.Less(t, chiSquareSF(1000, 5), 1e-9)
}

func TestChiSquareBackend(t *testing.T) {
	var b Backend = ChiSquare{}
	p, err := b.PValue([]Observation{
		{Sends: 60, Replies: 9},
		{Sends: 55, Replies: 3},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.171, p, 0.005)
}
