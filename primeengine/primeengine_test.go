package primeengine

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchProducesPrimeOfRequestedBitLength(t *testing.T) {
	n, err := Search(context.Background(), 128, 4)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 128, n.BitLen())
	assert.True(t, passesTrialDivision(n))
	assert.True(t, passesFermat(n))
	assert.True(t, passesMillerRabin(n, 10))
}

func TestPassesTrialDivisionAcceptsSmallPrimesThemselves(t *testing.T) {
	for _, p := range smallPrimes {
		assert.True(t, passesTrialDivision(big.NewInt(p)), "prime %d should pass", p)
	}
}

func TestPassesTrialDivisionRejectsMultiples(t *testing.T) {
	assert.False(t, passesTrialDivision(big.NewInt(91))) // 7*13
	assert.False(t, passesTrialDivision(big.NewInt(9)))  // 3*3
}

func TestMillerRabinRejectsEven(t *testing.T) {
	assert.False(t, passesMillerRabin(big.NewInt(1000), 10))
}

func TestMillerRabinKnownPrime(t *testing.T) {
	assert.True(t, passesMillerRabin(big.NewInt(104729), 10))
}

func TestMillerRabinKnownComposite(t *testing.T) {
	assert.False(t, passesMillerRabin(big.NewInt(121), 10)) // 11*11
}

func TestSearchWithMultipleWorkersDoesNotDeadlock(t *testing.T) {
	n, err := Search(context.Background(), 64, 8)
	require.NoError(t, err)
	assert.Equal(t, 64, n.BitLen())
}
