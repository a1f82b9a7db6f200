package coins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inventory(counts map[int]int) []Denomination {
	out := make([]Denomination, 0, len(counts))
	for nominal, count := range counts {
		out = append(out, Denomination{Nominal: nominal, Count: count})
	}
	return out
}

func TestMakeChange_SingleCoin(t *testing.T) {
	// due 100, paid 110, one ten-coin covers it
	breakdown, err := MakeChange(100, 110, inventory(map[int]int{10: 5, 5: 10, 2: 0, 1: 0}))
	require.NoError(t, err)
	assert.Equal(t, []CoinCount{{Denomination: 10, Quantity: 1}}, breakdown)
}

func TestMakeChange_StockShortByOne(t *testing.T) {
	// due 100, paid 103, only a single two-coin in stock
	_, err := MakeChange(100, 103, inventory(map[int]int{10: 0, 5: 0, 2: 1, 1: 0}))

	var cerr *ChangeUnavailableError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 3, cerr.Change)
	assert.Equal(t, 1, cerr.Remainder)
}

func TestMakeChange_ExactPayment(t *testing.T) {
	breakdown, err := MakeChange(100, 100, nil)
	require.NoError(t, err)
	assert.Empty(t, breakdown)
	assert.NotNil(t, breakdown, "exact payment yields an empty, non-nil breakdown")
}

func TestMakeChange_InsufficientFunds(t *testing.T) {
	_, err := MakeChange(100, 40, inventory(map[int]int{10: 100}))

	var ferr *InsufficientFundsError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 60, ferr.Shortfall())
}

func TestMakeChange_SpansDenominations(t *testing.T) {
	// change 18 from {10:1, 5:1, 2:1, 1:1}
	breakdown, err := MakeChange(0, 18, inventory(map[int]int{10: 1, 5: 1, 2: 1, 1: 1}))
	require.NoError(t, err)
	assert.Equal(t, []CoinCount{
		{Denomination: 10, Quantity: 1},
		{Denomination: 5, Quantity: 1},
		{Denomination: 2, Quantity: 1},
		{Denomination: 1, Quantity: 1},
	}, breakdown)
	assert.Equal(t, 18, Sum(breakdown))
}

func TestMakeChange_BoundedByStock(t *testing.T) {
	// change 30: greedy wants three tens but only two exist
	breakdown, err := MakeChange(0, 30, inventory(map[int]int{10: 2, 5: 3}))
	require.NoError(t, err)
	assert.Equal(t, []CoinCount{
		{Denomination: 10, Quantity: 2},
		{Denomination: 5, Quantity: 2},
	}, breakdown)
}

// Greedy is not optimal for non-canonical sets: change 6 from {4:2, 3:2}
// is payable as 3+3, but greedy grabs a four first and strands a
// remainder of 2. The engine must report infeasibility here, matching
// what customers are told during pre-validation.
func TestMakeChange_GreedyNotOptimal(t *testing.T) {
	_, err := MakeChange(0, 6, inventory(map[int]int{4: 2, 3: 2}))

	var cerr *ChangeUnavailableError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 2, cerr.Remainder)
}

func TestMakeChange_BreakdownSumsToChange(t *testing.T) {
	inv := inventory(map[int]int{10: 3, 5: 2, 2: 4, 1: 5})
	for paid := 100; paid <= 145; paid++ {
		breakdown, err := MakeChange(100, paid, inv)
		if err != nil {
			continue
		}
		assert.Equalf(t, paid-100, Sum(breakdown), "paid=%d", paid)
	}
}
