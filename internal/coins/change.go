package coins

import (
	"fmt"
	"sort"
)

// InsufficientFundsError: the paid amount does not cover the total due.
type InsufficientFundsError struct {
	Due  int
	Paid int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %d due, %d paid", e.Due, e.Paid)
}

// Shortfall is the amount still missing.
func (e *InsufficientFundsError) Shortfall() int { return e.Due - e.Paid }

// ChangeUnavailableError: the coin inventory cannot cover the change
// under the greedy allocation. Remainder is the exact unsatisfied part.
type ChangeUnavailableError struct {
	Change    int
	Remainder int
}

func (e *ChangeUnavailableError) Error() string {
	return fmt.Sprintf("cannot dispense change of %d: %d not coverable by coin stock", e.Change, e.Remainder)
}

// MakeChange decides whether change for (due, paid) can be dispensed
// from the given inventory and returns the breakdown, largest nominals
// first. The allocation is greedy: at each denomination it takes as
// many coins as the remainder allows, bounded by stock. For
// non-canonical denomination sets this can report infeasibility even
// when some other allocation would work; that behaviour is load-bearing
// because clients see the same verdict during pre-validation and
// commit.
func MakeChange(due, paid int, inventory []Denomination) ([]CoinCount, error) {
	if paid < due {
		return nil, &InsufficientFundsError{Due: due, Paid: paid}
	}

	change := paid - due
	if change == 0 {
		return []CoinCount{}, nil
	}

	sorted := make([]Denomination, len(inventory))
	copy(sorted, inventory)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Nominal > sorted[j].Nominal })

	var breakdown []CoinCount
	remaining := change
	for _, d := range sorted {
		if remaining == 0 {
			break
		}
		if d.Nominal <= 0 || d.Count <= 0 {
			continue
		}
		take := remaining / d.Nominal
		if take > d.Count {
			take = d.Count
		}
		if take > 0 {
			breakdown = append(breakdown, CoinCount{Denomination: d.Nominal, Quantity: take})
			remaining -= take * d.Nominal
		}
	}

	if remaining > 0 {
		return nil, &ChangeUnavailableError{Change: change, Remainder: remaining}
	}
	return breakdown, nil
}
