package fees

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

// ErrNonIncreasingProgression is returned when the amount thresholds of a size
// progression are not strictly increasing.
var ErrNonIncreasingProgression = errors.New("size progression thresholds " +
	"must be strictly increasing")

// SizeForAmount is a single step of a size progression. Spending up to Amount
// requires a transaction of VSize virtual bytes.
type SizeForAmount struct {
	// Amount is the cumulative amount spendable with the utxos selected
	// for this step.
	Amount btcutil.Amount `json:"amountInSatoshis"`

	// VSize is the virtual size of the spending transaction.
	VSize int64 `json:"sizeInBytes"`
}

// NextTransactionSize is a snapshot of the wallet utxo set, seen as the sizes
// of the next transaction for increasing amounts.
type NextTransactionSize struct {
	// SizeProgression holds the steps sorted by amount.
	SizeProgression []SizeForAmount `json:"sizeProgression"`

	// ValidAtOperationHid is the id of the last operation the snapshot
	// accounts for.
	ValidAtOperationHid int64 `json:"validAtOperationHid,omitempty"`

	// ExpectedDebt is the amount the wallet owes the swap server (or is
	// owed, when negative).
	ExpectedDebt btcutil.Amount `json:"expectedDebtInSat"`
}

// Validate checks that the thresholds of the progression strictly increase
// and that every step has a positive size. An empty progression is a wallet
// without utxos, and is valid.
func (n *NextTransactionSize) Validate() error {
	var prev btcutil.Amount
	for i, step := range n.SizeProgression {
		if step.VSize <= 0 {
			return fmt.Errorf("step %d: invalid size %d", i,
				step.VSize)
		}

		if i > 0 && step.Amount <= prev {
			return fmt.Errorf("step %d (%v after %v): %w", i,
				step.Amount, prev, ErrNonIncreasingProgression)
		}
		prev = step.Amount
	}

	return nil
}

// UtxoBalance is the sum of all spendable utxos, which is the threshold of
// the last step.
func (n *NextTransactionSize) UtxoBalance() btcutil.Amount {
	if len(n.SizeProgression) == 0 {
		return 0
	}

	return n.SizeProgression[len(n.SizeProgression)-1].Amount
}

// Debt returns the outstanding debt, ignoring credit in favour of the user.
func (n *NextTransactionSize) Debt() btcutil.Amount {
	if n.ExpectedDebt < 0 {
		return 0
	}

	return n.ExpectedDebt
}

// UserBalance is the balance the user can spend, that is the utxo balance
// minus the outstanding debt.
func (n *NextTransactionSize) UserBalance() btcutil.Amount {
	balance := n.UtxoBalance() - n.Debt()
	if balance < 0 {
		return 0
	}

	return balance
}
