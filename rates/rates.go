// Package rates converts monetary amounts between bitcoin and the currencies
// of an exchange rate window.
package rates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

// BTC is the currency code of bitcoin.
const BTC = "BTC"

// ErrUnknownCurrency is returned when a currency has no rate in the window.
var ErrUnknownCurrency = errors.New("unknown currency")

// Money is an amount in a given currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney returns an amount of the given currency.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: strings.ToUpper(currency),
	}
}

// Bitcoin returns the bitcoin money value of a satoshi amount.
func Bitcoin(sats btcutil.Amount) Money {
	return NewMoney(decimal.New(int64(sats), -8), BTC)
}

// IsBitcoin returns whether the amount is expressed in bitcoin.
func (m Money) IsBitcoin() bool {
	return m.Currency == BTC
}

// String returns the amount followed by its currency code.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.String(), m.Currency)
}

// Window is a set of exchange rates fetched together. Rates are expressed as
// units of each currency per bitcoin.
type Window struct {
	// ID identifies the window, it is recorded with every analysis so a
	// payment can be refused if rates moved before submission.
	ID int64 `json:"id"`

	// FetchDate is when the window was fetched.
	FetchDate time.Time `json:"fetchDate"`

	// Rates maps currency codes to their price of one bitcoin.
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (w *Window) rate(currency string) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	if currency == BTC {
		return decimal.NewFromInt(1), nil
	}

	rate, ok := w.Rates[currency]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnknownCurrency,
			currency)
	}

	return rate, nil
}

// Convert converts money into the target currency.
func (w *Window) Convert(m Money, target string) (Money, error) {
	from, err := w.rate(m.Currency)
	if err != nil {
		return Money{}, err
	}

	to, err := w.rate(target)
	if err != nil {
		return Money{}, err
	}

	if from.Equal(to) {
		return NewMoney(m.Amount, target), nil
	}

	return NewMoney(m.Amount.Div(from).Mul(to), target), nil
}

// ToSatoshis converts money into satoshis, truncating any fraction of a
// satoshi.
func (w *Window) ToSatoshis(m Money) (btcutil.Amount, error) {
	btc, err := w.Convert(m, BTC)
	if err != nil {
		return 0, err
	}

	return btcutil.Amount(btc.Amount.Shift(8).Truncate(0).IntPart()), nil
}

// FromSatoshis converts a satoshi amount into the target currency.
func (w *Window) FromSatoshis(sats btcutil.Amount, target string) (Money,
	error) {

	return w.Convert(Bitcoin(sats), target)
}

// HasCurrency returns whether money in the currency can be converted.
func (w *Window) HasCurrency(currency string) bool {
	_, err := w.rate(currency)
	return err == nil
}
