package payengine

import (
	"fmt"
	"strings"

	"github.com/lightninglabs/payengine/fees"
	"github.com/lightninglabs/payengine/rates"
	"github.com/lightninglabs/payengine/swap"
)

// PaymentType identifies where a payment goes.
type PaymentType uint8

const (
	// TypeToAddress pays to a bitcoin address.
	TypeToAddress PaymentType = iota

	// TypeToContact pays to another wallet user.
	TypeToContact

	// TypeToHardwareWallet moves funds into a hardware wallet.
	TypeToHardwareWallet

	// TypeFromHardwareWallet withdraws funds from a hardware wallet.
	TypeFromHardwareWallet

	// TypeToLnInvoice pays a lightning invoice through a submarine swap.
	TypeToLnInvoice
)

var paymentTypeNames = map[PaymentType]string{
	TypeToAddress:          "TO_ADDRESS",
	TypeToContact:          "TO_CONTACT",
	TypeToHardwareWallet:   "TO_HARDWARE_WALLET",
	TypeFromHardwareWallet: "FROM_HARDWARE_WALLET",
	TypeToLnInvoice:        "TO_LN_INVOICE",
}

// String returns the name of the payment type.
func (t PaymentType) String() string {
	if name, ok := paymentTypeNames[t]; ok {
		return name
	}

	return "UNKNOWN"
}

// MarshalText encodes the payment type by name.
func (t PaymentType) MarshalText() ([]byte, error) {
	if _, ok := paymentTypeNames[t]; !ok {
		return nil, fmt.Errorf("unknown payment type %d", t)
	}

	return []byte(t.String()), nil
}

// UnmarshalText decodes a payment type name.
func (t *PaymentType) UnmarshalText(text []byte) error {
	for paymentType, name := range paymentTypeNames {
		if strings.EqualFold(name, string(text)) {
			*t = paymentType
			return nil
		}
	}

	return fmt.Errorf("unknown payment type %q", text)
}

// PaymentRequest is what the user intends to pay. Requests are values, the
// With methods return edited copies.
type PaymentRequest struct {
	Type PaymentType `json:"type"`

	// Amount is nil only for amountless invoices whose amount wasn't
	// picked yet.
	Amount *rates.Money `json:"amount,omitempty"`

	Description string `json:"description,omitempty"`

	// FeeRate is the rate picked by the user. Swaps without one are
	// funded at the rate the fee window recommends for them.
	FeeRate *fees.SatPerVByte `json:"feeRate,omitempty"`

	TakeFeeFromAmount bool `json:"takeFeeFromAmount"`

	Swap *swap.SubmarineSwap `json:"swap,omitempty"`
}

// WithAmount returns a copy of the request paying amount.
func (r PaymentRequest) WithAmount(amount rates.Money) PaymentRequest {
	r.Amount = &amount
	return r
}

// WithFeeRate returns a copy of the request paying the given fee rate.
func (r PaymentRequest) WithFeeRate(rate fees.SatPerVByte) PaymentRequest {
	r.FeeRate = &rate
	return r
}

// WithDescription returns a copy of the request with a new description.
func (r PaymentRequest) WithDescription(description string) PaymentRequest {
	r.Description = description
	return r
}

// WithTakeFeeFromAmount returns a copy of the request with the flag set.
func (r PaymentRequest) WithTakeFeeFromAmount(
	takeFeeFromAmount bool) PaymentRequest {

	r.TakeFeeFromAmount = takeFeeFromAmount
	return r
}

// WithSwap returns a copy of the request paying through s.
func (r PaymentRequest) WithSwap(s *swap.SubmarineSwap) PaymentRequest {
	r.Swap = s
	return r
}

// RequiresDescription returns whether the user must describe the payment.
// Withdrawals from a hardware wallet are the only undescribed payments.
func (r PaymentRequest) RequiresDescription() bool {
	return r.Type != TypeFromHardwareWallet
}
