package swap

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
)

// CurrentScriptVersion is the only funding output script version this wallet
// accepts.
const CurrentScriptVersion = 102

// Receiver is the lightning node the invoice pays to.
type Receiver struct {
	Alias            string   `json:"alias,omitempty"`
	PublicKey        string   `json:"publicKey"`
	NetworkAddresses []string `json:"networkAddresses,omitempty"`
}

// PublicKeyWithPath is a base58 extended public key along with the absolute
// derivation path it was derived at.
type PublicKeyWithPath struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}

// FundingOutput describes the on-chain output the wallet pays into to fund a
// swap, as proposed by the swap server.
type FundingOutput struct {
	OutputAddress          string             `json:"outputAddress"`
	OutputAmount           btcutil.Amount     `json:"outputAmountInSatoshis"`
	ConfirmationsNeeded    uint32             `json:"confirmationsNeeded"`
	UserLockTime           int64              `json:"userLockTime,omitempty"`
	ExpirationInBlocks     int64              `json:"expirationInBlocks"`
	DebtType               DebtType           `json:"debtType"`
	DebtAmount             btcutil.Amount     `json:"debtAmountInSatoshis"`
	UserPublicKey          *PublicKeyWithPath `json:"userPublicKey"`
	MuunPublicKey          *PublicKeyWithPath `json:"muunPublicKey"`
	ServerPaymentHashInHex string             `json:"serverPaymentHashInHex"`
	ServerPublicKeyInHex   string             `json:"serverPublicKeyInHex"`
	ScriptVersion          int                `json:"scriptVersion"`
}

// Fees are the costs of a swap on top of the paid amount.
type Fees struct {
	Lightning    btcutil.Amount `json:"lightningInSats"`
	Sweep        btcutil.Amount `json:"sweepInSats"`
	ChannelOpen  btcutil.Amount `json:"channelOpenInSats"`
	ChannelClose btcutil.Amount `json:"channelCloseInSats"`
}

// Total returns the sum of all fee components.
func (f *Fees) Total() btcutil.Amount {
	return f.Lightning + f.Sweep + f.ChannelOpen + f.ChannelClose
}

// SubmarineSwap pays a lightning invoice through the swap server in exchange
// for an on-chain output (or credit).
type SubmarineSwap struct {
	// ID is the server side identifier of the swap.
	ID string `json:"houstonUuid"`

	Invoice       string        `json:"invoice"`
	Receiver      Receiver      `json:"receiver"`
	FundingOutput FundingOutput `json:"fundingOutput"`

	// Fees is unset for amountless invoices until an amount is picked.
	Fees *Fees `json:"fees,omitempty"`

	ExpiresAt          time.Time `json:"expiresAt"`
	WillPreOpenChannel bool      `json:"willPreOpenChannel,omitempty"`

	// BestRouteFees and FundingOutputPolicies are only sent for
	// amountless invoices, the wallet computes the fees itself.
	BestRouteFees         []BestRouteFees        `json:"bestRouteFees,omitempty"`
	FundingOutputPolicies *FundingOutputPolicies `json:"fundingOutputPolicies,omitempty"`

	PayedAt       *time.Time `json:"payedAt,omitempty"`
	PreimageInHex string     `json:"preimageInHex,omitempty"`
}

// IsAmountless returns whether the invoice had no amount, so the wallet picks
// the amount and computes the fees from the route and policies.
func (s *SubmarineSwap) IsAmountless() bool {
	return len(s.BestRouteFees) > 0 && s.FundingOutputPolicies != nil
}

// IsLend returns whether the swap is paid on credit.
func (s *SubmarineSwap) IsLend() bool {
	return s.FundingOutput.DebtType == DebtTypeLend
}

// IsCollect returns whether the swap output repays debt.
func (s *SubmarineSwap) IsCollect() bool {
	return s.FundingOutput.DebtType == DebtTypeCollect
}

// LightningFee returns the lightning fee or zero if fees aren't known yet.
func (s *SubmarineSwap) LightningFee() btcutil.Amount {
	if s.Fees == nil {
		return 0
	}

	return s.Fees.Lightning
}

// SweepFee returns the sweep fee or zero if fees aren't known yet.
func (s *SubmarineSwap) SweepFee() btcutil.Amount {
	if s.Fees == nil {
		return 0
	}

	return s.Fees.Sweep
}

// WithFees returns a copy of an amountless swap with the funding output and
// fees resolved for the given amount. The copy is no longer amountless.
func (s *SubmarineSwap) WithFees(amount btcutil.Amount,
	fees *SwapFees) *SubmarineSwap {

	resolved := *s
	resolved.BestRouteFees = nil
	resolved.FundingOutputPolicies = nil

	sweep := fees.OutputPadding
	if fees.DebtType == DebtTypeLend {
		sweep = 0
	}
	resolved.Fees = &Fees{
		Lightning: fees.RoutingFee,
		Sweep:     sweep,
	}

	resolved.FundingOutput.DebtType = fees.DebtType
	resolved.FundingOutput.DebtAmount = fees.DebtAmount
	resolved.FundingOutput.ConfirmationsNeeded = fees.ConfirmationsNeeded
	resolved.FundingOutput.OutputAmount = fees.FundingOutputAmount

	return &resolved
}
