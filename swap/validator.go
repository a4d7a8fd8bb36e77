package swap

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/zpay32"
)

// Validator checks swaps proposed by the swap server against what the wallet
// asked for and what it can derive on its own.
type Validator struct {
	params *chaincfg.Params
}

// NewValidator returns a swap validator for the given network.
func NewValidator(params *chaincfg.Params) *Validator {
	return &Validator{
		params: params,
	}
}

// Validate checks a swap before any funds are sent to it. The invoice and
// expiration are the ones the wallet requested the swap for, and keys is the
// wallet's key pair. Any mismatch returns an *InvalidSwapError.
func (v *Validator) Validate(originalInvoice string,
	originalExpirationInBlocks int64, keys *KeyPair,
	s *SubmarineSwap) error {

	swapLog := &PrefixLog{Logger: log, SwapID: s.ID}

	if err := v.validate(
		originalInvoice, originalExpirationInBlocks, keys, s,
	); err != nil {
		swapLog.Warnf("Rejecting swap: %v", err)

		return &InvalidSwapError{
			SwapID: s.ID,
			Err:    err,
		}
	}

	swapLog.Debugf("Swap to %v validated", s.FundingOutput.OutputAddress)

	return nil
}

func (v *Validator) validate(originalInvoice string,
	originalExpirationInBlocks int64, keys *KeyPair,
	s *SubmarineSwap) error {

	fundingOutput := &s.FundingOutput

	// Older and newer script versions are refused, there is a single
	// version in use at any time.
	if fundingOutput.ScriptVersion != CurrentScriptVersion {
		return fmt.Errorf("%w: %d", ErrScriptVersion,
			fundingOutput.ScriptVersion)
	}

	if !strings.EqualFold(originalInvoice, s.Invoice) {
		return ErrInvoiceMismatch
	}

	invoice, err := zpay32.Decode(originalInvoice, v.params)
	if err != nil {
		return fmt.Errorf("unable to decode invoice: %w", err)
	}

	receiverKey, err := parsePubKeyHex(s.Receiver.PublicKey)
	if err != nil {
		return fmt.Errorf("receiver key: %w", err)
	}
	if invoice.Destination == nil ||
		!invoice.Destination.IsEqual(receiverKey) {

		return ErrDestinationMismatch
	}

	paymentHash, err := lntypes.MakeHashFromStr(
		fundingOutput.ServerPaymentHashInHex,
	)
	if err != nil {
		return fmt.Errorf("server payment hash: %w", err)
	}
	if invoice.PaymentHash == nil {
		return fmt.Errorf("%w: invoice has no payment hash",
			ErrPaymentHashMismatch)
	}
	invoiceHash := lntypes.Hash(*invoice.PaymentHash)
	if invoiceHash != paymentHash {
		return fmt.Errorf("%w: invoice %v, funding output %v",
			ErrPaymentHashMismatch, invoiceHash, paymentHash)
	}

	if originalExpirationInBlocks != fundingOutput.ExpirationInBlocks {
		return fmt.Errorf("%w: requested %d, got %d",
			ErrExpirationMismatch, originalExpirationInBlocks,
			fundingOutput.ExpirationInBlocks)
	}

	// Both declared keys must be ours, derived at the declared path.
	// Otherwise the refund path could be controlled by somebody else.
	userKey, err := ParsePublicKeyWithPath(
		fundingOutput.UserPublicKey, v.params,
	)
	if err != nil {
		return fmt.Errorf("user key: %w", err)
	}
	muunKey, err := ParsePublicKeyWithPath(
		fundingOutput.MuunPublicKey, v.params,
	)
	if err != nil {
		return fmt.Errorf("muun key: %w", err)
	}

	derivedUser, derivedMuun, err := keys.DeriveTo(
		fundingOutput.UserPublicKey.Path,
	)
	if err != nil {
		return err
	}
	if !derivedUser.IsEqual(userKey) {
		return ErrUserKeyMismatch
	}
	if !derivedMuun.IsEqual(muunKey) {
		return ErrMuunKeyMismatch
	}

	serverKey, err := parsePubKeyHex(fundingOutput.ServerPublicKeyInHex)
	if err != nil {
		return fmt.Errorf("server key: %w", err)
	}

	script, err := NewFundingScriptV2(
		paymentHash, userKey, muunKey, serverKey,
		fundingOutput.ExpirationInBlocks, v.params,
	)
	if err != nil {
		return fmt.Errorf("unable to build witness script: %w", err)
	}

	if script.Address.EncodeAddress() != fundingOutput.OutputAddress {
		return fmt.Errorf("%w: expected %v, got %v", ErrAddressMismatch,
			script.Address, fundingOutput.OutputAddress)
	}

	if s.PreimageInHex != "" {
		preimage, err := lntypes.MakePreimageFromStr(s.PreimageInHex)
		if err != nil {
			return fmt.Errorf("preimage: %w", err)
		}

		if preimage.Hash() != paymentHash {
			return ErrPreimageMismatch
		}
	}

	return nil
}

// parsePubKeyHex parses a hex encoded compressed public key.
func parsePubKeyHex(keyHex string) (*btcec.PublicKey, error) {
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, err
	}

	if len(keyBytes) != btcec.PubKeyBytesLenCompressed {
		return nil, fmt.Errorf("expected %d bytes, got %d",
			btcec.PubKeyBytesLenCompressed, len(keyBytes))
	}

	return btcec.ParsePubKey(keyBytes)
}
