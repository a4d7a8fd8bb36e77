package swap

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/input"
	"github.com/lightningnetwork/lnd/lntypes"
)

// MaxExpirationBlocks is the largest relative lock, in blocks, a BIP 68
// sequence can encode.
const MaxExpirationBlocks = 0xFFFF

// FundingScript is the P2WSH output a swap is funded to.
type FundingScript struct {
	// WitnessScript is revealed when spending the output.
	WitnessScript []byte

	// PkScript is the output script, paying to the witness script hash.
	PkScript []byte

	// Address is the segwit v0 address of PkScript.
	Address btcutil.Address
}

// NewFundingScriptV2 builds the version 2 swap funding script and its
// address.
func NewFundingScriptV2(paymentHash lntypes.Hash, userKey, muunKey,
	serverKey *btcec.PublicKey, expirationBlocks int64,
	params *chaincfg.Params) (*FundingScript, error) {

	script, err := WitnessScriptV2(
		paymentHash, userKey, muunKey, serverKey, expirationBlocks,
	)
	if err != nil {
		return nil, err
	}

	pkScript, err := input.WitnessScriptHash(script)
	if err != nil {
		return nil, err
	}

	scriptHash := sha256.Sum256(script)
	address, err := btcutil.NewAddressWitnessScriptHash(
		scriptHash[:], params,
	)
	if err != nil {
		return nil, err
	}

	return &FundingScript{
		WitnessScript: script,
		PkScript:      pkScript,
		Address:       address,
	}, nil
}

// WitnessScriptV2 returns the version 2 swap witness script:
//
// <userKey> OP_SWAP <serverKey> OP_CHECKSIG
// OP_IF
//   OP_SWAP OP_DUP OP_HASH160 <ripemd(paymentHash)> OP_EQUAL
//   OP_IF
//     OP_DROP
//   OP_ELSE
//     OP_SWAP OP_CHECKSIG
//   OP_ENDIF
// OP_ELSE
//   <expirationBlocks> OP_CHECKSEQUENCEVERIFY OP_DROP
//   OP_CHECKSIGVERIFY
//   OP_DUP OP_HASH160 <HASH160(muunKey)> OP_EQUALVERIFY OP_CHECKSIG
// OP_ENDIF
//
// The server spends with the user's cooperation or with the preimage. After
// the expiration, the user and muun spend together, muun's key being given
// P2PKH style to keep the first two branches small.
func WitnessScriptV2(paymentHash lntypes.Hash, userKey, muunKey,
	serverKey *btcec.PublicKey, expirationBlocks int64) ([]byte, error) {

	if expirationBlocks <= 0 || expirationBlocks > MaxExpirationBlocks {
		return nil, fmt.Errorf("%w: %d", ErrExpirationTooLarge,
			expirationBlocks)
	}

	// The invoice payment hash is already the sha256 of the preimage, so
	// OP_HASH160 of the preimage is the ripemd160 of the payment hash.
	paymentHash160 := input.Ripemd160H(paymentHash[:])
	muunKeyHash160 := btcutil.Hash160(muunKey.SerializeCompressed())

	builder := txscript.NewScriptBuilder()

	builder.AddData(userKey.SerializeCompressed())
	builder.AddOp(txscript.OP_SWAP)
	builder.AddData(serverKey.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)

	builder.AddOp(txscript.OP_IF)

	builder.AddOp(txscript.OP_SWAP)
	builder.AddOp(txscript.OP_DUP)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(paymentHash160)
	builder.AddOp(txscript.OP_EQUAL)

	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_DROP)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddOp(txscript.OP_SWAP)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)

	builder.AddOp(txscript.OP_ELSE)

	builder.AddInt64(expirationBlocks)
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddOp(txscript.OP_CHECKSIGVERIFY)

	builder.AddOp(txscript.OP_DUP)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(muunKeyHash160)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddOp(txscript.OP_CHECKSIG)

	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}
