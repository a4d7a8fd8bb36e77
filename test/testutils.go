package test

import (
	"encoding/hex"
	"os"
	"runtime/pprof"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
)

var (
	// Timeout is the default timeout when tests wait for something to
	// happen.
	Timeout = time.Second * 5

	// NodeKeyIndex is the index of the key signing test invoices.
	NodeKeyIndex int32 = 5
)

// EncodePayReq encodes a zpay32 invoice with a fixed key.
func EncodePayReq(payReq *zpay32.Invoice) (string, error) {
	privKey, _ := CreateKey(NodeKeyIndex)

	return payReq.Encode(zpay32.MessageSigner{
		SignCompact: func(msg []byte) ([]byte, error) {
			hash := chainhash.HashB(msg)

			return ecdsa.SignCompact(privKey, hash, true), nil
		},
	})
}

// NodePubKeyHex returns the hex encoded key of the node signing test
// invoices.
func NodePubKeyHex() string {
	_, pubKey := CreateKey(NodeKeyIndex)

	return hex.EncodeToString(pubKey.SerializeCompressed())
}

// NewInvoice returns an encoded invoice for the given payment hash. A zero
// amount gives an amountless invoice.
func NewInvoice(params *chaincfg.Params, hash lntypes.Hash,
	amount btcutil.Amount, timestamp time.Time,
	expiry time.Duration) (string, error) {

	options := []func(*zpay32.Invoice){
		zpay32.Description("test payment"),
		zpay32.Expiry(expiry),
	}
	if amount > 0 {
		options = append(options, zpay32.Amount(
			lnwire.NewMSatFromSatoshis(amount),
		))
	}

	payReq, err := zpay32.NewInvoice(params, hash, timestamp, options...)
	if err != nil {
		return "", err
	}

	return EncodePayReq(payReq)
}

// DumpGoroutines dumps all currently running goroutines.
func DumpGoroutines() {
	_ = pprof.Lookup("goroutine").WriteTo(os.Stdout, 1)
}
