package test

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// CreateKey returns a deterministically generated key pair.
func CreateKey(index int32) (*btcec.PrivateKey, *btcec.PublicKey) {
	// Avoid all zeros, because it results in an invalid key.
	privKey, pubKey := btcec.PrivKeyFromBytes([]byte{
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, byte(index + 1),
	})

	return privKey, pubKey
}

// CreateExtendedKey returns a deterministic extended private key, derived
// from the master key of the given index down the given steps.
func CreateExtendedKey(index byte, params *chaincfg.Params,
	steps ...uint32) (*hdkeychain.ExtendedKey, error) {

	seed := bytes.Repeat([]byte{index + 1}, hdkeychain.RecommendedSeedLen)
	key, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, err
	}

	for _, step := range steps {
		key, err = key.Derive(step)
		if err != nil {
			return nil, err
		}
	}

	return key, nil
}

// CreateExtendedPubKey returns the base58 encoding of the neutered key
// returned by CreateExtendedKey.
func CreateExtendedPubKey(index byte, params *chaincfg.Params,
	steps ...uint32) (string, error) {

	key, err := CreateExtendedKey(index, params, steps...)
	if err != nil {
		return "", err
	}

	pub, err := key.Neuter()
	if err != nil {
		return "", err
	}

	return pub.String(), nil
}
