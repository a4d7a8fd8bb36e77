package swap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// ErrPathNotDerivable is returned when a derivation path doesn't extend the
// path of the key it should be derived from.
var ErrPathNotDerivable = errors.New("path is not derivable from key")

// KeyPair holds the user's and the co-signer's extended public keys, both
// derived at the same absolute path. Swap keys are derived from it.
type KeyPair struct {
	User *hdkeychain.ExtendedKey
	Muun *hdkeychain.ExtendedKey

	// Path is the absolute derivation path of both keys.
	Path string
}

// NewKeyPair parses a pair of base58 extended keys. Private keys are
// neutered, only public derivation is ever needed.
func NewKeyPair(userKey, muunKey, path string,
	params *chaincfg.Params) (*KeyPair, error) {

	if _, err := parsePath(path); err != nil {
		return nil, err
	}

	user, err := parseExtendedKey(userKey, params)
	if err != nil {
		return nil, fmt.Errorf("user key: %w", err)
	}

	muun, err := parseExtendedKey(muunKey, params)
	if err != nil {
		return nil, fmt.Errorf("muun key: %w", err)
	}

	return &KeyPair{
		User: user,
		Muun: muun,
		Path: path,
	}, nil
}

// DeriveTo derives both keys down to the given absolute path. The path must
// extend the key pair path with non hardened steps only.
func (k *KeyPair) DeriveTo(path string) (*btcec.PublicKey, *btcec.PublicKey,
	error) {

	indexes, err := relativePath(k.Path, path)
	if err != nil {
		return nil, nil, err
	}

	user, err := deriveKey(k.User, indexes)
	if err != nil {
		return nil, nil, fmt.Errorf("user key at %v: %w", path, err)
	}

	muun, err := deriveKey(k.Muun, indexes)
	if err != nil {
		return nil, nil, fmt.Errorf("muun key at %v: %w", path, err)
	}

	return user, muun, nil
}

// ParsePublicKeyWithPath returns the public key of a declared extended key.
func ParsePublicKeyWithPath(key *PublicKeyWithPath,
	params *chaincfg.Params) (*btcec.PublicKey, error) {

	if key == nil {
		return nil, errors.New("missing public key")
	}

	if _, err := parsePath(key.Path); err != nil {
		return nil, err
	}

	extended, err := parseExtendedKey(key.Key, params)
	if err != nil {
		return nil, err
	}

	return extended.ECPubKey()
}

func parseExtendedKey(key string,
	params *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {

	extended, err := hdkeychain.NewKeyFromString(key)
	if err != nil {
		return nil, err
	}

	if !extended.IsForNet(params) {
		return nil, fmt.Errorf("key is not for %v", params.Name)
	}

	return extended.Neuter()
}

func deriveKey(key *hdkeychain.ExtendedKey,
	indexes []uint32) (*btcec.PublicKey, error) {

	var err error
	for _, index := range indexes {
		key, err = key.Derive(index)
		if err != nil {
			return nil, err
		}
	}

	return key.ECPubKey()
}

// relativePath returns the indexes leading from the base path to the target
// path.
func relativePath(base, target string) ([]uint32, error) {
	baseIndexes, err := parsePath(base)
	if err != nil {
		return nil, err
	}

	targetIndexes, err := parsePath(target)
	if err != nil {
		return nil, err
	}

	if len(targetIndexes) < len(baseIndexes) {
		return nil, fmt.Errorf("%w: %v from %v", ErrPathNotDerivable,
			target, base)
	}

	for i, index := range baseIndexes {
		if targetIndexes[i] != index {
			return nil, fmt.Errorf("%w: %v from %v",
				ErrPathNotDerivable, target, base)
		}
	}

	return targetIndexes[len(baseIndexes):], nil
}

// parsePath parses an absolute derivation path such as
// m/schema:1'/recovery:1'/change:0/3. Step names are ignored, hardened steps
// end in ' or h.
func parsePath(path string) ([]uint32, error) {
	steps := strings.Split(strings.TrimSpace(path), "/")
	if steps[0] != "m" {
		return nil, fmt.Errorf("derivation path %q is not absolute",
			path)
	}

	indexes := make([]uint32, 0, len(steps)-1)
	for _, step := range steps[1:] {
		if i := strings.LastIndex(step, ":"); i >= 0 {
			step = step[i+1:]
		}

		var offset uint32
		if strings.HasSuffix(step, "'") || strings.HasSuffix(step, "h") {
			offset = hdkeychain.HardenedKeyStart
			step = step[:len(step)-1]
		}

		index, err := strconv.ParseUint(step, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("invalid step in derivation "+
				"path %q: %w", path, err)
		}

		indexes = append(indexes, uint32(index)+offset)
	}

	return indexes, nil
}
