package swap

import (
	"fmt"
	"strings"
)

// DebtType indicates how a swap settles with the swap server's credit line
// instead of, or on top of, an on-chain output.
type DebtType uint8

const (
	// DebtTypeNone is a swap fully funded on chain.
	DebtTypeNone DebtType = iota

	// DebtTypeLend is a swap the server pays on credit, there is no
	// funding transaction.
	DebtTypeLend

	// DebtTypeCollect is a swap whose funding output also repays
	// previously lent amounts.
	DebtTypeCollect
)

func (d DebtType) String() string {
	switch d {
	case DebtTypeNone:
		return "NONE"
	case DebtTypeLend:
		return "LEND"
	case DebtTypeCollect:
		return "COLLECT"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the debt type with its wire name.
func (d DebtType) MarshalText() ([]byte, error) {
	if d > DebtTypeCollect {
		return nil, fmt.Errorf("unknown debt type %d", d)
	}

	return []byte(d.String()), nil
}

// UnmarshalText decodes a debt type from its wire name.
func (d *DebtType) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "", "NONE":
		*d = DebtTypeNone
	case "LEND":
		*d = DebtTypeLend
	case "COLLECT":
		*d = DebtTypeCollect
	default:
		return fmt.Errorf("unknown debt type %q", text)
	}

	return nil
}
