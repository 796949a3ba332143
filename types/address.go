package types

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"

	"github.com/protocolindex/projectsink/libs/plutus"
)

// Network selects the address network tag and human-readable prefix.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

func (n Network) id() (byte, string, error) {
	switch n {
	case Mainnet:
		return 1, "addr", nil
	case Testnet:
		return 0, "addr_test", nil
	default:
		return 0, "", fmt.Errorf("unknown network %q", string(n))
	}
}

// Validate reports an error for unknown networks.
func (n Network) Validate() error {
	_, _, err := n.id()
	return err
}

// CredentialKind tells whether a credential is a key hash or a script hash.
type CredentialKind int

const (
	KeyCredential CredentialKind = iota
	ScriptCredential
)

// Credential is a payment or staking credential.
type Credential struct {
	Kind CredentialKind
	Hash Hash28
}

// Pointer locates a stake registration certificate on chain.
type Pointer struct {
	Slot      uint64
	TxIndex   uint64
	CertIndex uint64
}

// StakingCredential is either an inline credential or a pointer; exactly one
// of Hash and Pointer is set.
type StakingCredential struct {
	Hash    *Credential
	Pointer *Pointer
}

// Address is a Shelley address as represented inside Plutus data.
type Address struct {
	Payment Credential
	Staking *StakingCredential
}

// Bech32 renders the address in its human-addressable form for network.
func (a Address) Bech32(network Network) (string, error) {
	netID, hrp, err := network.id()
	if err != nil {
		return "", err
	}

	payload, err := a.bytes(netID)
	if err != nil {
		return "", err
	}

	conv, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("converting address bits: %w", err)
	}
	return bech32.Encode(hrp, conv)
}

// bytes serializes the address following the Shelley header layout: the
// high nibble of the first byte selects the credential combination, the low
// nibble carries the network id.
func (a Address) bytes(netID byte) ([]byte, error) {
	var (
		header byte
		tail   []byte
	)
	paymentScript := a.Payment.Kind == ScriptCredential

	switch {
	case a.Staking == nil:
		header = 0x6
		if paymentScript {
			header = 0x7
		}

	case a.Staking.Hash != nil:
		header = 0x0
		if paymentScript {
			header |= 0x1
		}
		if a.Staking.Hash.Kind == ScriptCredential {
			header |= 0x2
		}
		tail = a.Staking.Hash.Hash.Bytes()

	case a.Staking.Pointer != nil:
		header = 0x4
		if paymentScript {
			header = 0x5
		}
		p := a.Staking.Pointer
		tail = appendVarNat(tail, p.Slot)
		tail = appendVarNat(tail, p.TxIndex)
		tail = appendVarNat(tail, p.CertIndex)

	default:
		return nil, fmt.Errorf("staking credential has neither hash nor pointer")
	}

	out := make([]byte, 0, 1+Hash28Size+len(tail))
	out = append(out, header<<4|netID&0x0f)
	out = append(out, a.Payment.Hash[:]...)
	out = append(out, tail...)
	return out, nil
}

// appendVarNat appends n as big-endian base-128 digits, setting the high bit
// on every byte but the last.
func appendVarNat(dst []byte, n uint64) []byte {
	var buf [10]byte
	i := len(buf) - 1
	buf[i] = byte(n & 0x7f)
	for n >>= 7; n > 0; n >>= 7 {
		i--
		buf[i] = byte(n&0x7f) | 0x80
	}
	return append(dst, buf[i:]...)
}

// AddressFromData decodes the Plutus representation of an address:
//
//	Address           = Constr 0 [Credential, Option StakingCredential]
//	Credential        = Constr 0 [keyHash] | Constr 1 [scriptHash]
//	StakingCredential = Constr 0 [Credential] | Constr 1 [slot, txIndex, certIndex]
func AddressFromData(d plutus.Data) (Address, error) {
	var addr Address

	fields, err := plutus.AsConstr(d, 0, 2)
	if err != nil {
		return addr, fmt.Errorf("address: %w", err)
	}

	if addr.Payment, err = credentialFromData(fields[0]); err != nil {
		return addr, fmt.Errorf("payment credential: %w", err)
	}

	inner, present, err := plutus.AsOption(fields[1])
	if err != nil {
		return addr, fmt.Errorf("staking credential: %w", err)
	}
	if !present {
		return addr, nil
	}

	c, ok := inner.(plutus.Constr)
	if !ok {
		return addr, fmt.Errorf("staking credential: unexpected %T", inner)
	}
	switch c.Index {
	case 0:
		fields, err := plutus.AsConstr(c, 0, 1)
		if err != nil {
			return addr, fmt.Errorf("staking credential: %w", err)
		}
		cred, err := credentialFromData(fields[0])
		if err != nil {
			return addr, fmt.Errorf("staking credential: %w", err)
		}
		addr.Staking = &StakingCredential{Hash: &cred}

	case 1:
		fields, err := plutus.AsConstr(c, 1, 3)
		if err != nil {
			return addr, fmt.Errorf("staking pointer: %w", err)
		}
		var nums [3]uint64
		for i, f := range fields {
			v, err := plutus.AsInt64(f)
			if err != nil || v < 0 {
				return addr, fmt.Errorf("staking pointer field %d: invalid value", i)
			}
			nums[i] = uint64(v)
		}
		addr.Staking = &StakingCredential{Pointer: &Pointer{Slot: nums[0], TxIndex: nums[1], CertIndex: nums[2]}}

	default:
		return addr, fmt.Errorf("staking credential: unexpected constr %d", c.Index)
	}

	return addr, nil
}

func credentialFromData(d plutus.Data) (Credential, error) {
	c, ok := d.(plutus.Constr)
	if !ok || c.Index > 1 {
		return Credential{}, fmt.Errorf("expected credential, got %#v", d)
	}
	fields, err := plutus.AsConstr(c, c.Index, 1)
	if err != nil {
		return Credential{}, err
	}
	bz, err := plutus.AsBytes(fields[0])
	if err != nil {
		return Credential{}, err
	}
	h, err := Hash28FromBytes(bz)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Kind: CredentialKind(c.Index), Hash: h}, nil
}
