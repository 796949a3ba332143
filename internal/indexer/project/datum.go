package project

import (
	"fmt"
	"math"
	"math/big"
	"time"
	"unicode/utf8"

	psbytes "github.com/protocolindex/projectsink/libs/bytes"
	"github.com/protocolindex/projectsink/libs/plutus"
	"github.com/protocolindex/projectsink/types"
)

// ProjectDatum is the on-chain state of a project.
type ProjectDatum struct {
	ProjectID                            psbytes.HexBytes
	Owner                                types.Address
	Status                               ProjectStatus
	MilestoneReached                     int64
	IsStakingDelegationManagedByProtocol bool
}

// Sponsorship is a paid promotion of a project.
type Sponsorship struct {
	Amount *big.Int
	Until  time.Time
}

// DetailDatum is the on-chain state of a project detail record.
type DetailDatum struct {
	ProjectID           psbytes.HexBytes
	WithdrawnFunds      *big.Int
	Sponsorship         *Sponsorship
	InformationCid      string
	LastAnnouncementCid *string
}

// ScriptDatum is the on-chain state of a project script record.
type ScriptDatum struct {
	ProjectID         psbytes.HexBytes `json:"project_id"`
	StakingKeyDeposit *big.Int         `json:"staking_key_deposit"`
}

// DecodeProjectDatum parses a CBOR-encoded project datum.
func DecodeProjectDatum(bz []byte) (*ProjectDatum, error) {
	fields, err := decodeFields(bz, 5)
	if err != nil {
		return nil, err
	}

	d := &ProjectDatum{}
	if d.ProjectID, err = parseProjectID(fields[0]); err != nil {
		return nil, err
	}
	if d.Owner, err = types.AddressFromData(fields[1]); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if d.Status, err = parseStatus(fields[2]); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	if d.MilestoneReached, err = plutus.AsInt64(fields[3]); err != nil {
		return nil, fmt.Errorf("milestone reached: %w", err)
	}
	if d.MilestoneReached < 0 || d.MilestoneReached > math.MaxInt16 {
		return nil, fmt.Errorf("%w: milestone reached %d out of range", plutus.ErrUnexpectedShape, d.MilestoneReached)
	}
	if d.IsStakingDelegationManagedByProtocol, err = plutus.AsBool(fields[4]); err != nil {
		return nil, fmt.Errorf("staking delegation flag: %w", err)
	}
	return d, nil
}

// DecodeDetailDatum parses a CBOR-encoded project detail datum.
func DecodeDetailDatum(bz []byte) (*DetailDatum, error) {
	fields, err := decodeFields(bz, 5)
	if err != nil {
		return nil, err
	}

	d := &DetailDatum{}
	if d.ProjectID, err = parseProjectID(fields[0]); err != nil {
		return nil, err
	}
	if d.WithdrawnFunds, err = parseAmount(fields[1]); err != nil {
		return nil, fmt.Errorf("withdrawn funds: %w", err)
	}

	inner, ok, err := plutus.AsOption(fields[2])
	if err != nil {
		return nil, fmt.Errorf("sponsorship: %w", err)
	}
	if ok {
		if d.Sponsorship, err = parseSponsorship(inner); err != nil {
			return nil, fmt.Errorf("sponsorship: %w", err)
		}
	}

	if d.InformationCid, err = parseCid(fields[3]); err != nil {
		return nil, fmt.Errorf("information cid: %w", err)
	}

	inner, ok, err = plutus.AsOption(fields[4])
	if err != nil {
		return nil, fmt.Errorf("last announcement cid: %w", err)
	}
	if ok {
		cid, err := parseCid(inner)
		if err != nil {
			return nil, fmt.Errorf("last announcement cid: %w", err)
		}
		d.LastAnnouncementCid = &cid
	}
	return d, nil
}

// DecodeScriptDatum parses a CBOR-encoded project script datum.
func DecodeScriptDatum(bz []byte) (*ScriptDatum, error) {
	fields, err := decodeFields(bz, 2)
	if err != nil {
		return nil, err
	}

	d := &ScriptDatum{}
	if d.ProjectID, err = parseProjectID(fields[0]); err != nil {
		return nil, err
	}
	if d.StakingKeyDeposit, err = parseAmount(fields[1]); err != nil {
		return nil, fmt.Errorf("staking key deposit: %w", err)
	}
	return d, nil
}

func decodeFields(bz []byte, arity int) ([]plutus.Data, error) {
	d, err := plutus.Decode(bz)
	if err != nil {
		return nil, err
	}
	return plutus.AsConstr(d, 0, arity)
}

func parseProjectID(d plutus.Data) (psbytes.HexBytes, error) {
	fields, err := plutus.AsConstr(d, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("project id: %w", err)
	}
	bz, err := plutus.AsBytes(fields[0])
	if err != nil {
		return nil, fmt.Errorf("project id: %w", err)
	}
	if len(bz) == 0 {
		return nil, fmt.Errorf("project id: %w: empty", plutus.ErrUnexpectedShape)
	}
	return psbytes.HexBytes(bz), nil
}

func parseCid(d plutus.Data) (string, error) {
	fields, err := plutus.AsConstr(d, 0, 1)
	if err != nil {
		return "", err
	}
	bz, err := plutus.AsBytes(fields[0])
	if err != nil {
		return "", err
	}
	if len(bz) == 0 || !utf8.Valid(bz) {
		return "", fmt.Errorf("%w: invalid cid %x", plutus.ErrUnexpectedShape, bz)
	}
	return string(bz), nil
}

func parseAmount(d plutus.Data) (*big.Int, error) {
	v, err := plutus.AsInt(d)
	if err != nil {
		return nil, err
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount %s", plutus.ErrUnexpectedShape, v)
	}
	return v, nil
}

func parseSponsorship(d plutus.Data) (*Sponsorship, error) {
	fields, err := plutus.AsConstr(d, 0, 2)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(fields[0])
	if err != nil {
		return nil, err
	}
	until, err := parseTime(fields[1])
	if err != nil {
		return nil, err
	}
	return &Sponsorship{Amount: amount, Until: until}, nil
}

// parseTime reads a POSIX time in milliseconds.
func parseTime(d plutus.Data) (time.Time, error) {
	ms, err := plutus.AsInt64(d)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
