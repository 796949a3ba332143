package project

import (
	"math/big"
	"time"

	"github.com/protocolindex/projectsink/internal/indexer"
	psbytes "github.com/protocolindex/projectsink/libs/bytes"
	"github.com/protocolindex/projectsink/types"
)

// Relation names.
const (
	TableProject       = "project"
	TableProjectDetail = "project_detail"
	TableProjectScript = "project_script"
)

var (
	_ indexer.Record = (*Record)(nil)
	_ indexer.Record = (*DetailRecord)(nil)
	_ indexer.Record = (*ScriptRecord)(nil)
)

// Record is a snapshot of a project as carried by one output.
type Record struct {
	ProjectID                            psbytes.HexBytes `json:"project_id"`
	OwnerAddress                         string           `json:"owner_address"`
	Status                               StatusKind       `json:"status"`
	StatusTime                           *time.Time       `json:"status_time,omitempty"`
	MilestoneReached                     int64            `json:"milestone_reached"`
	IsStakingDelegationManagedByProtocol bool             `json:"is_staking_delegation_managed_by_protocol"`
}

// NewRecord projects d into a row, rendering the owner address for network.
func NewRecord(d *ProjectDatum, network types.Network) (*Record, error) {
	owner, err := d.Owner.Bech32(network)
	if err != nil {
		return nil, err
	}
	return &Record{
		ProjectID:                            d.ProjectID,
		OwnerAddress:                         owner,
		Status:                               d.Status.Kind(),
		StatusTime:                           StatusTime(d.Status),
		MilestoneReached:                     d.MilestoneReached,
		IsStakingDelegationManagedByProtocol: d.IsStakingDelegationManagedByProtocol,
	}, nil
}

func (*Record) Table() string { return TableProject }

func (*Record) Columns() []string {
	return []string{
		"project_id",
		"owner_address",
		"status",
		"status_time",
		"milestone_reached",
		"is_staking_delegation_managed_by_protocol",
	}
}

func (r *Record) Values() []interface{} {
	return []interface{}{
		r.ProjectID.String(),
		r.OwnerAddress,
		string(r.Status),
		nullTime(r.StatusTime),
		r.MilestoneReached,
		r.IsStakingDelegationManagedByProtocol,
	}
}

// DetailRecord is a snapshot of a project detail as carried by one output.
type DetailRecord struct {
	ProjectID           psbytes.HexBytes `json:"project_id"`
	WithdrawnFunds      *big.Int         `json:"withdrawn_funds"`
	SponsorshipAmount   *big.Int         `json:"sponsorship_amount,omitempty"`
	SponsorshipUntil    *time.Time       `json:"sponsorship_until,omitempty"`
	InformationCid      string           `json:"information_cid"`
	LastAnnouncementCid *string          `json:"last_announcement_cid,omitempty"`
}

// NewDetailRecord projects d into a row.
func NewDetailRecord(d *DetailDatum) *DetailRecord {
	r := &DetailRecord{
		ProjectID:           d.ProjectID,
		WithdrawnFunds:      d.WithdrawnFunds,
		InformationCid:      d.InformationCid,
		LastAnnouncementCid: d.LastAnnouncementCid,
	}
	if s := d.Sponsorship; s != nil {
		until := s.Until
		r.SponsorshipAmount = s.Amount
		r.SponsorshipUntil = &until
	}
	return r
}

// HasAnnouncement reports whether the record carries a last announcement.
func (r *DetailRecord) HasAnnouncement() bool { return r.LastAnnouncementCid != nil }

func (*DetailRecord) Table() string { return TableProjectDetail }

func (*DetailRecord) Columns() []string {
	return []string{
		"project_id",
		"withdrawn_funds",
		"sponsorship_amount",
		"sponsorship_until",
		"information_cid",
		"last_announcement_cid",
	}
}

func (r *DetailRecord) Values() []interface{} {
	return []interface{}{
		r.ProjectID.String(),
		numeric(r.WithdrawnFunds),
		numeric(r.SponsorshipAmount),
		nullTime(r.SponsorshipUntil),
		r.InformationCid,
		nullString(r.LastAnnouncementCid),
	}
}

// ScriptRecord links a project to the script controlling its stake.
type ScriptRecord struct {
	ProjectID         psbytes.HexBytes `json:"project_id"`
	StakingKeyDeposit *big.Int         `json:"staking_key_deposit"`
	StakingScriptHash types.Hash28     `json:"staking_script_hash"`
}

func (*ScriptRecord) Table() string { return TableProjectScript }

func (*ScriptRecord) Columns() []string {
	return []string{"project_id", "staking_key_deposit", "staking_script_hash"}
}

func (r *ScriptRecord) Values() []interface{} {
	return []interface{}{
		r.ProjectID.String(),
		numeric(r.StakingKeyDeposit),
		r.StakingScriptHash.String(),
	}
}

// numeric renders an amount for a NUMERIC column.
func numeric(v *big.Int) interface{} {
	if v == nil {
		return nil
	}
	return v.String()
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
