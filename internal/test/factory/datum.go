// Package factory builds on-chain datums for tests.
package factory

import (
	"time"

	"github.com/protocolindex/projectsink/internal/indexer/project"
	"github.com/protocolindex/projectsink/libs/plutus"
	"github.com/protocolindex/projectsink/types"
)

// AddressData returns the Plutus representation of addr.
func AddressData(addr types.Address) plutus.Data {
	staking := plutus.Data(plutus.None())
	switch {
	case addr.Staking != nil && addr.Staking.Hash != nil:
		staking = plutus.Some(plutus.NewConstr(0, credentialData(*addr.Staking.Hash)))
	case addr.Staking != nil && addr.Staking.Pointer != nil:
		p := addr.Staking.Pointer
		staking = plutus.Some(plutus.NewConstr(1,
			plutus.NewInt(int64(p.Slot)), plutus.NewInt(int64(p.TxIndex)), plutus.NewInt(int64(p.CertIndex))))
	}
	return plutus.NewConstr(0, credentialData(addr.Payment), staking)
}

func credentialData(c types.Credential) plutus.Data {
	return plutus.NewConstr(uint64(c.Kind), plutus.Bytes(c.Hash[:]))
}

// StatusData returns the Plutus representation of s.
func StatusData(s project.ProjectStatus) plutus.Data {
	switch s := s.(type) {
	case project.PreClosed:
		return plutus.NewConstr(1, timeData(s.PendingUntil))
	case project.PreDelisted:
		return plutus.NewConstr(2, timeData(s.PendingUntil))
	case project.Closed:
		return plutus.NewConstr(3, timeData(s.ClosedAt))
	case project.Delisted:
		return plutus.NewConstr(4, timeData(s.DelistedAt))
	default:
		return plutus.NewConstr(0)
	}
}

// ProjectData returns the Plutus representation of d.
func ProjectData(d *project.ProjectDatum) plutus.Data {
	return plutus.NewConstr(0,
		projectIDData(d.ProjectID),
		AddressData(d.Owner),
		StatusData(d.Status),
		plutus.NewInt(d.MilestoneReached),
		plutus.NewBool(d.IsStakingDelegationManagedByProtocol),
	)
}

// DetailData returns the Plutus representation of d.
func DetailData(d *project.DetailDatum) plutus.Data {
	sponsorship := plutus.Data(plutus.None())
	if d.Sponsorship != nil {
		sponsorship = plutus.Some(plutus.NewConstr(0,
			plutus.Int{Int: d.Sponsorship.Amount},
			timeData(d.Sponsorship.Until),
		))
	}
	announcement := plutus.Data(plutus.None())
	if d.LastAnnouncementCid != nil {
		announcement = plutus.Some(cidData(*d.LastAnnouncementCid))
	}
	return plutus.NewConstr(0,
		projectIDData(d.ProjectID),
		plutus.Int{Int: d.WithdrawnFunds},
		sponsorship,
		cidData(d.InformationCid),
		announcement,
	)
}

// ScriptData returns the Plutus representation of d.
func ScriptData(d *project.ScriptDatum) plutus.Data {
	return plutus.NewConstr(0,
		projectIDData(d.ProjectID),
		plutus.Int{Int: d.StakingKeyDeposit},
	)
}

// ProjectDatum encodes d as an inline datum.
func ProjectDatum(d *project.ProjectDatum) []byte { return plutus.MustEncode(ProjectData(d)) }

// DetailDatum encodes d as an inline datum.
func DetailDatum(d *project.DetailDatum) []byte { return plutus.MustEncode(DetailData(d)) }

// ScriptDatum encodes d as an inline datum.
func ScriptDatum(d *project.ScriptDatum) []byte { return plutus.MustEncode(ScriptData(d)) }

func projectIDData(id []byte) plutus.Data {
	return plutus.NewConstr(0, plutus.Bytes(id))
}

func cidData(cid string) plutus.Data {
	return plutus.NewConstr(0, plutus.Bytes(cid))
}

func timeData(t time.Time) plutus.Data {
	return plutus.NewInt(t.UnixMilli())
}
