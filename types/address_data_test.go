package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protocolindex/projectsink/internal/test/factory"
	"github.com/protocolindex/projectsink/libs/plutus"
	"github.com/protocolindex/projectsink/types"
)

func TestAddressDataRoundTrip(t *testing.T) {
	payment, err := types.ParseHash28("9493315cd92eb5d8c4304e67b7e16ae36d61d34502694657811a2c8e")
	require.NoError(t, err)
	stake, err := types.ParseHash28("337b62cfff6403a06a3acbc34f8c46003c69fe79a3628cefa9c47251")
	require.NoError(t, err)

	for _, addr := range []types.Address{
		{Payment: types.Credential{Kind: types.KeyCredential, Hash: payment}},
		{
			Payment: types.Credential{Kind: types.ScriptCredential, Hash: payment},
			Staking: &types.StakingCredential{Hash: &types.Credential{Kind: types.KeyCredential, Hash: stake}},
		},
		{
			Payment: types.Credential{Kind: types.KeyCredential, Hash: payment},
			Staking: &types.StakingCredential{Pointer: &types.Pointer{Slot: 1, TxIndex: 2, CertIndex: 3}},
		},
	} {
		d, err := plutus.Decode(plutus.MustEncode(factory.AddressData(addr)))
		require.NoError(t, err)

		got, err := types.AddressFromData(d)
		require.NoError(t, err)
		assert.Equal(t, addr, got)
	}
}
