package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protocolindex/projectsink/libs/plutus"
)

func mustHash28(t *testing.T, s string) Hash28 {
	t.Helper()
	h, err := ParseHash28(s)
	require.NoError(t, err)
	return h
}

func TestAddressBech32EnterpriseVector(t *testing.T) {
	addr := Address{Payment: Credential{
		Kind: KeyCredential,
		Hash: mustHash28(t, "9493315cd92eb5d8c4304e67b7e16ae36d61d34502694657811a2c8e"),
	}}

	got, err := addr.Bech32(Mainnet)
	require.NoError(t, err)
	assert.Equal(t, "addr1vx2fxv2umyhttkxyxp8x0dlpdt3k6cwng5pxj3jhsydzers66hrl8", got)

	got, err = addr.Bech32(Testnet)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "addr_test1v"), got)

	_, err = addr.Bech32(Network("devnet"))
	require.Error(t, err)
}

func TestAddressBytesLayout(t *testing.T) {
	payment := mustHash28(t, "9493315cd92eb5d8c4304e67b7e16ae36d61d34502694657811a2c8e")
	stake := mustHash28(t, "337b62cfff6403a06a3acbc34f8c46003c69fe79a3628cefa9c47251")

	testCases := []struct {
		name   string
		addr   Address
		header byte
		size   int
	}{
		{
			"base key/key",
			Address{Payment: Credential{KeyCredential, payment}, Staking: &StakingCredential{Hash: &Credential{KeyCredential, stake}}},
			0x01, 57,
		},
		{
			"base script/script",
			Address{Payment: Credential{ScriptCredential, payment}, Staking: &StakingCredential{Hash: &Credential{ScriptCredential, stake}}},
			0x31, 57,
		},
		{
			"pointer",
			Address{Payment: Credential{KeyCredential, payment}, Staking: &StakingCredential{Pointer: &Pointer{2498243, 27, 3}}},
			0x41, 29 + 6,
		},
		{
			"enterprise script",
			Address{Payment: Credential{ScriptCredential, payment}},
			0x71, 29,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			bz, err := tc.addr.bytes(1)
			require.NoError(t, err)
			assert.Equal(t, tc.header, bz[0])
			assert.Len(t, bz, tc.size)
		})
	}

	_, err := Address{Payment: Credential{KeyCredential, payment}, Staking: &StakingCredential{}}.bytes(1)
	require.Error(t, err)
}

func TestAppendVarNat(t *testing.T) {
	assert.Equal(t, []byte{0x81, 0x98, 0xbd, 0x43}, appendVarNat(nil, 2498243))
	assert.Equal(t, []byte{0x1b}, appendVarNat(nil, 27))
	assert.Equal(t, []byte{0x00}, appendVarNat(nil, 0))
}

func TestAddressFromDataRejectsMalformed(t *testing.T) {
	for _, d := range []plutus.Data{
		plutus.NewConstr(1),
		plutus.NewConstr(0, plutus.NewConstr(0, plutus.Bytes{1, 2}), plutus.None()),
		plutus.NewConstr(0, plutus.NewConstr(2, plutus.Bytes(make([]byte, 28))), plutus.None()),
		plutus.NewConstr(0, plutus.NewConstr(0, plutus.Bytes(make([]byte, 28))), plutus.NewInt(1)),
		plutus.NewConstr(0, plutus.NewConstr(0, plutus.Bytes(make([]byte, 28))), plutus.Some(plutus.NewConstr(5))),
	} {
		_, err := AddressFromData(d)
		assert.Error(t, err)
	}
}
