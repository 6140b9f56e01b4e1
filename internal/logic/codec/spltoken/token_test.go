package spltoken

import (
	"testing"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey() types.Pubkey {
	return types.PubkeyFromPublicKey(sdktypes.NewAccount().PublicKey)
}

func TestDecode_TransferCheckedMatchesSDKBuilder(t *testing.T) {
	source, dest, owner := newKey(), newKey(), newKey()
	sdkIx := sdktoken.TransferChecked(sdktoken.TransferCheckedParam{
		From:     source.ToPublicKey(),
		To:       dest.ToPublicKey(),
		Mint:     consts.USDCMint.ToPublicKey(),
		Auth:     owner.ToPublicKey(),
		Amount:   1_500_000,
		Decimals: 6,
	})

	ix := EncodeTransferChecked(TransferChecked{
		Source:      source,
		Mint:        consts.USDCMint,
		Destination: dest,
		Owner:       owner,
		Amount:      1_500_000,
		Decimals:    6,
	})
	assert.Equal(t, sdkIx.Data, ix.Data)
	require.Len(t, ix.Accounts, len(sdkIx.Accounts))
	for i, a := range sdkIx.Accounts {
		assert.Equal(t, types.PubkeyFromPublicKey(a.PubKey), ix.Accounts[i].Address, "account #%d", i)
	}

	decoded, err := Decode(ix)
	require.NoError(t, err)
	tc, ok := decoded.(*TransferChecked)
	require.True(t, ok)
	assert.Equal(t, source, tc.Source)
	assert.Equal(t, consts.USDCMint, tc.Mint)
	assert.Equal(t, dest, tc.Destination)
	assert.Equal(t, owner, tc.Owner)
	assert.Equal(t, uint64(1_500_000), tc.Amount)
	assert.Equal(t, uint8(6), tc.Decimals)
	assert.Empty(t, tc.Signers)
}

func TestDecode_CloseAccountMatchesSDKBuilder(t *testing.T) {
	account, dest, owner := newKey(), newKey(), newKey()
	sdkIx := sdktoken.CloseAccount(sdktoken.CloseAccountParam{
		Account: account.ToPublicKey(),
		Auth:    owner.ToPublicKey(),
		To:      dest.ToPublicKey(),
	})

	ix := EncodeCloseAccount(CloseAccount{Account: account, Destination: dest, Owner: owner})
	assert.Equal(t, sdkIx.Data, ix.Data)

	decoded, err := Decode(ix)
	require.NoError(t, err)
	c, ok := decoded.(*CloseAccount)
	require.True(t, ok)
	assert.Equal(t, account, c.Account)
	assert.Equal(t, dest, c.Destination)
	assert.Equal(t, owner, c.Owner)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		ix   core.RawInstruction
		kind core.ErrorKind
	}{
		{
			name: "transferChecked short data",
			ix: core.RawInstruction{
				ProgramID: consts.TokenProgram,
				Accounts:  make([]core.AccountRef, 4),
				Data:      []byte{12, 1, 2, 3},
			},
			kind: core.ErrMalformedInstruction,
		},
		{
			name: "transferChecked missing accounts",
			ix: core.RawInstruction{
				ProgramID: consts.TokenProgram,
				Accounts:  make([]core.AccountRef, 3),
				Data:      []byte{12, 1, 0, 0, 0, 0, 0, 0, 0, 6},
			},
			kind: core.ErrMalformedInstruction,
		},
		{
			name: "closeAccount missing accounts",
			ix: core.RawInstruction{
				ProgramID: consts.TokenProgram,
				Accounts:  make([]core.AccountRef, 2),
				Data:      []byte{9},
			},
			kind: core.ErrMalformedInstruction,
		},
		{
			name: "unknown discriminant",
			ix: core.RawInstruction{
				ProgramID: consts.TokenProgram,
				Accounts:  make([]core.AccountRef, 1),
				Data:      []byte{200},
			},
			kind: core.ErrUnknownOperation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.ix)
			require.Error(t, err)
			assert.Equal(t, tt.kind, core.KindOf(err))
		})
	}
}

func TestDecode_KnownButUnsupported(t *testing.T) {
	ix := core.RawInstruction{
		ProgramID: consts.TokenProgram,
		Accounts:  make([]core.AccountRef, 3),
		Data:      []byte{byte(sdktoken.InstructionTransfer), 1, 0, 0, 0, 0, 0, 0, 0},
	}
	decoded, err := Decode(ix)
	require.NoError(t, err)
	assert.Equal(t, "transfer", decoded.Op())
	assert.IsType(t, &Unsupported{}, decoded)
}

func TestDecode_SyncNative(t *testing.T) {
	account := newKey()
	decoded, err := Decode(EncodeSyncNative(SyncNative{Account: account}))
	require.NoError(t, err)
	assert.Equal(t, &SyncNative{Account: account}, decoded)
}
