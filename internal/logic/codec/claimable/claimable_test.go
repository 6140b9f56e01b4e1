package claimable

import (
	"testing"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey() types.Pubkey {
	return types.PubkeyFromPublicKey(sdktypes.NewAccount().PublicKey)
}

var wallet = types.EthAddress{0xde, 0xad, 0xbe, 0xef}

func TestTransfer_RoundTrip(t *testing.T) {
	in := Transfer{
		Payer:              newKey(),
		SourceUserBank:     newKey(),
		Destination:        newKey(),
		NonceAccount:       newKey(),
		Authority:          newKey(),
		Rent:               consts.SysvarRent,
		SysvarInstructions: consts.SysvarInstructions,
		EthAddress:         wallet,
	}
	ix, err := EncodeTransfer(consts.ClaimableTokensProgram, in)
	require.NoError(t, err)
	assert.Equal(t, []byte{InstructionTransfer}, ix.Data[:1])
	assert.Len(t, ix.Data, 21)

	decoded, err := Decode(ix)
	require.NoError(t, err)
	assert.Equal(t, &in, decoded)
}

func TestCreateTokenAccount_RoundTrip(t *testing.T) {
	in := CreateTokenAccount{
		Payer:      newKey(),
		Mint:       consts.USDCMint,
		Authority:  newKey(),
		UserBank:   newKey(),
		Rent:       consts.SysvarRent,
		EthAddress: wallet,
	}
	ix, err := EncodeCreateTokenAccount(consts.ClaimableTokensProgram, in)
	require.NoError(t, err)

	decoded, err := Decode(ix)
	require.NoError(t, err)
	assert.Equal(t, &in, decoded)
}

func TestDecode_Errors(t *testing.T) {
	ix, err := EncodeTransfer(consts.ClaimableTokensProgram, Transfer{EthAddress: wallet})
	require.NoError(t, err)

	short := ix
	short.Data = ix.Data[:15]
	_, err = Decode(short)
	assert.Equal(t, core.ErrMalformedInstruction, core.KindOf(err))

	fewAccounts := ix
	fewAccounts.Accounts = ix.Accounts[:6]
	_, err = Decode(fewAccounts)
	assert.Equal(t, core.ErrMalformedInstruction, core.KindOf(err))

	_, err = Decode(core.RawInstruction{ProgramID: consts.ClaimableTokensProgram, Accounts: ix.Accounts, Data: []byte{7}})
	assert.Equal(t, core.ErrUnknownOperation, core.KindOf(err))
}
