package associatedtoken

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

func TestDecode_Create(t *testing.T) {
	payer, ata, owner := newKey(), newKey(), newKey()

	for _, idempotent := range []bool{false, true} {
		ix := EncodeCreate(Create{
			Idempotent:      idempotent,
			Payer:           payer,
			AssociatedToken: ata,
			Owner:           owner,
			Mint:            consts.USDCMint,
			SystemProgram:   consts.SystemProgram,
			TokenProgram:    consts.TokenProgram,
		})
		decoded, err := Decode(ix)
		require.NoError(t, err)
		c, ok := decoded.(*Create)
		require.True(t, ok)
		assert.Equal(t, idempotent, c.Idempotent)
		assert.Equal(t, payer, c.Payer)
		assert.Equal(t, ata, c.AssociatedToken)
		assert.Equal(t, owner, c.Owner)
		assert.Equal(t, consts.USDCMint, c.Mint)
	}
}

func TestDecode_Errors(t *testing.T) {
	short := NewCreate(newKey(), newKey(), newKey(), consts.USDCMint)
	short.Accounts = short.Accounts[:5]
	_, err := Decode(short)
	assert.Equal(t, core.ErrMalformedInstruction, core.KindOf(err))

	unknown := NewCreate(newKey(), newKey(), newKey(), consts.USDCMint)
	unknown.Data = []byte{9}
	_, err = Decode(unknown)
	assert.Equal(t, core.ErrUnknownOperation, core.KindOf(err))

	nested := core.RawInstruction{
		ProgramID: consts.AssociatedTokenProgram,
		Accounts:  make([]core.AccountRef, 7),
		Data:      []byte{InstructionRecoverNested},
	}
	decoded, err := Decode(nested)
	require.NoError(t, err)
	assert.Equal(t, "recoverNested", decoded.Op())
}
