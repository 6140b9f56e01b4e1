package memo

import (
	"testing"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	signer := types.Pubkey{1}
	decoded, err := Decode(Encode("purchase:track:42", true, signer))
	require.NoError(t, err)
	assert.Equal(t, &Memo{V2: true, Text: "purchase:track:42", Signers: []types.Pubkey{signer}}, decoded)

	decoded, err = Decode(Encode("hello", false))
	require.NoError(t, err)
	m := decoded.(*Memo)
	assert.False(t, m.V2)
	assert.Empty(t, m.Signers)
}

func TestDecode_InvalidUTF8(t *testing.T) {
	_, err := Decode(core.RawInstruction{ProgramID: consts.MemoV2Program, Data: []byte{0xff, 0xfe}})
	assert.Equal(t, core.ErrMalformedInstruction, core.KindOf(err))
}
