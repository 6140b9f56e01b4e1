package core

import (
	"errors"
	"fmt"
	"testing"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() RelayRequest {
	return RelayRequest{
		Instructions: []RawInstruction{{
			ProgramID: consts.TokenProgram,
			Accounts:  []AccountRef{{Address: types.Pubkey{1}, IsWritable: true}},
			Data:      []byte{17},
		}},
		RecentBlockhash: types.Hash{2},
	}
}

func TestContentHash(t *testing.T) {
	base := ContentHash(sampleRequest())
	assert.Equal(t, base, ContentHash(sampleRequest()))

	mutations := map[string]func(r *RelayRequest){
		"blockhash":     func(r *RelayRequest) { r.RecentBlockhash[0] = 9 },
		"retry":         func(r *RelayRequest) { r.Retry = true },
		"skipPreflight": func(r *RelayRequest) { r.SkipPreflight = true },
		"data":          func(r *RelayRequest) { r.Instructions[0].Data = []byte{18} },
		"signer flag":   func(r *RelayRequest) { r.Instructions[0].Accounts[0].IsSigner = true },
		"override":      func(r *RelayRequest) { pk := types.Pubkey{5}; r.FeePayerOverride = &pk },
		"lookup table":  func(r *RelayRequest) { r.LookupTableAddresses = []types.Pubkey{{6}} },
		"signature": func(r *RelayRequest) {
			r.ClientSignatures = []ClientSignature{{Signer: types.Pubkey{7}}}
		},
	}
	for name, mutate := range mutations {
		req := sampleRequest()
		mutate(&req)
		assert.NotEqual(t, base, ContentHash(req), name)
	}
}

func TestCheckShallow(t *testing.T) {
	ok := sampleRequest().Instructions[0]
	assert.NoError(t, CheckShallow(0, ok))

	noData := ok
	noData.Data = nil
	assert.Equal(t, ErrMalformedInstruction, KindOf(CheckShallow(3, noData)))

	noAccounts := ok
	noAccounts.Accounts = nil
	err := CheckShallow(3, noAccounts)
	re, isRelay := AsRelayError(err)
	require.True(t, isRelay)
	assert.Equal(t, 3, re.Index)

	for _, program := range []types.Pubkey{consts.Secp256k1Program, consts.MemoProgram, consts.MemoV2Program} {
		ix := RawInstruction{ProgramID: program, Data: []byte{1}}
		assert.NoError(t, CheckShallow(0, ix), program.String())
	}
}

func TestRelayError(t *testing.T) {
	err := NewInstructionError(ErrPolicyViolation, 2, "Mint not allowed")
	assert.Equal(t, "PolicyViolation: instruction 2: Mint not allowed", err.Error())

	cause := errors.New("dial tcp: refused")
	wrapped := WrapError(ErrSubmissionError, cause, "send failed")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, -1, wrapped.Index)

	outer := fmt.Errorf("relay: %w", wrapped)
	assert.Equal(t, ErrSubmissionError, KindOf(outer))
	assert.Equal(t, ErrorKind(""), KindOf(cause))

	assert.True(t, ErrUnknownProgram.IsClientError())
	assert.False(t, ErrSignerUnavailable.IsClientError())
	assert.False(t, ErrSubmissionUnknown.IsClientError())

	indexed := NewError(ErrMalformedInstruction, "x").WithIndex(4)
	assert.Equal(t, 4, indexed.Index)
}

func TestNewOutcomeEvent(t *testing.T) {
	ev := NewOutcomeEvent("id-1", types.Hash{1}, Failed(NewInstructionError(ErrUnknownProgram, 1, "nope")))
	assert.Equal(t, OutcomeFailed, ev.Status)
	assert.Equal(t, ErrUnknownProgram, ev.ErrorKind)
	assert.Equal(t, 1, ev.ErrorIndex)

	ok := NewOutcomeEvent("id-2", types.Hash{1}, Confirmed("sig"))
	assert.Equal(t, -1, ok.ErrorIndex)
	assert.Equal(t, "sig", ok.Signature)
	assert.Empty(t, ok.ErrorKind)
}
