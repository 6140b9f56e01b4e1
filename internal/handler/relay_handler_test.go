package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"
	"relay-gateway-sol/internal/svc"
	dto "relay-gateway-sol/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRelayer struct {
	outcome core.RelayOutcome
	calls   int
	req     core.RelayRequest
	caller  *core.CallerIdentity
}

func (f *fakeRelayer) Relay(_ context.Context, req core.RelayRequest, caller *core.CallerIdentity) core.RelayOutcome {
	f.calls++
	f.req = req
	f.caller = caller
	return f.outcome
}

const walletHex = "0x1111111111111111111111111111111111111111"

var blockhashStr = types.Hash{7, 7, 7}.String()

func validBody() map[string]any {
	return map[string]any{
		"instructions": []any{
			map[string]any{
				"programId": consts.TokenProgramStr,
				"keys": []any{
					map[string]any{"pubkey": consts.USDCMintStr, "isSigner": false, "isWritable": true},
				},
				"data": []int{17},
			},
		},
		"recentBlockhash": blockhashStr,
		"retry":           true,
	}
}

func doRelay(t *testing.T, h http.HandlerFunc, body any, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/relay", strings.NewReader(string(raw)))
	r.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		r.Header[k] = v
	}
	w := httptest.NewRecorder()
	h(w, r)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestRelayHandler_Confirmed(t *testing.T) {
	fake := &fakeRelayer{outcome: core.Confirmed("sig-1")}
	h := RelayHandler(&svc.ServiceContext{Relayer: fake})

	w, resp := doRelay(t, h, validBody(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sig-1", resp["transactionSignature"])

	require.Equal(t, 1, fake.calls)
	require.Len(t, fake.req.Instructions, 1)
	ix := fake.req.Instructions[0]
	assert.Equal(t, consts.TokenProgram, ix.ProgramID)
	assert.Equal(t, []byte{17}, ix.Data)
	assert.True(t, ix.Accounts[0].IsWritable)
	assert.True(t, fake.req.Retry)
	assert.Equal(t, blockhashStr, fake.req.RecentBlockhash.String())
	assert.Nil(t, fake.caller)
}

func TestRelayHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		outcome core.RelayOutcome
		status  int
		index   any
		sig     any
	}{
		{
			name:    "policy violation",
			outcome: core.Failed(core.NewInstructionError(core.ErrPolicyViolation, 2, "Mint not allowed")),
			status:  http.StatusBadRequest,
			index:   float64(2),
		},
		{
			name:    "auth required",
			outcome: core.Failed(core.NewInstructionError(core.ErrAuthenticationRequired, 0, "Not logged in")),
			status:  http.StatusBadRequest,
			index:   float64(0),
		},
		{
			name:    "signer unavailable",
			outcome: core.Failed(core.NewError(core.ErrSignerUnavailable, "no active fee payer")),
			status:  http.StatusInternalServerError,
		},
		{
			name:    "policy lookup failed",
			outcome: core.Failed(core.NewInstructionError(core.ErrPolicyLookupFailed, 1, "social proof lookup failed")),
			status:  http.StatusInternalServerError,
			index:   float64(1),
		},
		{
			name:    "submission error",
			outcome: core.Failed(core.NewError(core.ErrSubmissionError, "submission failed after 5 attempt(s)")),
			status:  http.StatusInternalServerError,
		},
		{
			name:    "unknown",
			outcome: core.Unknown("sig-2", core.NewError(core.ErrSubmissionUnknown, "confirmation outcome unknown")),
			status:  http.StatusAccepted,
			sig:     "sig-2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RelayHandler(&svc.ServiceContext{Relayer: &fakeRelayer{outcome: tt.outcome}})
			w, resp := doRelay(t, h, validBody(), nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, string(tt.outcome.Err.Kind), resp["errorKind"])
			assert.Equal(t, tt.index, resp["instructionIndex"])
			assert.Equal(t, tt.sig, resp["transactionSignature"])
		})
	}
}

func TestRelayHandler_MalformedBody(t *testing.T) {
	mutations := map[string]func(b map[string]any){
		"bad blockhash":  func(b map[string]any) { b["recentBlockhash"] = "nope!" },
		"no blockhash":   func(b map[string]any) { delete(b, "recentBlockhash") },
		"no instruction": func(b map[string]any) { delete(b, "instructions") },
		"data not byte": func(b map[string]any) {
			b["instructions"].([]any)[0].(map[string]any)["data"] = []int{256}
		},
		"bad program": func(b map[string]any) {
			b["instructions"].([]any)[0].(map[string]any)["programId"] = "xyz"
		},
		"bad override": func(b map[string]any) { b["feePayerOverride"] = "short" },
		"bad lookup":   func(b map[string]any) { b["lookupTableAddresses"] = []string{"0"} },
		"bad signature": func(b map[string]any) {
			b["signatures"] = []any{map[string]any{"publicKey": consts.USDCMintStr, "signature": "abc"}}
		},
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			fake := &fakeRelayer{outcome: core.Confirmed("unused")}
			h := RelayHandler(&svc.ServiceContext{Relayer: fake})
			body := validBody()
			mutate(body)

			w, resp := doRelay(t, h, body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, string(core.ErrMalformedInstruction), resp["errorKind"])
			assert.Zero(t, fake.calls)
		})
	}
}

func TestCallerHeaderMiddleware(t *testing.T) {
	fake := &fakeRelayer{outcome: core.Confirmed("sig")}
	h := CallerHeaderMiddleware(RelayHandler(&svc.ServiceContext{Relayer: fake}))

	header := http.Header{}
	header.Set(HeaderUserID, "42")
	header.Set(HeaderUserWallet, walletHex)
	header.Set(HeaderUserHandle, "alice")
	_, _ = doRelay(t, h, validBody(), header)

	require.NotNil(t, fake.caller)
	assert.Equal(t, int64(42), fake.caller.UserID)
	assert.Equal(t, walletHex, fake.caller.Wallet.Hex())
	assert.Equal(t, "alice", fake.caller.Handle)

	bad := http.Header{}
	bad.Set(HeaderUserID, "not-a-number")
	bad.Set(HeaderUserWallet, walletHex)
	_, _ = doRelay(t, h, validBody(), bad)
	assert.Nil(t, fake.caller)
}

func TestToRelayRequest(t *testing.T) {
	override := types.Pubkey{9}
	req := &dto.RelayReq{
		Instructions: []dto.Instruction{{
			ProgramId: consts.MemoProgramStr,
			Data:      []int{104, 105},
		}},
		RecentBlockhash:      blockhashStr,
		FeePayerOverride:     override.String(),
		LookupTableAddresses: []string{consts.USDCMintStr},
		SkipPreflight:        true,
	}
	out, re := toRelayRequest(req)
	require.Nil(t, re)
	assert.Equal(t, []byte("hi"), out.Instructions[0].Data)
	assert.Empty(t, out.Instructions[0].Accounts)
	require.NotNil(t, out.FeePayerOverride)
	assert.Equal(t, override, *out.FeePayerOverride)
	assert.Equal(t, []types.Pubkey{consts.USDCMint}, out.LookupTableAddresses)
	assert.True(t, out.SkipPreflight)

	req.Instructions = append(req.Instructions, dto.Instruction{ProgramId: consts.MemoProgramStr, Data: []int{-1}})
	_, re = toRelayRequest(req)
	require.NotNil(t, re)
	assert.Equal(t, 1, re.Index)
}
