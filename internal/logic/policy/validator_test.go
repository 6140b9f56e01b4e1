package policy

import (
	"context"
	"errors"
	"testing"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/codec"
	"relay-gateway-sol/internal/logic/codec/associatedtoken"
	"relay-gateway-sol/internal/logic/codec/claimable"
	"relay-gateway-sol/internal/logic/codec/memo"
	"relay-gateway-sol/internal/logic/codec/rewardmanager"
	"relay-gateway-sol/internal/logic/codec/secp256k1"
	"relay-gateway-sol/internal/logic/codec/spltoken"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSocialProof struct {
	verified map[int64]bool
	err      error
	calls    int
}

func (f *fakeSocialProof) HasVerifiedIdentity(_ context.Context, userID int64) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.verified[userID], nil
}

type feePayers map[types.Pubkey]struct{}

func (f feePayers) IsFeePayer(pk types.Pubkey) bool {
	_, ok := f[pk]
	return ok
}

func newKey() types.Pubkey {
	return types.PubkeyFromPublicKey(sdktypes.NewAccount().PublicKey)
}

var caller = &core.CallerIdentity{
	Wallet: types.EthAddress{0x12, 0x34, 0x56},
	UserID: 42,
	Handle: "someone",
}

type env struct {
	rules     *Rules
	validator *Validator
	social    *fakeSocialProof
	feePayer  types.Pubkey
}

func newEnv(t *testing.T, mutate func(cfg *RulesConfig)) *env {
	t.Helper()
	cfg := DefaultRulesConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	rules, err := NewRules(cfg, consts.ClaimableTokensProgram)
	require.NoError(t, err)

	e := &env{
		rules:    rules,
		social:   &fakeSocialProof{verified: map[int64]bool{}},
		feePayer: newKey(),
	}
	registry := codec.NewRegistry(codec.ProgramIDs{
		RewardManager: consts.RewardManagerProgram,
		Claimable:     consts.ClaimableTokensProgram,
		Jupiter:       consts.JupiterV6Program,
	})
	e.validator = NewValidator(registry, NewStaticRules(rules), e.social, feePayers{e.feePayer: {}})
	return e
}

func (e *env) assert(t *testing.T, ixs []core.RawInstruction, who *core.CallerIdentity, flags Flags) error {
	t.Helper()
	return e.validator.AssertAllowed(context.Background(), ixs, who, flags)
}

func requireRejected(t *testing.T, err error, kind core.ErrorKind, index int, reason string) {
	t.Helper()
	require.Error(t, err)
	re, ok := core.AsRelayError(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, kind, re.Kind)
	assert.Equal(t, index, re.Index)
	if reason != "" {
		assert.Contains(t, re.Message, reason)
	}
}

func closeIx(account, destination types.Pubkey) core.RawInstruction {
	return spltoken.EncodeCloseAccount(spltoken.CloseAccount{Account: account, Destination: destination, Owner: newKey()})
}

func TestAssociatedToken(t *testing.T) {
	e := newEnv(t, nil)
	payer, ata, owner := newKey(), newKey(), newKey()
	create := associatedtoken.NewCreate(payer, ata, owner, consts.USDCMint)

	t.Run("paired with close", func(t *testing.T) {
		assert.NoError(t, e.assert(t, []core.RawInstruction{create, closeIx(ata, payer)}, nil, Flags{}))
	})

	t.Run("close before create", func(t *testing.T) {
		assert.NoError(t, e.assert(t, []core.RawInstruction{closeIx(ata, payer), create}, nil, Flags{}))
	})

	t.Run("two creates two closes", func(t *testing.T) {
		ixs := []core.RawInstruction{create, closeIx(ata, payer), create, closeIx(ata, payer)}
		assert.NoError(t, e.assert(t, ixs, nil, Flags{}))
	})

	t.Run("missing close", func(t *testing.T) {
		err := e.assert(t, []core.RawInstruction{create}, nil, Flags{})
		requireRejected(t, err, core.ErrPolicyViolation, 0, "Missing close instructions")
	})

	t.Run("close to other destination", func(t *testing.T) {
		err := e.assert(t, []core.RawInstruction{create, closeIx(ata, newKey())}, nil, Flags{})
		requireRejected(t, err, core.ErrPolicyViolation, 0, "Mismatched account creation payer and close instruction destination")
	})

	t.Run("close of other account", func(t *testing.T) {
		err := e.assert(t, []core.RawInstruction{create, closeIx(newKey(), payer)}, nil, Flags{})
		requireRejected(t, err, core.ErrPolicyViolation, 0, "Mismatched target token accounts")
	})

	t.Run("count mismatch", func(t *testing.T) {
		err := e.assert(t, []core.RawInstruction{create, create, closeIx(ata, payer)}, nil, Flags{})
		requireRejected(t, err, core.ErrPolicyViolation, 0, "Mismatched create and close instruction counts")
	})

	t.Run("mint not allowed", func(t *testing.T) {
		other := associatedtoken.NewCreate(payer, ata, owner, newKey())
		err := e.assert(t, []core.RawInstruction{other, closeIx(ata, payer)}, nil, Flags{})
		requireRejected(t, err, core.ErrPolicyViolation, 0, "Mint not allowed")
	})

	t.Run("close alone is allowed", func(t *testing.T) {
		assert.NoError(t, e.assert(t, []core.RawInstruction{closeIx(ata, payer)}, nil, Flags{}))
	})
}

func TestTokenTransferChecked(t *testing.T) {
	e := newEnv(t, nil)
	userBank, ok := e.rules.UserBank(caller.Wallet, consts.USDCMint)
	require.True(t, ok)

	transfer := func(mint, dest types.Pubkey) core.RawInstruction {
		return spltoken.EncodeTransferChecked(spltoken.TransferChecked{
			Source: newKey(), Mint: mint, Destination: dest, Owner: newKey(), Amount: 100, Decimals: 6,
		})
	}

	assert.NoError(t, e.assert(t, []core.RawInstruction{transfer(consts.USDCMint, userBank)}, caller, Flags{}))

	err := e.assert(t, []core.RawInstruction{transfer(consts.USDCMint, userBank)}, nil, Flags{})
	requireRejected(t, err, core.ErrAuthenticationRequired, 0, "Not logged in")

	err = e.assert(t, []core.RawInstruction{transfer(consts.USDCMint, newKey())}, caller, Flags{})
	requireRejected(t, err, core.ErrPolicyViolation, 0, "Transfer not to userbank")

	// WSOL 没有 claimable authority
	err = e.assert(t, []core.RawInstruction{transfer(consts.WSOLMint, userBank)}, caller, Flags{})
	requireRejected(t, err, core.ErrPolicyViolation, 0, "Transfer not to userbank")
}

func TestTokenOtherOperations(t *testing.T) {
	e := newEnv(t, nil)
	assert.NoError(t, e.assert(t, []core.RawInstruction{spltoken.EncodeSyncNative(spltoken.SyncNative{Account: newKey()})}, nil, Flags{}))

	transfer := core.RawInstruction{
		ProgramID: consts.TokenProgram,
		Accounts:  []core.AccountRef{{Address: newKey()}, {Address: newKey()}, {Address: newKey()}},
		Data:      []byte{3, 1, 0, 0, 0, 0, 0, 0, 0},
	}
	err := e.assert(t, []core.RawInstruction{transfer}, caller, Flags{})
	requireRejected(t, err, core.ErrUnknownOperation, 0, "transfer")
}

func TestRewardManager(t *testing.T) {
	e := newEnv(t, nil)
	build := func(state types.Pubkey) core.RawInstruction {
		ix, err := rewardmanager.EncodeSubmitAttestation(consts.RewardManagerProgram, rewardmanager.SubmitAttestation{
			Attestations:       newKey(),
			RewardManager:      state,
			Authority:          newKey(),
			Payer:              newKey(),
			Sender:             newKey(),
			Rent:               consts.SysvarRent,
			SysvarInstructions: consts.SysvarInstructions,
			SystemProgram:      consts.SystemProgram,
			DisbursementID:     "ft:1",
		})
		require.NoError(t, err)
		return ix
	}

	assert.NoError(t, e.assert(t, []core.RawInstruction{build(consts.RewardManagerState)}, nil, Flags{}))

	err := e.assert(t, []core.RawInstruction{build(newKey())}, nil, Flags{})
	requireRejected(t, err, core.ErrPolicyViolation, 0, "Invalid reward manager")

	admin, err := rewardmanager.EncodeCreateSender(consts.RewardManagerProgram, rewardmanager.CreateSender{
		RewardManager: consts.RewardManagerState,
		Manager:       newKey(),
		Authority:     newKey(),
		Payer:         newKey(),
		Sender:        newKey(),
	}, consts.SystemProgram, consts.SysvarRent)
	require.NoError(t, err)
	err = e.assert(t, []core.RawInstruction{admin}, nil, Flags{})
	requireRejected(t, err, core.ErrUnknownOperation, 0, "createSender")
}

func claimableTransfer(t *testing.T, authority types.Pubkey) core.RawInstruction {
	ix, err := claimable.EncodeTransfer(consts.ClaimableTokensProgram, claimable.Transfer{
		Payer:              newKey(),
		SourceUserBank:     newKey(),
		Destination:        newKey(),
		NonceAccount:       newKey(),
		Authority:          authority,
		Rent:               consts.SysvarRent,
		SysvarInstructions: consts.SysvarInstructions,
		EthAddress:         caller.Wallet,
	})
	require.NoError(t, err)
	return ix
}

func TestClaimable(t *testing.T) {
	e := newEnv(t, nil)
	usdcAuthority := e.rules.ClaimableAuthorities[consts.USDCMint]
	audioAuthority := e.rules.ClaimableAuthorities[consts.WAudioMint]
	require.False(t, usdcAuthority.IsZero())
	require.NotEqual(t, usdcAuthority, audioAuthority)

	assert.NoError(t, e.assert(t, []core.RawInstruction{claimableTransfer(t, usdcAuthority)}, nil, Flags{}))
	assert.NoError(t, e.assert(t, []core.RawInstruction{claimableTransfer(t, audioAuthority)}, nil, Flags{}))

	err := e.assert(t, []core.RawInstruction{claimableTransfer(t, newKey())}, nil, Flags{})
	requireRejected(t, err, core.ErrPolicyViolation, 0, "Invalid authority for transfer user bank")

	create := func(authority types.Pubkey) core.RawInstruction {
		ix, err := claimable.EncodeCreateTokenAccount(consts.ClaimableTokensProgram, claimable.CreateTokenAccount{
			Payer: newKey(), Mint: consts.USDCMint, Authority: authority, UserBank: newKey(), Rent: consts.SysvarRent, EthAddress: caller.Wallet,
		})
		require.NoError(t, err)
		return ix
	}
	assert.NoError(t, e.assert(t, []core.RawInstruction{create(usdcAuthority)}, nil, Flags{}))
	err = e.assert(t, []core.RawInstruction{create(newKey())}, nil, Flags{})
	requireRejected(t, err, core.ErrPolicyViolation, 0, "Invalid authority for create user bank")
}

func TestClaimableSocialProof(t *testing.T) {
	flags := Flags{RequireSocialProof: true}

	t.Run("no caller", func(t *testing.T) {
		e := newEnv(t, nil)
		ix := claimableTransfer(t, e.rules.ClaimableAuthorities[consts.USDCMint])
		err := e.assert(t, []core.RawInstruction{ix}, nil, flags)
		requireRejected(t, err, core.ErrSocialProofRequired, 0, "")
		assert.Zero(t, e.social.calls)
	})

	t.Run("not verified", func(t *testing.T) {
		e := newEnv(t, nil)
		ix := claimableTransfer(t, e.rules.ClaimableAuthorities[consts.USDCMint])
		err := e.assert(t, []core.RawInstruction{ix}, caller, flags)
		requireRejected(t, err, core.ErrSocialProofRequired, 0, "")
	})

	t.Run("verified", func(t *testing.T) {
		e := newEnv(t, nil)
		e.social.verified[caller.UserID] = true
		ix := claimableTransfer(t, e.rules.ClaimableAuthorities[consts.USDCMint])
		assert.NoError(t, e.assert(t, []core.RawInstruction{ix}, caller, flags))
	})

	t.Run("lookup failure fails closed", func(t *testing.T) {
		e := newEnv(t, nil)
		e.social.err = errors.New("db down")
		ix := claimableTransfer(t, e.rules.ClaimableAuthorities[consts.USDCMint])
		err := e.assert(t, []core.RawInstruction{ix}, caller, flags)
		requireRejected(t, err, core.ErrPolicyLookupFailed, 0, "")
	})

	t.Run("flag from rules", func(t *testing.T) {
		e := newEnv(t, func(cfg *RulesConfig) { cfg.RequireSocialProof = true })
		ix := claimableTransfer(t, e.rules.ClaimableAuthorities[consts.USDCMint])
		err := e.assert(t, []core.RawInstruction{ix}, caller, Flags{})
		requireRejected(t, err, core.ErrSocialProofRequired, 0, "")
	})
}

func swapIx(userAuthority, sourceMint, destMint types.Pubkey) core.RawInstruction {
	data := []byte{
		193, 32, 155, 51, 65, 214, 156, 129, 2, 1, 0, 0, 0, 3, 100, 0, 1,
		92, 161, 0, 0, 0, 0, 0, 0, 236, 52, 31, 0, 0, 0, 0, 0, 3, 0, 0,
	}
	accounts := []core.AccountRef{
		{Address: consts.TokenProgram},
		{Address: newKey()},
		{Address: userAuthority, IsSigner: true, IsWritable: true},
		{Address: newKey(), IsWritable: true},
		{Address: newKey(), IsWritable: true},
		{Address: newKey(), IsWritable: true},
		{Address: newKey(), IsWritable: true},
		{Address: sourceMint},
		{Address: destMint},
	}
	return core.RawInstruction{ProgramID: consts.JupiterV6Program, Accounts: accounts, Data: data}
}

func TestJupiterSwap(t *testing.T) {
	e := newEnv(t, nil)

	assert.NoError(t, e.assert(t, []core.RawInstruction{swapIx(newKey(), consts.USDCMint, consts.WSOLMint)}, caller, Flags{}))

	err := e.assert(t, []core.RawInstruction{swapIx(newKey(), consts.USDCMint, consts.WSOLMint)}, nil, Flags{})
	requireRejected(t, err, core.ErrAuthenticationRequired, 0, "")

	err = e.assert(t, []core.RawInstruction{swapIx(newKey(), consts.WAudioMint, consts.WSOLMint)}, caller, Flags{})
	requireRejected(t, err, core.ErrPolicyViolation, 0, "Invalid mints for swap")

	err = e.assert(t, []core.RawInstruction{swapIx(e.feePayer, consts.USDCMint, consts.WSOLMint)}, caller, Flags{})
	requireRejected(t, err, core.ErrPolicyViolation, 0, "Invalid user transfer authority")

	other := swapIx(newKey(), consts.USDCMint, consts.WSOLMint)
	other.Data[0] ^= 0xFF
	err = e.assert(t, []core.RawInstruction{other}, caller, Flags{})
	requireRejected(t, err, core.ErrUnknownOperation, 0, "")
}

func TestMemoAndSecp256k1(t *testing.T) {
	signer := types.EthAddress{0x01, 0x02}
	verify := secp256k1.Encode(secp256k1.CurrentInstruction, signer, [64]byte{}, 0, []byte("msg"))

	e := newEnv(t, nil)
	assert.NoError(t, e.assert(t, []core.RawInstruction{memo.Encode("hi", false), memo.Encode("hi", true), verify}, nil, Flags{}))

	restricted := newEnv(t, func(cfg *RulesConfig) { cfg.Secp256k1Signers = []string{signer.Hex()} })
	assert.NoError(t, restricted.assert(t, []core.RawInstruction{verify}, nil, Flags{}))

	stranger := secp256k1.Encode(secp256k1.CurrentInstruction, types.EthAddress{0x09}, [64]byte{}, 0, []byte("msg"))
	err := restricted.assert(t, []core.RawInstruction{memo.Encode("x", true), stranger}, nil, Flags{})
	requireRejected(t, err, core.ErrPolicyViolation, 1, "secp256k1 signer")

	foreign := secp256k1.Encode(0, signer, [64]byte{}, 0, []byte("msg"))
	err = restricted.assert(t, []core.RawInstruction{memo.Encode("x", true), foreign}, nil, Flags{})
	requireRejected(t, err, core.ErrPolicyViolation, 1, "inline")
}

func TestUnknownProgramRejectsWholeBatch(t *testing.T) {
	e := newEnv(t, nil)
	unknown := core.RawInstruction{
		ProgramID: newKey(),
		Accounts:  []core.AccountRef{{Address: newKey()}},
		Data:      []byte{1},
	}
	ixs := []core.RawInstruction{memo.Encode("ok", true), unknown}
	err := e.assert(t, ixs, caller, Flags{})
	requireRejected(t, err, core.ErrUnknownProgram, 1, "")
}

func TestFirstViolationWins(t *testing.T) {
	e := newEnv(t, nil)
	ixs := []core.RawInstruction{
		claimableTransfer(t, newKey()),
		swapIx(newKey(), consts.USDCMint, consts.WSOLMint),
	}
	err := e.assert(t, ixs, nil, Flags{})
	requireRejected(t, err, core.ErrPolicyViolation, 0, "Invalid authority for transfer user bank")
}

func TestNilRulesFailsClosed(t *testing.T) {
	registry := codec.NewRegistry(codec.ProgramIDs{})
	v := NewValidator(registry, NewStaticRules(nil), nil, nil)
	err := v.AssertAllowed(context.Background(), []core.RawInstruction{memo.Encode("x", true)}, nil, Flags{})
	requireRejected(t, err, core.ErrPolicyLookupFailed, -1, "")
}
