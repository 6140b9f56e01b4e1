package policy

import (
	"context"

	"relay-gateway-sol/internal/logic/codec"
	"relay-gateway-sol/internal/logic/codec/associatedtoken"
	"relay-gateway-sol/internal/logic/codec/claimable"
	"relay-gateway-sol/internal/logic/codec/common"
	"relay-gateway-sol/internal/logic/codec/jupiter"
	"relay-gateway-sol/internal/logic/codec/memo"
	"relay-gateway-sol/internal/logic/codec/rewardmanager"
	"relay-gateway-sol/internal/logic/codec/secp256k1"
	"relay-gateway-sol/internal/logic/codec/spltoken"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"
)

// SocialProofChecker 查询用户是否存在已验证的外部社交身份
type SocialProofChecker interface {
	HasVerifiedIdentity(ctx context.Context, userID int64) (bool, error)
}

// FeePayerSet 判断地址是否为托管 fee payer
type FeePayerSet interface {
	IsFeePayer(addr types.Pubkey) bool
}

// Flags 请求级开关，与规则快照中的开关取或
type Flags struct {
	RequireSocialProof bool
}

// Validator 对整批指令做全有或全无的策略校验。
// 自身无可变状态，规则与外部依赖均通过构造注入。
type Validator struct {
	registry    *codec.Registry
	rules       RulesProvider
	socialProof SocialProofChecker
	feePayers   FeePayerSet
}

func NewValidator(registry *codec.Registry, rules RulesProvider, socialProof SocialProofChecker, feePayers FeePayerSet) *Validator {
	return &Validator{
		registry:    registry,
		rules:       rules,
		socialProof: socialProof,
		feePayers:   feePayers,
	}
}

// batchContext 单次校验的上下文，规则快照在此固定
type batchContext struct {
	ctx    context.Context
	rules  *Rules
	caller *core.CallerIdentity
	flags  Flags
	batch  []*common.Instruction
}

// AssertAllowed 解码整批指令后执行策略校验
func (v *Validator) AssertAllowed(ctx context.Context, instrs []core.RawInstruction, caller *core.CallerIdentity, flags Flags) error {
	decoded, err := v.registry.DecodeBatch(instrs)
	if err != nil {
		return err
	}
	return v.AssertDecodedAllowed(ctx, decoded, caller, flags)
}

// AssertDecodedAllowed 按请求顺序逐条校验，返回第一条违规指令的错误
func (v *Validator) AssertDecodedAllowed(ctx context.Context, batch []*common.Instruction, caller *core.CallerIdentity, flags Flags) error {
	rules := v.rules.Current()
	if rules == nil {
		return core.NewError(core.ErrPolicyLookupFailed, "policy rules not loaded")
	}
	bc := &batchContext{
		ctx:    ctx,
		rules:  rules,
		caller: caller,
		flags:  Flags{RequireSocialProof: flags.RequireSocialProof || rules.RequireSocialProof},
		batch:  batch,
	}
	for _, ix := range batch {
		if err := v.check(bc, ix); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) check(bc *batchContext, ix *common.Instruction) error {
	switch d := ix.Decoded.(type) {
	// Associated Token Account Program
	case *associatedtoken.Create:
		return checkAssociatedTokenCreate(bc, ix.Index, d)

	// Token Program
	case *spltoken.CloseAccount, *spltoken.SyncNative:
		return nil
	case *spltoken.TransferChecked:
		return checkTransferChecked(bc, ix.Index, d)

	// Reward Manager Program
	case *rewardmanager.CreateSenderPublic:
		return checkRewardManagerState(bc, ix.Index, d.RewardManager)
	case *rewardmanager.DeleteSenderPublic:
		return checkRewardManagerState(bc, ix.Index, d.RewardManager)
	case *rewardmanager.SubmitAttestation:
		return checkRewardManagerState(bc, ix.Index, d.RewardManager)
	case *rewardmanager.EvaluateAttestations:
		return checkRewardManagerState(bc, ix.Index, d.RewardManager)

	// Claimable Tokens Program
	case *claimable.CreateTokenAccount:
		if !bc.rules.IsClaimableAuthority(d.Authority) {
			return violation(ix.Index, "Invalid authority for create user bank")
		}
		return nil
	case *claimable.Transfer:
		return v.checkClaimableTransfer(bc, ix.Index, d)

	// Jupiter
	case *jupiter.SharedAccountsRoute:
		return v.checkSharedAccountsRoute(bc, ix.Index, d)

	// Memo / Secp256k1
	case *memo.Memo:
		return nil
	case *secp256k1.Verify:
		return checkSecp256k1(bc, ix, d)
	}

	if ix.Decoded == nil {
		return core.NewInstructionError(core.ErrUnknownProgram, ix.Index, "program %s is not relayable", ix.Raw.ProgramID)
	}
	// 已识别但不允许经中继执行的操作（ATA RecoverNested、Token 其它操作、reward manager 管理操作、
	// claimable SetAuthority / Close 等）
	return core.NewInstructionError(core.ErrUnknownOperation, ix.Index,
		"%s instruction not allowed: %s", ix.Decoded.Program(), ix.Decoded.Op())
}

func violation(index int, reason string) *core.RelayError {
	return core.NewInstructionError(core.ErrPolicyViolation, index, "%s", reason)
}

func requireCaller(bc *batchContext, index int) error {
	if bc.caller == nil {
		return core.NewInstructionError(core.ErrAuthenticationRequired, index, "Not logged in")
	}
	return nil
}
