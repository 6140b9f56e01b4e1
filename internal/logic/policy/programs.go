package policy

import (
	"relay-gateway-sol/internal/logic/codec/associatedtoken"
	"relay-gateway-sol/internal/logic/codec/claimable"
	"relay-gateway-sol/internal/logic/codec/common"
	"relay-gateway-sol/internal/logic/codec/jupiter"
	"relay-gateway-sol/internal/logic/codec/secp256k1"
	"relay-gateway-sol/internal/logic/codec/spltoken"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/logger"
	"relay-gateway-sol/internal/pkg/types"
)

// checkAssociatedTokenCreate 校验 mint 白名单与 create/close 配对（防止 fee payer 被抽干）。
//
// 对同一 (associatedToken, payer) 的每次创建，整批中必须存在等量的
// CloseAccount(account=associatedToken, destination=payer)，位置与顺序不限。
func checkAssociatedTokenCreate(bc *batchContext, index int, c *associatedtoken.Create) error {
	if !bc.rules.IsAssociatedTokenMintAllowed(c.Mint) {
		return violation(index, "Mint not allowed")
	}

	var (
		creates         int
		matched         int
		closes          int
		sameAccount     int // account 相同但 destination 不同
		sameDestination int // destination 相同但 account 不同
	)
	for _, other := range bc.batch {
		switch d := other.Decoded.(type) {
		case *associatedtoken.Create:
			if d.AssociatedToken == c.AssociatedToken && d.Payer == c.Payer {
				creates++
			}
		case *spltoken.CloseAccount:
			closes++
			accountOK := d.Account == c.AssociatedToken
			destOK := d.Destination == c.Payer
			switch {
			case accountOK && destOK:
				matched++
			case accountOK:
				sameAccount++
			case destOK:
				sameDestination++
			}
		}
	}

	if creates == matched {
		return nil
	}
	switch {
	case closes == 0:
		return violation(index, "Missing close instructions")
	case matched == 0 && sameAccount > 0:
		return violation(index, "Mismatched account creation payer and close instruction destination")
	case matched == 0 && sameDestination > 0:
		return violation(index, "Mismatched target token accounts")
	case matched == 0:
		return violation(index, "Missing close instructions")
	default:
		return violation(index, "Mismatched create and close instruction counts")
	}
}

// checkTransferChecked 只允许转入调用方自己在该 mint 下的 user bank
func checkTransferChecked(bc *batchContext, index int, t *spltoken.TransferChecked) error {
	if err := requireCaller(bc, index); err != nil {
		return err
	}
	userBank, ok := bc.rules.UserBank(bc.caller.Wallet, t.Mint)
	if !ok || t.Destination != userBank {
		return violation(index, "Transfer not to userbank")
	}
	return nil
}

func checkRewardManagerState(bc *batchContext, index int, rewardManager types.Pubkey) error {
	if rewardManager != bc.rules.RewardManagerState {
		return violation(index, "Invalid reward manager")
	}
	return nil
}

func (v *Validator) checkClaimableTransfer(bc *batchContext, index int, t *claimable.Transfer) error {
	if !bc.rules.IsClaimableAuthority(t.Authority) {
		return violation(index, "Invalid authority for transfer user bank")
	}
	if !bc.flags.RequireSocialProof {
		return nil
	}

	if bc.caller == nil {
		return core.NewInstructionError(core.ErrSocialProofRequired, index, "Social proof required: caller not authenticated")
	}
	if v.socialProof == nil {
		return core.NewInstructionError(core.ErrPolicyLookupFailed, index, "social proof checker not configured")
	}
	ok, err := v.socialProof.HasVerifiedIdentity(bc.ctx, bc.caller.UserID)
	if err != nil {
		logger.Warnf("[Policy:SocialProof] 查询失败, userId=%d, err=%v", bc.caller.UserID, err)
		re := core.WrapError(core.ErrPolicyLookupFailed, err, "social proof lookup failed")
		return re.WithIndex(index)
	}
	if !ok {
		return core.NewInstructionError(core.ErrSocialProofRequired, index,
			"Social proof required: user %d has no verified identity", bc.caller.UserID)
	}
	return nil
}

// checkSharedAccountsRoute 只允许已登录用户做 stable → native 兑换，且不得动用 fee payer 的资金
func (v *Validator) checkSharedAccountsRoute(bc *batchContext, index int, s *jupiter.SharedAccountsRoute) error {
	if err := requireCaller(bc, index); err != nil {
		return err
	}
	if s.SourceMint != bc.rules.SwapStableMint || s.DestinationMint != bc.rules.SwapNativeMint {
		return violation(index, "Invalid mints for swap")
	}
	if v.feePayers != nil && v.feePayers.IsFeePayer(s.UserTransferAuthority) {
		return violation(index, "Invalid user transfer authority")
	}
	return nil
}

// checkSecp256k1 签名者白名单为空时不做限制；非空时签名者地址必须内联在本指令中
func checkSecp256k1(bc *batchContext, ix *common.Instruction, s *secp256k1.Verify) error {
	index := ix.Index
	if len(bc.rules.Secp256k1Signers) == 0 {
		return nil
	}
	signers, ok := s.SignerAddresses(ix.Raw.Data, index)
	if !ok {
		return violation(index, "Secp256k1 signer address must be inline")
	}
	for _, addr := range signers {
		if _, ok := bc.rules.Secp256k1Signers[addr]; !ok {
			return violation(index, "Unknown secp256k1 signer "+addr.Hex())
		}
	}
	return nil
}
