package relay

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/ledger"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/logger"
	"relay-gateway-sol/internal/pkg/types"
	"relay-gateway-sol/internal/signer"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// build 组装交易：指令原样保留顺序，fee payer 放在首位，签名槽位全部置零
func (rl *Relayer) build(ctx context.Context, r *run) (tx sdktypes.Transaction, re *core.RelayError) {
	var tables []sdktypes.AddressLookupTableAccount
	if len(r.req.LookupTableAddresses) > 0 {
		if rl.lookups == nil {
			return tx, core.NewError(core.ErrMalformedInstruction, "lookup tables are not supported")
		}
		var err error
		tables, err = rl.lookups.ResolveLookupTables(ctx, r.req.LookupTableAddresses)
		if err != nil {
			if errors.Is(err, ledger.ErrLookupTableNotFound) {
				return tx, core.WrapError(core.ErrMalformedInstruction, err, "invalid lookup table")
			}
			logger.Warnf("[Relay:Build] id=%s 查找表读取失败: %v", r.id, err)
			return tx, core.WrapError(core.ErrSubmissionError, err, "lookup table fetch failed")
		}
	}

	ixs := make([]sdktypes.Instruction, 0, len(r.req.Instructions))
	for _, ix := range r.req.Instructions {
		ixs = append(ixs, ix.ToSDK())
	}

	// SDK 在账户编排异常时直接 panic
	defer func() {
		if p := recover(); p != nil {
			logger.Errorf("[Relay:Build] id=%s 构建消息 panic: %v", r.id, p)
			re = core.NewError(core.ErrMalformedInstruction, "cannot compile message: %v", p)
		}
	}()

	msg := sdktypes.NewMessage(sdktypes.NewMessageParam{
		FeePayer:                   r.feePayer.ToPublicKey(),
		Instructions:               ixs,
		RecentBlockhash:            r.req.RecentBlockhash.String(),
		AddressLookupTableAccounts: tables,
	})
	numSigners := int(msg.Header.NumRequireSignatures)
	tx = sdktypes.Transaction{
		Signatures: make([]sdktypes.Signature, numSigners),
		Message:    msg,
	}
	for i := range tx.Signatures {
		tx.Signatures[i] = make(sdktypes.Signature, consts.SignatureLength)
	}

	raw, err := tx.Serialize()
	if err != nil {
		return tx, core.WrapError(core.ErrMalformedInstruction, err, "serialize transaction")
	}
	if len(raw) > consts.PacketDataSize {
		return tx, core.NewError(core.ErrMalformedInstruction, "transaction too large: %d > %d bytes", len(raw), consts.PacketDataSize)
	}
	return tx, nil
}

// sign 先写入 fee payer 签名，再按槽位合并客户端签名。
// 客户端签名在写入前用 ed25519 校验，任何必需签名者缺签都拒绝。
func (rl *Relayer) sign(tx *sdktypes.Transaction, payer signer.KeyHandle, clientSigs []core.ClientSignature) *core.RelayError {
	if err := rl.signer.SignTransaction(tx, payer); err != nil {
		return core.WrapError(core.ErrSignerUnavailable, err, "fee payer signing failed")
	}

	message, err := tx.Message.Serialize()
	if err != nil {
		return core.WrapError(core.ErrMalformedInstruction, err, "serialize message")
	}

	numSigners := int(tx.Message.Header.NumRequireSignatures)
	slots := make(map[types.Pubkey]int, numSigners)
	for i := 0; i < numSigners && i < len(tx.Message.Accounts); i++ {
		slots[types.PubkeyFromPublicKey(tx.Message.Accounts[i])] = i
	}

	for _, cs := range clientSigs {
		slot, ok := slots[cs.Signer]
		if !ok {
			return core.NewError(core.ErrMalformedInstruction, "signature from %s is not a required signer", cs.Signer)
		}
		if slot == 0 {
			return core.NewError(core.ErrMalformedInstruction, "client signature cannot replace fee payer signature")
		}
		if !ed25519.Verify(ed25519.PublicKey(cs.Signer[:]), message, cs.Signature[:]) {
			return core.NewError(core.ErrMalformedInstruction, "invalid signature for %s", cs.Signer)
		}
		sig := make(sdktypes.Signature, consts.SignatureLength)
		copy(sig, cs.Signature[:])
		tx.Signatures[slot] = sig
	}

	for i := 0; i < numSigners; i++ {
		if isZeroSignature(tx.Signatures[i]) {
			return core.NewError(core.ErrMalformedInstruction, "missing signature for required signer %s",
				types.PubkeyFromPublicKey(tx.Message.Accounts[i]))
		}
	}
	return nil
}

func isZeroSignature(sig sdktypes.Signature) bool {
	for _, b := range sig {
		if b != 0 {
			return false
		}
	}
	return true
}

func signatureOf(tx sdktypes.Transaction) (string, error) {
	if len(tx.Signatures) == 0 {
		return "", fmt.Errorf("transaction has no signatures")
	}
	sig, err := types.SignatureFromBytes(tx.Signatures[0])
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}
