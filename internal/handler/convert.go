package handler

import (
	"fmt"

	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"
	dto "relay-gateway-sol/internal/types"
)

// toRelayRequest 把 JSON 请求转换为核心请求，地址/签名/字节数组的格式错误都在这里拒绝
func toRelayRequest(req *dto.RelayReq) (core.RelayRequest, *core.RelayError) {
	var out core.RelayRequest

	blockhash, err := types.HashFromBase58(req.RecentBlockhash)
	if err != nil {
		return out, core.WrapError(core.ErrMalformedInstruction, err, "invalid recentBlockhash")
	}
	out.RecentBlockhash = blockhash
	out.Retry = req.Retry
	out.SkipPreflight = req.SkipPreflight

	out.Instructions = make([]core.RawInstruction, 0, len(req.Instructions))
	for i, ix := range req.Instructions {
		raw, err := toRawInstruction(ix)
		if err != nil {
			return out, core.NewInstructionError(core.ErrMalformedInstruction, i, "%v", err)
		}
		out.Instructions = append(out.Instructions, raw)
	}

	for _, s := range req.Signatures {
		pk, err := types.TryPubkeyFromBase58(s.PublicKey)
		if err != nil {
			return out, core.WrapError(core.ErrMalformedInstruction, err, "invalid signature publicKey")
		}
		sig, err := types.SignatureFromBase58(s.Signature)
		if err != nil {
			return out, core.WrapError(core.ErrMalformedInstruction, err, "invalid signature for %s", pk)
		}
		out.ClientSignatures = append(out.ClientSignatures, core.ClientSignature{Signer: pk, Signature: sig})
	}

	if req.FeePayerOverride != "" {
		pk, err := types.TryPubkeyFromBase58(req.FeePayerOverride)
		if err != nil {
			return out, core.WrapError(core.ErrMalformedInstruction, err, "invalid feePayerOverride")
		}
		out.FeePayerOverride = &pk
	}

	for _, addr := range req.LookupTableAddresses {
		pk, err := types.TryPubkeyFromBase58(addr)
		if err != nil {
			return out, core.WrapError(core.ErrMalformedInstruction, err, "invalid lookup table address")
		}
		out.LookupTableAddresses = append(out.LookupTableAddresses, pk)
	}
	return out, nil
}

func toRawInstruction(ix dto.Instruction) (core.RawInstruction, error) {
	var raw core.RawInstruction
	program, err := types.TryPubkeyFromBase58(ix.ProgramId)
	if err != nil {
		return raw, fmt.Errorf("invalid programId: %w", err)
	}
	raw.ProgramID = program

	raw.Accounts = make([]core.AccountRef, 0, len(ix.Keys))
	for j, k := range ix.Keys {
		pk, err := types.TryPubkeyFromBase58(k.Pubkey)
		if err != nil {
			return raw, fmt.Errorf("invalid key %d: %w", j, err)
		}
		raw.Accounts = append(raw.Accounts, core.AccountRef{Address: pk, IsSigner: k.IsSigner, IsWritable: k.IsWritable})
	}

	raw.Data = make([]byte, len(ix.Data))
	for j, b := range ix.Data {
		if b < 0 || b > 255 {
			return raw, fmt.Errorf("data[%d]=%d is not a byte", j, b)
		}
		raw.Data[j] = byte(b)
	}
	return raw, nil
}
