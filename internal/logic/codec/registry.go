package codec

import (
	"runtime/debug"

	"relay-gateway-sol/internal/logic/codec/associatedtoken"
	"relay-gateway-sol/internal/logic/codec/claimable"
	"relay-gateway-sol/internal/logic/codec/common"
	"relay-gateway-sol/internal/logic/codec/jupiter"
	"relay-gateway-sol/internal/logic/codec/memo"
	"relay-gateway-sol/internal/logic/codec/rewardmanager"
	"relay-gateway-sol/internal/logic/codec/secp256k1"
	"relay-gateway-sol/internal/logic/codec/spltoken"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/logger"
	"relay-gateway-sol/internal/pkg/types"
)

// ProgramIDs 是部署相关的程序地址，固定的原生程序不在此列
type ProgramIDs struct {
	RewardManager types.Pubkey
	Claimable     types.Pubkey
	Jupiter       types.Pubkey
}

// Registry 是 ProgramID → 解码器的路由表，构造后只读，可并发使用
type Registry struct {
	decoders map[types.Pubkey]common.Decoder
}

func NewRegistry(ids ProgramIDs) *Registry {
	m := make(map[types.Pubkey]common.Decoder, 10)
	associatedtoken.RegisterDecoders(m)
	spltoken.RegisterDecoders(m)
	memo.RegisterDecoders(m)
	secp256k1.RegisterDecoders(m)
	rewardmanager.RegisterDecoders(m, ids.RewardManager)
	claimable.RegisterDecoders(m, ids.Claimable)
	jupiter.RegisterDecoders(m, ids.Jupiter)
	return &Registry{decoders: m}
}

// Supports 判断程序是否在可解析集合内
func (r *Registry) Supports(program types.Pubkey) bool {
	_, ok := r.decoders[program]
	return ok
}

// Decode 解码单条指令，错误统一带上指令序号
func (r *Registry) Decode(index int, ix core.RawInstruction) (*common.Instruction, error) {
	if err := core.CheckShallow(index, ix); err != nil {
		return nil, err
	}
	decoder, ok := r.decoders[ix.ProgramID]
	if !ok {
		return nil, core.NewInstructionError(core.ErrUnknownProgram, index, "program %s is not relayable", ix.ProgramID)
	}
	decoded, err := decoder(ix)
	if err != nil {
		if re, ok := core.AsRelayError(err); ok {
			return nil, re.WithIndex(index)
		}
		return nil, core.NewInstructionError(core.ErrMalformedInstruction, index, "%v", err)
	}
	return &common.Instruction{Index: index, Raw: ix, Decoded: decoded}, nil
}

// DecodeBatch 按顺序解码整批指令，遇到第一条失败即返回
func (r *Registry) DecodeBatch(ixs []core.RawInstruction) (result []*common.Instruction, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Errorf("[codec:DecodeBatch] panic: %+v\nstack: %s", p, debug.Stack())
			result = nil
			err = core.NewError(core.ErrMalformedInstruction, "instruction decode panic: %v", p)
		}
	}()

	result = make([]*common.Instruction, 0, len(ixs))
	for i, ix := range ixs {
		decoded, err := r.Decode(i, ix)
		if err != nil {
			return nil, err
		}
		result = append(result, decoded)
	}
	return result, nil
}
