package core

import (
	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/pkg/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// AccountRef 指令引用的账户及其签名/可写标记
type AccountRef struct {
	Address    types.Pubkey `json:"pubkey"`
	IsSigner   bool         `json:"isSigner"`
	IsWritable bool         `json:"isWritable"`
}

// RawInstruction 是客户端提交的原始指令，单次请求内构造一次、不可变
type RawInstruction struct {
	ProgramID types.Pubkey `json:"programId"`
	Accounts  []AccountRef `json:"keys"`
	Data      []byte       `json:"data"`
}

// accountFreePrograms 的指令布局本身不需要账户（签名校验、无签名 memo）
var accountFreePrograms = map[types.Pubkey]struct{}{
	consts.Secp256k1Program: {},
	consts.MemoProgram:      {},
	consts.MemoV2Program:    {},
}

// CheckShallow 在解码前做结构校验：账户列表非空、数据非空。
// 地址格式在请求反序列化阶段已校验（types.Pubkey 只能是合法的 32 字节）。
func CheckShallow(index int, ix RawInstruction) error {
	if len(ix.Data) == 0 {
		return NewInstructionError(ErrMalformedInstruction, index, "empty instruction data")
	}
	if len(ix.Accounts) == 0 {
		if _, ok := accountFreePrograms[ix.ProgramID]; !ok {
			return NewInstructionError(ErrMalformedInstruction, index, "empty account list for program %s", ix.ProgramID)
		}
	}
	return nil
}

// ToSDK 转换为 SDK 指令，顺序与内容保持不变
func (ix RawInstruction) ToSDK() sdktypes.Instruction {
	metas := make([]sdktypes.AccountMeta, 0, len(ix.Accounts))
	for _, a := range ix.Accounts {
		metas = append(metas, sdktypes.AccountMeta{
			PubKey:     a.Address.ToPublicKey(),
			IsSigner:   a.IsSigner,
			IsWritable: a.IsWritable,
		})
	}
	data := make([]byte, len(ix.Data))
	copy(data, ix.Data)
	return sdktypes.Instruction{
		ProgramID: ix.ProgramID.ToPublicKey(),
		Accounts:  metas,
		Data:      data,
	}
}
