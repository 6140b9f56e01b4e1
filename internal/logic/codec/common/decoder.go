package common

import (
	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"
)

// Decoded 是解码后的强类型指令。每个程序 × 操作对应一个具体类型，
// 账户按角色命名、负载字段按布局解出。
type Decoded interface {
	Program() consts.ProgramKind
	Op() string
}

// Decoder 定义了单个程序的解码函数签名。
//
// 解码器是纯函数：不得访问网络、不得修改输入；失败时返回 *core.RelayError
// （MalformedInstruction 或 UnknownOperation），序号由调用方补齐。
type Decoder func(ix core.RawInstruction) (Decoded, error)

// Instruction 是批次中的一条指令：原始形态、解码形态及其位置
type Instruction struct {
	Index   int
	Raw     core.RawInstruction
	Decoded Decoded
}

// RequireAccounts 校验账户数量不少于布局要求
func RequireAccounts(ix core.RawInstruction, op string, n int) error {
	if len(ix.Accounts) < n {
		return core.NewError(core.ErrMalformedInstruction,
			"%s: account list too short: got %d, want >= %d", op, len(ix.Accounts), n)
	}
	return nil
}

// RequireData 校验数据长度不少于布局要求
func RequireData(ix core.RawInstruction, op string, n int) error {
	if len(ix.Data) < n {
		return core.NewError(core.ErrMalformedInstruction,
			"%s: data too short: got %d, want >= %d", op, len(ix.Data), n)
	}
	return nil
}

// AccountAt 读取第 i 个账户地址，调用前必须已通过 RequireAccounts
func AccountAt(ix core.RawInstruction, i int) types.Pubkey {
	return ix.Accounts[i].Address
}

// AccountsFrom 返回从第 i 个开始的剩余账户地址（变长尾部，如 existingSenders）
func AccountsFrom(ix core.RawInstruction, i int) []types.Pubkey {
	if i >= len(ix.Accounts) {
		return nil
	}
	out := make([]types.Pubkey, 0, len(ix.Accounts)-i)
	for _, a := range ix.Accounts[i:] {
		out = append(out, a.Address)
	}
	return out
}

func UnknownOperation(program consts.ProgramKind, discriminant interface{}) error {
	return core.NewError(core.ErrUnknownOperation, "%s: unknown instruction discriminant %v", program, discriminant)
}

func Malformed(format string, args ...interface{}) error {
	return core.NewError(core.ErrMalformedInstruction, format, args...)
}
