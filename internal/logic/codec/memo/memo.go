package memo

import (
	"unicode/utf8"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/codec/common"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"
)

// Memo v1 / v2 数据即 UTF-8 文本；账户全部为可选签名者
func RegisterDecoders(m map[types.Pubkey]common.Decoder) {
	m[consts.MemoProgram] = Decode
	m[consts.MemoV2Program] = Decode
}

type Memo struct {
	V2      bool
	Text    string
	Signers []types.Pubkey
}

func (m *Memo) Program() consts.ProgramKind { return consts.ProgramMemo }
func (m *Memo) Op() string                  { return "memo" }

func Decode(ix core.RawInstruction) (common.Decoded, error) {
	if !utf8.Valid(ix.Data) {
		return nil, common.Malformed("Memo: data is not valid utf-8")
	}
	return &Memo{
		V2:      ix.ProgramID == consts.MemoV2Program,
		Text:    string(ix.Data),
		Signers: common.AccountsFrom(ix, 0),
	}, nil
}

func Encode(text string, v2 bool, signers ...types.Pubkey) core.RawInstruction {
	program := consts.MemoProgram
	if v2 {
		program = consts.MemoV2Program
	}
	accounts := make([]core.AccountRef, 0, len(signers))
	for _, s := range signers {
		accounts = append(accounts, core.AccountRef{Address: s, IsSigner: true})
	}
	return core.RawInstruction{ProgramID: program, Accounts: accounts, Data: []byte(text)}
}
