package associatedtoken

import (
	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/codec/common"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"
)

// 合约源代码: https://github.com/solana-program/associated-token-account/blob/main/program/src/instruction.rs
//
// 数据为空（旧版客户端）等价于 Create
const (
	InstructionCreate           byte = 0
	InstructionCreateIdempotent byte = 1
	InstructionRecoverNested    byte = 2
)

// RegisterDecoders 注册 ATA 程序解码器
func RegisterDecoders(m map[types.Pubkey]common.Decoder) {
	m[consts.AssociatedTokenProgram] = Decode
}

// Create 表示 Create / CreateIdempotent
//
// #0 - Payer（出资方，签名 + 可写）
// #1 - Associated Token 账户（待创建，可写）
// #2 - Owner 钱包
// #3 - Mint
// #4 - System Program
// #5 - Token Program
type Create struct {
	Idempotent      bool
	Payer           types.Pubkey
	AssociatedToken types.Pubkey
	Owner           types.Pubkey
	Mint            types.Pubkey
	SystemProgram   types.Pubkey
	TokenProgram    types.Pubkey
}

func (c *Create) Program() consts.ProgramKind { return consts.ProgramAssociatedToken }

func (c *Create) Op() string {
	if c.Idempotent {
		return "createIdempotent"
	}
	return "create"
}

// RecoverNested 回收嵌套 ATA
//
// #0 - Nested Associated Token 账户
// #1 - Nested Mint
// #2 - Destination Associated Token 账户
// #3 - Owner Associated Token 账户
// #4 - Owner Mint
// #5 - Wallet（签名）
// #6 - Token Program
type RecoverNested struct {
	NestedAssociatedToken      types.Pubkey
	NestedMint                 types.Pubkey
	DestinationAssociatedToken types.Pubkey
	OwnerAssociatedToken       types.Pubkey
	OwnerMint                  types.Pubkey
	Wallet                     types.Pubkey
	TokenProgram               types.Pubkey
}

func (r *RecoverNested) Program() consts.ProgramKind { return consts.ProgramAssociatedToken }
func (r *RecoverNested) Op() string                  { return "recoverNested" }

func Decode(ix core.RawInstruction) (common.Decoded, error) {
	op := InstructionCreate
	if len(ix.Data) > 0 {
		op = ix.Data[0]
	}

	switch op {
	case InstructionCreate, InstructionCreateIdempotent:
		if err := common.RequireAccounts(ix, "AssociatedToken:Create", 6); err != nil {
			return nil, err
		}
		return &Create{
			Idempotent:      op == InstructionCreateIdempotent,
			Payer:           common.AccountAt(ix, 0),
			AssociatedToken: common.AccountAt(ix, 1),
			Owner:           common.AccountAt(ix, 2),
			Mint:            common.AccountAt(ix, 3),
			SystemProgram:   common.AccountAt(ix, 4),
			TokenProgram:    common.AccountAt(ix, 5),
		}, nil

	case InstructionRecoverNested:
		if err := common.RequireAccounts(ix, "AssociatedToken:RecoverNested", 7); err != nil {
			return nil, err
		}
		return &RecoverNested{
			NestedAssociatedToken:      common.AccountAt(ix, 0),
			NestedMint:                 common.AccountAt(ix, 1),
			DestinationAssociatedToken: common.AccountAt(ix, 2),
			OwnerAssociatedToken:       common.AccountAt(ix, 3),
			OwnerMint:                  common.AccountAt(ix, 4),
			Wallet:                     common.AccountAt(ix, 5),
			TokenProgram:               common.AccountAt(ix, 6),
		}, nil

	default:
		return nil, common.UnknownOperation(consts.ProgramAssociatedToken, op)
	}
}

// EncodeCreate 构造 Create / CreateIdempotent 指令
func EncodeCreate(c Create) core.RawInstruction {
	op := InstructionCreate
	if c.Idempotent {
		op = InstructionCreateIdempotent
	}
	return core.RawInstruction{
		ProgramID: consts.AssociatedTokenProgram,
		Accounts: []core.AccountRef{
			{Address: c.Payer, IsSigner: true, IsWritable: true},
			{Address: c.AssociatedToken, IsWritable: true},
			{Address: c.Owner},
			{Address: c.Mint},
			{Address: c.SystemProgram},
			{Address: c.TokenProgram},
		},
		Data: []byte{op},
	}
}

// NewCreate 以默认 System / Token Program 构造 Create
func NewCreate(payer, associatedToken, owner, mint types.Pubkey) core.RawInstruction {
	return EncodeCreate(Create{
		Payer:           payer,
		AssociatedToken: associatedToken,
		Owner:           owner,
		Mint:            mint,
		SystemProgram:   consts.SystemProgram,
		TokenProgram:    consts.TokenProgram,
	})
}
