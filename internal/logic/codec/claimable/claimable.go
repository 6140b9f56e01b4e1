package claimable

import (
	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/codec/common"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"
)

// 合约源代码: solana-programs/claimable-tokens/program/src/processor.rs
//
// 指令数据为 borsh 枚举：[0]=标签，带地址的变体后跟 20 字节以太坊地址
const (
	InstructionCreateTokenAccount byte = 0
	InstructionTransfer           byte = 1
	InstructionSetAuthority       byte = 2
	InstructionClose              byte = 3
)

// RegisterDecoders 注册 claimable-tokens 程序解码器（程序 ID 由配置决定）
func RegisterDecoders(m map[types.Pubkey]common.Decoder, programID types.Pubkey) {
	m[programID] = Decode
}

type ethAddressArgs struct {
	EthAddress types.EthAddress
}

// CreateTokenAccount: [0]=0, [1:21]=ethAddress
//
// #0 - Payer（出资方，签名）
// #1 - Mint
// #2 - Authority（mint 对应的 PDA，作为 base）
// #3 - User Bank（待创建，可写）
// #4 - Sysvar Rent
// #5.. - Token Program / System Program（客户端附带）
type CreateTokenAccount struct {
	Payer      types.Pubkey
	Mint       types.Pubkey
	Authority  types.Pubkey
	UserBank   types.Pubkey
	Rent       types.Pubkey
	EthAddress types.EthAddress
}

func (c *CreateTokenAccount) Program() consts.ProgramKind { return consts.ProgramClaimableTokens }
func (c *CreateTokenAccount) Op() string                  { return "createTokenAccount" }

// Transfer: [0]=1, [1:21]=来源 ethAddress
//
// #0 - Payer（签名）
// #1 - Source User Bank
// #2 - Destination TokenAccount
// #3 - Nonce 账户（防重放）
// #4 - Authority（PDA）
// #5 - Sysvar Rent
// #6 - Sysvar Instructions（读取 secp256k1 校验指令）
// #7.. - System Program / Token Program（客户端附带）
type Transfer struct {
	Payer              types.Pubkey
	SourceUserBank     types.Pubkey
	Destination        types.Pubkey
	NonceAccount       types.Pubkey
	Authority          types.Pubkey
	Rent               types.Pubkey
	SysvarInstructions types.Pubkey
	EthAddress         types.EthAddress
}

func (t *Transfer) Program() consts.ProgramKind { return consts.ProgramClaimableTokens }
func (t *Transfer) Op() string                  { return "transfer" }

// SetAuthority: [0]=2
//
// #0 - User Bank
// #1 - Authority
// #2 - Sysvar Instructions
// #3 - Recent Blockhashes
type SetAuthority struct {
	UserBank  types.Pubkey
	Authority types.Pubkey
}

func (s *SetAuthority) Program() consts.ProgramKind { return consts.ProgramClaimableTokens }
func (s *SetAuthority) Op() string                  { return "setAuthority" }

// Close: [0]=3, [1:21]=ethAddress
//
// #0 - User Bank
// #1 - Authority
// #2 - Destination（接收租金）
// #3 - Token Program
type Close struct {
	UserBank    types.Pubkey
	Authority   types.Pubkey
	Destination types.Pubkey
	EthAddress  types.EthAddress
}

func (c *Close) Program() consts.ProgramKind { return consts.ProgramClaimableTokens }
func (c *Close) Op() string                  { return "close" }

func Decode(ix core.RawInstruction) (common.Decoded, error) {
	if err := common.RequireData(ix, "ClaimableTokens", 1); err != nil {
		return nil, err
	}

	switch code := ix.Data[0]; code {
	case InstructionCreateTokenAccount:
		const op = "ClaimableTokens:CreateTokenAccount"
		if err := common.RequireAccounts(ix, op, 5); err != nil {
			return nil, err
		}
		eth, err := decodeEthAddress(op, ix)
		if err != nil {
			return nil, err
		}
		return &CreateTokenAccount{
			Payer:      common.AccountAt(ix, 0),
			Mint:       common.AccountAt(ix, 1),
			Authority:  common.AccountAt(ix, 2),
			UserBank:   common.AccountAt(ix, 3),
			Rent:       common.AccountAt(ix, 4),
			EthAddress: eth,
		}, nil

	case InstructionTransfer:
		const op = "ClaimableTokens:Transfer"
		if err := common.RequireAccounts(ix, op, 7); err != nil {
			return nil, err
		}
		eth, err := decodeEthAddress(op, ix)
		if err != nil {
			return nil, err
		}
		return &Transfer{
			Payer:              common.AccountAt(ix, 0),
			SourceUserBank:     common.AccountAt(ix, 1),
			Destination:        common.AccountAt(ix, 2),
			NonceAccount:       common.AccountAt(ix, 3),
			Authority:          common.AccountAt(ix, 4),
			Rent:               common.AccountAt(ix, 5),
			SysvarInstructions: common.AccountAt(ix, 6),
			EthAddress:         eth,
		}, nil

	case InstructionSetAuthority:
		if err := common.RequireAccounts(ix, "ClaimableTokens:SetAuthority", 4); err != nil {
			return nil, err
		}
		return &SetAuthority{
			UserBank:  common.AccountAt(ix, 0),
			Authority: common.AccountAt(ix, 1),
		}, nil

	case InstructionClose:
		const op = "ClaimableTokens:Close"
		if err := common.RequireAccounts(ix, op, 4); err != nil {
			return nil, err
		}
		eth, err := decodeEthAddress(op, ix)
		if err != nil {
			return nil, err
		}
		return &Close{
			UserBank:    common.AccountAt(ix, 0),
			Authority:   common.AccountAt(ix, 1),
			Destination: common.AccountAt(ix, 2),
			EthAddress:  eth,
		}, nil

	default:
		return nil, common.UnknownOperation(consts.ProgramClaimableTokens, code)
	}
}

// decodeEthAddress 剥离首字节标签后读取 20 字节地址
func decodeEthAddress(op string, ix core.RawInstruction) (types.EthAddress, error) {
	r := common.NewDataReader(ix.Data, op)
	r.U8("instruction")
	r.EthAddress("ethAddress")
	if err := r.Err(); err != nil {
		return types.EthAddress{}, err
	}
	var args ethAddressArgs
	if err := common.BorshDecode(op, ix.Data[1:r.Offset()], &args); err != nil {
		return types.EthAddress{}, err
	}
	return args.EthAddress, nil
}

// EncodeCreateTokenAccount 构造 CreateTokenAccount，附带 Token / System Program
func EncodeCreateTokenAccount(programID types.Pubkey, c CreateTokenAccount) (core.RawInstruction, error) {
	data, err := common.BorshEncode(InstructionCreateTokenAccount, ethAddressArgs{EthAddress: c.EthAddress})
	if err != nil {
		return core.RawInstruction{}, err
	}
	return core.RawInstruction{
		ProgramID: programID,
		Accounts: []core.AccountRef{
			{Address: c.Payer, IsSigner: true, IsWritable: true},
			{Address: c.Mint},
			{Address: c.Authority},
			{Address: c.UserBank, IsWritable: true},
			{Address: c.Rent},
			{Address: consts.TokenProgram},
			{Address: consts.SystemProgram},
		},
		Data: data,
	}, nil
}

// EncodeTransfer 构造 Transfer，附带 System / Token Program
func EncodeTransfer(programID types.Pubkey, t Transfer) (core.RawInstruction, error) {
	data, err := common.BorshEncode(InstructionTransfer, ethAddressArgs{EthAddress: t.EthAddress})
	if err != nil {
		return core.RawInstruction{}, err
	}
	return core.RawInstruction{
		ProgramID: programID,
		Accounts: []core.AccountRef{
			{Address: t.Payer, IsSigner: true, IsWritable: true},
			{Address: t.SourceUserBank, IsWritable: true},
			{Address: t.Destination, IsWritable: true},
			{Address: t.NonceAccount, IsWritable: true},
			{Address: t.Authority},
			{Address: t.Rent},
			{Address: t.SysvarInstructions},
			{Address: consts.SystemProgram},
			{Address: consts.TokenProgram},
		},
		Data: data,
	}, nil
}
