package spltoken

import (
	"encoding/binary"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/codec/common"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"
)

// 合约源代码: https://github.com/solana-program/token/blob/main/program/src/instruction.rs

// RegisterDecoders 注册 SPL Token 程序解码器（仅经典 Token Program，Token-2022 不在允许集合内）
func RegisterDecoders(m map[types.Pubkey]common.Decoder) {
	m[consts.TokenProgram] = Decode
}

// instructionNames 为 Token Program 全部已知操作，按判别字节索引
var instructionNames = []string{
	"initializeMint",           // 0
	"initializeAccount",        // 1
	"initializeMultisig",       // 2
	"transfer",                 // 3
	"approve",                  // 4
	"revoke",                   // 5
	"setAuthority",             // 6
	"mintTo",                   // 7
	"burn",                     // 8
	"closeAccount",             // 9
	"freezeAccount",            // 10
	"thawAccount",              // 11
	"transferChecked",          // 12
	"approveChecked",           // 13
	"mintToChecked",            // 14
	"burnChecked",              // 15
	"initializeAccount2",       // 16
	"syncNative",               // 17
	"initializeAccount3",       // 18
	"initializeMultisig2",      // 19
	"initializeMint2",          // 20
	"getAccountDataSize",       // 21
	"initializeImmutableOwner", // 22
	"amountToUiAmount",         // 23
	"uiAmountToAmount",         // 24
}

// TransferChecked: [0]=instr, [1:9]=amount, [9]=decimals
//
// #0 - Source TokenAccount
// #1 - Mint
// #2 - Destination TokenAccount
// #3 - Owner / Authority
// #4.. - 多签 signer（可选）
type TransferChecked struct {
	Source      types.Pubkey
	Mint        types.Pubkey
	Destination types.Pubkey
	Owner       types.Pubkey
	Signers     []types.Pubkey
	Amount      uint64
	Decimals    uint8
}

func (t *TransferChecked) Program() consts.ProgramKind { return consts.ProgramToken }
func (t *TransferChecked) Op() string                  { return "transferChecked" }

// CloseAccount: [0]=instr
//
// #0 - 待关闭 TokenAccount
// #1 - Destination（接收退回的租金）
// #2 - Owner / Authority
type CloseAccount struct {
	Account     types.Pubkey
	Destination types.Pubkey
	Owner       types.Pubkey
	Signers     []types.Pubkey
}

func (c *CloseAccount) Program() consts.ProgramKind { return consts.ProgramToken }
func (c *CloseAccount) Op() string                  { return "closeAccount" }

// SyncNative: [0]=instr
//
// #0 - Native（WSOL）TokenAccount
type SyncNative struct {
	Account types.Pubkey
}

func (s *SyncNative) Program() consts.ProgramKind { return consts.ProgramToken }
func (s *SyncNative) Op() string                  { return "syncNative" }

// Unsupported 是已知但不经中继放行的 Token 操作，只保留判别字节供策略层报错
type Unsupported struct {
	Code byte
}

func (u *Unsupported) Program() consts.ProgramKind { return consts.ProgramToken }
func (u *Unsupported) Op() string                  { return instructionNames[u.Code] }

func Decode(ix core.RawInstruction) (common.Decoded, error) {
	if err := common.RequireData(ix, "Token", 1); err != nil {
		return nil, err
	}

	code := ix.Data[0]
	switch code {
	case byte(sdktoken.InstructionTransferChecked):
		if err := common.RequireAccounts(ix, "Token:TransferChecked", 4); err != nil {
			return nil, err
		}
		if err := common.RequireData(ix, "Token:TransferChecked", 10); err != nil {
			return nil, err
		}
		return &TransferChecked{
			Source:      common.AccountAt(ix, 0),
			Mint:        common.AccountAt(ix, 1),
			Destination: common.AccountAt(ix, 2),
			Owner:       common.AccountAt(ix, 3),
			Signers:     common.AccountsFrom(ix, 4),
			Amount:      binary.LittleEndian.Uint64(ix.Data[1:9]),
			Decimals:    ix.Data[9],
		}, nil

	case byte(sdktoken.InstructionCloseAccount):
		if err := common.RequireAccounts(ix, "Token:CloseAccount", 3); err != nil {
			return nil, err
		}
		return &CloseAccount{
			Account:     common.AccountAt(ix, 0),
			Destination: common.AccountAt(ix, 1),
			Owner:       common.AccountAt(ix, 2),
			Signers:     common.AccountsFrom(ix, 3),
		}, nil

	case byte(sdktoken.InstructionSyncNative):
		if err := common.RequireAccounts(ix, "Token:SyncNative", 1); err != nil {
			return nil, err
		}
		return &SyncNative{Account: common.AccountAt(ix, 0)}, nil
	}

	if int(code) < len(instructionNames) {
		return &Unsupported{Code: code}, nil
	}
	return nil, common.UnknownOperation(consts.ProgramToken, code)
}

func EncodeTransferChecked(t TransferChecked) core.RawInstruction {
	data := make([]byte, 10)
	data[0] = byte(sdktoken.InstructionTransferChecked)
	binary.LittleEndian.PutUint64(data[1:9], t.Amount)
	data[9] = t.Decimals

	accounts := []core.AccountRef{
		{Address: t.Source, IsWritable: true},
		{Address: t.Mint},
		{Address: t.Destination, IsWritable: true},
		{Address: t.Owner, IsSigner: len(t.Signers) == 0},
	}
	for _, s := range t.Signers {
		accounts = append(accounts, core.AccountRef{Address: s, IsSigner: true})
	}
	return core.RawInstruction{ProgramID: consts.TokenProgram, Accounts: accounts, Data: data}
}

func EncodeCloseAccount(c CloseAccount) core.RawInstruction {
	accounts := []core.AccountRef{
		{Address: c.Account, IsWritable: true},
		{Address: c.Destination, IsWritable: true},
		{Address: c.Owner, IsSigner: len(c.Signers) == 0},
	}
	for _, s := range c.Signers {
		accounts = append(accounts, core.AccountRef{Address: s, IsSigner: true})
	}
	return core.RawInstruction{
		ProgramID: consts.TokenProgram,
		Accounts:  accounts,
		Data:      []byte{byte(sdktoken.InstructionCloseAccount)},
	}
}

func EncodeSyncNative(s SyncNative) core.RawInstruction {
	return core.RawInstruction{
		ProgramID: consts.TokenProgram,
		Accounts:  []core.AccountRef{{Address: s.Account, IsWritable: true}},
		Data:      []byte{byte(sdktoken.InstructionSyncNative)},
	}
}
