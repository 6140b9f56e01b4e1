package rewardmanager

import (
	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/codec/common"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"
)

// 合约源代码: solana-programs/reward-manager/program/src/instruction.rs
//
// 指令数据为 borsh 编码：[0]=枚举标签，其后为各变体负载
const (
	InstructionInit                 byte = 0
	InstructionChangeManagerAccount byte = 1
	InstructionCreateSender         byte = 2
	InstructionDeleteSender         byte = 3
	InstructionCreateSenderPublic   byte = 4
	InstructionDeleteSenderPublic   byte = 5
	InstructionSubmitAttestation    byte = 6
	InstructionEvaluateAttestations byte = 7
)

// MaxDisbursementIDLen disbursementId 的最大字节数
const MaxDisbursementIDLen = 32

var adminNames = map[byte]string{
	InstructionInit:                 "init",
	InstructionChangeManagerAccount: "changeManagerAccount",
	InstructionDeleteSender:         "deleteSender",
}

// RegisterDecoders 注册奖励管理程序解码器（程序 ID 由配置决定）
func RegisterDecoders(m map[types.Pubkey]common.Decoder, programID types.Pubkey) {
	m[programID] = Decode
}

type senderArgs struct {
	SenderEthAddress   types.EthAddress
	OperatorEthAddress types.EthAddress
}

type submitAttestationArgs struct {
	DisbursementID string
}

type evaluateAttestationsArgs struct {
	Amount              uint64
	DisbursementID      string
	RecipientEthAddress types.EthAddress
}

// CreateSenderPublic: [0]=4, [1:21]=senderEth, [21:41]=operatorEth
//
// #0 - Reward Manager State
// #1 - Authority（PDA）
// #2 - Payer（签名）
// #3 - Sender（待创建）
// #4 - Sysvar Instructions
// #5 - Sysvar Rent
// #6 - System Program
// #7.. - 已存在的 sender（用于校验证明签名）
type CreateSenderPublic struct {
	RewardManager      types.Pubkey
	Authority          types.Pubkey
	Payer              types.Pubkey
	Sender             types.Pubkey
	SysvarInstructions types.Pubkey
	Rent               types.Pubkey
	SystemProgram      types.Pubkey
	ExistingSenders    []types.Pubkey
	SenderEthAddress   types.EthAddress
	OperatorEthAddress types.EthAddress
}

func (c *CreateSenderPublic) Program() consts.ProgramKind { return consts.ProgramRewardManager }
func (c *CreateSenderPublic) Op() string                  { return "createSenderPublic" }

// DeleteSenderPublic: [0]=5
//
// #0 - Reward Manager State
// #1 - Sender（待删除）
// #2 - Refunder（接收退回租金）
// #3 - Sysvar Instructions
// #4.. - 已存在的 sender
type DeleteSenderPublic struct {
	RewardManager      types.Pubkey
	Sender             types.Pubkey
	Refunder           types.Pubkey
	SysvarInstructions types.Pubkey
	ExistingSenders    []types.Pubkey
}

func (d *DeleteSenderPublic) Program() consts.ProgramKind { return consts.ProgramRewardManager }
func (d *DeleteSenderPublic) Op() string                  { return "deleteSenderPublic" }

// SubmitAttestation: [0]=6, [1:5]=len(u32), [5:5+len]=disbursementId
//
// #0 - Attestations（PDA，可写）
// #1 - Reward Manager State
// #2 - Authority
// #3 - Payer（签名）
// #4 - Sender
// #5 - Sysvar Rent
// #6 - Sysvar Instructions
// #7 - System Program
type SubmitAttestation struct {
	Attestations       types.Pubkey
	RewardManager      types.Pubkey
	Authority          types.Pubkey
	Payer              types.Pubkey
	Sender             types.Pubkey
	Rent               types.Pubkey
	SysvarInstructions types.Pubkey
	SystemProgram      types.Pubkey
	DisbursementID     string
}

func (s *SubmitAttestation) Program() consts.ProgramKind { return consts.ProgramRewardManager }
func (s *SubmitAttestation) Op() string                  { return "submitAttestation" }

// EvaluateAttestations: [0]=7, [1:9]=amount, 然后 borsh string disbursementId, 最后 20 字节 recipientEth
//
// #0  - Attestations
// #1  - Reward Manager State
// #2  - Authority
// #3  - Reward Manager Token Source
// #4  - Destination User Bank
// #5  - Disbursement（PDA，待创建）
// #6  - Anti Abuse Oracle
// #7  - Payer（签名）
// #8  - Sysvar Rent
// #9  - Token Program
// #10 - System Program
type EvaluateAttestations struct {
	Attestations             types.Pubkey
	RewardManager            types.Pubkey
	Authority                types.Pubkey
	RewardManagerTokenSource types.Pubkey
	DestinationUserBank      types.Pubkey
	Disbursement             types.Pubkey
	AntiAbuseOracle          types.Pubkey
	Payer                    types.Pubkey
	Rent                     types.Pubkey
	TokenProgram             types.Pubkey
	SystemProgram            types.Pubkey
	Amount                   uint64
	DisbursementID           string
	RecipientEthAddress      types.EthAddress
}

func (e *EvaluateAttestations) Program() consts.ProgramKind { return consts.ProgramRewardManager }
func (e *EvaluateAttestations) Op() string                  { return "evaluateAttestations" }

// CreateSender（管理员操作）: [0]=2, [1:21]=senderEth, [21:41]=operatorEth
//
// #0 - Reward Manager State
// #1 - Manager（签名）
// #2 - Authority
// #3 - Payer（签名）
// #4 - Sender
// #5 - System Program
// #6 - Sysvar Rent
type CreateSender struct {
	RewardManager      types.Pubkey
	Manager            types.Pubkey
	Authority          types.Pubkey
	Payer              types.Pubkey
	Sender             types.Pubkey
	SenderEthAddress   types.EthAddress
	OperatorEthAddress types.EthAddress
}

func (c *CreateSender) Program() consts.ProgramKind { return consts.ProgramRewardManager }
func (c *CreateSender) Op() string                  { return "createSender" }

// Admin 是管理员专用、不解析负载的操作（init / changeManagerAccount / deleteSender）
type Admin struct {
	Code byte
}

func (a *Admin) Program() consts.ProgramKind { return consts.ProgramRewardManager }
func (a *Admin) Op() string                  { return adminNames[a.Code] }

func Decode(ix core.RawInstruction) (common.Decoded, error) {
	if err := common.RequireData(ix, "RewardManager", 1); err != nil {
		return nil, err
	}

	switch code := ix.Data[0]; code {
	case InstructionInit, InstructionChangeManagerAccount, InstructionDeleteSender:
		return &Admin{Code: code}, nil
	case InstructionCreateSender:
		return decodeCreateSender(ix)
	case InstructionCreateSenderPublic:
		return decodeCreateSenderPublic(ix)
	case InstructionDeleteSenderPublic:
		return decodeDeleteSenderPublic(ix)
	case InstructionSubmitAttestation:
		return decodeSubmitAttestation(ix)
	case InstructionEvaluateAttestations:
		return decodeEvaluateAttestations(ix)
	default:
		return nil, common.UnknownOperation(consts.ProgramRewardManager, code)
	}
}

func decodeSenderArgs(op string, ix core.RawInstruction) (senderArgs, error) {
	var args senderArgs
	r := common.NewDataReader(ix.Data, op)
	r.U8("instruction")
	r.EthAddress("senderEthAddress")
	r.EthAddress("operatorEthAddress")
	if err := r.Err(); err != nil {
		return args, err
	}
	err := common.BorshDecode(op, ix.Data[1:r.Offset()], &args)
	return args, err
}

func decodeCreateSender(ix core.RawInstruction) (common.Decoded, error) {
	const op = "RewardManager:CreateSender"
	if err := common.RequireAccounts(ix, op, 7); err != nil {
		return nil, err
	}
	args, err := decodeSenderArgs(op, ix)
	if err != nil {
		return nil, err
	}
	return &CreateSender{
		RewardManager:      common.AccountAt(ix, 0),
		Manager:            common.AccountAt(ix, 1),
		Authority:          common.AccountAt(ix, 2),
		Payer:              common.AccountAt(ix, 3),
		Sender:             common.AccountAt(ix, 4),
		SenderEthAddress:   args.SenderEthAddress,
		OperatorEthAddress: args.OperatorEthAddress,
	}, nil
}

func decodeCreateSenderPublic(ix core.RawInstruction) (common.Decoded, error) {
	const op = "RewardManager:CreateSenderPublic"
	if err := common.RequireAccounts(ix, op, 7); err != nil {
		return nil, err
	}
	args, err := decodeSenderArgs(op, ix)
	if err != nil {
		return nil, err
	}
	return &CreateSenderPublic{
		RewardManager:      common.AccountAt(ix, 0),
		Authority:          common.AccountAt(ix, 1),
		Payer:              common.AccountAt(ix, 2),
		Sender:             common.AccountAt(ix, 3),
		SysvarInstructions: common.AccountAt(ix, 4),
		Rent:               common.AccountAt(ix, 5),
		SystemProgram:      common.AccountAt(ix, 6),
		ExistingSenders:    common.AccountsFrom(ix, 7),
		SenderEthAddress:   args.SenderEthAddress,
		OperatorEthAddress: args.OperatorEthAddress,
	}, nil
}

func decodeDeleteSenderPublic(ix core.RawInstruction) (common.Decoded, error) {
	const op = "RewardManager:DeleteSenderPublic"
	if err := common.RequireAccounts(ix, op, 4); err != nil {
		return nil, err
	}
	return &DeleteSenderPublic{
		RewardManager:      common.AccountAt(ix, 0),
		Sender:             common.AccountAt(ix, 1),
		Refunder:           common.AccountAt(ix, 2),
		SysvarInstructions: common.AccountAt(ix, 3),
		ExistingSenders:    common.AccountsFrom(ix, 4),
	}, nil
}

func decodeSubmitAttestation(ix core.RawInstruction) (common.Decoded, error) {
	const op = "RewardManager:SubmitAttestation"
	if err := common.RequireAccounts(ix, op, 8); err != nil {
		return nil, err
	}

	// 1. 校验布局长度（字符串声明长度必须完整存在）
	r := common.NewDataReader(ix.Data, op)
	r.U8("instruction")
	r.BorshString("disbursementId", MaxDisbursementIDLen)
	if err := r.Err(); err != nil {
		return nil, err
	}

	// 2. borsh 解码负载
	var args submitAttestationArgs
	if err := common.BorshDecode(op, ix.Data[1:r.Offset()], &args); err != nil {
		return nil, err
	}

	return &SubmitAttestation{
		Attestations:       common.AccountAt(ix, 0),
		RewardManager:      common.AccountAt(ix, 1),
		Authority:          common.AccountAt(ix, 2),
		Payer:              common.AccountAt(ix, 3),
		Sender:             common.AccountAt(ix, 4),
		Rent:               common.AccountAt(ix, 5),
		SysvarInstructions: common.AccountAt(ix, 6),
		SystemProgram:      common.AccountAt(ix, 7),
		DisbursementID:     args.DisbursementID,
	}, nil
}

func decodeEvaluateAttestations(ix core.RawInstruction) (common.Decoded, error) {
	const op = "RewardManager:EvaluateAttestations"
	if err := common.RequireAccounts(ix, op, 11); err != nil {
		return nil, err
	}

	// 1. 校验布局长度
	r := common.NewDataReader(ix.Data, op)
	r.U8("instruction")
	r.U64("amount")
	r.BorshString("disbursementId", MaxDisbursementIDLen)
	r.EthAddress("recipientEthAddress")
	if err := r.Err(); err != nil {
		return nil, err
	}

	// 2. borsh 解码负载
	var args evaluateAttestationsArgs
	if err := common.BorshDecode(op, ix.Data[1:r.Offset()], &args); err != nil {
		return nil, err
	}

	return &EvaluateAttestations{
		Attestations:             common.AccountAt(ix, 0),
		RewardManager:            common.AccountAt(ix, 1),
		Authority:                common.AccountAt(ix, 2),
		RewardManagerTokenSource: common.AccountAt(ix, 3),
		DestinationUserBank:      common.AccountAt(ix, 4),
		Disbursement:             common.AccountAt(ix, 5),
		AntiAbuseOracle:          common.AccountAt(ix, 6),
		Payer:                    common.AccountAt(ix, 7),
		Rent:                     common.AccountAt(ix, 8),
		TokenProgram:             common.AccountAt(ix, 9),
		SystemProgram:            common.AccountAt(ix, 10),
		Amount:                   args.Amount,
		DisbursementID:           args.DisbursementID,
		RecipientEthAddress:      args.RecipientEthAddress,
	}, nil
}
