package rewardmanager

import (
	"relay-gateway-sol/internal/logic/codec/common"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"
)

func meta(addr types.Pubkey, signer, writable bool) core.AccountRef {
	return core.AccountRef{Address: addr, IsSigner: signer, IsWritable: writable}
}

func EncodeCreateSenderPublic(programID types.Pubkey, c CreateSenderPublic) (core.RawInstruction, error) {
	data, err := common.BorshEncode(InstructionCreateSenderPublic, senderArgs{
		SenderEthAddress:   c.SenderEthAddress,
		OperatorEthAddress: c.OperatorEthAddress,
	})
	if err != nil {
		return core.RawInstruction{}, err
	}
	accounts := []core.AccountRef{
		meta(c.RewardManager, false, false),
		meta(c.Authority, false, false),
		meta(c.Payer, true, false),
		meta(c.Sender, false, true),
		meta(c.SysvarInstructions, false, false),
		meta(c.Rent, false, false),
		meta(c.SystemProgram, false, false),
	}
	for _, s := range c.ExistingSenders {
		accounts = append(accounts, meta(s, false, false))
	}
	return core.RawInstruction{ProgramID: programID, Accounts: accounts, Data: data}, nil
}

func EncodeDeleteSenderPublic(programID types.Pubkey, d DeleteSenderPublic) core.RawInstruction {
	accounts := []core.AccountRef{
		meta(d.RewardManager, false, false),
		meta(d.Sender, false, true),
		meta(d.Refunder, false, true),
		meta(d.SysvarInstructions, false, false),
	}
	for _, s := range d.ExistingSenders {
		accounts = append(accounts, meta(s, false, false))
	}
	return core.RawInstruction{
		ProgramID: programID,
		Accounts:  accounts,
		Data:      []byte{InstructionDeleteSenderPublic},
	}
}

func EncodeSubmitAttestation(programID types.Pubkey, s SubmitAttestation) (core.RawInstruction, error) {
	data, err := common.BorshEncode(InstructionSubmitAttestation, submitAttestationArgs{DisbursementID: s.DisbursementID})
	if err != nil {
		return core.RawInstruction{}, err
	}
	return core.RawInstruction{
		ProgramID: programID,
		Accounts: []core.AccountRef{
			meta(s.Attestations, false, true),
			meta(s.RewardManager, false, false),
			meta(s.Authority, false, false),
			meta(s.Payer, true, true),
			meta(s.Sender, false, false),
			meta(s.Rent, false, false),
			meta(s.SysvarInstructions, false, false),
			meta(s.SystemProgram, false, false),
		},
		Data: data,
	}, nil
}

func EncodeEvaluateAttestations(programID types.Pubkey, e EvaluateAttestations) (core.RawInstruction, error) {
	data, err := common.BorshEncode(InstructionEvaluateAttestations, evaluateAttestationsArgs{
		Amount:              e.Amount,
		DisbursementID:      e.DisbursementID,
		RecipientEthAddress: e.RecipientEthAddress,
	})
	if err != nil {
		return core.RawInstruction{}, err
	}
	return core.RawInstruction{
		ProgramID: programID,
		Accounts: []core.AccountRef{
			meta(e.Attestations, false, true),
			meta(e.RewardManager, false, false),
			meta(e.Authority, false, false),
			meta(e.RewardManagerTokenSource, false, true),
			meta(e.DestinationUserBank, false, true),
			meta(e.Disbursement, false, true),
			meta(e.AntiAbuseOracle, false, false),
			meta(e.Payer, true, true),
			meta(e.Rent, false, false),
			meta(e.TokenProgram, false, false),
			meta(e.SystemProgram, false, false),
		},
		Data: data,
	}, nil
}

func EncodeCreateSender(programID types.Pubkey, c CreateSender, systemProgram, rent types.Pubkey) (core.RawInstruction, error) {
	data, err := common.BorshEncode(InstructionCreateSender, senderArgs{
		SenderEthAddress:   c.SenderEthAddress,
		OperatorEthAddress: c.OperatorEthAddress,
	})
	if err != nil {
		return core.RawInstruction{}, err
	}
	return core.RawInstruction{
		ProgramID: programID,
		Accounts: []core.AccountRef{
			meta(c.RewardManager, false, false),
			meta(c.Manager, true, false),
			meta(c.Authority, false, false),
			meta(c.Payer, true, false),
			meta(c.Sender, false, true),
			meta(systemProgram, false, false),
			meta(rent, false, false),
		},
		Data: data,
	}, nil
}
