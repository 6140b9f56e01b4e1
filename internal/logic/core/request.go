package core

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"relay-gateway-sol/internal/pkg/types"
)

// CallerIdentity 由鉴权中间件解析得到的调用方身份（可选）
type CallerIdentity struct {
	Wallet types.EthAddress `json:"walletAddress"` // 用户以太坊钱包地址
	UserID int64            `json:"userId"`        // 平台用户 ID
	Handle string           `json:"handle"`        // 用户名
}

// ClientSignature 客户端预先提供的签名
type ClientSignature struct {
	Signer    types.Pubkey    `json:"publicKey"`
	Signature types.Signature `json:"signature"`
}

// RelayRequest 是一次中继请求
type RelayRequest struct {
	Instructions         []RawInstruction  `json:"instructions"`
	RecentBlockhash      types.Hash        `json:"recentBlockhash"`
	ClientSignatures     []ClientSignature `json:"signatures,omitempty"`
	FeePayerOverride     *types.Pubkey     `json:"feePayerOverride,omitempty"`
	LookupTableAddresses []types.Pubkey    `json:"lookupTableAddresses,omitempty"`
	SkipPreflight        bool              `json:"skipPreflight"`
	Retry                bool              `json:"retry"`
}

type OutcomeStatus string

const (
	OutcomeConfirmed OutcomeStatus = "confirmed"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeUnknown   OutcomeStatus = "unknown" // 已发出但未能确认，交易可能仍会上链
)

// RelayOutcome 中继结果。Confirmed/Unknown 时 Signature 为交易签名（base58）。
type RelayOutcome struct {
	Status    OutcomeStatus
	Signature string
	Err       *RelayError
}

func (o RelayOutcome) OK() bool {
	return o.Status == OutcomeConfirmed
}

func Confirmed(signature string) RelayOutcome {
	return RelayOutcome{Status: OutcomeConfirmed, Signature: signature}
}

func Failed(err *RelayError) RelayOutcome {
	return RelayOutcome{Status: OutcomeFailed, Err: err}
}

func Unknown(signature string, err *RelayError) RelayOutcome {
	return RelayOutcome{Status: OutcomeUnknown, Signature: signature, Err: err}
}

// FailedTransactionRecord 终态提交失败时落地的诊断记录，仅供运维排查，中继流程不会回读
type FailedTransactionRecord struct {
	ContentHash types.Hash   `json:"contentHash"`
	Payload     RelayRequest `json:"payload"`
	Signature   string       `json:"signature,omitempty"`
	FeePayer    types.Pubkey `json:"feePayer"`
	Attempts    int          `json:"attempts"`
	Error       string       `json:"error"`
	RecordedAt  time.Time    `json:"recordedAt"`
}

// ContentHash 对请求做确定性编码后取 sha256，相同请求得到相同哈希
//
// 编码顺序：blockhash | flags | 指令(program, 账户(地址+标记), 数据) | 客户端签名 | fee payer override | lookup tables
func ContentHash(req RelayRequest) types.Hash {
	h := sha256.New()
	var u32 [4]byte
	writeLen := func(n int) {
		binary.LittleEndian.PutUint32(u32[:], uint32(n))
		h.Write(u32[:])
	}
	writeBool := func(b bool) {
		if b {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}

	h.Write(req.RecentBlockhash[:])
	writeBool(req.SkipPreflight)
	writeBool(req.Retry)

	writeLen(len(req.Instructions))
	for _, ix := range req.Instructions {
		h.Write(ix.ProgramID[:])
		writeLen(len(ix.Accounts))
		for _, a := range ix.Accounts {
			h.Write(a.Address[:])
			writeBool(a.IsSigner)
			writeBool(a.IsWritable)
		}
		writeLen(len(ix.Data))
		h.Write(ix.Data)
	}

	writeLen(len(req.ClientSignatures))
	for _, s := range req.ClientSignatures {
		h.Write(s.Signer[:])
		h.Write(s.Signature[:])
	}

	if req.FeePayerOverride != nil {
		writeBool(true)
		h.Write(req.FeePayerOverride[:])
	} else {
		writeBool(false)
	}

	writeLen(len(req.LookupTableAddresses))
	for _, addr := range req.LookupTableAddresses {
		h.Write(addr[:])
	}

	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
