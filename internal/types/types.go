package types

// AccountMeta 指令账户
type AccountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner,optional"`
	IsWritable bool   `json:"isWritable,optional"`
}

// Instruction 客户端提交的指令，data 为字节数组（JSON 数字列表）
type Instruction struct {
	ProgramId string        `json:"programId"`
	Keys      []AccountMeta `json:"keys,optional"`
	Data      []int         `json:"data,optional"`
}

// Signature 客户端预签名，均为 base58
type Signature struct {
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

type RelayReq struct {
	Instructions         []Instruction `json:"instructions"`
	RecentBlockhash      string        `json:"recentBlockhash"`
	Signatures           []Signature   `json:"signatures,optional"`
	FeePayerOverride     string        `json:"feePayerOverride,optional"`
	LookupTableAddresses []string      `json:"lookupTableAddresses,optional"`
	SkipPreflight        bool          `json:"skipPreflight,optional"`
	Retry                bool          `json:"retry,optional"`
}

type RelayResp struct {
	TransactionSignature string `json:"transactionSignature"`
}

// ErrorResp 失败时的结构化错误；SubmissionUnknown 时同时携带交易签名供调用方轮询
type ErrorResp struct {
	ErrorKind            string `json:"errorKind"`
	Message              string `json:"message"`
	InstructionIndex     *int   `json:"instructionIndex,omitempty"`
	TransactionSignature string `json:"transactionSignature,omitempty"`
}
