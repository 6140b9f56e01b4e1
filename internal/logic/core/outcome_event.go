package core

import (
	"time"

	"relay-gateway-sol/internal/pkg/types"
)

// OutcomeEvent 每次中继的审计事件，在请求结束时异步发布
type OutcomeEvent struct {
	RequestID        string
	ContentHash      types.Hash
	Status           OutcomeStatus
	Signature        string
	ErrorKind        ErrorKind
	ErrorIndex       int
	Message          string
	FeePayer         types.Pubkey
	Attempts         int
	InstructionCount int
	Authenticated    bool
	Duration         time.Duration
	Timestamp        time.Time
}

// NewOutcomeEvent 由中继结果填充状态、签名与错误字段
func NewOutcomeEvent(requestID string, hash types.Hash, outcome RelayOutcome) OutcomeEvent {
	ev := OutcomeEvent{
		RequestID:   requestID,
		ContentHash: hash,
		Status:      outcome.Status,
		Signature:   outcome.Signature,
		ErrorIndex:  -1,
		Timestamp:   time.Now().UTC(),
	}
	if outcome.Err != nil {
		ev.ErrorKind = outcome.Err.Kind
		ev.ErrorIndex = outcome.Err.Index
		ev.Message = outcome.Err.Error()
	}
	return ev
}
