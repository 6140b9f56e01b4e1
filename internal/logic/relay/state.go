package relay

// State 中继状态机：Received → Decoded → Validated → Built → Signed → Submitted → Confirmed | Failed。
// 只有 Submitted 阶段允许重试，终态之间没有回环。
type State string

const (
	StateReceived  State = "received"
	StateDecoded   State = "decoded"
	StateValidated State = "validated"
	StateBuilt     State = "built"
	StateSigned    State = "signed"
	StateSubmitted State = "submitted"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
	StateUnknown   State = "unknown" // 提交后超时，交易可能仍会上链
)
