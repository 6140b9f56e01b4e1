package relay

import (
	"context"
	"errors"
	"time"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/ledger"
	"relay-gateway-sol/internal/logic/codec"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/logic/policy"
	"relay-gateway-sol/internal/pkg/logger"
	"relay-gateway-sol/internal/pkg/types"
	"relay-gateway-sol/internal/signer"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/google/uuid"
)

// Submitter 链上提交与确认（ledger.Client）
type Submitter interface {
	SendTransaction(ctx context.Context, tx sdktypes.Transaction, skipPreflight bool) (string, error)
	WaitConfirmed(ctx context.Context, signature string) error
}

// LookupTableResolver 读取地址查找表内容
type LookupTableResolver interface {
	ResolveLookupTables(ctx context.Context, addrs []types.Pubkey) ([]sdktypes.AddressLookupTableAccount, error)
}

// FeePayerSigner fee payer 选择与签名（signer.Registry）
type FeePayerSigner interface {
	ActivePayer() (signer.KeyHandle, error)
	Lookup(pk types.Pubkey) (signer.KeyHandle, bool)
	SignTransaction(tx *sdktypes.Transaction, h signer.KeyHandle) error
}

// FailedTxSink 终态提交失败的诊断记录
type FailedTxSink interface {
	Record(ctx context.Context, rec *core.FailedTransactionRecord) error
}

// OutcomePublisher 中继结果审计事件
type OutcomePublisher interface {
	Publish(ctx context.Context, ev core.OutcomeEvent) error
}

type Options struct {
	MaxAttempts      int           // retry=true 时的最大发送次数（含首次）
	InitialInterval  time.Duration // 首次重发间隔
	MaxInterval      time.Duration // 重发间隔上限
	AttemptTimeout   time.Duration // 单次 sendTransaction 超时
	ConfirmTimeout   time.Duration // 等待确认的总时长，<=0 表示不等待确认
	SideEffectTimout time.Duration // 诊断记录与事件发布的超时
	Flags            policy.Flags
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = 250 * time.Millisecond
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 4 * time.Second
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 10 * time.Second
	}
	if o.SideEffectTimout <= 0 {
		o.SideEffectTimout = 3 * time.Second
	}
	return o
}

// Relayer 编排一次中继：解码 → 策略 → 构建 → 签名 → 提交 → 确认。
// 请求之间不共享可变状态，可并发调用。
type Relayer struct {
	registry  *codec.Registry
	validator *policy.Validator
	signer    FeePayerSigner
	submitter Submitter
	lookups   LookupTableResolver
	sink      FailedTxSink
	publisher OutcomePublisher
	opts      Options
}

type Deps struct {
	Registry  *codec.Registry
	Validator *policy.Validator
	Signer    FeePayerSigner
	Submitter Submitter
	Lookups   LookupTableResolver
	Sink      FailedTxSink
	Publisher OutcomePublisher
}

func NewRelayer(deps Deps, opts Options) *Relayer {
	return &Relayer{
		registry:  deps.Registry,
		validator: deps.Validator,
		signer:    deps.Signer,
		submitter: deps.Submitter,
		lookups:   deps.Lookups,
		sink:      deps.Sink,
		publisher: deps.Publisher,
		opts:      opts.withDefaults(),
	}
}

// run 单次中继的上下文
type run struct {
	id       string
	req      core.RelayRequest
	caller   *core.CallerIdentity
	hash     types.Hash
	state    State
	feePayer types.Pubkey
	attempts int

	validated bool // 已通过策略校验，此后才产生副作用
}

func (r *run) transition(s State) {
	logger.Debugf("[Relay:State] id=%s %s -> %s", r.id, r.state, s)
	r.state = s
}

// Relay 处理一次中继请求。解码与策略错误不产生任何副作用（不发送、不记录、不发布事件）；
// 只有通过校验后的确定提交失败才写诊断记录。
func (rl *Relayer) Relay(ctx context.Context, req core.RelayRequest, caller *core.CallerIdentity) core.RelayOutcome {
	start := time.Now()
	r := &run{
		id:     uuid.NewString(),
		req:    req,
		caller: caller,
		hash:   core.ContentHash(req),
		state:  StateReceived,
	}

	outcome := rl.execute(ctx, r)
	switch outcome.Status {
	case core.OutcomeConfirmed:
		r.transition(StateConfirmed)
	case core.OutcomeUnknown:
		r.transition(StateUnknown)
	default:
		r.transition(StateFailed)
	}

	kind := ""
	if outcome.Err != nil {
		kind = string(outcome.Err.Kind)
		logger.Infof("[Relay:Outcome] id=%s status=%s err=%v", r.id, outcome.Status, outcome.Err)
	} else {
		logger.Infof("[Relay:Outcome] id=%s status=%s sig=%s attempts=%d", r.id, outcome.Status, outcome.Signature, r.attempts)
	}
	metricRequests.Inc(string(outcome.Status), kind)

	// 被拒绝的输入不产生任何副作用，结果事件只覆盖通过校验的请求
	if r.validated {
		rl.publish(ctx, r, outcome, time.Since(start))
	}
	return outcome
}

func (rl *Relayer) execute(ctx context.Context, r *run) core.RelayOutcome {
	// 1. 浅层结构校验，先于任何解码
	if err := checkRequest(r.req); err != nil {
		return core.Failed(err)
	}

	// 2. 解码
	decoded, err := rl.registry.DecodeBatch(r.req.Instructions)
	if err != nil {
		return core.Failed(asRelayError(err, core.ErrMalformedInstruction))
	}
	r.transition(StateDecoded)

	// 3. 策略校验（仅此一次，重发不再复检）
	if err := rl.validator.AssertDecodedAllowed(ctx, decoded, r.caller, rl.opts.Flags); err != nil {
		return core.Failed(asRelayError(err, core.ErrPolicyViolation))
	}
	r.transition(StateValidated)
	r.validated = true

	// 4. 构建
	payer, perr := rl.choosePayer(r.req)
	if perr != nil {
		return core.Failed(perr)
	}
	r.feePayer = payer.PublicKey()

	tx, berr := rl.build(ctx, r)
	if berr != nil {
		return core.Failed(berr)
	}
	r.transition(StateBuilt)

	// 5. 签名：合并客户端签名与 fee payer 签名
	if serr := rl.sign(&tx, payer, r.req.ClientSignatures); serr != nil {
		return core.Failed(serr)
	}
	r.transition(StateSigned)

	// 6. 提交（同一份已签名交易，按需重发）与确认
	return rl.submit(ctx, r, tx)
}

// checkRequest 请求级与指令级的浅层校验
func checkRequest(req core.RelayRequest) *core.RelayError {
	if len(req.Instructions) == 0 {
		return core.NewError(core.ErrMalformedInstruction, "no instructions")
	}
	if len(req.Instructions) > consts.MaxInstructionsPerRequest {
		return core.NewError(core.ErrMalformedInstruction, "too many instructions: %d > %d",
			len(req.Instructions), consts.MaxInstructionsPerRequest)
	}
	if len(req.LookupTableAddresses) > consts.MaxLookupTables {
		return core.NewError(core.ErrMalformedInstruction, "too many lookup tables: %d > %d",
			len(req.LookupTableAddresses), consts.MaxLookupTables)
	}
	if req.RecentBlockhash == (types.Hash{}) {
		return core.NewError(core.ErrMalformedInstruction, "missing recentBlockhash")
	}
	for i, ix := range req.Instructions {
		if err := core.CheckShallow(i, ix); err != nil {
			return asRelayError(err, core.ErrMalformedInstruction)
		}
	}
	return nil
}

func (rl *Relayer) choosePayer(req core.RelayRequest) (signer.KeyHandle, *core.RelayError) {
	if req.FeePayerOverride != nil {
		h, ok := rl.signer.Lookup(*req.FeePayerOverride)
		if !ok {
			return signer.KeyHandle{}, core.NewError(core.ErrPolicyViolation,
				"fee payer override %s is not permitted", req.FeePayerOverride)
		}
		return h, nil
	}
	h, err := rl.signer.ActivePayer()
	if err != nil {
		return signer.KeyHandle{}, core.WrapError(core.ErrSignerUnavailable, err, "no active fee payer")
	}
	return h, nil
}

func (rl *Relayer) publish(ctx context.Context, r *run, outcome core.RelayOutcome, elapsed time.Duration) {
	if rl.publisher == nil {
		return
	}
	ev := core.NewOutcomeEvent(r.id, r.hash, outcome)
	ev.FeePayer = r.feePayer
	ev.Attempts = r.attempts
	ev.InstructionCount = len(r.req.Instructions)
	ev.Authenticated = r.caller != nil
	ev.Duration = elapsed

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rl.opts.SideEffectTimout)
	defer cancel()
	if err := rl.publisher.Publish(pctx, ev); err != nil {
		logger.Warnf("[Relay:Publish] id=%s 结果事件发送失败: %v", r.id, err)
	}
}

// recordFailure 写诊断记录，失败只记日志，不影响返回给调用方的结果
func (rl *Relayer) recordFailure(ctx context.Context, r *run, signature string, cause *core.RelayError) {
	if rl.sink == nil {
		return
	}
	rec := &core.FailedTransactionRecord{
		ContentHash: r.hash,
		Payload:     r.req,
		Signature:   signature,
		FeePayer:    r.feePayer,
		Attempts:    r.attempts,
		Error:       cause.Error(),
		RecordedAt:  time.Now().UTC(),
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rl.opts.SideEffectTimout)
	defer cancel()
	if err := rl.sink.Record(sctx, rec); err != nil {
		logger.Errorf("[Relay:Record] id=%s hash=%s 诊断记录写入失败: %v", r.id, r.hash, err)
	}
}

// asRelayError 非 RelayError 按 fallback 分类包装
func asRelayError(err error, fallback core.ErrorKind) *core.RelayError {
	if re, ok := core.AsRelayError(err); ok {
		return re
	}
	return core.WrapError(fallback, err, "%s", fallback)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ledger.ErrConfirmTimeout)
}
