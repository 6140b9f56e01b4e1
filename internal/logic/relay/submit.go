package relay

import (
	"context"
	"errors"
	"time"

	"relay-gateway-sol/internal/ledger"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/logger"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/cenkalti/backoff/v4"
)

// submit 发送已签名交易。重发始终是同一份字节，不重建、不重签。
//
// 结果判定：
//   - 发送成功：按需等待确认，确认超时为 Unknown
//   - 任一次发送出现节点拒绝以外的错误（超时、连接中断等），或调用方 ctx 结束：
//     Unknown，字节可能已送达节点，交易可能已上链
//   - 每次发送都被节点明确拒绝：Failed，写诊断记录
func (rl *Relayer) submit(ctx context.Context, r *run, tx sdktypes.Transaction) core.RelayOutcome {
	signature, err := signatureOf(tx)
	if err != nil {
		return core.Failed(core.WrapError(core.ErrSubmissionError, err, "missing fee payer signature"))
	}
	r.transition(StateSubmitted)

	start := time.Now()
	var ambiguous bool
	operation := func() error {
		r.attempts++
		actx, cancel := context.WithTimeout(ctx, rl.opts.AttemptTimeout)
		defer cancel()

		_, err := rl.submitter.SendTransaction(actx, tx, r.req.SkipPreflight)
		switch {
		case err == nil:
			metricSubmitAttempts.Inc("ok")
			return nil
		case errors.Is(err, ledger.ErrRejected):
			metricSubmitAttempts.Inc("rejected")
			return backoff.Permanent(err)
		case isTimeout(err) || actx.Err() != nil:
			metricSubmitAttempts.Inc("timeout")
			ambiguous = true
			return err
		default:
			metricSubmitAttempts.Inc("error")
			ambiguous = true
			return err
		}
	}
	notify := func(err error, wait time.Duration) {
		logger.Warnf("[Relay:Submit] id=%s sig=%s 第%d次发送失败, %v 后重发: %v", r.id, signature, r.attempts, wait, err)
	}

	err = backoff.RetryNotify(operation, backoff.WithContext(rl.backOff(r.req.Retry), ctx), notify)
	if err != nil {
		if ambiguous || ctx.Err() != nil {
			metricSubmitDuration.Observe(time.Since(start).Milliseconds(), "unknown")
			return core.Unknown(signature, core.WrapError(core.ErrSubmissionUnknown, err,
				"submission outcome unknown after %d attempt(s)", r.attempts))
		}
		metricSubmitDuration.Observe(time.Since(start).Milliseconds(), "failed")
		re := core.WrapError(core.ErrSubmissionError, err, "submission rejected after %d attempt(s)", r.attempts)
		rl.recordFailure(ctx, r, signature, re)
		return core.Failed(re)
	}
	metricSubmitDuration.Observe(time.Since(start).Milliseconds(), "ok")

	if rl.opts.ConfirmTimeout <= 0 {
		return core.Confirmed(signature)
	}
	return rl.confirm(ctx, r, signature)
}

func (rl *Relayer) confirm(ctx context.Context, r *run, signature string) core.RelayOutcome {
	cctx, cancel := context.WithTimeout(ctx, rl.opts.ConfirmTimeout)
	defer cancel()

	err := rl.submitter.WaitConfirmed(cctx, signature)
	if err == nil {
		return core.Confirmed(signature)
	}

	var failed *ledger.TransactionFailedError
	if errors.As(err, &failed) {
		re := core.WrapError(core.ErrSubmissionError, err, "transaction failed on-chain")
		rl.recordFailure(ctx, r, signature, re)
		return core.Failed(re)
	}
	logger.Warnf("[Relay:Confirm] id=%s sig=%s 未能确认: %v", r.id, signature, err)
	return core.Unknown(signature, core.WrapError(core.ErrSubmissionUnknown, err, "confirmation outcome unknown"))
}

// backOff retry=false 时只发送一次
func (rl *Relayer) backOff(retry bool) backoff.BackOff {
	if !retry || rl.opts.MaxAttempts <= 1 {
		return &backoff.StopBackOff{}
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = rl.opts.InitialInterval
	eb.MaxInterval = rl.opts.MaxInterval
	eb.MaxElapsedTime = 0
	return backoff.WithMaxRetries(eb, uint64(rl.opts.MaxAttempts-1))
}
