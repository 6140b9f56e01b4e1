package handler

import (
	"context"
	"net/http"
	"strconv"

	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/logger"
	"relay-gateway-sol/internal/pkg/types"
)

// 上游鉴权网关注入的调用方身份头
const (
	HeaderUserID     = "X-Relay-User-Id"
	HeaderUserWallet = "X-Relay-User-Wallet"
	HeaderUserHandle = "X-Relay-User-Handle"
)

type callerKey struct{}

// WithCaller 把已解析的调用方身份放入请求上下文
func WithCaller(ctx context.Context, caller *core.CallerIdentity) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext 未登录时返回 nil
func CallerFromContext(ctx context.Context) *core.CallerIdentity {
	caller, _ := ctx.Value(callerKey{}).(*core.CallerIdentity)
	return caller
}

// CallerHeaderMiddleware 信任上游网关的身份头。
// 头部缺失或格式错误时按未登录处理，不拒绝请求。
func CallerHeaderMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if caller := callerFromHeaders(r.Header); caller != nil {
			r = r.WithContext(WithCaller(r.Context(), caller))
		}
		next(w, r)
	}
}

func callerFromHeaders(h http.Header) *core.CallerIdentity {
	rawID, rawWallet := h.Get(HeaderUserID), h.Get(HeaderUserWallet)
	if rawID == "" || rawWallet == "" {
		return nil
	}
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		logger.Warnf("[Handler:Caller] 非法 %s: %q", HeaderUserID, rawID)
		return nil
	}
	wallet, err := types.EthAddressFromHex(rawWallet)
	if err != nil {
		logger.Warnf("[Handler:Caller] 非法 %s: %v", HeaderUserWallet, err)
		return nil
	}
	return &core.CallerIdentity{
		Wallet: wallet,
		UserID: userID,
		Handle: h.Get(HeaderUserHandle),
	}
}
