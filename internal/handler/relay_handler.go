package handler

import (
	"net/http"

	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/svc"
	dto "relay-gateway-sol/internal/types"

	"github.com/zeromicro/go-zero/rest/httpx"
)

// RelayHandler POST /relay
func RelayHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.RelayReq
		if err := httpx.Parse(r, &req); err != nil {
			writeError(w, r, "", core.WrapError(core.ErrMalformedInstruction, err, "invalid request body"))
			return
		}
		relayReq, re := toRelayRequest(&req)
		if re != nil {
			writeError(w, r, "", re)
			return
		}

		outcome := svcCtx.Relayer.Relay(r.Context(), relayReq, CallerFromContext(r.Context()))
		switch outcome.Status {
		case core.OutcomeConfirmed:
			httpx.OkJsonCtx(r.Context(), w, &dto.RelayResp{TransactionSignature: outcome.Signature})
		default:
			writeError(w, r, outcome.Signature, outcome.Err)
		}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, signature string, re *core.RelayError) {
	if re == nil {
		re = core.NewError(core.ErrSubmissionError, "relay failed")
	}
	resp := &dto.ErrorResp{
		ErrorKind:            string(re.Kind),
		Message:              re.Error(),
		TransactionSignature: signature,
	}
	if re.Index >= 0 {
		idx := re.Index
		resp.InstructionIndex = &idx
	}
	httpx.WriteJsonCtx(r.Context(), w, statusOf(re.Kind), resp)
}

// statusOf 输入导致的错误为 400；结果未知为 202，调用方凭签名自行轮询
func statusOf(kind core.ErrorKind) int {
	switch {
	case kind.IsClientError():
		return http.StatusBadRequest
	case kind == core.ErrSubmissionUnknown:
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}
