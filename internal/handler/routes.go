package handler

import (
	"net/http"

	"relay-gateway-sol/internal/svc"

	"github.com/zeromicro/go-zero/rest"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	routes := []rest.Route{
		{
			Method:  http.MethodPost,
			Path:    "/relay",
			Handler: RelayHandler(serverCtx),
		},
	}
	if serverCtx.Config.Auth.TrustProxyHeaders {
		routes = rest.WithMiddlewares([]rest.Middleware{CallerHeaderMiddleware}, routes...)
	}
	server.AddRoutes(routes)
}
