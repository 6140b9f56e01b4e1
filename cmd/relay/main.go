package main

import (
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"relay-gateway-sol/internal/config"
	"relay-gateway-sol/internal/handler"
	"relay-gateway-sol/internal/pkg/logger"
	"relay-gateway-sol/internal/service"
	"relay-gateway-sol/internal/svc"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
	"github.com/zeromicro/go-zero/rest"
)

var configFile = flag.String("f", "etc/relay.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	if err := logger.Init(c.Logger.ToLogOption()); err != nil {
		logx.Errorf("logger 初始化失败: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		logx.Errorf("服务上下文初始化失败: %v", err)
		os.Exit(1)
	}
	defer serviceContext.Close()

	server := rest.MustNewServer(c.RestConf)
	handler.RegisterHandlers(server, serviceContext)

	sg := zerosvc.NewServiceGroup()
	sg.Add(server)
	if serviceContext.FileRules != nil {
		sg.Add(service.NewPolicyReloadService(serviceContext.FileRules,
			time.Duration(c.Policy.ReloadIntervalSec)*time.Second))
	}
	sg.Add(service.NewHealthService(c.Health.ListenOn,
		time.Duration(c.Health.ProbeInterval)*time.Second, serviceContext.HealthProbes()))

	logx.Infof("Starting relay gateway at %s:%d", c.Host, c.Port)

	// 启动服务
	go sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
}
