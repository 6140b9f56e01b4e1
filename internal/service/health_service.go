package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"relay-gateway-sol/internal/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

const (
	RelayHealthService = "relay.v1.Relay"
	defaultProbeEvery  = 10 * time.Second
	probeTimeout       = 3 * time.Second
)

// HealthProbe 返回 nil 表示依赖可用
type HealthProbe func(ctx context.Context) error

// HealthService 通过标准 grpc.health.v1 协议对外暴露中继可用性，
// 任一探针失败时整体状态为 NOT_SERVING。
type HealthService struct {
	addr     string
	server   *grpc.Server
	health   *health.Server
	probes   map[string]HealthProbe
	interval time.Duration
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHealthService(addr string, interval time.Duration, probes map[string]HealthProbe) *HealthService {
	if interval <= 0 {
		interval = defaultProbeEvery
	}
	hs := health.NewServer()
	server := grpc.NewServer(grpc.KeepaliveParams(keepalive.ServerParameters{
		Time:    30 * time.Second,
		Timeout: 10 * time.Second,
	}))
	healthpb.RegisterHealthServer(server, hs)

	ctx, cancel := context.WithCancel(context.Background())
	return &HealthService{
		addr:     addr,
		server:   server,
		health:   hs,
		probes:   probes,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Listen 绑定端口，Start 之前调用；测试中可用 ":0" 取得随机端口
func (s *HealthService) Listen() (net.Addr, error) {
	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("health listen %s: %w", s.addr, err)
	}
	s.listener = lis
	return lis.Addr(), nil
}

func (s *HealthService) Start() {
	if _, err := s.Listen(); err != nil {
		logger.Errorf("[HealthService] %v", err)
		return
	}
	s.probe()
	go s.loop()

	logger.Infof("[HealthService] 监听 %s", s.listener.Addr())
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Errorf("[HealthService] serve 退出: %v", err)
	}
}

func (s *HealthService) Stop() {
	s.cancel()
	s.health.Shutdown()
	s.server.GracefulStop()
}

func (s *HealthService) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.probe()
		}
	}
}

// probe 逐个执行探针并更新状态；空服务名 "" 代表整体状态
func (s *HealthService) probe() {
	overall := healthpb.HealthCheckResponse_SERVING
	for name, p := range s.probes {
		ctx, cancel := context.WithTimeout(s.ctx, probeTimeout)
		err := p(ctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = status
			logger.Warnf("[HealthService] 探针 %s 失败: %v", name, err)
		}
		s.health.SetServingStatus(name, status)
	}
	s.health.SetServingStatus("", overall)
	s.health.SetServingStatus(RelayHealthService, overall)
}
