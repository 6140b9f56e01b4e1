package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"relay-gateway-sol/internal/pkg/logger"
)

const defaultReloadInterval = 30 * time.Second

// PolicyReloader 可重新加载的策略来源（policy.FileRules）
type PolicyReloader interface {
	Reload() (bool, error)
}

// PolicyReloadService 周期性检查策略文件，变更后替换规则快照。
// 进行中的请求持有旧快照，不受替换影响。
type PolicyReloadService struct {
	rules    PolicyReloader
	interval time.Duration
	stopChan chan struct{}
	ctx      context.Context
	cancel   func(err error)

	reloads  atomic.Int64 // 成功替换次数
	failures atomic.Int64 // 连续失败次数
}

func NewPolicyReloadService(rules PolicyReloader, interval time.Duration) *PolicyReloadService {
	if interval <= 0 {
		interval = defaultReloadInterval
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	return &PolicyReloadService{
		rules:    rules,
		interval: interval,
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *PolicyReloadService) Start() {
	logger.Infof("[PolicyReloadService] 启动, 检查间隔: %v", s.interval)
	s.scheduleNext()
	<-s.stopChan
}

func (s *PolicyReloadService) scheduleNext() {
	time.AfterFunc(s.interval, func() {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		if err := s.reload(); err != nil {
			n := s.failures.Add(1)
			logger.Warnf("[PolicyReloadService] 第 %d 次重新加载失败, 继续使用当前规则: %v", n, err)
		} else {
			s.failures.Store(0)
		}
		select {
		case <-s.ctx.Done():
			return
		default:
			s.scheduleNext()
		}
	})
}

func (s *PolicyReloadService) Stop() {
	s.cancel(errors.New("PolicyReloadService stop"))
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
}

// Reloads 返回启动以来成功替换规则的次数
func (s *PolicyReloadService) Reloads() int64 {
	return s.reloads.Load()
}

func (s *PolicyReloadService) reload() (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[PolicyReloadService] reload panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("reload panic: %v", r)
		}
	}()

	changed, err := s.rules.Reload()
	if err != nil {
		return err
	}
	if changed {
		s.reloads.Add(1)
		logger.Infof("[PolicyReloadService] 策略已更新, 累计替换 %d 次", s.reloads.Load())
	}
	return nil
}
