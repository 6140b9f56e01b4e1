package svc

import (
	"context"
	"fmt"
	"time"

	"relay-gateway-sol/internal/config"
	"relay-gateway-sol/internal/ledger"
	"relay-gateway-sol/internal/logic/codec"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/logic/diagnostics"
	"relay-gateway-sol/internal/logic/policy"
	"relay-gateway-sol/internal/logic/relay"
	"relay-gateway-sol/internal/mq"
	"relay-gateway-sol/internal/pkg/logger"
	pkgmq "relay-gateway-sol/internal/pkg/mq"
	"relay-gateway-sol/internal/pkg/types"
	"relay-gateway-sol/internal/service"
	"relay-gateway-sol/internal/signer"
	"relay-gateway-sol/internal/socialproof"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Relayer 是 handler 依赖的中继入口，*relay.Relayer 满足该接口
type Relayer interface {
	Relay(ctx context.Context, req core.RelayRequest, caller *core.CallerIdentity) core.RelayOutcome
}

// ServiceContext 包含中继网关的全部资源
type ServiceContext struct {
	Config      config.Config
	Relayer     Relayer
	Signers     *signer.Registry
	FileRules   *policy.FileRules // 未配置策略文件时为 nil
	FailedTxs   *diagnostics.RedisFailedTxStore
	SocialProof *socialproof.GormStore // 未启用时为 nil

	redis    *redis.Client
	producer *kafka.Producer
	db       *gorm.DB
}

// NewServiceContext 按配置依次初始化各依赖，任一步失败都释放已创建的资源
func NewServiceContext(c config.Config) (_ *ServiceContext, err error) {
	ctx := &ServiceContext{Config: c}
	defer func() {
		if err != nil {
			ctx.Close()
		}
	}()

	// 1. 程序地址与解码器
	ids, err := programIDs(c.Programs)
	if err != nil {
		return nil, err
	}
	registry := codec.NewRegistry(ids)

	// 2. fee payer
	ctx.Signers, err = signer.NewRegistry(c.Signer.SecretKeys, signer.SelectMode(c.Signer.SelectMode))
	if err != nil {
		return nil, fmt.Errorf("signer registry: %w", err)
	}
	if ctx.Signers.Len() == 0 {
		logger.Warnf("[ServiceContext] 未配置 fee payer，所有中继请求将返回 SignerUnavailable")
	}

	// 3. 策略规则
	var rules policy.RulesProvider
	if c.Policy.File != "" {
		ctx.FileRules, err = policy.NewFileRules(c.Policy.File, ids.Claimable)
		if err != nil {
			return nil, err
		}
		rules = ctx.FileRules
	} else {
		defaults, err := policy.NewRules(policy.DefaultRulesConfig(), ids.Claimable)
		if err != nil {
			return nil, err
		}
		rules = policy.NewStaticRules(defaults)
	}

	// 4. 社交身份库（可选）
	var checker policy.SocialProofChecker
	if c.SocialProof.Enabled {
		ctx.db, err = gorm.Open(sqlite.Open(c.SocialProof.DSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("open social proof db: %w", err)
		}
		ctx.SocialProof = socialproof.NewGormStore(ctx.db)
		if err = ctx.SocialProof.Migrate(); err != nil {
			return nil, err
		}
		checker = ctx.SocialProof
	}
	validator := policy.NewValidator(registry, rules, checker, ctx.Signers)

	// 5. 链上提交
	ledgerClient, err := ledger.NewClient(ledger.Options{
		Endpoint:            c.Ledger.Endpoint,
		Commitment:          rpc.Commitment(c.Ledger.Commitment),
		ConfirmPollInterval: time.Duration(c.Ledger.ConfirmPollInterval) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}

	// 6. 诊断记录
	ctx.redis = redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
	ctx.FailedTxs = diagnostics.NewRedisFailedTxStore(ctx.redis, c.Redis.TTL())

	// 7. 结果事件（可选）
	var publisher relay.OutcomePublisher = mq.NopPublisher{}
	if c.Kafka.Enabled {
		ctx.producer, err = pkgmq.NewKafkaProducer(c.Kafka.ToKafkaOption())
		if err != nil {
			logger.Errorf("Kafka producer 初始化失败: %v", err)
			return nil, err
		}
		publisher = mq.NewOutcomePublisher(ctx.producer, c.Kafka.Topic, c.Kafka.Partitions,
			time.Duration(c.Kafka.SendTimeoutMs)*time.Millisecond)
	}

	// 8. 中继编排
	ctx.Relayer = relay.NewRelayer(relay.Deps{
		Registry:  registry,
		Validator: validator,
		Signer:    ctx.Signers,
		Submitter: ledgerClient,
		Lookups:   ledgerClient,
		Sink:      ctx.FailedTxs,
		Publisher: publisher,
	}, relay.Options{
		MaxAttempts:     c.Retry.MaxAttempts,
		InitialInterval: time.Duration(c.Retry.InitialIntervalMs) * time.Millisecond,
		MaxInterval:     time.Duration(c.Retry.MaxIntervalMs) * time.Millisecond,
		AttemptTimeout:  time.Duration(c.Ledger.SubmitTimeoutMs) * time.Millisecond,
		ConfirmTimeout:  time.Duration(c.Ledger.ConfirmTimeoutMs) * time.Millisecond,
		Flags:           policy.Flags{RequireSocialProof: c.Policy.RequireSocialProof},
	})

	logger.Infof("中继服务上下文初始化完成, feePayers=%d, policyFile=%q, kafka=%v, socialProof=%v",
		ctx.Signers.Len(), c.Policy.File, c.Kafka.Enabled, c.SocialProof.Enabled)
	return ctx, nil
}

// HealthProbes 健康检查探针：fee payer 已配置、Redis 可达
func (ctx *ServiceContext) HealthProbes() map[string]service.HealthProbe {
	return map[string]service.HealthProbe{
		"signer": func(context.Context) error {
			if ctx.Signers == nil || ctx.Signers.Len() == 0 {
				return signer.ErrNoPayerConfigured
			}
			return nil
		},
		"redis": func(c context.Context) error {
			return ctx.redis.Ping(c).Err()
		},
	}
}

// Close 关闭服务上下文中的资源
func (ctx *ServiceContext) Close() {
	if ctx.producer != nil {
		ctx.producer.Flush(3000)
		ctx.producer.Close()
	}
	if ctx.redis != nil {
		_ = ctx.redis.Close()
	}
	if ctx.db != nil {
		if sqlDB, err := ctx.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func programIDs(c config.ProgramsConfig) (codec.ProgramIDs, error) {
	var ids codec.ProgramIDs
	var err error
	if ids.RewardManager, err = types.TryPubkeyFromBase58(c.RewardManager); err != nil {
		return ids, fmt.Errorf("programs.RewardManager: %w", err)
	}
	if ids.Claimable, err = types.TryPubkeyFromBase58(c.Claimable); err != nil {
		return ids, fmt.Errorf("programs.Claimable: %w", err)
	}
	if ids.Jupiter, err = types.TryPubkeyFromBase58(c.Jupiter); err != nil {
		return ids, fmt.Errorf("programs.Jupiter: %w", err)
	}
	return ids, nil
}
