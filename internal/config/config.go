package config

import (
	"time"

	"relay-gateway-sol/internal/pkg/logger"
	"relay-gateway-sol/internal/pkg/mq"

	"github.com/zeromicro/go-zero/rest"
)

type LogConfig struct {
	Format   string `json:",default=console,options=console|json"` // 日志格式
	LogDir   string `json:",optional"`                             // 日志目录（为空时仅输出到 stdout）
	Level    string `json:",default=info"`                         // 日志级别：debug / info / warn / error
	Compress bool   `json:",optional"`                             // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RedisConfig 诊断记录存储
type RedisConfig struct {
	Addr        string `json:",default=127.0.0.1:6379"`
	Password    string `json:",optional"`
	DB          int    `json:",default=0"`
	FailedTxTTL int    `json:",default=86400"` // 诊断记录保留时长（秒）
}

func (c *RedisConfig) TTL() time.Duration {
	return time.Duration(c.FailedTxTTL) * time.Second
}

// KafkaConfig 中继结果事件，Enabled=false 时不创建生产者
type KafkaConfig struct {
	Enabled       bool   `json:",optional"`
	Brokers       string `json:",optional"`      // 多个用英文逗号分隔
	BatchSize     int    `json:",default=16384"` // 批处理大小（字节）
	LingerMs      int    `json:",default=5"`     // 批处理最大延迟（毫秒）
	Topic         string `json:",default=relay-outcome"`
	Partitions    int    `json:",default=3"`
	SendTimeoutMs int    `json:",default=3000"` // 单条事件发送并等待 ack 的超时

	SecurityProtocol string `json:",optional"`
	SaslMechanism    string `json:",optional"`
	SaslUsername     string `json:",optional"`
	SaslPassword     string `json:",optional"`
}

func (c *KafkaConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:          c.Brokers,
		BatchSize:        c.BatchSize,
		LingerMs:         c.LingerMs,
		SecurityProtocol: c.SecurityProtocol,
		SaslMechanism:    c.SaslMechanism,
		SaslUsername:     c.SaslUsername,
		SaslPassword:     c.SaslPassword,
		Topics:           []mq.TopicSpec{{Topic: c.Topic, Partitions: c.Partitions}},
	}
}

// LedgerConfig Solana RPC 提交与确认
type LedgerConfig struct {
	Endpoint            string `json:",default=https://api.mainnet-beta.solana.com"`
	Commitment          string `json:",default=confirmed,options=processed|confirmed|finalized"`
	SubmitTimeoutMs     int    `json:",default=10000"` // 单次 sendTransaction 超时
	ConfirmTimeoutMs    int    `json:",default=30000"` // 等待确认的总时长，0 表示不等待
	ConfirmPollInterval int    `json:",default=500"`   // 确认轮询间隔（毫秒）
}

// RetryConfig retry=true 时的重发策略
type RetryConfig struct {
	MaxAttempts       int `json:",default=5"`
	InitialIntervalMs int `json:",default=250"`
	MaxIntervalMs     int `json:",default=4000"`
}

// SignerConfig 托管 fee payer
type SignerConfig struct {
	SecretKeys []string `json:",optional"` // base58 编码的 64 字节私钥
	SelectMode string   `json:",default=first,options=first|random|round_robin"`
}

// ProgramsConfig 部署相关的程序地址
type ProgramsConfig struct {
	RewardManager string `json:",default=DDZDcYdQFEMwcu2Mwo75yGFjJ1mUQyyXLWzhZLEVFcei"`
	Claimable     string `json:",default=Ewkv3JahEFRKkcJmpoKB7pXbnUHwjAyXiwEo4ZY2rezQ"`
	Jupiter       string `json:",default=JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"`
}

// PolicyConfig 策略文件与热加载
type PolicyConfig struct {
	File               string `json:",optional"`   // 为空时使用内置默认规则
	ReloadIntervalSec  int    `json:",default=30"` // 文件变更检查间隔
	RequireSocialProof bool   `json:",optional"`   // 与策略文件中的开关取或
}

// SocialProofConfig 社交身份记录库
type SocialProofConfig struct {
	Enabled bool   `json:",optional"`
	DSN     string `json:",default=file:socialproof.db?cache=shared"` // sqlite DSN
}

// HealthConfig gRPC 健康检查
type HealthConfig struct {
	ListenOn      string `json:",default=0.0.0.0:9090"`
	ProbeInterval int    `json:",default=10"` // 探针间隔（秒）
}

// AuthConfig 调用方身份。鉴权由上游网关完成，这里只信任其注入的请求头
type AuthConfig struct {
	TrustProxyHeaders bool `json:",optional"`
}

// Config 中继网关主配置
type Config struct {
	rest.RestConf

	Logger      LogConfig
	Redis       RedisConfig
	Kafka       KafkaConfig `json:",optional"`
	Ledger      LedgerConfig
	Retry       RetryConfig `json:",optional"`
	Signer      SignerConfig
	Programs    ProgramsConfig    `json:",optional"`
	Policy      PolicyConfig      `json:",optional"`
	SocialProof SocialProofConfig `json:",optional"`
	Health      HealthConfig      `json:",optional"`
	Auth        AuthConfig        `json:",optional"`
}
