package mq

import (
	"context"
	"fmt"
	"time"

	"relay-gateway-sol/internal/pkg/logger"
	"relay-gateway-sol/internal/pkg/utils"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	defaultBatchSize   = 16 * 1024
	defaultLingerMs    = 5
	adminTimeout       = 10 * time.Second
	maxMessageBytes    = 1024 * 1024
	deliveryTimeoutMs  = 30000
	producerClientName = "solana-relay-gateway"
)

type KafkaProducerOption struct {
	Brokers   string // Kafka broker 地址，多个用英文逗号分隔
	BatchSize int    // 批处理大小（字节）
	LingerMs  int    // 批处理最大延迟（毫秒）

	// 为空时使用 PLAINTEXT；生产环境建议 SASL_SSL + SCRAM-SHA-512
	SecurityProtocol string
	SaslMechanism    string
	SaslUsername     string
	SaslPassword     string

	Topics []TopicSpec
}

type TopicSpec struct {
	Topic      string // topic 名称
	Partitions int    // 分区数
}

// NewKafkaProducer 确保 topic 存在后创建幂等生产者
func NewKafkaProducer(cfg KafkaProducerOption) (*kafka.Producer, error) {
	if err := ensureTopics(cfg); err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(producerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return producer, nil
}

// ensureTopics 创建缺失的 topic，broker 数大于 1 时使用 2 副本
func ensureTopics(cfg KafkaProducerOption) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": cfg.Brokers})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	meta, err := admin.GetMetadata(nil, true, int(adminTimeout/time.Millisecond))
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}

	replication := 1
	if len(meta.Brokers) > 1 {
		replication = 2
	}

	var missing []kafka.TopicSpecification
	for _, t := range cfg.Topics {
		if t.Topic == "" {
			continue
		}
		if _, ok := meta.Topics[t.Topic]; ok {
			continue
		}
		missing = append(missing, kafka.TopicSpecification{
			Topic:             t.Topic,
			NumPartitions:     max(t.Partitions, 1),
			ReplicationFactor: replication,
		})
	}
	if len(missing) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()
	results, err := admin.CreateTopics(ctx, missing)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	for _, r := range results {
		if code := r.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %w", r.Topic, r.Error)
		}
	}
	logger.Infof("[mq:EnsureTopics] created %d topic(s), brokers=%d, replication=%d", len(missing), len(meta.Brokers), replication)
	return nil
}

func producerConfig(cfg KafkaProducerOption) *kafka.ConfigMap {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	lingerMs := cfg.LingerMs
	if lingerMs < 0 {
		lingerMs = defaultLingerMs
	}
	localIP, _ := utils.GetLocalIP()
	if localIP == "" {
		localIP = "unknown"
	}

	cm := &kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"client.id":         fmt.Sprintf("%s-%s", producerClientName, localIP),

		// 幂等写入：acks=all + enable.idempotence，in-flight 不超过 5
		"acks":                                  "all",
		"enable.idempotence":                    true,
		"max.in.flight.requests.per.connection": 5,

		"delivery.timeout.ms": deliveryTimeoutMs,
		"request.timeout.ms":  deliveryTimeoutMs,
		"retries":             5,
		"retry.backoff.ms":    100,

		"batch.size":        batchSize,
		"linger.ms":         lingerMs,
		"compression.type":  "none",
		"message.max.bytes": maxMessageBytes,
	}
	if cfg.SecurityProtocol != "" {
		_ = cm.SetKey("security.protocol", cfg.SecurityProtocol)
	}
	if cfg.SaslMechanism != "" {
		_ = cm.SetKey("sasl.mechanisms", cfg.SaslMechanism)
		_ = cm.SetKey("sasl.username", cfg.SaslUsername)
		_ = cm.SetKey("sasl.password", cfg.SaslPassword)
	}
	return cm
}
