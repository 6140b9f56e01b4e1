package mq

import (
	"context"
	"errors"
	"time"

	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/logger"
	"relay-gateway-sol/internal/pkg/utils"
	eventutils "relay-gateway-sol/internal/utils"

	"google.golang.org/protobuf/types/known/structpb"
)

// OutcomePublisher 把中继结果以带类型前缀的 protobuf Struct 写入 Kafka，按 fee payer 分区
type OutcomePublisher struct {
	producer   Producer
	topic      string
	partitions uint32
	timeout    time.Duration
}

func NewOutcomePublisher(producer Producer, topic string, partitions int, timeout time.Duration) *OutcomePublisher {
	if partitions <= 0 {
		partitions = 1
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &OutcomePublisher{
		producer:   producer,
		topic:      topic,
		partitions: uint32(partitions),
		timeout:    timeout,
	}
}

func (p *OutcomePublisher) Publish(ctx context.Context, ev core.OutcomeEvent) error {
	value, err := EncodeOutcomeEvent(ev)
	if err != nil {
		return err
	}

	job := &KafkaJob{
		Topic:     p.topic,
		Partition: int32(utils.PartitionHashBytes(ev.FeePayer[:], p.partitions)),
		Key:       []byte(ev.RequestID),
		Value:     value,
	}
	_, failed := SendKafkaJobs(ctx, p.producer, []*KafkaJob{job}, p.timeout)
	if len(failed) > 0 {
		logger.Warnf("[OutcomePublisher:Publish] 发送失败, requestId=%s, err=%v", ev.RequestID, failed[0].Err)
		return failed[0].Err
	}
	return nil
}

// EncodeOutcomeEvent 编码为 EventTypeRelayOutcome 前缀 + structpb.Struct
func EncodeOutcomeEvent(ev core.OutcomeEvent) ([]byte, error) {
	fields := map[string]any{
		"requestId":        ev.RequestID,
		"contentHash":      ev.ContentHash.String(),
		"status":           string(ev.Status),
		"signature":        ev.Signature,
		"errorKind":        string(ev.ErrorKind),
		"errorIndex":       ev.ErrorIndex,
		"message":          ev.Message,
		"attempts":         ev.Attempts,
		"instructionCount": ev.InstructionCount,
		"authenticated":    ev.Authenticated,
		"durationMs":       ev.Duration.Milliseconds(),
		"timestamp":        ev.Timestamp.UnixMilli(),
	}
	if !ev.FeePayer.IsZero() {
		fields["feePayer"] = ev.FeePayer.String()
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return eventutils.EncodeEvent(eventutils.EventTypeRelayOutcome, s)
}

// DecodeOutcomeEvent 供消费端与测试使用
func DecodeOutcomeEvent(data []byte) (*structpb.Struct, error) {
	var s structpb.Struct
	eventType, err := eventutils.DecodeEvent(data, &s)
	if err != nil {
		return nil, err
	}
	if eventType != eventutils.EventTypeRelayOutcome {
		return nil, errors.New("not a relay outcome event")
	}
	return &s, nil
}

// NopPublisher Kafka 未启用时使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, core.OutcomeEvent) error { return nil }
