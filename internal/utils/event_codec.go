package utils

import (
	"encoding/binary"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// 事件类型前缀，消费端据此选择反序列化的消息类型
const (
	EventTypeRelayOutcome uint32 = 1
)

// EncodeEvent 将 protobuf 消息编码为带事件类型前缀的二进制数据：
// 前 4 字节为事件类型（uint32 小端），后续为确定性 protobuf 编码
func EncodeEvent(eventType uint32, msg proto.Message) ([]byte, error) {
	buf := make([]byte, 4, 4+proto.Size(msg))
	binary.LittleEndian.PutUint32(buf, eventType)

	out, err := proto.MarshalOptions{Deterministic: true}.MarshalAppend(buf, msg)
	if err != nil {
		return nil, fmt.Errorf("EncodeEvent: marshal %T: %w", msg, err)
	}
	return out, nil
}

// DecodeEvent 拆出事件类型并把负载反序列化到 msg
func DecodeEvent(data []byte, msg proto.Message) (uint32, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("DecodeEvent: data too short: %d", len(data))
	}
	eventType := binary.LittleEndian.Uint32(data[:4])
	if err := proto.Unmarshal(data[4:], msg); err != nil {
		return eventType, fmt.Errorf("DecodeEvent: unmarshal %T: %w", msg, err)
	}
	return eventType, nil
}
