package common

import (
	"fmt"

	"github.com/near/borsh-go"
)

// BorshDecode 反序列化 borsh 负载。调用方需先用 DataReader 校验布局长度，
// 这里只负责类型化解码，并把 borsh 的 error / panic 统一转换为 MalformedInstruction。
func BorshDecode(op string, data []byte, v interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Malformed("%s: borsh decode panic: %v", op, r)
		}
	}()
	if err := borsh.Deserialize(v, data); err != nil {
		return Malformed("%s: borsh decode: %v", op, err)
	}
	return nil
}

// BorshEncode 序列化负载并在前面加上单字节指令判别
func BorshEncode(tag byte, v interface{}) ([]byte, error) {
	payload, err := borsh.Serialize(v)
	if err != nil {
		return nil, fmt.Errorf("borsh encode: %w", err)
	}
	out := make([]byte, 0, 1+len(payload))
	out = append(out, tag)
	return append(out, payload...), nil
}
