package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// EthAddress 是嵌入在指令数据中的 20 字节以太坊地址
type EthAddress [20]byte

// Hex 返回 0x 前缀的小写十六进制形式，比较与日志均使用该形式
func (a EthAddress) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a EthAddress) String() string {
	return a.Hex()
}

// EthAddressFromHex 解析 0x 前缀（可省略）的 40 位十六进制地址，大小写不敏感
func EthAddressFromHex(s string) (EthAddress, error) {
	var a EthAddress
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(trimmed) != 40 {
		return a, fmt.Errorf("invalid eth address length: got %d hex chars, want 40, input=%q", len(trimmed), s)
	}
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return a, fmt.Errorf("invalid eth address %q: %w", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// EthAddressFromData 从指令数据中剥离前导判别字节后读取 20 字节地址
func EthAddressFromData(data []byte, offset int) (EthAddress, error) {
	var a EthAddress
	if offset < 0 || len(data) < offset+20 {
		return a, fmt.Errorf("eth address out of range: offset=%d, len=%d", offset, len(data))
	}
	copy(a[:], data[offset:offset+20])
	return a, nil
}

func (a EthAddress) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *EthAddress) UnmarshalText(text []byte) error {
	v, err := EthAddressFromHex(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
