package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionHashBytes(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 7)
	}

	assert.Equal(t, uint32(0), PartitionHashBytes(key[:10], 8), "短输入固定落在 0 分区")
	assert.Equal(t, uint32(0), PartitionHashBytes(key, 1))
	assert.Equal(t, uint32(0), PartitionHashBytes(key, 0))

	// 快速路径只看第 27 字节
	assert.Equal(t, uint32(key[27])&7, PartitionHashBytes(key, 8))

	for _, mod := range []uint32{3, 5, 12, 32} {
		got := PartitionHashBytes(key, mod)
		assert.Less(t, got, mod)
		assert.Equal(t, got, PartitionHashBytes(key, mod), "相同输入分区稳定")
	}
}
