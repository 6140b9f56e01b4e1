package common

import (
	"encoding/binary"

	"relay-gateway-sol/internal/pkg/types"
)

// DataReader 是带长度检查的顺序读取器。
// 任何一次越界读取都会记录错误，之后的读取全部返回零值，调用方在末尾统一检查 Err()。
type DataReader struct {
	data []byte
	off  int
	op   string
	err  error
}

func NewDataReader(data []byte, op string) *DataReader {
	return &DataReader{data: data, op: op}
}

func (r *DataReader) need(n int, field string) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = Malformed("%s: field %s needs %d bytes at offset %d, data len %d", r.op, field, n, r.off, len(r.data))
		return false
	}
	return true
}

func (r *DataReader) U8(field string) uint8 {
	if !r.need(1, field) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *DataReader) U16(field string) uint16 {
	if !r.need(2, field) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *DataReader) U32(field string) uint32 {
	if !r.need(4, field) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *DataReader) U64(field string) uint64 {
	if !r.need(8, field) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

// Bytes 返回 n 字节的拷贝
func (r *DataReader) Bytes(n int, field string) []byte {
	if !r.need(n, field) {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.data[r.off:r.off+n])
	r.off += n
	return out
}

func (r *DataReader) EthAddress(field string) types.EthAddress {
	var a types.EthAddress
	if !r.need(20, field) {
		return a
	}
	copy(a[:], r.data[r.off:r.off+20])
	r.off += 20
	return a
}

// BorshString 读取 u32 长度前缀字符串，声明长度超过 maxLen 或超出数据范围均报错
func (r *DataReader) BorshString(field string, maxLen int) string {
	n := r.U32(field + ".len")
	if r.err != nil {
		return ""
	}
	if maxLen > 0 && int(n) > maxLen {
		r.err = Malformed("%s: field %s declares length %d, max %d", r.op, field, n, maxLen)
		return ""
	}
	b := r.Bytes(int(n), field)
	return string(b)
}

// Offset 当前读取位置
func (r *DataReader) Offset() int {
	return r.off
}

func (r *DataReader) Remaining() int {
	return len(r.data) - r.off
}

func (r *DataReader) Err() error {
	return r.err
}
