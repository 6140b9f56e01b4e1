package secp256k1

import (
	"encoding/binary"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/codec/common"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"
)

// 原生程序，布局见 solana-sdk/secp256k1-program
//
//	[0]=签名数量 n
//	[1:1+11n]=n 条偏移记录，每条:
//	  signatureOffset(u16) signatureInstructionIndex(u8)
//	  ethAddressOffset(u16) ethAddressInstructionIndex(u8)
//	  messageDataOffset(u16) messageDataSize(u16) messageInstructionIndex(u8)
const (
	offsetsRecordSize = 11
	signatureSize     = 65 // 64 字节签名 + 1 字节 recovery id
	ethAddressSize    = 20

	// CurrentInstruction 表示引用的数据位于本指令内
	CurrentInstruction = 0xFF
)

func RegisterDecoders(m map[types.Pubkey]common.Decoder) {
	m[consts.Secp256k1Program] = Decode
}

type Offsets struct {
	SignatureOffset            uint16
	SignatureInstructionIndex  uint8
	EthAddressOffset           uint16
	EthAddressInstructionIndex uint8
	MessageDataOffset          uint16
	MessageDataSize            uint16
	MessageInstructionIndex    uint8
}

type Verify struct {
	Offsets []Offsets
}

func (v *Verify) Program() consts.ProgramKind { return consts.ProgramSecp256k1 }
func (v *Verify) Op() string                  { return "verify" }

func Decode(ix core.RawInstruction) (common.Decoded, error) {
	const op = "Secp256k1"
	r := common.NewDataReader(ix.Data, op)
	count := r.U8("count")
	if err := r.Err(); err != nil {
		return nil, err
	}

	v := &Verify{Offsets: make([]Offsets, 0, count)}
	for i := 0; i < int(count); i++ {
		o := Offsets{
			SignatureOffset:            r.U16("signatureOffset"),
			SignatureInstructionIndex:  r.U8("signatureInstructionIndex"),
			EthAddressOffset:           r.U16("ethAddressOffset"),
			EthAddressInstructionIndex: r.U8("ethAddressInstructionIndex"),
			MessageDataOffset:          r.U16("messageDataOffset"),
			MessageDataSize:            r.U16("messageDataSize"),
			MessageInstructionIndex:    r.U8("messageInstructionIndex"),
		}
		if err := r.Err(); err != nil {
			return nil, err
		}
		v.Offsets = append(v.Offsets, o)
	}

	for i, o := range v.Offsets {
		if o.SignatureInstructionIndex == CurrentInstruction &&
			!inBounds(ix.Data, o.SignatureOffset, signatureSize) {
			return nil, common.Malformed("%s: record %d signature out of bounds", op, i)
		}
		if o.MessageInstructionIndex == CurrentInstruction &&
			!inBounds(ix.Data, o.MessageDataOffset, int(o.MessageDataSize)) {
			return nil, common.Malformed("%s: record %d message out of bounds", op, i)
		}
		if o.EthAddressInstructionIndex == CurrentInstruction &&
			!inBounds(ix.Data, o.EthAddressOffset, ethAddressSize) {
			return nil, common.Malformed("%s: record %d eth address out of bounds", op, i)
		}
	}
	return v, nil
}

// SignerAddresses 读取各记录引用的签名者地址。selfIndex 为本指令在交易中的位置，
// 地址位于其它指令时返回 false。
func (v *Verify) SignerAddresses(data []byte, selfIndex int) ([]types.EthAddress, bool) {
	out := make([]types.EthAddress, 0, len(v.Offsets))
	for _, o := range v.Offsets {
		idx := o.EthAddressInstructionIndex
		if idx != CurrentInstruction && int(idx) != selfIndex {
			return nil, false
		}
		addr, err := types.EthAddressFromData(data, int(o.EthAddressOffset))
		if err != nil {
			return nil, false
		}
		out = append(out, addr)
	}
	return out, true
}

func inBounds(data []byte, offset uint16, size int) bool {
	return int(offset)+size <= len(data)
}

// Encode 构造单签名、数据全部内联的校验指令，ixIndex 为该指令在交易中的位置。
// 偏移记录之后依次为 ethAddress(20) signature(64) recoveryID(1) message
func Encode(ixIndex uint8, eth types.EthAddress, signature [64]byte, recoveryID uint8, message []byte) core.RawInstruction {
	const dataStart = 1 + offsetsRecordSize
	ethOffset := dataStart
	sigOffset := ethOffset + ethAddressSize
	msgOffset := sigOffset + signatureSize

	data := make([]byte, 0, msgOffset+len(message))
	data = append(data, 1)
	data = binary.LittleEndian.AppendUint16(data, uint16(sigOffset))
	data = append(data, ixIndex)
	data = binary.LittleEndian.AppendUint16(data, uint16(ethOffset))
	data = append(data, ixIndex)
	data = binary.LittleEndian.AppendUint16(data, uint16(msgOffset))
	data = binary.LittleEndian.AppendUint16(data, uint16(len(message)))
	data = append(data, ixIndex)
	data = append(data, eth[:]...)
	data = append(data, signature[:]...)
	data = append(data, recoveryID)
	data = append(data, message...)
	return core.RawInstruction{ProgramID: consts.Secp256k1Program, Data: data}
}
