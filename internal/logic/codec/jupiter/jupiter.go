package jupiter

import (
	"bytes"
	"encoding/binary"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/logic/codec/common"
	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/types"
)

// 合约 IDL: https://github.com/jup-ag/jupiter-cpi (v6)
//
// Anchor 指令：[0:8]=discriminator，只识别 sharedAccountsRoute
var SharedAccountsRouteDiscriminator = [8]byte{193, 32, 155, 51, 65, 214, 156, 129}

const (
	sharedAccountsRouteAccounts = 9
	// inAmount(8) + quotedOutAmount(8) + slippageBps(2) + platformFeeBps(1)
	routeTailSize = 19
	// discriminator(8) + id(1) + routePlan.len(4)
	routeHeadSize = 13
)

func RegisterDecoders(m map[types.Pubkey]common.Decoder, programID types.Pubkey) {
	m[programID] = Decode
}

// SharedAccountsRoute:
//
//	[0:8]=discriminator, [8]=id, [9:]=routePlan(Vec<RoutePlanStep>),
//	末尾 19 字节 = inAmount(u64) quotedOutAmount(u64) slippageBps(u16) platformFeeBps(u8)
//
// routePlan 中各 swap 变体长度不一，这里不展开，只校验 vec 长度前缀存在，
// 末尾定长字段从数据尾部倒序读取。
//
// #0 - Token Program
// #1 - Program Authority
// #2 - User Transfer Authority（用户签名）
// #3 - Source TokenAccount
// #4 - Program Source TokenAccount
// #5 - Program Destination TokenAccount
// #6 - Destination TokenAccount
// #7 - Source Mint
// #8 - Destination Mint
// #9.. - platformFeeAccount / token2022 / eventAuthority / program / 路由账户
type SharedAccountsRoute struct {
	TokenProgram          types.Pubkey
	ProgramAuthority      types.Pubkey
	UserTransferAuthority types.Pubkey
	SourceTokenAccount    types.Pubkey
	DestinationAccount    types.Pubkey
	SourceMint            types.Pubkey
	DestinationMint       types.Pubkey

	ID              uint8
	RoutePlanLen    uint32
	RoutePlan       []byte // 含 vec 长度前缀的原始字节
	InAmount        uint64
	QuotedOutAmount uint64
	SlippageBps     uint16
	PlatformFeeBps  uint8
}

func (s *SharedAccountsRoute) Program() consts.ProgramKind { return consts.ProgramJupiter }
func (s *SharedAccountsRoute) Op() string                  { return "sharedAccountsRoute" }

func Decode(ix core.RawInstruction) (common.Decoded, error) {
	if err := common.RequireData(ix, "Jupiter", 8); err != nil {
		return nil, err
	}
	if !bytes.Equal(ix.Data[:8], SharedAccountsRouteDiscriminator[:]) {
		return nil, common.UnknownOperation(consts.ProgramJupiter, ix.Data[:8])
	}

	const op = "Jupiter:SharedAccountsRoute"
	if err := common.RequireAccounts(ix, op, sharedAccountsRouteAccounts); err != nil {
		return nil, err
	}
	if err := common.RequireData(ix, op, routeHeadSize+routeTailSize); err != nil {
		return nil, err
	}

	r := common.NewDataReader(ix.Data, op)
	r.Bytes(8, "discriminator")
	id := r.U8("id")
	planLen := r.U32("routePlan.len")
	if err := r.Err(); err != nil {
		return nil, err
	}
	if planLen > 0 && len(ix.Data)-routeHeadSize-routeTailSize == 0 {
		return nil, common.Malformed("%s: routePlan declares %d steps but carries no step data", op, planLen)
	}

	tail := ix.Data[len(ix.Data)-routeTailSize:]
	plan := make([]byte, len(ix.Data)-routeTailSize-9)
	copy(plan, ix.Data[9:len(ix.Data)-routeTailSize])

	return &SharedAccountsRoute{
		TokenProgram:          common.AccountAt(ix, 0),
		ProgramAuthority:      common.AccountAt(ix, 1),
		UserTransferAuthority: common.AccountAt(ix, 2),
		SourceTokenAccount:    common.AccountAt(ix, 3),
		DestinationAccount:    common.AccountAt(ix, 6),
		SourceMint:            common.AccountAt(ix, 7),
		DestinationMint:       common.AccountAt(ix, 8),

		ID:              id,
		RoutePlanLen:    planLen,
		RoutePlan:       plan,
		InAmount:        binary.LittleEndian.Uint64(tail[0:8]),
		QuotedOutAmount: binary.LittleEndian.Uint64(tail[8:16]),
		SlippageBps:     binary.LittleEndian.Uint16(tail[16:18]),
		PlatformFeeBps:  tail[18],
	}, nil
}

// EncodeSharedAccountsRoute 按布局拼装数据，routePlan 需为含长度前缀的原始字节
func EncodeSharedAccountsRoute(programID types.Pubkey, s SharedAccountsRoute, accounts []core.AccountRef) core.RawInstruction {
	data := make([]byte, 0, 9+len(s.RoutePlan)+routeTailSize)
	data = append(data, SharedAccountsRouteDiscriminator[:]...)
	data = append(data, s.ID)
	data = append(data, s.RoutePlan...)
	data = binary.LittleEndian.AppendUint64(data, s.InAmount)
	data = binary.LittleEndian.AppendUint64(data, s.QuotedOutAmount)
	data = binary.LittleEndian.AppendUint16(data, s.SlippageBps)
	data = append(data, s.PlatformFeeBps)
	return core.RawInstruction{ProgramID: programID, Accounts: accounts, Data: data}
}
