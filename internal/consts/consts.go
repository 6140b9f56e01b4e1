package consts

const (
	// PacketDataSize 是单笔交易序列化后的最大字节数（IPv6 MTU - 头部）
	PacketDataSize = 1232

	// MaxInstructionsPerRequest 单次中继请求允许的最大指令数
	MaxInstructionsPerRequest = 64

	// MaxLookupTables 单次中继请求允许引用的地址查找表数量
	MaxLookupTables = 8

	// SignatureLength ed25519 签名长度
	SignatureLength = 64
)
