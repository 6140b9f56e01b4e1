package consts

import "relay-gateway-sol/internal/pkg/types"

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	// Programs
	SystemProgramStr             = "11111111111111111111111111111111"
	TokenProgramStr              = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	TokenProgram2022Str          = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	AssociatedTokenProgramStr    = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	ComputeBudgetProgramIdStr    = "ComputeBudget111111111111111111111111111111"
	AddressLookupTableProgramStr = "AddressLookupTab1e1111111111111111111111111"
	MemoProgramStr               = "Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo"
	MemoV2ProgramStr             = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
	Secp256k1ProgramStr          = "KeccakSecp256k11111111111111111111111111111"

	// Sysvars
	SysvarRentStr         = "SysvarRent111111111111111111111111111111111"
	SysvarInstructionsStr = "Sysvar1nstructions1111111111111111111111111"

	// 聚合器: Jupiter v6
	JupiterV6ProgramStr = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"

	// Audius 程序（主网默认值，可被配置覆盖）
	RewardManagerProgramStr   = "DDZDcYdQFEMwcu2Mwo75yGFjJ1mUQyyXLWzhZLEVFcei"
	ClaimableTokensProgramStr = "Ewkv3JahEFRKkcJmpoKB7pXbnUHwjAyXiwEo4ZY2rezQ"
	RewardManagerStateStr     = "71hWFVYokLaN1PNYzTAWi13EfJ7Xt9VbSWUKsXUT8mxE"

	// Mints
	WSOLMintStr   = "So11111111111111111111111111111111111111112"
	USDCMintStr   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	WAudioMintStr = "9LzCMqDgTKYz9Drzqnpgee3SGa89up3a247ypMj2xrqM"
)

var (
	// Programs
	SystemProgram             = types.PubkeyFromBase58(SystemProgramStr)
	TokenProgram              = types.PubkeyFromBase58(TokenProgramStr)
	TokenProgram2022          = types.PubkeyFromBase58(TokenProgram2022Str)
	AssociatedTokenProgram    = types.PubkeyFromBase58(AssociatedTokenProgramStr)
	ComputeBudgetProgram      = types.PubkeyFromBase58(ComputeBudgetProgramIdStr)
	AddressLookupTableProgram = types.PubkeyFromBase58(AddressLookupTableProgramStr)
	MemoProgram               = types.PubkeyFromBase58(MemoProgramStr)
	MemoV2Program             = types.PubkeyFromBase58(MemoV2ProgramStr)
	Secp256k1Program          = types.PubkeyFromBase58(Secp256k1ProgramStr)

	SysvarRent         = types.PubkeyFromBase58(SysvarRentStr)
	SysvarInstructions = types.PubkeyFromBase58(SysvarInstructionsStr)

	JupiterV6Program = types.PubkeyFromBase58(JupiterV6ProgramStr)

	RewardManagerProgram   = types.PubkeyFromBase58(RewardManagerProgramStr)
	ClaimableTokensProgram = types.PubkeyFromBase58(ClaimableTokensProgramStr)
	RewardManagerState     = types.PubkeyFromBase58(RewardManagerStateStr)

	WSOLMint   = types.PubkeyFromBase58(WSOLMintStr)
	USDCMint   = types.PubkeyFromBase58(USDCMintStr)
	WAudioMint = types.PubkeyFromBase58(WAudioMintStr)
)
