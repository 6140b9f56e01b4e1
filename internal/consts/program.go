package consts

// ProgramKind 标识中继允许解析的链上程序
type ProgramKind int

const (
	ProgramUnknown         ProgramKind = iota // 0 (保留)
	ProgramAssociatedToken                    // 1
	ProgramToken                              // 2
	ProgramRewardManager                      // 3
	ProgramClaimableTokens                    // 4
	ProgramJupiter                            // 5
	ProgramMemo                               // 6
	ProgramSecp256k1                          // 7
)

var ProgramNames = []string{
	"Unknown",         // 0
	"AssociatedToken", // 1
	"Token",           // 2
	"RewardManager",   // 3
	"ClaimableTokens", // 4
	"Jupiter",         // 5
	"Memo",            // 6
	"Secp256k1",       // 7
}

func (k ProgramKind) String() string {
	if k >= 1 && int(k) < len(ProgramNames) {
		return ProgramNames[k]
	}
	return ProgramNames[0]
}
