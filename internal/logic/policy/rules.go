package policy

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/pkg/logger"
	"relay-gateway-sol/internal/pkg/types"

	"gopkg.in/yaml.v3"
)

// RulesConfig 是 policy.yaml 的结构，地址均为 base58
type RulesConfig struct {
	AssociatedTokenMints []string          `yaml:"associated_token_mints"` // 允许经中继创建 ATA 的 mint
	ClaimableMints       map[string]string `yaml:"claimable_mints"`        // 名称 → mint，每个 mint 派生一个 authority
	SwapStableMint       string            `yaml:"swap_stable_mint"`       // 兑换来源 mint
	SwapNativeMint       string            `yaml:"swap_native_mint"`       // 兑换目标 mint（WSOL）
	RewardManagerState   string            `yaml:"reward_manager_state"`   // reward manager 状态账户
	RequireSocialProof   bool              `yaml:"require_social_proof"`   // claimable transfer 是否要求已验证社交身份
	Secp256k1Signers     []string          `yaml:"secp256k1_signers"`      // 非空时，内联 secp256k1 签名者必须在此列表（0x 开头）
}

// DefaultRulesConfig 主网默认规则
func DefaultRulesConfig() RulesConfig {
	return RulesConfig{
		AssociatedTokenMints: []string{consts.USDCMintStr, consts.WSOLMintStr},
		ClaimableMints: map[string]string{
			"usdc":  consts.USDCMintStr,
			"audio": consts.WAudioMintStr,
		},
		SwapStableMint:     consts.USDCMintStr,
		SwapNativeMint:     consts.WSOLMintStr,
		RewardManagerState: consts.RewardManagerStateStr,
	}
}

// withDefaults 未配置的字段回落到默认值，已配置的列表/映射整体替换默认值
func (c RulesConfig) withDefaults() RulesConfig {
	def := DefaultRulesConfig()
	if c.AssociatedTokenMints == nil {
		c.AssociatedTokenMints = def.AssociatedTokenMints
	}
	if c.ClaimableMints == nil {
		c.ClaimableMints = def.ClaimableMints
	}
	if c.SwapStableMint == "" {
		c.SwapStableMint = def.SwapStableMint
	}
	if c.SwapNativeMint == "" {
		c.SwapNativeMint = def.SwapNativeMint
	}
	if c.RewardManagerState == "" {
		c.RewardManagerState = def.RewardManagerState
	}
	return c
}

// Rules 是某一时刻生效的策略快照，构造后只读。
// 每个请求开始时取一次快照，整批校验都使用同一份规则。
type Rules struct {
	AssociatedTokenMints map[types.Pubkey]struct{}
	ClaimableAuthorities map[types.Pubkey]types.Pubkey // mint → authority PDA
	SwapStableMint       types.Pubkey
	SwapNativeMint       types.Pubkey
	RewardManagerState   types.Pubkey
	RequireSocialProof   bool
	Secp256k1Signers     map[types.EthAddress]struct{}

	authorities map[types.Pubkey]struct{}
}

// NewRules 解析配置并一次性派生各 mint 的 claimable authority
func NewRules(cfg RulesConfig, claimableProgram types.Pubkey) (*Rules, error) {
	r := &Rules{
		AssociatedTokenMints: make(map[types.Pubkey]struct{}, len(cfg.AssociatedTokenMints)),
		ClaimableAuthorities: make(map[types.Pubkey]types.Pubkey, len(cfg.ClaimableMints)),
		Secp256k1Signers:     make(map[types.EthAddress]struct{}, len(cfg.Secp256k1Signers)),
		RequireSocialProof:   cfg.RequireSocialProof,
		authorities:          make(map[types.Pubkey]struct{}, len(cfg.ClaimableMints)),
	}

	for _, s := range cfg.AssociatedTokenMints {
		mint, err := types.TryPubkeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("associated_token_mints: %w", err)
		}
		r.AssociatedTokenMints[mint] = struct{}{}
	}

	for name, s := range cfg.ClaimableMints {
		mint, err := types.TryPubkeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("claimable_mints.%s: %w", name, err)
		}
		authority, err := types.DeriveClaimableAuthority(mint, claimableProgram)
		if err != nil {
			return nil, fmt.Errorf("claimable_mints.%s: derive authority: %w", name, err)
		}
		r.ClaimableAuthorities[mint] = authority
		r.authorities[authority] = struct{}{}
	}

	var err error
	if r.SwapStableMint, err = types.TryPubkeyFromBase58(cfg.SwapStableMint); err != nil {
		return nil, fmt.Errorf("swap_stable_mint: %w", err)
	}
	if r.SwapNativeMint, err = types.TryPubkeyFromBase58(cfg.SwapNativeMint); err != nil {
		return nil, fmt.Errorf("swap_native_mint: %w", err)
	}
	if r.RewardManagerState, err = types.TryPubkeyFromBase58(cfg.RewardManagerState); err != nil {
		return nil, fmt.Errorf("reward_manager_state: %w", err)
	}

	for _, s := range cfg.Secp256k1Signers {
		addr, err := types.EthAddressFromHex(s)
		if err != nil {
			return nil, fmt.Errorf("secp256k1_signers: %w", err)
		}
		r.Secp256k1Signers[addr] = struct{}{}
	}
	return r, nil
}

func (r *Rules) IsAssociatedTokenMintAllowed(mint types.Pubkey) bool {
	_, ok := r.AssociatedTokenMints[mint]
	return ok
}

func (r *Rules) IsClaimableAuthority(authority types.Pubkey) bool {
	_, ok := r.authorities[authority]
	return ok
}

// UserBank 计算钱包在 mint 下的 user bank；mint 没有 claimable authority 时返回 false
func (r *Rules) UserBank(wallet types.EthAddress, mint types.Pubkey) (types.Pubkey, bool) {
	authority, ok := r.ClaimableAuthorities[mint]
	if !ok {
		return types.Pubkey{}, false
	}
	return types.DeriveUserBank(wallet, authority, consts.TokenProgram), true
}

// RulesProvider 返回当前生效的规则快照
type RulesProvider interface {
	Current() *Rules
}

// StaticRules 固定规则，用于测试及不启用热更新的部署
type StaticRules struct {
	rules *Rules
}

func NewStaticRules(rules *Rules) *StaticRules {
	return &StaticRules{rules: rules}
}

func (s *StaticRules) Current() *Rules {
	return s.rules
}

// FileRules 从 YAML 文件加载规则，文件 mtime 变化时重新加载。
// 加载失败时保留上一份规则继续生效。
type FileRules struct {
	path             string
	claimableProgram types.Pubkey

	mu      sync.Mutex // 串行化 Reload
	modTime time.Time
	current atomic.Pointer[Rules]
}

// NewFileRules 首次加载必须成功，否则返回错误
func NewFileRules(path string, claimableProgram types.Pubkey) (*FileRules, error) {
	f := &FileRules{path: path, claimableProgram: claimableProgram}
	if _, err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileRules) Current() *Rules {
	return f.current.Load()
}

// Reload 检查文件 mtime，变化时重新解析；返回是否发生了替换
func (f *FileRules) Reload() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if err != nil {
		return false, fmt.Errorf("stat policy file: %w", err)
	}
	if f.current.Load() != nil && info.ModTime().Equal(f.modTime) {
		return false, nil
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return false, fmt.Errorf("read policy file: %w", err)
	}
	var cfg RulesConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return false, fmt.Errorf("parse policy file: %w", err)
	}
	rules, err := NewRules(cfg.withDefaults(), f.claimableProgram)
	if err != nil {
		return false, fmt.Errorf("build policy rules: %w", err)
	}

	f.current.Store(rules)
	f.modTime = info.ModTime()
	logger.Infof("[Policy:Reload] 已加载策略文件 %s, ataMints=%d, claimableMints=%d, socialProof=%v",
		f.path, len(rules.AssociatedTokenMints), len(rules.ClaimableAuthorities), rules.RequireSocialProof)
	return true, nil
}
