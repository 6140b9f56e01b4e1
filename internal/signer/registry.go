package signer

import (
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"

	"relay-gateway-sol/internal/pkg/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

var (
	ErrNoPayerConfigured = errors.New("no fee payer configured")
	ErrUnknownKeyHandle  = errors.New("unknown key handle")
	ErrSignerNotRequired = errors.New("fee payer is not a required signer of the message")
)

// SelectMode 决定 ActivePayer 的选取方式
type SelectMode string

const (
	SelectFirst      SelectMode = "first"       // 始终使用第一把 key
	SelectRandom     SelectMode = "random"      // 每次随机
	SelectRoundRobin SelectMode = "round_robin" // 依次轮转
)

// KeyHandle 是 fee payer 的不透明引用，只暴露公钥
type KeyHandle struct {
	pubkey types.Pubkey
	slot   int
}

func (h KeyHandle) PublicKey() types.Pubkey {
	return h.pubkey
}

// Registry 持有托管签名 key，启动时一次性构造，之后只读
type Registry struct {
	accounts []sdktypes.Account
	index    map[types.Pubkey]int
	mode     SelectMode
	next     atomic.Uint64
}

// NewRegistry 从 base58 私钥列表构造；空列表合法，此时 ActivePayer 返回 ErrNoPayerConfigured
func NewRegistry(secretKeys []string, mode SelectMode) (*Registry, error) {
	switch mode {
	case "":
		mode = SelectFirst
	case SelectFirst, SelectRandom, SelectRoundRobin:
	default:
		return nil, fmt.Errorf("unknown fee payer select mode %q", mode)
	}

	r := &Registry{
		accounts: make([]sdktypes.Account, 0, len(secretKeys)),
		index:    make(map[types.Pubkey]int, len(secretKeys)),
		mode:     mode,
	}
	for i, key := range secretKeys {
		account, err := sdktypes.AccountFromBase58(key)
		if err != nil {
			return nil, fmt.Errorf("fee payer key #%d: %w", i, err)
		}
		pk := types.PubkeyFromPublicKey(account.PublicKey)
		if _, dup := r.index[pk]; dup {
			continue
		}
		r.index[pk] = len(r.accounts)
		r.accounts = append(r.accounts, account)
	}
	return r, nil
}

// NewRegistryFromAccounts 直接使用已加载的账户
func NewRegistryFromAccounts(accounts []sdktypes.Account, mode SelectMode) *Registry {
	if mode == "" {
		mode = SelectFirst
	}
	r := &Registry{
		accounts: make([]sdktypes.Account, 0, len(accounts)),
		index:    make(map[types.Pubkey]int, len(accounts)),
		mode:     mode,
	}
	for _, a := range accounts {
		pk := types.PubkeyFromPublicKey(a.PublicKey)
		if _, dup := r.index[pk]; dup {
			continue
		}
		r.index[pk] = len(r.accounts)
		r.accounts = append(r.accounts, a)
	}
	return r
}

func (r *Registry) Len() int {
	return len(r.accounts)
}

// PublicKeys 返回全部 fee payer 公钥
func (r *Registry) PublicKeys() []types.Pubkey {
	out := make([]types.Pubkey, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, types.PubkeyFromPublicKey(a.PublicKey))
	}
	return out
}

func (r *Registry) ActivePayer() (KeyHandle, error) {
	n := len(r.accounts)
	if n == 0 {
		return KeyHandle{}, ErrNoPayerConfigured
	}
	slot := 0
	switch r.mode {
	case SelectRandom:
		slot = rand.Intn(n)
	case SelectRoundRobin:
		slot = int((r.next.Add(1) - 1) % uint64(n))
	}
	return r.handle(slot), nil
}

// Lookup 按公钥查找 fee payer（用于 feePayerOverride）
func (r *Registry) Lookup(pk types.Pubkey) (KeyHandle, bool) {
	slot, ok := r.index[pk]
	if !ok {
		return KeyHandle{}, false
	}
	return r.handle(slot), true
}

func (r *Registry) IsFeePayer(pk types.Pubkey) bool {
	_, ok := r.index[pk]
	return ok
}

// Sign 用 fee payer 对消息字节签名
func (r *Registry) Sign(message []byte, h KeyHandle) (types.Signature, error) {
	account, err := r.account(h)
	if err != nil {
		return types.Signature{}, err
	}
	return types.SignatureFromBytes(account.Sign(message))
}

// SignTransaction 计算消息签名并写入 fee payer 对应的签名槽位，其余槽位保持不变
func (r *Registry) SignTransaction(tx *sdktypes.Transaction, h KeyHandle) error {
	account, err := r.account(h)
	if err != nil {
		return err
	}

	slot := -1
	for i := 0; i < int(tx.Message.Header.NumRequireSignatures) && i < len(tx.Message.Accounts); i++ {
		if tx.Message.Accounts[i] == account.PublicKey {
			slot = i
			break
		}
	}
	if slot < 0 {
		return ErrSignerNotRequired
	}

	msg, err := tx.Message.Serialize()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	for len(tx.Signatures) < int(tx.Message.Header.NumRequireSignatures) {
		tx.Signatures = append(tx.Signatures, make(sdktypes.Signature, 64))
	}
	tx.Signatures[slot] = account.Sign(msg)
	return nil
}

func (r *Registry) handle(slot int) KeyHandle {
	return KeyHandle{pubkey: types.PubkeyFromPublicKey(r.accounts[slot].PublicKey), slot: slot}
}

func (r *Registry) account(h KeyHandle) (sdktypes.Account, error) {
	if h.slot < 0 || h.slot >= len(r.accounts) {
		return sdktypes.Account{}, ErrUnknownKeyHandle
	}
	account := r.accounts[h.slot]
	if types.PubkeyFromPublicKey(account.PublicKey) != h.pubkey {
		return sdktypes.Account{}, ErrUnknownKeyHandle
	}
	return account, nil
}
