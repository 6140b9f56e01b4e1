package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"relay-gateway-sol/internal/consts"
	"relay-gateway-sol/internal/pkg/logger"
	"relay-gateway-sol/internal/pkg/types"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	sdktypes "github.com/blocto/solana-go-sdk/types"
)

var (
	// ErrConfirmTimeout 在确认超时前未观察到终态，交易仍可能上链
	ErrConfirmTimeout = errors.New("confirmation timed out")
	// ErrLookupTableNotFound 地址查找表账户不存在或不属于 ALT 程序
	ErrLookupTableNotFound = errors.New("address lookup table not found")
	// ErrRejected 节点明确拒绝了交易（预执行失败、签名校验失败），重发同一份字节不会改变结果
	ErrRejected = errors.New("transaction rejected by node")
)

// JSON-RPC 错误码，见 solana rpc-client-api custom_error.rs
const (
	rpcCodeSendTransactionPreflightFailure   = -32002
	rpcCodeTransactionSignatureVerifyFailure = -32003
	rpcCodeTransactionPrecompileVerifyFail   = -32013
)

// TransactionFailedError 交易已上链但执行失败（确定失败）
type TransactionFailedError struct {
	Signature string
	Err       any
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed on-chain: %v", e.Signature, e.Err)
}

type Options struct {
	Endpoint            string
	Commitment          rpc.Commitment
	ConfirmPollInterval time.Duration
}

// Client 封装 Solana RPC：提交、确认、查找表解析
type Client struct {
	rpc          *client.Client
	commitment   rpc.Commitment
	pollInterval time.Duration
}

func NewClient(opt Options) (*Client, error) {
	c := client.NewClient(opt.Endpoint)
	if c == nil {
		return nil, errors.New("rpc client init failed")
	}
	commitment := opt.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	interval := opt.ConfirmPollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Client{rpc: c, commitment: commitment, pollInterval: interval}, nil
}

// SendTransaction 发送已签名交易，返回交易签名。
// maxRetries 固定为 0：重发由调用方控制，始终重发同一份签名字节。
func (c *Client) SendTransaction(ctx context.Context, tx sdktypes.Transaction, skipPreflight bool) (string, error) {
	start := time.Now()
	sig, err := c.rpc.SendTransactionWithConfig(ctx, tx, client.SendTransactionConfig{
		SkipPreflight:       skipPreflight,
		PreflightCommitment: c.commitment,
		MaxRetries:          0,
	})
	if err != nil {
		var rpcErr *rpc.JsonRpcError
		if errors.As(err, &rpcErr) {
			switch rpcErr.Code {
			case rpcCodeSendTransactionPreflightFailure,
				rpcCodeTransactionSignatureVerifyFailure,
				rpcCodeTransactionPrecompileVerifyFail:
				return "", fmt.Errorf("%w: %v", ErrRejected, err)
			}
		}
		return "", fmt.Errorf("sendTransaction: %w", err)
	}
	logger.Debugf("[Ledger:Send] 发送成功, sig=%s, 耗时=%v", sig, time.Since(start))
	return sig, nil
}

// WaitConfirmed 轮询签名状态直到达到目标 commitment、链上失败或 ctx 结束。
// ctx 结束返回 ErrConfirmTimeout（结果未知）。
func (c *Client) WaitConfirmed(ctx context.Context, signature string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.rpc.GetSignatureStatus(ctx, signature)
		if err != nil {
			if ctx.Err() != nil {
				return ErrConfirmTimeout
			}
			logger.Warnf("[Ledger:Confirm] 查询签名状态失败, sig=%s, err=%v", signature, err)
		} else if status != nil {
			if status.Err != nil {
				return &TransactionFailedError{Signature: signature, Err: status.Err}
			}
			if reached(status.ConfirmationStatus, c.commitment) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ErrConfirmTimeout
		case <-ticker.C:
		}
	}
}

func reached(got *rpc.Commitment, want rpc.Commitment) bool {
	if got == nil {
		return false
	}
	switch want {
	case rpc.CommitmentProcessed:
		return true
	case rpc.CommitmentConfirmed:
		return *got == rpc.CommitmentConfirmed || *got == rpc.CommitmentFinalized
	default:
		return *got == rpc.CommitmentFinalized
	}
}

// ResolveLookupTables 批量读取地址查找表账户并解析出地址列表，顺序与输入一致
func (c *Client) ResolveLookupTables(ctx context.Context, addrs []types.Pubkey) ([]sdktypes.AddressLookupTableAccount, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(addrs))
	for _, a := range addrs {
		keys = append(keys, a.String())
	}

	infos, err := c.rpc.GetMultipleAccounts(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("GetMultipleAccounts failed: %w", err)
	}
	if len(infos) != len(addrs) {
		return nil, fmt.Errorf("返回账户数与请求不一致: got=%d want=%d", len(infos), len(addrs))
	}

	out := make([]sdktypes.AddressLookupTableAccount, 0, len(addrs))
	for i, info := range infos {
		if len(info.Data) == 0 || types.PubkeyFromPublicKey(info.Owner) != consts.AddressLookupTableProgram {
			return nil, fmt.Errorf("%w: %s", ErrLookupTableNotFound, addrs[i])
		}
		entries, err := ParseLookupTable(info.Data)
		if err != nil {
			return nil, fmt.Errorf("lookup table %s: %w", addrs[i], err)
		}
		table := sdktypes.AddressLookupTableAccount{
			Key:       addrs[i].ToPublicKey(),
			Addresses: make([]common.PublicKey, 0, len(entries)),
		}
		for _, e := range entries {
			table.Addresses = append(table.Addresses, e.ToPublicKey())
		}
		out = append(out, table)
	}
	return out, nil
}

// 地址查找表账户布局（address-lookup-table 程序 state.rs）
//
//	[0:4]   type discriminator (u32, 1 = LookupTable)
//	[4:12]  deactivation slot (u64)
//	[12:20] last extended slot (u64)
//	[20]    last extended slot start index (u8)
//	[21]    authority option tag
//	[22:54] authority
//	[54:56] padding
//	[56:]   addresses，每个 32 字节
const (
	lookupTableMetaSize      = 56
	lookupTableTypeLookupTab = 1
)

func ParseLookupTable(data []byte) ([]types.Pubkey, error) {
	if len(data) < lookupTableMetaSize {
		return nil, fmt.Errorf("lookup table data too short: %d", len(data))
	}
	if binary.LittleEndian.Uint32(data[0:4]) != lookupTableTypeLookupTab {
		return nil, fmt.Errorf("account is not an initialized lookup table")
	}
	body := data[lookupTableMetaSize:]
	if len(body)%32 != 0 {
		return nil, fmt.Errorf("lookup table address section misaligned: %d bytes", len(body))
	}
	out := make([]types.Pubkey, 0, len(body)/32)
	for off := 0; off < len(body); off += 32 {
		var pk types.Pubkey
		copy(pk[:], body[off:off+32])
		out = append(out, pk)
	}
	return out, nil
}
