package types

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
)

// FindProgramAddress 计算程序派生地址（PDA），返回地址与 bump
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, uint8, error) {
	addr, bump, err := common.FindProgramAddress(seeds, programID.ToPublicKey())
	if err != nil {
		return Pubkey{}, 0, fmt.Errorf("find program address: %w", err)
	}
	return Pubkey(addr), bump, nil
}

// CreateWithSeed 等价于 PublicKey.createWithSeed(base, seed, owner)
func CreateWithSeed(base Pubkey, seed string, owner Pubkey) Pubkey {
	return Pubkey(common.CreateWithSeed(base.ToPublicKey(), seed, owner.ToPublicKey()))
}

// DeriveClaimableAuthority 计算某 mint 在 claimable-tokens 程序下的 authority PDA
//
// seeds = [mint(32 bytes)]
func DeriveClaimableAuthority(mint, claimableProgram Pubkey) (Pubkey, error) {
	authority, _, err := FindProgramAddress([][]byte{mint[:]}, claimableProgram)
	return authority, err
}

// DeriveUserBank 计算以太坊钱包在某 authority 下的 user bank 地址
//
// seed = base58(ethAddress 20 bytes)，owner = SPL Token Program
func DeriveUserBank(wallet EthAddress, authority, tokenProgram Pubkey) Pubkey {
	seed := base58.Encode(wallet[:])
	return CreateWithSeed(authority, seed, tokenProgram)
}
