package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice   = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob     = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	spender = common.HexToAddress("0x000000000000000000000000000000000000005e")
)

func TestMintAndTransfer(t *testing.T) {
	ledger := NewLedger()
	ledger.Mint(alice, big.NewInt(100))

	if err := ledger.Transfer(alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ledger.BalanceOf(alice); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("alice = %s, want 60", got)
	}
	if got := ledger.BalanceOf(bob); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("bob = %s, want 40", got)
	}
	if got := ledger.TotalSupply(); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("supply = %s, want 100", got)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	ledger := NewLedger()
	ledger.Mint(alice, big.NewInt(10))

	err := ledger.Transfer(alice, bob, big.NewInt(11))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("error = %v, want ErrInsufficientBalance", err)
	}
	if got := ledger.BalanceOf(alice); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("failed transfer mutated balance: %s", got)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	ledger := NewLedger()
	ledger.Mint(alice, big.NewInt(100))
	ledger.Approve(alice, spender, big.NewInt(70))

	if err := ledger.TransferFrom(spender, alice, bob, big.NewInt(50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ledger.Allowance(alice, spender); got.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("allowance = %s, want 20", got)
	}

	err := ledger.TransferFrom(spender, alice, bob, big.NewInt(21))
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("error = %v, want ErrInsufficientAllowance", err)
	}
	// Allowance not consumed when the transfer fails.
	if got := ledger.Allowance(alice, spender); got.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("allowance = %s, want 20", got)
	}
	if got := ledger.BalanceOf(bob); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("bob = %s, want 50", got)
	}
}

func TestTransferFromWithoutApproval(t *testing.T) {
	ledger := NewLedger()
	ledger.Mint(alice, big.NewInt(100))

	err := ledger.TransferFrom(spender, alice, bob, big.NewInt(1))
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("error = %v, want ErrInsufficientAllowance", err)
	}
}

func TestTransferFromBalanceFailureKeepsAllowance(t *testing.T) {
	ledger := NewLedger()
	ledger.Mint(alice, big.NewInt(10))
	ledger.Approve(alice, spender, big.NewInt(100))

	err := ledger.TransferFrom(spender, alice, bob, big.NewInt(50))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("error = %v, want ErrInsufficientBalance", err)
	}
	if got := ledger.Allowance(alice, spender); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("allowance = %s, want 100", got)
	}
}
