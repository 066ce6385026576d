package source

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestParseAddressesDedups(t *testing.T) {
	got, err := ParseAddresses([]string{
		"0x00000000000000000000000000000000000000AA",
		" ",
		"0x00000000000000000000000000000000000000aa",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != contract {
		t.Fatalf("unexpected addresses: %v", got)
	}

	if _, err := ParseAddresses([]string{"0x1234"}); err == nil {
		t.Fatalf("expected error for short address")
	}
}

func TestParseTopic0(t *testing.T) {
	transfer := crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	got, err := ParseTopic0([]string{"Transfer(address, address, uint256)", transfer.Hex()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != transfer || got[1] != transfer {
		t.Fatalf("unexpected topics: %v", got)
	}

	if _, err := ParseTopic0([]string{"0x1234"}); err == nil {
		t.Fatalf("expected error for short topic")
	}
	if _, err := ParseTopic0([]string{"0xzz"}); err == nil {
		t.Fatalf("expected error for invalid hex")
	}
}
