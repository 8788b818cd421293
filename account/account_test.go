package account

import (
	"testing"

	"github.com/chratos-network/chratos/numeric"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []numeric.Uint256{
		{},
		func() numeric.Uint256 {
			var u numeric.Uint256
			for i := range u {
				u[i] = byte(i)
			}
			return u
		}(),
	}

	for _, pub := range cases {
		s := Encode(pub)
		if len(s) != 64 {
			t.Fatalf("encoded length = %d, want 64", len(s))
		}
		if s[:4] != "chr_" {
			t.Fatalf("encoded prefix = %q, want chr_", s[:4])
		}
		decoded, err := Decode(s)
		if err != nil {
			t.Fatalf("Decode(%q): %v", s, err)
		}
		if decoded != pub {
			t.Fatalf("round trip mismatch: got %x want %x", decoded, pub)
		}
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	var pub numeric.Uint256
	pub[3] = 0x11
	s := Encode(pub)

	// Flip the last character, which lives entirely in the checksum.
	mutated := []byte(s)
	if mutated[len(mutated)-1] == 'a' {
		mutated[len(mutated)-1] = 'b'
	} else {
		mutated[len(mutated)-1] = 'a'
	}

	if _, err := Decode(string(mutated)); err != ErrChecksum {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
}

func TestDecodeRejectsWrongPrefix(t *testing.T) {
	if _, err := Decode("xyz_" + strings60()); err != ErrBadPrefix {
		t.Fatalf("expected ErrBadPrefix, got %v", err)
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	if _, err := Decode("chr_" + strings60()[:59]); err != ErrBadLength {
		t.Fatalf("expected ErrBadLength, got %v", err)
	}
}

func TestDecodeRejectsInvalidSymbol(t *testing.T) {
	body := []byte(strings60())
	body[10] = '0' // '0' is not in the account alphabet
	if _, err := Decode("chr_" + string(body)); err != ErrBadSymbol {
		t.Fatalf("expected ErrBadSymbol, got %v", err)
	}
}

func TestLegacyNanoPrefixAccepted(t *testing.T) {
	var pub numeric.Uint256
	pub[0] = 0x42
	s := Encode(pub)
	legacy := "nano_" + s[4:]

	decoded, err := Decode(legacy)
	if err != nil {
		t.Fatalf("Decode legacy: %v", err)
	}
	if decoded != pub {
		t.Fatalf("legacy decode mismatch")
	}
}

// strings60 returns a syntactically valid 60-character body (correct
// padding digit, valid alphabet) for length/symbol error-path tests that
// don't care about checksum validity.
func strings60() string {
	var pub numeric.Uint256
	return Encode(pub)[4:]
}
