package numeric

import "testing"

func TestUint256HexRoundTrip(t *testing.T) {
	var u Uint256
	u[0] = 0xde
	u[31] = 0xad

	decoded, err := Uint256FromHex(u.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != u {
		t.Fatalf("round trip mismatch: got %x want %x", decoded, u)
	}
}

func TestUint256FromHexBadLength(t *testing.T) {
	if _, err := Uint256FromHex("abcd"); err != ErrBadLength {
		t.Fatalf("expected ErrBadLength, got %v", err)
	}
}

func TestUint128Arithmetic(t *testing.T) {
	a := Uint128FromUint64(100)
	b := Uint128FromUint64(40)

	if got := a.Sub(b); got != Uint128FromUint64(60) {
		t.Fatalf("100-40 = %x, want 60", got.Bytes())
	}
	if got := a.Add(b); got != Uint128FromUint64(140) {
		t.Fatalf("100+40 = %x, want 140", got.Bytes())
	}
	if !a.GreaterThan(b) {
		t.Fatalf("expected 100 > 40")
	}
}

func TestUint512HexRoundTrip(t *testing.T) {
	var u Uint512
	u[0] = 1
	u[63] = 2

	decoded, err := Uint512FromHex(u.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != u {
		t.Fatalf("round trip mismatch")
	}
}
