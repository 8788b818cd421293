package block

import (
	"testing"

	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
)

func newKeyPair(t *testing.T) *crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return kp
}

func TestStateBlockHashDeterministic(t *testing.T) {
	kp := newKeyPair(t)
	b := &StateBlock{
		AccountField:        kp.Public,
		RepresentativeField: kp.Public,
		BalanceField:        numeric.Uint128FromUint64(1000),
		LinkField:           numeric.ZeroUint256,
	}
	h1 := b.Hash()
	h2 := b.Hash()
	if h1 != h2 {
		t.Fatalf("Hash() not stable across calls: %x != %x", h1, h2)
	}
	other := *b
	other.hash = nil
	other.BalanceField = numeric.Uint128FromUint64(1001)
	if other.Hash() == h1 {
		t.Fatalf("changing balance did not change hash")
	}
}

func TestStateBlockRootOpeningVsContinuation(t *testing.T) {
	kp := newKeyPair(t)
	opening := &StateBlock{AccountField: kp.Public}
	if opening.Root() != kp.Public {
		t.Fatalf("opening block root = %x, want account %x", opening.Root(), kp.Public)
	}

	prev := crypto.Hash256([]byte("some previous hash"))
	continuation := &StateBlock{AccountField: kp.Public, PreviousField: prev}
	if continuation.Root() != prev {
		t.Fatalf("continuation block root = %x, want previous %x", continuation.Root(), prev)
	}
}

type recordingVisitor struct {
	sawState    bool
	sawDividend bool
	sawClaim    bool
}

func (v *recordingVisitor) VisitState(*StateBlock)       { v.sawState = true }
func (v *recordingVisitor) VisitDividend(*DividendBlock) { v.sawDividend = true }
func (v *recordingVisitor) VisitClaim(*ClaimBlock)       { v.sawClaim = true }

func TestVisitDispatchesToConcreteKind(t *testing.T) {
	blocks := []Block{
		&StateBlock{},
		&DividendBlock{},
		&ClaimBlock{},
	}
	for _, b := range blocks {
		v := &recordingVisitor{}
		b.Visit(v)
		switch b.Kind() {
		case KindState:
			if !v.sawState || v.sawDividend || v.sawClaim {
				t.Fatalf("state block dispatched wrong: %+v", v)
			}
		case KindDividend:
			if !v.sawDividend || v.sawState || v.sawClaim {
				t.Fatalf("dividend block dispatched wrong: %+v", v)
			}
		case KindClaim:
			if !v.sawClaim || v.sawState || v.sawDividend {
				t.Fatalf("claim block dispatched wrong: %+v", v)
			}
		}
	}
}

func TestSignVerifyRoundTripAllKinds(t *testing.T) {
	kp := newKeyPair(t)

	cases := []Block{
		&StateBlock{
			AccountField:        kp.Public,
			RepresentativeField: kp.Public,
			BalanceField:        numeric.Uint128FromUint64(500),
			LinkField:           numeric.ZeroUint256,
		},
		&DividendBlock{
			AccountField: kp.Public,
			DividendField: 7,
			AmountField:   numeric.Uint128FromUint64(1_000_000),
		},
		&ClaimBlock{
			AccountField:  kp.Public,
			DividendField: 7,
			SourceField:   crypto.Hash256([]byte("dividend block hash")),
			BalanceField:  numeric.Uint128FromUint64(42),
		},
	}

	for _, b := range cases {
		Sign(b, kp.Private)
		if !VerifySignature(kp.Public, b) {
			t.Fatalf("%s block: signature did not verify", b.Kind())
		}

		other := newKeyPair(t)
		if VerifySignature(other.Public, b) {
			t.Fatalf("%s block: signature verified under wrong account", b.Kind())
		}
	}
}

func TestDividendBlockSourceIsZero(t *testing.T) {
	d := &DividendBlock{}
	if !d.Source().IsZero() {
		t.Fatalf("dividend block source should be zero, got %x", d.Source())
	}
}

func TestClaimBlockSourceIsDividendHash(t *testing.T) {
	dividendHash := crypto.Hash256([]byte("some dividend block"))
	c := &ClaimBlock{SourceField: dividendHash}
	if c.Source() != dividendHash {
		t.Fatalf("claim source = %x, want %x", c.Source(), dividendHash)
	}
}

func TestCrossKindSignatureDoesNotVerify(t *testing.T) {
	kp := newKeyPair(t)

	state := &StateBlock{AccountField: kp.Public, BalanceField: numeric.Uint128FromUint64(1)}
	dividend := &DividendBlock{AccountField: kp.Public, AmountField: numeric.Uint128FromUint64(1)}

	Sign(state, kp.Private)
	dividend.SignatureField = state.SignatureField

	if VerifySignature(kp.Public, dividend) {
		t.Fatalf("signature for a state block verified against a dividend block")
	}
}

func TestValidateWorkThreshold(t *testing.T) {
	root := crypto.Hash256([]byte("root"))
	if ValidateWork(root, 0, DefaultWorkThreshold()) {
		t.Fatalf("zero work unexpectedly satisfied the threshold")
	}
	if !ValidateWork(root, 0, 0) {
		t.Fatalf("zero threshold should always be satisfied")
	}
}
