package observer

import (
	"testing"

	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/wire"
)

func TestNotifyAccountBalanceFansOutInOrder(t *testing.T) {
	r := New()
	var calls []int
	r.OnAccountBalance(func(numeric.Uint256, bool) { calls = append(calls, 1) })
	r.OnAccountBalance(func(numeric.Uint256, bool) { calls = append(calls, 2) })

	r.NotifyAccountBalance(numeric.Uint256{}, true)

	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Fatalf("calls = %v, want [1 2]", calls)
	}
}

func TestNotifyDisconnectNoSubscribers(t *testing.T) {
	r := New()
	r.NotifyDisconnect() // must not panic with no subscribers
}

func TestNotifyEndpoint(t *testing.T) {
	r := New()
	var got wire.Endpoint
	want := wire.NewEndpoint(nil, 7075)
	r.OnEndpoint(func(ep wire.Endpoint) { got = ep })

	r.NotifyEndpoint(want)

	if got != want {
		t.Fatalf("got = %v, want %v", got, want)
	}
}
