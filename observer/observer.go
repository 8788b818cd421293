// Package observer implements the observer callback registry of spec.md
// §6: the core never calls application code directly, it fans events out
// to whatever callbacks have been registered. Grounded on the teacher's
// single commit callback (hashgraph.Hashgraph.commitCallback,
// src/hashgraph/hashgraph.go, invoked as proxy.CommitBlock from
// node.NewNode), generalized here from one callback to five independent,
// multi-subscriber lists since spec.md names five distinct events instead
// of babble's one.
package observer

import (
	"sync"

	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/vote"
	"github.com/chratos-network/chratos/wire"
)

// BlockFunc is notified whenever a block commits progress (spec.md §6:
// "blocks(block, account, amount, is_state_send)"). amount is the value
// moved by the operation (a send/receive delta, a claim credit); for a
// state-block send isStateSend is true and account is the sender.
type BlockFunc func(b block.Block, account numeric.Uint256, amount numeric.Uint128, isStateSend bool)

// VoteFunc is notified for every valid vote that the active elections
// manager accepted, after routing; replays are not notified (spec.md §6:
// "vote(vote, endpoint)").
type VoteFunc func(v *vote.Vote, endpoint wire.Endpoint)

// EndpointFunc is notified whenever the peer container admits a new
// endpoint (spec.md §6: "endpoint(ep)").
type EndpointFunc func(ep wire.Endpoint)

// DisconnectFunc is notified when the peer container transitions from
// non-empty to empty (spec.md §6: "disconnect()").
type DisconnectFunc func()

// AccountBalanceFunc is notified whenever an account's balance changes,
// optionally while a corresponding receive is still pending (spec.md §6:
// "account_balance(account, pending?)").
type AccountBalanceFunc func(account numeric.Uint256, pending bool)

// Registry is the core's single point of contact with the outside world:
// every subsystem that produces one of the five named events calls the
// matching Notify method instead of holding application references
// directly.
type Registry struct {
	mu sync.Mutex

	blocks          []BlockFunc
	votes           []VoteFunc
	endpoints       []EndpointFunc
	disconnects     []DisconnectFunc
	accountBalances []AccountBalanceFunc
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{}
}

// OnBlock registers fn to be called by NotifyBlock.
func (r *Registry) OnBlock(fn BlockFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, fn)
}

// OnVote registers fn to be called by NotifyVote.
func (r *Registry) OnVote(fn VoteFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.votes = append(r.votes, fn)
}

// OnEndpoint registers fn to be called by NotifyEndpoint.
func (r *Registry) OnEndpoint(fn EndpointFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints = append(r.endpoints, fn)
}

// OnDisconnect registers fn to be called by NotifyDisconnect.
func (r *Registry) OnDisconnect(fn DisconnectFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects = append(r.disconnects, fn)
}

// OnAccountBalance registers fn to be called by NotifyAccountBalance.
func (r *Registry) OnAccountBalance(fn AccountBalanceFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accountBalances = append(r.accountBalances, fn)
}

// NotifyBlock fans out to every registered BlockFunc, in registration
// order. Callbacks run synchronously on the caller's goroutine; a
// callback that blocks holds up the notifying subsystem, matching the
// teacher's commitCallback which runs inline inside the hashgraph's own
// processing loop.
func (r *Registry) NotifyBlock(b block.Block, account numeric.Uint256, amount numeric.Uint128, isStateSend bool) {
	r.mu.Lock()
	fns := append([]BlockFunc(nil), r.blocks...)
	r.mu.Unlock()
	for _, fn := range fns {
		fn(b, account, amount, isStateSend)
	}
}

// NotifyVote fans out to every registered VoteFunc.
func (r *Registry) NotifyVote(v *vote.Vote, endpoint wire.Endpoint) {
	r.mu.Lock()
	fns := append([]VoteFunc(nil), r.votes...)
	r.mu.Unlock()
	for _, fn := range fns {
		fn(v, endpoint)
	}
}

// NotifyEndpoint fans out to every registered EndpointFunc.
func (r *Registry) NotifyEndpoint(ep wire.Endpoint) {
	r.mu.Lock()
	fns := append([]EndpointFunc(nil), r.endpoints...)
	r.mu.Unlock()
	for _, fn := range fns {
		fn(ep)
	}
}

// NotifyDisconnect fans out to every registered DisconnectFunc.
func (r *Registry) NotifyDisconnect() {
	r.mu.Lock()
	fns := append([]DisconnectFunc(nil), r.disconnects...)
	r.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// NotifyAccountBalance fans out to every registered AccountBalanceFunc.
func (r *Registry) NotifyAccountBalance(account numeric.Uint256, pending bool) {
	r.mu.Lock()
	fns := append([]AccountBalanceFunc(nil), r.accountBalances...)
	r.mu.Unlock()
	for _, fn := range fns {
		fn(account, pending)
	}
}
