// Package node wires every other package into a running process and
// owns the long-lived background workers: block processing, vote
// processing, election announcements, and the alarm (spec.md §2 "Node
// glue", §5's concurrency model). Grounded on the teacher's
// src/node/node.go: a single struct holding every subsystem plus a
// doBackgroundWork-style dispatch loop, and the same stop-workers-then-
// transport-then-storage teardown order in Shutdown.
package node

import (
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/chratos-network/chratos/alarm"
	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/blockarrival"
	"github.com/chratos-network/chratos/blockprocessor"
	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/election"
	"github.com/chratos-network/chratos/gapcache"
	"github.com/chratos-network/chratos/ledger"
	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/observer"
	"github.com/chratos-network/chratos/onlinereps"
	"github.com/chratos-network/chratos/peers"
	"github.com/chratos-network/chratos/transport"
	"github.com/chratos-network/chratos/vote"
	"github.com/chratos-network/chratos/voteprocessor"
	"github.com/chratos-network/chratos/wire"
)

// Node owns every subsystem and the UDP socket. All exported methods are
// safe to call from any goroutine.
type Node struct {
	cfg Config
	log *logrus.Entry

	Identity *crypto.KeyPair

	Ledger     *ledger.Ledger
	Peers      *peers.Container
	OnlineReps *onlinereps.Tracker
	Arrival    *blockarrival.Set
	GapCache   *gapcache.Cache
	Alarm      *alarm.Alarm
	Executor   *alarm.WorkerPoolExecutor
	Observer   *observer.Registry
	Blocks     *blockprocessor.Processor
	Votes      *voteprocessor.Processor
	Elections  *election.Manager
	Transport  *transport.Transport

	mu            sync.Mutex
	started       bool
	shutdown      bool
	stopRecompute func()
}

// New builds a Node from cfg, wiring every subsystem's collaborator
// functions to one another exactly as spec.md §2's data-flow paragraph
// describes. identity may be nil for a non-voting node.
func New(cfg Config, identity *crypto.KeyPair) (*Node, error) {
	log := logrus.NewEntry(cfg.Logger)
	if cfg.Logger == nil {
		log = logrus.NewEntry(logrus.New())
	}

	store, err := ledger.Open(cfg.DataDir, log)
	if err != nil {
		return nil, fmt.Errorf("node: open ledger: %w", err)
	}

	udpAddr, err := net.ResolveUDPAddr("udp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("node: resolve listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("node: listen udp: %w", err)
	}
	own := wire.NewEndpoint(conn.LocalAddr().(*net.UDPAddr).IP, uint16(conn.LocalAddr().(*net.UDPAddr).Port))

	n := &Node{
		cfg:      cfg,
		log:      log,
		Identity: identity,
		Ledger:   store,
		Peers:    peers.NewContainer(cfg.PeerConfig, own),
		Arrival:  blockarrival.New(),
		Observer: observer.New(),
	}

	weightFn := func(account numeric.Uint256) numeric.Uint128 { return store.Weight(account) }
	n.OnlineReps = onlinereps.New(weightFn, cfg.OnlineWeightMinimum)
	n.Executor = alarm.NewWorkerPoolExecutor(ioThreads(cfg))
	n.Alarm = alarm.New(n.Executor, log)
	n.GapCache = gapcache.New(gapcache.Config{LiveNet: cfg.LiveNet}, n.Alarm, weightFn, n.OnlineReps.OnlineStake, n.hasBlock, n.bootstrapStub)

	n.Blocks = blockprocessor.New(store, blockprocessor.Config{LiveNet: cfg.LiveNet}, block0Threshold(),
		log, n.Arrival.Recent, n.GapCache.Add, n.startElection, n.eraseElection)

	n.Elections = election.New(cfg.electionConfig(), log, weightFn, n.OnlineReps.OnlineStake,
		n.representatives, n.forceBlock, n.broadcastMessage, n.sendMessage, n.selfVote, n.blockFits)

	n.Votes = voteprocessor.New(store, log, n.forwardVote, n.notifyVote, n.replyMaxVote)

	n.Transport = transport.New(conn, cfg.Magic, n.validateWork, n.Executor, transport.Handlers{
		OnPublish:    n.onPublish,
		OnConfirmReq: n.onConfirmReq,
		OnConfirmAck: n.onConfirmAck,
		OnKeepalive:  n.onKeepalive,
		OnHandshake:  n.onHandshake,
	}, log)

	n.Peers.OnEndpoint = n.Observer.NotifyEndpoint
	n.Peers.OnDisconnect = n.Observer.NotifyDisconnect

	return n, nil
}

func ioThreads(cfg Config) int {
	if cfg.IOThreads > 0 {
		return cfg.IOThreads
	}
	return 4
}

// block0Threshold is a placeholder proof-of-work threshold until the
// node wires in a live difficulty adjustment; blockprocessor.Add already
// gates on it via block.ValidateWork.
func block0Threshold() uint64 { return 0 }

// Run starts every background worker and the UDP receive loop. It
// returns once all workers have been launched; it does not block. A second
// call is a no-op.
func (n *Node) Run() {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return
	}
	n.started = true
	n.mu.Unlock()

	go n.Blocks.Run()
	go n.Votes.Run()
	go n.Transport.Listen()
	n.Elections.StartAnnouncing(n.Alarm)
	n.Transport.StartKeepalive(n.Alarm, n.keepalivePeers, n.Peers.ListFanout)
	n.stopRecompute = n.OnlineReps.StartBackgroundRecompute()
}

// Shutdown stops every background worker, then the transport, then the
// ledger, matching the teacher's node.Shutdown teardown order (stop
// workers first, storage last).
func (n *Node) Shutdown() error {
	n.mu.Lock()
	if n.shutdown {
		n.mu.Unlock()
		return nil
	}
	shutdownWorkers := n.started
	n.shutdown = true
	n.mu.Unlock()

	if n.stopRecompute != nil {
		n.stopRecompute()
	}
	if shutdownWorkers {
		n.Blocks.Stop()
		n.Votes.Stop()
	}
	n.Alarm.Stop()
	if err := n.Transport.Close(); err != nil {
		n.log.WithError(err).Warn("close transport")
	}
	n.Executor.Shutdown()
	return n.Ledger.Close()
}

func (n *Node) hasBlock(hash numeric.Uint256) bool {
	_, err := n.Ledger.Block(hash)
	return err == nil
}

// bootstrapStub is the hook for batch history download, out of scope per
// spec.md §1; it only logs until a bootstrap subsystem is wired in.
func (n *Node) bootstrapStub(hash numeric.Uint256) {
	n.log.WithField("hash", hash.Hex()).Debug("bootstrap requested")
}

func (n *Node) representatives(count int) []election.Representative {
	records := n.Peers.Representatives(count)
	out := make([]election.Representative, 0, len(records))
	for _, r := range records {
		out = append(out, election.Representative{
			Account:  r.ProbableRepAccount,
			Weight:   r.RepWeight,
			Endpoint: r.Endpoint,
		})
	}
	return out
}

// forceBlock forwards an election's fork-resolution winner back into the
// block processor's forced path (spec.md §4.5/§4.6), bypassing dedup since
// the block may already have been seen and discarded as a losing fork.
func (n *Node) forceBlock(b block.Block) {
	n.Blocks.Force(b)
}

// eraseElection retires the election tracking b's root once the block
// processor has resolved its fork outcome another way.
func (n *Node) eraseElection(b block.Block) {
	n.Elections.Erase(b)
}

func (n *Node) broadcastMessage(msg wire.Message) {
	n.Transport.Broadcast(n.Peers.ListFanout(), msg)
}

func (n *Node) sendMessage(to wire.Endpoint, msg wire.Message) {
	if err := n.Transport.Send(to, msg); err != nil {
		n.log.WithError(err).WithField("peer", to.String()).Debug("send")
	}
}

// selfVote signs refs with this node's own identity, if any, and
// broadcasts the result (spec.md §4.6: "for local representatives,
// self-vote"). A node without a configured identity is never a local
// representative and this is a no-op.
func (n *Node) selfVote(refs []vote.Ref) {
	if n.Identity == nil {
		return
	}
	sequence, _, _ := n.Ledger.MaxVote(n.Identity.Public)
	v := &vote.Vote{Account: n.Identity.Public, Sequence: sequence + 1, Refs: refs}
	v.Sign(n.Identity.Private)
	n.broadcastMessage(&wire.ConfirmAck{Vote: v})
}

func (n *Node) blockFits(b block.Block) bool {
	prev := b.Previous()
	if prev.IsZero() {
		return true
	}
	return n.hasBlock(prev)
}

// validateWork applies the same proof-of-work gate blockprocessor.Add uses,
// so a datagram carrying an underworked block is rejected at parse time
// rather than reaching the ingress queue at all.
func (n *Node) validateWork(root block.Block) bool {
	return block.ValidateWork(root.Root(), root.Work(), block0Threshold())
}

// startElection opens an election (a no-op when one already exists for its
// root) for a block that just made
// ledger progress, wiring its eventual winner to onElectionConfirm (spec.md
// §4.6: "the winner is queued to the confirmation observer path").
func (n *Node) startElection(b block.Block) {
	n.Elections.Start(b, nil, n.onElectionConfirm)
}

// onElectionConfirm notifies the observer registry once an election
// settles on a winner, following the teacher's commitCallback shape
// (observer.Registry.NotifyBlock).
func (n *Node) onElectionConfirm(winner block.Block) {
	n.Observer.NotifyBlock(winner, winner.Root(), numeric.ZeroUint128, false)
}

func (n *Node) forwardVote(v *vote.Vote) bool {
	return !n.Elections.Vote(v)
}

func (n *Node) notifyVote(v *vote.Vote, sender wire.Endpoint) {
	n.OnlineReps.Vote(v)
	n.GapCache.Vote(v)
	n.Observer.NotifyVote(v, sender)
}

func (n *Node) replyMaxVote(to wire.Endpoint, sequence uint64, hash numeric.Uint256) {
	v := &vote.Vote{Account: numeric.ZeroUint256, Sequence: sequence, Refs: []vote.Ref{{Hash: hash}}}
	n.sendMessage(to, &wire.ConfirmAck{Vote: v})
}

func (n *Node) keepalivePeers() [wire.KeepalivePeerCount]wire.Endpoint {
	var out [wire.KeepalivePeerCount]wire.Endpoint
	for i, ep := range n.Peers.RandomSet(wire.KeepalivePeerCount) {
		out[i] = ep
	}
	return out
}

func (n *Node) onPublish(from wire.Endpoint, msg wire.Publish) {
	n.Arrival.Add(msg.Block.Hash())
	n.Blocks.Add(msg.Block)
}

func (n *Node) onConfirmReq(from wire.Endpoint, msg wire.ConfirmReq) {
	n.Arrival.Add(msg.Block.Hash())
	n.Blocks.Add(msg.Block)
}

func (n *Node) onConfirmAck(from wire.Endpoint, msg wire.ConfirmAck) {
	n.Votes.Add(msg.Vote, from)
}

func (n *Node) onKeepalive(from wire.Endpoint, msg wire.Keepalive) {
	n.Peers.Contacted(from, peers.HandshakeVersion)
	for _, p := range msg.Peers {
		if !p.IsZero() {
			n.Peers.Insert(p, peers.HandshakeVersion)
		}
	}
}

func (n *Node) onHandshake(from wire.Endpoint, msg wire.NodeIDHandshake) {
	if msg.Response != nil {
		invalid := n.Peers.ValidateSynCookie(from, msg.Response.Account, msg.Response.Signature)
		if !invalid {
			n.Peers.RepResponse(from, msg.Response.Account, n.Ledger.Weight(msg.Response.Account))
		}
	}
	if msg.Query != nil && n.Identity != nil {
		sig := crypto.Sign(n.Identity.Private, *msg.Query)
		n.sendMessage(from, &wire.NodeIDHandshake{Response: &wire.HandshakeResponse{
			Account:   n.Identity.Public,
			Signature: sig,
		}})
	}
}
