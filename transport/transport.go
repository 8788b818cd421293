// Package transport implements the UDP network transport of spec.md §2:
// datagram send/receive, fanout broadcast, keepalive, and handshake
// retry scheduling, wired to wire.Parse's datagram decoder. Grounded on
// the teacher's src/net/net_transport.go: the same shutdown-once
// mutex-guarded pattern, and receive-loop-posts-to-executor shape,
// adapted from TCP's accept-a-connection-per-peer model to UDP's single
// connectionless socket.
package transport

import (
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/chratos-network/chratos/alarm"
	"github.com/chratos-network/chratos/wire"
)

const maxDatagramSize = 1400

// Handlers are the collaborator callbacks a decoded, well-formed message
// is dispatched to. Any field may be nil, in which case that message
// kind is silently dropped. Handlers run on the executor, never on the
// receive-loop goroutine (spec.md §5: "UDP receive ... non-blocking
// completions on the executor").
type Handlers struct {
	OnPublish    func(from wire.Endpoint, msg wire.Publish)
	OnConfirmReq func(from wire.Endpoint, msg wire.ConfirmReq)
	OnConfirmAck func(from wire.Endpoint, msg wire.ConfirmAck)
	OnKeepalive  func(from wire.Endpoint, msg wire.Keepalive)
	OnHandshake  func(from wire.Endpoint, msg wire.NodeIDHandshake)
}

// Transport is the UDP network transport of spec.md §2.
type Transport struct {
	log          *logrus.Entry
	conn         *net.UDPConn
	magic        wire.NetworkMagic
	validateWork wire.WorkValidator
	executor     alarm.Executor
	handlers     Handlers

	shutdownLock sync.Mutex
	shutdown     bool
	shutdownCh   chan struct{}
}

// New builds a Transport over an already-bound UDP socket. validateWork
// gates proof-of-work on any block carried in a Publish/ConfirmReq
// (wire.Parse's ParseInsufficientWork status).
func New(conn *net.UDPConn, magic wire.NetworkMagic, validateWork wire.WorkValidator, executor alarm.Executor, handlers Handlers, log *logrus.Entry) *Transport {
	if log == nil {
		l := logrus.New()
		log = logrus.NewEntry(l)
	}
	return &Transport{
		log:          log,
		conn:         conn,
		magic:        magic,
		validateWork: validateWork,
		executor:     executor,
		handlers:     handlers,
		shutdownCh:   make(chan struct{}),
	}
}

// Listen runs the UDP receive loop until Close is called. It is meant to
// run on its own goroutine, owned by node.Node.
func (t *Transport) Listen() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if t.isShutdown() {
				return
			}
			t.log.WithError(err).Warn("udp read")
			continue
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		sender := wire.NewEndpoint(addr.IP, uint16(addr.Port))
		t.executor.Post(func() { t.dispatch(datagram, sender) })
	}
}

func (t *Transport) isShutdown() bool {
	select {
	case <-t.shutdownCh:
		return true
	default:
		return false
	}
}

// Send marshals and writes msg to a single peer.
func (t *Transport) Send(to wire.Endpoint, msg wire.Message) error {
	datagram := encode(t.magic, msg)
	_, err := t.conn.WriteToUDP(datagram, to.Addr())
	return err
}

// Broadcast sends msg to every endpoint in peers (the caller is expected
// to have already narrowed peers down to a fanout set via
// peers.Container.ListFanout).
func (t *Transport) Broadcast(peers []wire.Endpoint, msg wire.Message) {
	datagram := encode(t.magic, msg)
	for _, p := range peers {
		if _, err := t.conn.WriteToUDP(datagram, p.Addr()); err != nil {
			t.log.WithError(err).WithField("peer", p.String()).Debug("broadcast write")
		}
	}
}

func encode(magic wire.NetworkMagic, msg wire.Message) []byte {
	header := wire.NewHeader(magic, msg.Type())
	return append(header.Marshal(), msg.Marshal()...)
}

// Close shuts the transport down exactly once, matching the teacher's
// mutex-guarded shutdown-once pattern (src/net/net_transport.go's
// Close): subsequent calls are no-ops.
func (t *Transport) Close() error {
	t.shutdownLock.Lock()
	defer t.shutdownLock.Unlock()

	if t.shutdown {
		return nil
	}
	close(t.shutdownCh)
	t.shutdown = true
	return t.conn.Close()
}
