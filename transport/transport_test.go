package transport

import (
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chratos-network/chratos/alarm"
	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/common"
	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/wire"
)

func newLoopbackConn(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSendAndDispatchPublish(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	b := &block.StateBlock{
		AccountField:        kp.Public,
		RepresentativeField: kp.Public,
		BalanceField:        numeric.Uint128FromUint64(1000),
		LinkField:           numeric.ZeroUint256,
	}
	block.Sign(b, kp.Private)

	serverConn := newLoopbackConn(t)
	clientConn := newLoopbackConn(t)

	executor := alarm.NewWorkerPoolExecutor(1)
	t.Cleanup(executor.Shutdown)

	received := make(chan wire.Publish, 1)
	handlers := Handlers{
		OnPublish: func(from wire.Endpoint, msg wire.Publish) {
			received <- msg
		},
	}
	server := New(serverConn, wire.MagicTest, nil, executor, handlers, logrus.NewEntry(common.NewTestLogger(t)))
	go server.Listen()
	t.Cleanup(func() { server.Close() })

	client := New(clientConn, wire.MagicTest, nil, executor, Handlers{}, logrus.NewEntry(common.NewTestLogger(t)))
	t.Cleanup(func() { client.Close() })

	serverAddr := serverConn.LocalAddr().(*net.UDPAddr)
	target := wire.NewEndpoint(net.ParseIP("127.0.0.1"), uint16(serverAddr.Port))

	if err := client.Send(target, &wire.Publish{Block: b}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Block.Hash() != b.Hash() {
			t.Fatalf("received block hash = %x, want %x", msg.Block.Hash(), b.Hash())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never received the published block")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	conn := newLoopbackConn(t)
	executor := alarm.NewWorkerPoolExecutor(1)
	t.Cleanup(executor.Shutdown)

	tr := New(conn, wire.MagicTest, nil, executor, Handlers{}, logrus.NewEntry(common.NewTestLogger(t)))
	go tr.Listen()

	if err := tr.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}
