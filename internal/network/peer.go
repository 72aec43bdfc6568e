package network

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ledgercore/node/pkg/types"
)

// peer wraps one websocket connection to a confidant. Writes are
// serialized through a single goroutine because gorilla/websocket
// connections are not safe for concurrent writers.
type peer struct {
	key      types.PublicKey
	isSignal bool
	conn     *websocket.Conn

	mu     sync.Mutex
	outbox chan []byte
	closed chan struct{}
	once   sync.Once
}

func newPeer(key types.PublicKey, conn *websocket.Conn, isSignal bool) *peer {
	p := &peer{
		key:      key,
		isSignal: isSignal,
		conn:     conn,
		outbox:   make(chan []byte, 256),
		closed:   make(chan struct{}),
	}
	go p.writeLoop()
	return p
}

func (p *peer) writeLoop() {
	for {
		select {
		case msg := <-p.outbox:
			p.mu.Lock()
			err := p.conn.WriteMessage(websocket.BinaryMessage, msg)
			p.mu.Unlock()
			if err != nil {
				p.close()
				return
			}
		case <-p.closed:
			return
		}
	}
}

// send enqueues msg for delivery, dropping it if the peer's outbox is full
// rather than blocking the caller's logical thread.
func (p *peer) send(msg []byte) error {
	select {
	case p.outbox <- msg:
		return nil
	case <-p.closed:
		return errPeerClosed
	default:
		return errPeerBackpressure
	}
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.closed)
		_ = p.conn.Close()
	})
}
