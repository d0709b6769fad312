/*
@Description: batched UDP send/receive for the accelerator's tunnel socket
@Language: Go 1.23.4
*/

package main

import (
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
)

// batchSize bounds how many datagrams a single ReadBatch/WriteBatch
// syscall drains, the same tradeoff the teacher's batchconn.go makes
// for its xconn path.
const batchSize = 16

// tunnel wraps the UDP socket carrying source/repair/ack packets
// between this accelerator instance and its peer. It resolves the
// peer's address dynamically (a server accepts from whichever address
// last spoke) so client and server share one code path, the way the
// original's transcoder is "fully symmetric" despite UDP itself
// needing a client/server distinction (examples/accelerator/accelerator.cc).
type tunnel struct {
	conn  *net.UDPConn
	batch *ipv4.PacketConn

	fixedPeer bool
	peer      atomic.Value // *net.UDPAddr

	log *zap.SugaredLogger
}

func newTunnel(conn *net.UDPConn, peer *net.UDPAddr, log *zap.SugaredLogger) *tunnel {
	t := &tunnel{
		conn:      conn,
		batch:     ipv4.NewPacketConn(conn),
		fixedPeer: peer != nil,
		log:       log,
	}
	if peer != nil {
		t.peer.Store(peer)
	}
	return t
}

// send writes one packet to the current peer address, preferring the
// batched path and falling back to a plain WriteTo on any batch
// failure, mirroring tx()/batchTx()/defaultTx() in the teacher's tx.go.
func (t *tunnel) send(payload []byte) {
	peer, _ := t.peer.Load().(*net.UDPAddr)
	if peer == nil {
		return
	}
	msgs := []ipv4.Message{{Buffers: [][]byte{payload}, Addr: peer}}
	if _, err := t.batch.WriteBatch(msgs, 0); err != nil {
		if _, werr := t.conn.WriteToUDP(payload, peer); werr != nil {
			t.log.Warnw("tunnel write failed", "error", errors.WithStack(werr))
		}
	}
}

// recvBatch blocks for at least one datagram and returns every payload
// read in this batch, learning the peer's address from whichever
// source last sent (a no-op once fixedPeer pins it at construction).
func (t *tunnel) recvBatch(scratch [][]byte) ([][]byte, error) {
	msgs := make([]ipv4.Message, len(scratch))
	for i := range msgs {
		msgs[i].Buffers = [][]byte{scratch[i]}
	}
	n, err := t.batch.ReadBatch(msgs, 0)
	if err != nil {
		// Fall back to a single unbatched read rather than failing the
		// whole loop; some platforms/sockets don't support recvmmsg.
		nb, addr, rerr := t.conn.ReadFromUDP(scratch[0])
		if rerr != nil {
			return nil, errors.WithStack(rerr)
		}
		t.learnPeer(addr)
		return [][]byte{scratch[0][:nb]}, nil
	}
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if udpAddr, ok := msgs[i].Addr.(*net.UDPAddr); ok {
			t.learnPeer(udpAddr)
		}
		out = append(out, scratch[i][:msgs[i].N])
	}
	return out, nil
}

func (t *tunnel) learnPeer(addr *net.UDPAddr) {
	if t.fixedPeer {
		return
	}
	t.peer.Store(addr)
}
