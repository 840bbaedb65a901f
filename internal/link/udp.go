package link

import (
	"errors"
	"net"
	"sync"
	"time"
)

const maxDatagram = 64 * 1024

// UDPOptions configures a UDP link endpoint.
type UDPOptions struct {
	// ReadTimeout bounds how long Recv blocks before reporting an absent
	// read. Defaults to 50ms.
	ReadTimeout time.Duration

	// Transmit and Propagation describe the path and seed the sender's
	// initial RTT estimate; UDP cannot measure them itself.
	Transmit    time.Duration
	Propagation time.Duration
}

// UDP is a datagram link over a UDP socket. A dialed endpoint talks to its
// fixed remote; a listening endpoint replies to whichever peer spoke last.
type UDP struct {
	options UDPOptions
	conn    *net.UDPConn
	dialed  bool

	peerMutex sync.Mutex
	peer      *net.UDPAddr
}

// DialUDP creates the sender-side link, connected to addr.
func DialUDP(addr string, options UDPOptions) (*UDP, error) {
	remote, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, remote)
	if err != nil {
		return nil, err
	}
	return newUDP(conn, true, options), nil
}

// ListenUDP creates the receiver-side link, bound to addr.
func ListenUDP(addr string, options UDPOptions) (*UDP, error) {
	local, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, err
	}
	return newUDP(conn, false, options), nil
}

func newUDP(conn *net.UDPConn, dialed bool, options UDPOptions) *UDP {
	if options.ReadTimeout == 0 {
		options.ReadTimeout = 50 * time.Millisecond
	}
	return &UDP{
		options: options,
		conn:    conn,
		dialed:  dialed,
	}
}

func (u *UDP) Send(raw []byte) error {
	if u.dialed {
		_, err := u.conn.Write(raw)
		return err
	}
	u.peerMutex.Lock()
	peer := u.peer
	u.peerMutex.Unlock()
	if peer == nil {
		// Nobody has spoken yet; an unreliable link may drop the frame.
		return nil
	}
	_, err := u.conn.WriteToUDP(raw, peer)
	return err
}

func (u *UDP) Recv() ([]byte, error) {
	if err := u.conn.SetReadDeadline(time.Now().Add(u.options.ReadTimeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, maxDatagram)
	n, addr, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	if addr != nil {
		u.peerMutex.Lock()
		u.peer = addr
		u.peerMutex.Unlock()
	}
	return buf[:n], nil
}

func (u *UDP) Shutdown() error {
	return u.conn.Close()
}

// LocalAddr returns the bound address, useful when listening on port 0.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

func (u *UDP) TransmitDelay() time.Duration    { return u.options.Transmit }
func (u *UDP) PropagationDelay() time.Duration { return u.options.Propagation }
