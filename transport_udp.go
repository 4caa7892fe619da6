package maviola

import (
	"bytes"
	"fmt"
	"net"
	"sync"

	"github.com/pion/logging"
	"github.com/pion/transport/v2/packetio"
	"golang.org/x/net/ipv4"
)

// decodeDatagram parses exactly one MAVLink frame out of a single UDP
// payload. UDP preserves datagram boundaries, so unlike the TCP codec
// this never spans multiple reads.
func decodeDatagram(data []byte, crcExtra CRCExtraLookup) (Frame, error) {
	sr := &StreamReceiver{r: bytes.NewReader(data), crcExtra: crcExtra}
	return sr.Receive()
}

func encodeDatagram(f Frame, crcExtra CRCExtraLookup) ([]byte, error) {
	var buf bytes.Buffer
	sw := &StreamSender{w: &buf, crcExtra: crcExtra}
	if err := sw.Send(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UDPServer demultiplexes datagrams from many peers on one socket into one
// channel per observed source address (spec §6 "UDP server"). Each peer's
// inbound datagrams are queued into its own packetio.Buffer so that
// peer's Receiver can block independently of every other peer's traffic —
// the same per-flow buffering packetio was built for in pion's ICE/SRTP
// stack, repurposed here for MAVLink-over-UDP demux.
type UDPServer struct {
	Addr string

	LoggerFactory logging.LoggerFactory

	conn   *net.UDPConn
	pconn  *ipv4.PacketConn
	closer *SharedCloser
	logger logging.LeveledLogger

	mu    sync.Mutex
	peers map[string]*packetio.Buffer
}

func (s *UDPServer) Info() ConnectionInfo {
	return ConnectionInfo{Kind: "udp_server", Params: map[string]string{"addr": s.Addr}}
}

func (s *UDPServer) Repairable() bool { return false }

func (s *UDPServer) Build(factory *ChannelFactory) error {
	addr, err := net.ResolveUDPAddr("udp", s.Addr)
	if err != nil {
		return &BuildError{Transport: "udp_server", Err: err}
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return &BuildError{Transport: "udp_server", Err: err}
	}

	s.conn = conn
	s.pconn = ipv4.NewPacketConn(conn)
	// Best-effort: if the platform can't report the receiving interface,
	// ReadFrom below still works, just with cm == nil.
	_ = s.pconn.SetControlMessage(ipv4.FlagInterface|ipv4.FlagDst, true)
	s.closer = factory.Closer()
	s.logger = loggerFactory(s.LoggerFactory).NewLogger("udp_server")
	s.peers = make(map[string]*packetio.Buffer)

	go s.demuxLoop(factory)
	go func() {
		<-s.closer.Done()
		_ = s.conn.Close()
	}()
	return nil
}

// LocalAddr reports the socket's bound address, useful for discovering
// the real port after binding to ":0". Only valid once Build has
// returned successfully.
func (s *UDPServer) LocalAddr() net.Addr { return s.conn.LocalAddr() }

func (s *UDPServer) demuxLoop(factory *ChannelFactory) {
	crcExtra := lookupFromSet(factory.Dialects())
	raw := make([]byte, netBufferSize)

	for {
		n, cm, src, err := s.pconn.ReadFrom(raw)
		if err != nil {
			if s.closer.IsClosed() {
				return
			}
			s.logger.Warnf("udp read: %v", err)
			return
		}
		uaddr, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}

		key := uaddr.String()
		s.mu.Lock()
		buf, known := s.peers[key]
		if !known {
			buf = packetio.NewBuffer()
			s.peers[key] = buf
		}
		s.mu.Unlock()

		if !known {
			params := map[string]string{"remote": key}
			if cm != nil {
				params["iface"] = fmt.Sprintf("%d", cm.IfIndex)
			}
			info := ChannelInfo{Kind: "udp", Params: params}
			sender := &udpPeerSender{conn: s.conn, addr: uaddr, crcExtra: crcExtra}
			receiver := &udpPeerReceiver{buf: buf, crcExtra: crcExtra}
			factory.Build(info, sender, receiver)
		}

		if _, err := buf.Write(raw[:n]); err != nil {
			s.logger.Debugf("udp: demux write for %s: %v", key, err)
		}
	}
}

type udpPeerReceiver struct {
	buf      *packetio.Buffer
	crcExtra CRCExtraLookup
}

func (r *udpPeerReceiver) Receive() (Frame, error) {
	raw := make([]byte, netBufferSize)
	n, err := r.buf.Read(raw)
	if err != nil {
		return nil, err
	}
	return decodeDatagram(raw[:n], r.crcExtra)
}

func (r *udpPeerReceiver) Close() error { return r.buf.Close() }

type udpPeerSender struct {
	conn     *net.UDPConn
	addr     *net.UDPAddr
	crcExtra CRCExtraLookup
}

func (s *udpPeerSender) Send(f Frame) error {
	data, err := encodeDatagram(f, s.crcExtra)
	if err != nil {
		return err
	}
	_, err = s.conn.WriteToUDP(data, s.addr)
	return err
}

// UDPClient dials a single remote endpoint, optionally from a specific
// local address, and exposes exactly one channel (spec §6 "UDP client").
type UDPClient struct {
	RemoteAddr string
	LocalAddr  string

	LoggerFactory logging.LoggerFactory
}

func (c *UDPClient) Info() ConnectionInfo {
	return ConnectionInfo{Kind: "udp_client", Params: map[string]string{"remote": c.RemoteAddr}}
}

func (c *UDPClient) Repairable() bool { return true }

func (c *UDPClient) Build(factory *ChannelFactory) error {
	raddr, err := net.ResolveUDPAddr("udp", c.RemoteAddr)
	if err != nil {
		return &BuildError{Transport: "udp_client", Err: err}
	}
	var laddr *net.UDPAddr
	if c.LocalAddr != "" {
		laddr, err = net.ResolveUDPAddr("udp", c.LocalAddr)
		if err != nil {
			return &BuildError{Transport: "udp_client", Err: err}
		}
	}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return &BuildError{Transport: "udp_client", Err: fmt.Errorf("dial %s: %w", c.RemoteAddr, err)}
	}

	crcExtra := lookupFromSet(factory.Dialects())
	info := ChannelInfo{Kind: "udp", Params: map[string]string{"remote": c.RemoteAddr}}
	factory.BuildSoleChannel(info, &udpClientSender{conn: conn, crcExtra: crcExtra}, &udpClientReceiver{conn: conn, crcExtra: crcExtra})
	return nil
}

type udpClientReceiver struct {
	conn     *net.UDPConn
	crcExtra CRCExtraLookup
}

func (r *udpClientReceiver) Receive() (Frame, error) {
	raw := make([]byte, netBufferSize)
	n, err := r.conn.Read(raw)
	if err != nil {
		return nil, err
	}
	return decodeDatagram(raw[:n], r.crcExtra)
}

func (r *udpClientReceiver) Close() error { return r.conn.Close() }

type udpClientSender struct {
	conn     *net.UDPConn
	crcExtra CRCExtraLookup
}

func (s *udpClientSender) Send(f Frame) error {
	data, err := encodeDatagram(f, s.crcExtra)
	if err != nil {
		return err
	}
	_, err = s.conn.Write(data)
	return err
}

func (s *udpClientSender) Close() error { return s.conn.Close() }
