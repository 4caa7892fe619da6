package maviola

import (
	"fmt"
	"net"
	"time"

	"github.com/pion/logging"
)

// TCPServer accepts one channel per incoming connection (spec §6 "TCP
// server"). Build listens immediately; Build returning nil means the
// listener is up, not that any client has connected yet.
type TCPServer struct {
	Addr string

	LoggerFactory logging.LoggerFactory

	ln     net.Listener
	closer *SharedCloser
	logger logging.LeveledLogger
}

func (s *TCPServer) Info() ConnectionInfo {
	return ConnectionInfo{Kind: "tcp_server", Params: map[string]string{"addr": s.Addr}}
}

func (s *TCPServer) Repairable() bool { return false }

func (s *TCPServer) Build(factory *ChannelFactory) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return &BuildError{Transport: "tcp_server", Err: err}
	}
	s.ln = ln
	s.closer = factory.Closer()
	s.logger = loggerFactory(s.LoggerFactory).NewLogger("tcp_server")

	go s.acceptLoop(factory)
	go func() {
		<-s.closer.Done()
		_ = s.ln.Close()
	}()
	return nil
}

// LocalAddr reports the listener's bound address, useful for discovering
// the real port after binding to ":0". Only valid once Build has
// returned successfully.
func (s *TCPServer) LocalAddr() net.Addr { return s.ln.Addr() }

func (s *TCPServer) acceptLoop(factory *ChannelFactory) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closer.IsClosed() {
				return
			}
			s.logger.Warnf("tcp accept: %v", err)
			return
		}
		info := ChannelInfo{Kind: "tcp", Params: map[string]string{"remote": conn.RemoteAddr().String()}}
		factory.Build(info, NewStreamSender(conn, factory.Dialects()), NewStreamReceiver(conn, factory.Dialects()))
	}
}

// TCPClient dials a single remote endpoint and exposes exactly one
// channel (spec §6 "TCP client").
type TCPClient struct {
	Addr    string
	Timeout time.Duration

	LoggerFactory logging.LoggerFactory
}

func (c *TCPClient) Info() ConnectionInfo {
	return ConnectionInfo{Kind: "tcp_client", Params: map[string]string{"addr": c.Addr}}
}

func (c *TCPClient) Repairable() bool { return true }

func (c *TCPClient) Build(factory *ChannelFactory) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultServerHangUpTimeout
	}
	conn, err := net.DialTimeout("tcp", c.Addr, timeout)
	if err != nil {
		return &BuildError{Transport: "tcp_client", Err: fmt.Errorf("dial %s: %w", c.Addr, err)}
	}
	info := ChannelInfo{Kind: "tcp", Params: map[string]string{"remote": c.Addr}}
	factory.BuildSoleChannel(info, NewStreamSender(conn, factory.Dialects()), NewStreamReceiver(conn, factory.Dialects()))
	return nil
}
