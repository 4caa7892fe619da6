//go:build !windows

package maviola

import (
	"fmt"
	"net"
	"os"

	"github.com/pion/logging"
	"golang.org/x/sys/unix"
)

// UnixServer is a Unix-domain-socket analogue of TCPServer: one channel
// per accepted connection (spec §6 "Unix socket server").
type UnixServer struct {
	Path string
	Mode os.FileMode // best-effort chmod after bind; 0 leaves the umask default

	LoggerFactory logging.LoggerFactory

	ln     net.Listener
	closer *SharedCloser
	logger logging.LeveledLogger
}

func (s *UnixServer) Info() ConnectionInfo {
	return ConnectionInfo{Kind: "unix_server", Params: map[string]string{"path": s.Path}}
}

func (s *UnixServer) Repairable() bool { return false }

func (s *UnixServer) Build(factory *ChannelFactory) error {
	ln, err := net.Listen("unix", s.Path)
	if err != nil {
		return &BuildError{Transport: "unix_server", Err: err}
	}
	s.ln = ln
	s.closer = factory.Closer()
	s.logger = loggerFactory(s.LoggerFactory).NewLogger("unix_server")

	if s.Mode != 0 {
		if err := unix.Chmod(s.Path, uint32(s.Mode)); err != nil {
			s.logger.Warnf("chmod %s: %v (continuing with default permissions)", s.Path, err)
		}
	}

	go s.acceptLoop(factory)
	go func() {
		<-s.closer.Done()
		_ = s.ln.Close()
		_ = os.Remove(s.Path)
	}()
	return nil
}

func (s *UnixServer) acceptLoop(factory *ChannelFactory) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closer.IsClosed() {
				return
			}
			s.logger.Warnf("unix accept: %v", err)
			return
		}
		info := ChannelInfo{Kind: "unix", Params: map[string]string{"path": s.Path}}
		factory.Build(info, NewStreamSender(conn, factory.Dialects()), NewStreamReceiver(conn, factory.Dialects()))
	}
}

// UnixClient dials a single Unix socket path (spec §6 "Unix socket
// client").
type UnixClient struct {
	Path string

	LoggerFactory logging.LoggerFactory
}

func (c *UnixClient) Info() ConnectionInfo {
	return ConnectionInfo{Kind: "unix_client", Params: map[string]string{"path": c.Path}}
}

func (c *UnixClient) Repairable() bool { return true }

func (c *UnixClient) Build(factory *ChannelFactory) error {
	conn, err := net.Dial("unix", c.Path)
	if err != nil {
		return &BuildError{Transport: "unix_client", Err: fmt.Errorf("dial %s: %w", c.Path, err)}
	}
	info := ChannelInfo{Kind: "unix", Params: map[string]string{"path": c.Path}}
	factory.BuildSoleChannel(info, NewStreamSender(conn, factory.Dialects()), NewStreamReceiver(conn, factory.Dialects()))
	return nil
}
