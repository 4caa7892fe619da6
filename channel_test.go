package maviola

import (
	"io"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istalabs/maviola/dialects/minimal"
)

// fakeReceiver/fakeSender are in-memory Sender/Receiver pairs used to drive
// a Channel's reader/writer loops without any real transport.
type fakeReceiver struct {
	frames chan Frame
	closed chan struct{}
}

func newFakeReceiver() *fakeReceiver {
	return &fakeReceiver{frames: make(chan Frame, 8), closed: make(chan struct{})}
}

func (r *fakeReceiver) Receive() (Frame, error) {
	select {
	case f, ok := <-r.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-r.closed:
		return nil, io.EOF
	}
}

func (r *fakeReceiver) Close() error {
	select {
	case <-r.closed:
	default:
		close(r.closed)
	}
	return nil
}

type fakeSender struct {
	sent   chan Frame
	closed chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(chan Frame, 8), closed: make(chan struct{})}
}

func (s *fakeSender) Send(f Frame) error {
	select {
	case s.sent <- f:
		return nil
	case <-s.closed:
		return io.ErrClosedPipe
	}
}

func (s *fakeSender) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

func newTestChannelFactory(t *testing.T) (*ChannelFactory, *Connection) {
	t.Helper()
	conn := newConnection(ConnectionInfo{Kind: "test"}, true, logging.NewDefaultLoggerFactory())
	return conn.newChannelFactory(logging.NewDefaultLoggerFactory()), conn
}

func TestChannelDeliversIncomingFrameToBus(t *testing.T) {
	factory, conn := newTestChannelFactory(t)
	defer conn.Close()

	recv := newFakeReceiver()
	send := newFakeSender()
	ch := factory.Build(ChannelInfo{Kind: "fake"}, send, recv)

	sub := conn.SubscribeIncoming()
	defer sub.Release()

	f := NewV1Frame(0, 1, 1, minimal.HeartbeatMessageID, []byte{1})
	recv.frames <- f

	closer := NewSharedCloser()
	inf, err := sub.Recv(closer)
	require.NoError(t, err)
	assert.Equal(t, ch.ID(), inf.ChannelID)
	assert.Same(t, f, inf.Frame)
}

func TestChannelWriteLoopRespectsScope(t *testing.T) {
	factory, conn := newTestChannelFactory(t)
	defer conn.Close()

	recv := newFakeReceiver()
	send := newFakeSender()
	ch := factory.Build(ChannelInfo{Kind: "fake"}, send, recv)

	f := NewV1Frame(0, 1, 1, minimal.HeartbeatMessageID, []byte{1})
	require.NoError(t, conn.Send(OutgoingFrame{Frame: f, Scope: ScopeExactChannelID(NewChannelId())}))

	select {
	case <-send.sent:
		t.Fatal("frame scoped to a different channel must not be sent")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, conn.Send(OutgoingFrame{Frame: f, Scope: ScopeExactChannelID(ch.ID())}))
	select {
	case got := <-send.sent:
		assert.Same(t, f, got)
	case <-time.After(time.Second):
		t.Fatal("frame scoped to this channel should have been sent")
	}
}

func TestChannelClosesOnReadError(t *testing.T) {
	factory, conn := newTestChannelFactory(t)
	defer conn.Close()

	recv := newFakeReceiver()
	send := newFakeSender()
	ch := factory.Build(ChannelInfo{Kind: "fake"}, send, recv)

	close(recv.frames)

	select {
	case <-ch.Done():
	case <-time.After(time.Second):
		t.Fatal("channel should close after receiver returns EOF")
	}
	assert.True(t, ch.IsClosed())
}

func TestChannelCloseIsIdempotent(t *testing.T) {
	factory, conn := newTestChannelFactory(t)
	defer conn.Close()

	recv := newFakeReceiver()
	send := newFakeSender()
	ch := factory.Build(ChannelInfo{Kind: "fake"}, send, recv)

	ch.Close()
	ch.Close()
	assert.True(t, ch.IsClosed())
}

func TestChannelOnCloseCallback(t *testing.T) {
	factory, conn := newTestChannelFactory(t)
	defer conn.Close()

	ch := factory.New(ChannelInfo{Kind: "fake"}, newFakeSender(), newFakeReceiver())
	called := make(chan struct{})
	ch.OnClose(func(*Channel) { close(called) })
	ch.Spawn()

	ch.Close()
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("onClose callback did not fire")
	}
}
