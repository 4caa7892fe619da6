package maviola

import (
	"fmt"
	"io"
	"os"

	"github.com/pion/logging"
)

// FileWriter is a write-only channel over a newly created file (spec §6
// "File writer"). The channel's read side never yields a frame: its
// Receive blocks until the channel closes, then returns io.EOF.
type FileWriter struct {
	Path string
	Perm os.FileMode

	LoggerFactory logging.LoggerFactory
}

func (w *FileWriter) Info() ConnectionInfo {
	return ConnectionInfo{Kind: "file_writer", Params: map[string]string{"path": w.Path}}
}

func (w *FileWriter) Repairable() bool { return false }

func (w *FileWriter) Build(factory *ChannelFactory) error {
	if _, err := os.Stat(w.Path); err == nil {
		return &BuildError{Transport: "file_writer", Err: fmt.Errorf("path %s already exists", w.Path)}
	}
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(w.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return &BuildError{Transport: "file_writer", Err: err}
	}
	info := ChannelInfo{Kind: "file", Params: map[string]string{"path": w.Path}}
	factory.BuildSoleChannel(info, NewStreamSender(f, factory.Dialects()), newNoReceiver())
	return nil
}

// FileReader is a read-only channel over an existing file (spec §6 "File
// reader"). Writes on the resulting channel return no error and write
// nothing.
type FileReader struct {
	Path string

	LoggerFactory logging.LoggerFactory
}

func (r *FileReader) Info() ConnectionInfo {
	return ConnectionInfo{Kind: "file_reader", Params: map[string]string{"path": r.Path}}
}

func (r *FileReader) Repairable() bool { return false }

func (r *FileReader) Build(factory *ChannelFactory) error {
	fi, err := os.Stat(r.Path)
	if err != nil {
		return &BuildError{Transport: "file_reader", Err: err}
	}
	if fi.IsDir() {
		return &BuildError{Transport: "file_reader", Err: fmt.Errorf("%s is a directory", r.Path)}
	}
	f, err := os.Open(r.Path)
	if err != nil {
		return &BuildError{Transport: "file_reader", Err: err}
	}
	info := ChannelInfo{Kind: "file", Params: map[string]string{"path": r.Path}}
	factory.BuildSoleChannel(info, &noSender{}, NewStreamReceiver(f, factory.Dialects()))
	return nil
}

// noReceiver/noSender give a single-direction transport the other half of
// the Sender/Receiver pair every Channel expects. Receive blocks until the
// channel closes rather than erroring immediately (which would otherwise
// tear the channel down the instant its reader loop started); Send is an
// inert no-op, since an All-scope broadcast reaching a read-only file
// channel shouldn't kill it — "the writer half errors" describes the
// file's own direction, not a reason to fail the whole channel.
type noReceiver struct {
	closed chan struct{}
}

func newNoReceiver() *noReceiver { return &noReceiver{closed: make(chan struct{})} }

func (r *noReceiver) Receive() (Frame, error) {
	<-r.closed
	return nil, io.EOF
}

func (r *noReceiver) Close() error {
	select {
	case <-r.closed:
	default:
		close(r.closed)
	}
	return nil
}

type noSender struct{}

func (*noSender) Send(Frame) error { return nil }
