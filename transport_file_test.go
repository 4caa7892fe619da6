package maviola

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istalabs/maviola/dialects/minimal"
)

func TestFileWriterThenReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.bin")

	writer := &FileWriter{Path: path}
	wNode, err := NodeConf{
		Version:  VersionV2,
		Endpoint: NewEndpoint(1, 1),
		Builder:  writer,
		Dialects: dialectSet(),
	}.Build()
	require.NoError(t, err)

	require.NoError(t, wNode.Send(&minimal.MessageHeartbeat{Type: minimal.MavTypeGCS, MavlinkVersion: 3}))
	require.NoError(t, wNode.Send(&minimal.MessageHeartbeat{Type: minimal.MavTypeGCS, MavlinkVersion: 3}))
	time.Sleep(20 * time.Millisecond) // let the writer loop flush both sends
	wNode.Close()

	reader := &FileReader{Path: path}
	rNode, err := NodeConf{
		Version:  VersionAny,
		Builder:  reader,
		Dialects: dialectSet(),
	}.Build()
	require.NoError(t, err)
	defer rNode.Close()

	frame1, _, err := rNode.RecvFrameTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, byte(1), frame1.SystemID())

	frame2, _, err := rNode.RecvFrameTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, byte(1), frame2.SystemID())
}

func TestFileWriterRejectsExistingPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.bin")
	require.NoError(t, writeEmptyFile(path))

	writer := &FileWriter{Path: path}
	_, err := NodeConf{
		Version:  VersionV2,
		Endpoint: NewEndpoint(1, 1),
		Builder:  writer,
		Dialects: dialectSet(),
	}.Build()
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "file_writer", buildErr.Transport)
}

func TestFileReaderRejectsMissingPath(t *testing.T) {
	reader := &FileReader{Path: filepath.Join(t.TempDir(), "nope.bin")}
	_, err := NodeConf{
		Version:  VersionAny,
		Builder:  reader,
		Dialects: dialectSet(),
	}.Build()
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "file_reader", buildErr.Transport)
}

func TestFileReaderEOFClosesItsSoleChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, writeEmptyFile(path))

	reader := &FileReader{Path: path}
	nb := &NetworkBuilder{Sub: []ConnectionBuilder{reader}, Retry: RetryNever()}
	n, err := NodeConf{Version: VersionAny, Builder: nb, Dialects: dialectSet()}.Build()
	require.NoError(t, err)
	defer n.Close()

	// An empty file reads EOF immediately, so the reader's sole channel
	// dies right away; under Network/BuildSoleChannel that promotes to
	// the (only, non-repairable) sub-connection giving up.
	require.Eventually(t, n.IsClosed, time.Second, 10*time.Millisecond)
}

func writeEmptyFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return f.Close()
}
