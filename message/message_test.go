package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	id      uint32
	payload []byte
}

func (m *fakeMessage) GetID() uint32           { return m.id }
func (m *fakeMessage) Encode() ([]byte, error) { return m.payload, nil }
func (m *fakeMessage) Decode(p []byte) error   { m.payload = p; return nil }

func TestDialectRegisterAndDecode(t *testing.T) {
	d := NewDialect("test", 1)
	d.Register(42, 0x10, func() Message { return &fakeMessage{id: 42} })

	assert.True(t, d.Has(42))
	assert.False(t, d.Has(43))

	extra, ok := d.CRCExtra(42)
	require.True(t, ok)
	assert.Equal(t, byte(0x10), extra)

	msg, err := d.Decode(42, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, msg.(*fakeMessage).payload)
}

func TestDialectDecodeUnknownID(t *testing.T) {
	d := NewDialect("test", 1)
	_, err := d.Decode(99, nil)
	assert.Error(t, err)
}

func TestSetDecodeTriesEachDialectInOrder(t *testing.T) {
	d1 := NewDialect("a", 1)
	d2 := NewDialect("b", 1)
	d2.Register(5, 0, func() Message { return &fakeMessage{id: 5} })

	set := Set{d1, d2}
	assert.True(t, set.Has(5))
	msg, err := set.Decode(5, []byte{9})
	require.NoError(t, err)
	assert.Equal(t, uint32(5), msg.GetID())
}

func TestSetCRCExtraFromFirstMatchingDialect(t *testing.T) {
	d1 := NewDialect("a", 1)
	d1.Register(5, 0x77, func() Message { return &fakeMessage{} })
	d2 := NewDialect("b", 1)
	d2.Register(5, 0x99, func() Message { return &fakeMessage{} })

	set := Set{d1, d2}
	extra, ok := set.CRCExtra(5)
	require.True(t, ok)
	assert.Equal(t, byte(0x77), extra)
}

func TestRawMessageRoundTrip(t *testing.T) {
	raw := &Raw{ID: 123}
	require.NoError(t, raw.Decode([]byte{1, 2, 3}))
	out, err := raw.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, out)
	assert.Equal(t, uint32(123), raw.GetID())
}
