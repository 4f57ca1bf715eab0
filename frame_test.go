package tsubakuro

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRequestFrame(t *testing.T) {
	payload := []byte("hello request")
	raw := encodeRequestFrame(7, payload)

	// Decoded with the request-side reader: readResponseFrame would take
	// info 0x02 as ResponseResultSetPayload and expect a writer byte.
	r := bytes.NewReader(raw)
	info, slot, decoded := readClientFrame(t, r)
	require.Zero(t, r.Len(), "the whole frame must be consumed")
	assert.Equal(t, infoRequestSessionPayload, info)
	assert.Equal(t, int32(7), slot)
	assert.Equal(t, payload, decoded)
}

func TestEncodeDecodeRequestFrameZeroLengthPayload(t *testing.T) {
	raw := encodeRequestFrame(0, nil)
	r := bytes.NewReader(raw)
	_, slot, decoded := readClientFrame(t, r)
	require.Zero(t, r.Len(), "the whole frame must be consumed")
	assert.Equal(t, int32(0), slot)
	assert.Empty(t, decoded)
}

func TestReadResponseFrameResultSetHelloCarriesName(t *testing.T) {
	name := "rs-correlation-token"
	buf := []byte{infoResponseResultSetHello}
	buf = appendInt32LE(buf, 3)
	buf = encodeVarint(buf, uint64(len(name)))
	buf = append(buf, []byte(name)...)

	f, err := readResponseFrame(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, infoResponseResultSetHello, f.Info)
	assert.Equal(t, int32(3), f.Slot)
	assert.Equal(t, name, f.Name)
	assert.Nil(t, f.Payload)
}

func TestReadResponseFrameResultSetByeHasNoPayload(t *testing.T) {
	buf := []byte{infoResponseResultSetBye}
	buf = appendInt32LE(buf, 9)

	f, err := readResponseFrame(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, int32(9), f.Slot)
	assert.Empty(t, f.Payload)
}

func TestReadResponseFrameResultSetPayloadCarriesWriter(t *testing.T) {
	payload := []byte("chunk bytes")
	buf := []byte{infoResponseResultSetPayload}
	buf = appendInt32LE(buf, 4)
	buf = append(buf, 0x02) // writer id
	buf = encodeVarint(buf, uint64(len(payload)))
	buf = append(buf, payload...)

	f, err := readResponseFrame(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), f.Writer)
	assert.Equal(t, payload, f.Payload)
}

func TestReadResponseFrameCleanEOFBeforeAnyByte(t *testing.T) {
	_, err := readResponseFrame(bytes.NewReader(nil))
	assert.Equal(t, io.EOF, err)
}

func TestReadResponseFrameMidFrameEOFIsIoError(t *testing.T) {
	// Info byte present, but the frame is truncated inside the slot field.
	_, err := readResponseFrame(bytes.NewReader([]byte{infoResponseSessionPayload, 0x01}))
	_, ok := AsIoError(err)
	assert.True(t, ok)
}

func TestReadResponseFrameOversizedLengthRejected(t *testing.T) {
	buf := []byte{infoResponseSessionPayload}
	buf = appendInt32LE(buf, 1)
	buf = encodeVarint(buf, maxFrameLength+1)

	_, err := readResponseFrame(bytes.NewReader(buf))
	_, ok := AsIoError(err)
	assert.True(t, ok)
}

func TestEncodeResultSetByeOkLayout(t *testing.T) {
	raw := encodeResultSetByeOk(5)
	require.Len(t, raw, 5)
	assert.Equal(t, infoRequestResultSetByeOk, raw[0])
}
