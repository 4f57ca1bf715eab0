package tsubakuro

import (
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// info-byte values. 3 and 4 are reserved/legacy and must be ignored by the
// receiver.
const (
	infoRequestSessionPayload   byte = 0x02
	infoRequestResultSetByeOk   byte = 0x03
	infoResponseSessionPayload  byte = 0x01
	infoResponseResultSetPayload byte = 0x02
	infoResponseResultSetHello  byte = 0x05
	infoResponseResultSetBye    byte = 0x06
	infoResponseSessionBodyhead byte = 0x07
)

// maxFrameLength bounds the accepted length-prefix value; lengths above
// this are treated as a framing-level corruption (an oversized length,
// > 2^31, never legitimately occurs on this wire).
const maxFrameLength = 1 << 31

// Frame is one unit of wire traffic: an info byte, a slot (session-request
// or result-set correlation id), an optional writer id (result-set chunks
// only) and an opaque length-prefixed payload.
type Frame struct {
	Info    byte
	Slot    int32
	Writer  byte
	Payload []byte
	// Name carries the result-set name for a ResponseResultSetHello frame
	// only; empty for every other frame kind.
	Name string
}

// isWriterFlush reports whether a ResultSetPayload frame signals "this
// writer has no more data" rather than carrying an actual (possibly empty)
// chunk: a zero-length payload on that frame kind only, mirrored from
// ResponseResultSetPayload(slot, writer, payload: None) in
// original_source/session/tcp/data_channel_wire.rs's pull1.
func (f Frame) isWriterFlush() bool {
	return f.Info == infoResponseResultSetPayload && f.Payload == nil
}

// encodeRequestFrame serializes a session-request frame:
// info=0x02 ‖ slot(i32 LE) ‖ varint(len) ‖ payload.
func encodeRequestFrame(slot int32, payload []byte) []byte {
	buf := make([]byte, 0, 5+binary.MaxVarintLen64+len(payload))
	buf = append(buf, infoRequestSessionPayload)
	buf = appendInt32LE(buf, slot)
	buf = protowire.AppendVarint(buf, uint64(len(payload)))
	buf = append(buf, payload...)
	return buf
}

// encodeResultSetByeOk serializes the zero-payload acknowledgement of a
// ResponseResultSetBye frame: info=0x03 ‖ rs_slot(i32 LE), no payload.
func encodeResultSetByeOk(rsSlot int32) []byte {
	buf := make([]byte, 0, 5)
	buf = append(buf, infoRequestResultSetByeOk)
	buf = appendInt32LE(buf, rsSlot)
	return buf
}

func appendInt32LE(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

// readResponseFrame reads and decodes exactly one response frame from r.
// It returns io.EOF only on a clean close before any byte of a new frame
// has been read; any other short read mid-frame is an IoErr.
func readResponseFrame(r io.Reader) (Frame, error) {
	var head [1]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, IoError("read frame info byte", err)
	}
	info := head[0]

	slot, err := readInt32LE(r)
	if err != nil {
		return Frame{}, IoError("read frame slot", err)
	}

	var writer byte
	if info == infoResponseResultSetPayload {
		var wb [1]byte
		if _, err := io.ReadFull(r, wb[:]); err != nil {
			return Frame{}, IoError("read frame writer", err)
		}
		writer = wb[0]
	}

	if info == infoResponseResultSetBye {
		return Frame{Info: info, Slot: slot}, nil
	}

	length, err := readVarint(r)
	if err != nil {
		return Frame{}, IoError("read frame length", err)
	}
	if length > maxFrameLength {
		return Frame{}, IoError(fmt.Sprintf("frame length %d exceeds maximum", length))
	}

	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, IoError("read frame payload", err)
		}
	}

	f := Frame{Info: info, Slot: slot, Writer: writer, Payload: payload}
	if info == infoResponseResultSetHello {
		f.Name = string(payload)
		f.Payload = nil
	}
	return f, nil
}

func readInt32LE(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// readVarint reads a standard unsigned base-128 varint one byte at a time
// (the high bit is the continuation flag), then hands the accumulated bytes
// to protowire.ConsumeVarint for the actual decode so the two code paths
// (encode via protowire.AppendVarint, decode via protowire.ConsumeVarint)
// agree byte-for-byte.
func readVarint(r io.Reader) (uint64, error) {
	var buf []byte
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		buf = append(buf, b[0])
		if b[0]&0x80 == 0 {
			break
		}
		if len(buf) > binary.MaxVarintLen64 {
			return 0, fmt.Errorf("varint too long")
		}
	}
	v, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		return 0, fmt.Errorf("invalid varint")
	}
	return v, nil
}

// encodeVarint is exposed for callers (e.g. the tests' frame builders) that
// need to length-prefix a field using the same codec as the frame layer.
func encodeVarint(buf []byte, v uint64) []byte {
	return protowire.AppendVarint(buf, v)
}
