package tsubakuro

import (
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"
)

// ClientInformation is what a connecting client announces about itself
// during the handshake.
type ClientInformation struct {
	ApplicationName string
	Label           string
}

// WireInformation is what the client proposes about wire-level limits; the
// server may accept or reject it. 127 is the default this core. uses for
// maximum_concurrent_result_sets, matching original_source/session/tcp/mod.rs's
// TcpConnector default.
type WireInformation struct {
	MaximumConcurrentResultSets int32
}

// DefaultWireInformation returns this core's default wire proposal.
func DefaultWireInformation() WireInformation {
	return WireInformation{MaximumConcurrentResultSets: 127}
}

const (
	handshakeStatusOK    byte = 0x00
	handshakeStatusError byte = 0x01
)

// Handshake performs the slot-0 endpoint-broker exchange: send client/wire
// information (plus an optional encrypted credential), and bind the
// server-assigned session id on success. It must be the first request sent
// on a freshly-connected Wire.
func Handshake(w *Wire, client ClientInformation, wireInfo WireInformation, credential Credential, keyProvider PublicKeyProvider, timeout Timeout) (uint64, error) {
	payload, err := encodeHandshakeRequest(client, wireInfo, credential, keyProvider)
	if err != nil {
		return 0, err
	}

	processor := func(ev wireEvent) (any, error) {
		if ev.Err != nil {
			return nil, ev.Err
		}
		return decodeHandshakeResponse(ev.Payload)
	}

	h, err := w.sendAndRegister(payload, processor, true)
	if err != nil {
		return 0, err
	}
	defer w.release(h)

	result, err := w.WaitResponse(h, timeout)
	if err != nil {
		return 0, err
	}
	sessionID, ok := result.(uint64)
	if !ok {
		return 0, ClientError("handshake processor returned an unexpected type")
	}
	if err := w.SetSessionID(sessionID); err != nil {
		return 0, err
	}
	return sessionID, nil
}

func encodeHandshakeRequest(client ClientInformation, wireInfo WireInformation, credential Credential, keyProvider PublicKeyProvider) ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = appendLengthPrefixedString(buf, client.ApplicationName)
	buf = appendLengthPrefixedString(buf, client.Label)
	buf = appendInt32LE(buf, wireInfo.MaximumConcurrentResultSets)
	buf = append(buf, byte(credential.kind))

	switch {
	case credential.requiresEncryption():
		var plaintext []byte
		if credential.kind == credentialUserPassword {
			plaintext = encodeUserPasswordPlaintext(credential.user, credential.password)
		} else {
			plaintext = []byte(credential.path)
		}
		ciphertext, err := encryptCredentialPlaintext(keyProvider, plaintext)
		if err != nil {
			return nil, err
		}
		buf = appendLengthPrefixedBytes(buf, ciphertext)
	case credential.kind == credentialAuthToken:
		buf = appendLengthPrefixedString(buf, credential.token)
	}
	return buf, nil
}

func encodeUserPasswordPlaintext(user, password string) []byte {
	buf := make([]byte, 0, len(user)+len(password)+1)
	buf = append(buf, []byte(user)...)
	buf = append(buf, 0)
	buf = append(buf, []byte(password)...)
	return buf
}

func appendLengthPrefixedString(buf []byte, s string) []byte {
	return appendLengthPrefixedBytes(buf, []byte(s))
}

func appendLengthPrefixedBytes(buf []byte, b []byte) []byte {
	buf = protowire.AppendVarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// decodeHandshakeResponse parses the success/error envelope the endpoint
// broker replies with: a status byte, then either an 8-byte LE session id
// or a UTF-8 error message.
func decodeHandshakeResponse(payload []byte) (uint64, error) {
	if len(payload) < 1 {
		return 0, IoError("handshake response too short")
	}
	status := payload[0]
	rest := payload[1:]
	switch status {
	case handshakeStatusOK:
		if len(rest) < 8 {
			return 0, IoError("handshake response missing session id")
		}
		return binary.LittleEndian.Uint64(rest[:8]), nil
	case handshakeStatusError:
		return 0, ServerError("Handshake()", string(rest), CoreServiceDiagnosticCode("AUTHENTICATION_ERROR"), string(rest))
	default:
		return 0, IoError("handshake response has unknown status byte")
	}
}
