package tsubakuro

import (
	"fmt"
	"net/url"
	"strconv"
)

// Endpoint identifies where a Session connects. Tcp is the only variant
// this core actually dials; Other is kept as a round-trippable extension
// point for non-TCP transports (e.g. an IPC/unix-domain variant) that this
// core does not implement, matching the split original_source/session/endpoint.rs
// models.
type Endpoint struct {
	kind   endpointKind
	host   string
	port   uint16
	scheme string // set only for the Other variant, for round-tripping
	raw    string
}

type endpointKind int

const (
	endpointTCP endpointKind = iota
	endpointOther
)

// TCPEndpoint builds a tcp:// endpoint directly, without going through URL
// parsing.
func TCPEndpoint(host string, port uint16) Endpoint {
	return Endpoint{kind: endpointTCP, host: host, port: port}
}

// ParseEndpoint parses an endpoint URL of the form "tcp://host:port". Any
// other scheme is rejected with a ClientErr ("endpoint unsupported
// scheme(...)"); ParseEndpoint never returns an Other endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, ClientError(fmt.Sprintf("invalid endpoint(%s)", s), err)
	}

	switch u.Scheme {
	case "tcp":
		host := u.Hostname()
		if host == "" {
			return Endpoint{}, ClientError(fmt.Sprintf("endpoint missing host(%s)", s))
		}
		portStr := u.Port()
		if portStr == "" {
			return Endpoint{}, ClientError(fmt.Sprintf("endpoint missing port(%s)", s))
		}
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return Endpoint{}, ClientError(fmt.Sprintf("endpoint invalid port(%s)", s), err)
		}
		return Endpoint{kind: endpointTCP, host: host, port: uint16(port)}, nil
	case "":
		return Endpoint{}, ClientError(fmt.Sprintf("endpoint missing scheme(%s)", s))
	default:
		return Endpoint{}, ClientError(fmt.Sprintf("endpoint unsupported scheme(%s)", u.Scheme))
	}
}

// IsTCP reports whether this is a dialable TCP endpoint.
func (e Endpoint) IsTCP() bool { return e.kind == endpointTCP }

// HostPort returns the host and port of a TCP endpoint. Calling it on a
// non-TCP endpoint returns a ClientErr.
func (e Endpoint) HostPort() (string, uint16, error) {
	if e.kind != endpointTCP {
		return "", 0, ClientError("endpoint is not a TCP endpoint")
	}
	return e.host, e.port, nil
}

// String renders the endpoint back to its URL form.
func (e Endpoint) String() string {
	switch e.kind {
	case endpointTCP:
		return fmt.Sprintf("tcp://%s:%d", e.host, e.port)
	default:
		return e.raw
	}
}
