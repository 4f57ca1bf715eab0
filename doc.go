// Package tsubakuro is the wire transport and request dispatch engine for a
// Tsurugi client: session lifecycle, the framed binary codec, the
// multiplexed slot-based request/response correlator, the streaming
// result-set data channel, and the Job abstraction for asynchronous
// operations. Service-specific request builders (SQL, system info) and the
// ODBC/FFI surfaces are deliberately layered on top of this package, not
// inside it.
package tsubakuro
