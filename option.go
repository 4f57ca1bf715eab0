package tsubakuro

import "time"

// ConnectionOption is the fluent builder a caller assembles before
// Connect/ConnectAsync, mirroring tsubakuro-rust-client's
// session::option::ConnectionOption setter chain.
type ConnectionOption struct {
	endpoint       Endpoint
	applicationName string
	label          string
	defaultTimeout time.Duration
	credential     Credential
	keyProvider    PublicKeyProvider
}

// NewConnectionOption starts a builder for endpoint, with no credential and
// no default timeout (unbounded).
func NewConnectionOption(endpoint Endpoint) *ConnectionOption {
	return &ConnectionOption{endpoint: endpoint, credential: NoCredential()}
}

// WithApplicationName sets the application_name sent during the handshake
// (surfaced by the server in session listings).
func (o *ConnectionOption) WithApplicationName(name string) *ConnectionOption {
	o.applicationName = name
	return o
}

// WithLabel sets a human-readable label for this session.
func (o *ConnectionOption) WithLabel(label string) *ConnectionOption {
	o.label = label
	return o
}

// WithDefaultTimeout sets the timeout applied to operations that don't
// specify their own deadline.
func (o *ConnectionOption) WithDefaultTimeout(d time.Duration) *ConnectionOption {
	o.defaultTimeout = d
	return o
}

// WithCredential sets the authentication credential.
func (o *ConnectionOption) WithCredential(c Credential) *ConnectionOption {
	o.credential = c
	return o
}

// WithPublicKeyProvider supplies the RSA public-key source used to encrypt
// UserPassword/File credentials (see credential.go).
func (o *ConnectionOption) WithPublicKeyProvider(p PublicKeyProvider) *ConnectionOption {
	o.keyProvider = p
	return o
}

// Validate checks the option is complete enough to attempt a connection.
func (o *ConnectionOption) Validate() error {
	if !o.endpoint.IsTCP() {
		return ClientError("endpoint(" + o.endpoint.String() + ") is not connectable by this core")
	}
	if o.credential.requiresEncryption() && o.keyProvider == nil {
		return ClientError("credential requires a PublicKeyProvider, none configured")
	}
	return nil
}
