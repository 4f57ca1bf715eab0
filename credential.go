package tsubakuro

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
)

// credentialKind enumerates the supported authentication variants: none,
// user/password, an opaque auth token, or a token read from a file.
type credentialKind int

const (
	credentialNone credentialKind = iota
	credentialUserPassword
	credentialAuthToken
	credentialFile
)

// Credential is the value a ConnectionOption carries into the handshake.
// UserPassword and File variants are encrypted with the server's RSA
// public key before transmission; None and AuthToken are sent as-is.
type Credential struct {
	kind     credentialKind
	user     string
	password string
	token    string
	path     string
}

// NoCredential is the default, unauthenticated credential.
func NoCredential() Credential { return Credential{kind: credentialNone} }

// UserPasswordCredential builds a username/password credential.
func UserPasswordCredential(user, password string) Credential {
	return Credential{kind: credentialUserPassword, user: user, password: password}
}

// AuthTokenCredential builds an opaque bearer-token credential.
func AuthTokenCredential(token string) Credential {
	return Credential{kind: credentialAuthToken, token: token}
}

// FileCredential builds a credential from a file path. The handshake
// encrypts and sends the path string itself; the file at path is not read.
func FileCredential(path string) Credential {
	return Credential{kind: credentialFile, path: path}
}

// PublicKeyProvider supplies the server's RSA public key used to encrypt
// UserPassword/File credentials before they are sent in the handshake. This
// core does not implement the RPC that would normally fetch this key from
// the server (that wire exchange is not described in the material this
// core was built from — see DESIGN.md); callers that need encrypted
// credentials must supply their own provider.
type PublicKeyProvider interface {
	PublicKey() (*rsa.PublicKey, error)
}

// PublicKeyProviderFunc adapts a plain function to PublicKeyProvider.
type PublicKeyProviderFunc func() (*rsa.PublicKey, error)

func (f PublicKeyProviderFunc) PublicKey() (*rsa.PublicKey, error) { return f() }

// ParsePEMPublicKey decodes a PEM-encoded RSA public key, the format the
// server's key is expected to arrive in.
func ParsePEMPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ClientError("no PEM block found in public key")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, ClientError("invalid PKIX public key", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, ClientError("public key is not RSA")
	}
	return rsaKey, nil
}

// encryptCredentialPlaintext produces the RSA-OAEP/SHA-1 ciphertext
// required for UserPassword/File credentials. plaintext is the
// already-serialized credential payload (caller-defined framing, since the
// wire encoding of a "user\x00password"-style plaintext is a service-layer
// concern outside this core).
func encryptCredentialPlaintext(provider PublicKeyProvider, plaintext []byte) ([]byte, error) {
	if provider == nil {
		return nil, ClientError("credential requires encryption but no PublicKeyProvider was configured")
	}
	key, err := provider.PublicKey()
	if err != nil {
		return nil, ClientError("failed to obtain server public key", err)
	}
	ciphertext, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, key, plaintext, nil)
	if err != nil {
		return nil, ClientError("RSA-OAEP encryption failed", err)
	}
	return ciphertext, nil
}

// requiresEncryption reports whether this credential's kind requires RSA-OAEP
// encryption before it can be sent.
func (c Credential) requiresEncryption() bool {
	return c.kind == credentialUserPassword || c.kind == credentialFile
}
