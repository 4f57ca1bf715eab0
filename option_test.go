package tsubakuro

import (
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionOptionFluentBuilder(t *testing.T) {
	endpoint := TCPEndpoint("localhost", 12345)
	opt := NewConnectionOption(endpoint).
		WithApplicationName("myapp").
		WithLabel("my-session").
		WithDefaultTimeout(30 * time.Second)

	assert.Equal(t, "myapp", opt.applicationName)
	assert.Equal(t, "my-session", opt.label)
	assert.Equal(t, 30*time.Second, opt.defaultTimeout)
	require.NoError(t, opt.Validate())
}

func TestConnectionOptionRejectsNonTCPEndpoint(t *testing.T) {
	other := Endpoint{kind: endpointOther, raw: "ipc:///tmp/x"}
	opt := NewConnectionOption(other)
	_, ok := AsClientError(opt.Validate())
	assert.True(t, ok)
}

func TestConnectionOptionRequiresKeyProviderForEncryptedCredential(t *testing.T) {
	opt := NewConnectionOption(TCPEndpoint("localhost", 1)).
		WithCredential(UserPasswordCredential("u", "p"))
	_, ok := AsClientError(opt.Validate())
	assert.True(t, ok)

	opt.WithPublicKeyProvider(PublicKeyProviderFunc(func() (*rsa.PublicKey, error) { return &rsa.PublicKey{}, nil }))
	require.NoError(t, opt.Validate())
}
