package chunk

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Scheme names a content-encryption scheme, stored in the cryptokey
// sidecar as "<scheme>:<value>\n", where value is the hex IV for
// aes-256-cfb and the recipient keyid for gpg.
type Scheme string

const (
	SchemeNone Scheme = ""
	SchemeGPG  Scheme = "gpg"
	SchemeCFB  Scheme = "aes-256-cfb"
)

// Directive requests encryption for one upload.
type Directive struct {
	Scheme     Scheme
	Keyid      string // GPG recipient, required for SchemeGPG
	Passphrase string // required for SchemeCFB, and for GPG decryption
}

// Encryptor wraps a plaintext reader, returning a ciphertext reader plus
// the cryptokey sidecar value to persist alongside it.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext io.Reader) (ciphertext io.Reader, cryptokey string, err error)
}

// Decryptor wraps a ciphertext reader, returning a plaintext reader.
// cryptokey is the sidecar value written at encrypt time.
type Decryptor interface {
	Decrypt(ctx context.Context, ciphertext io.Reader, cryptokey string) (plaintext io.Reader, err error)
}

// NewEncryptor builds the Encryptor for directive's scheme.
func NewEncryptor(directive Directive) (Encryptor, error) {
	switch directive.Scheme {
	case SchemeNone:
		return nil, nil
	case SchemeGPG:
		return &gpgCipher{keyid: directive.Keyid}, nil
	case SchemeCFB:
		return &cfbCipher{passphrase: directive.Passphrase}, nil
	default:
		return nil, fmt.Errorf("chunk: unknown encryption scheme %q", directive.Scheme)
	}
}

// NewDecryptor builds the Decryptor matching cryptokey's scheme prefix.
// passphrase is used for both gpg (agent proxy) and aes-256-cfb.
func NewDecryptor(cryptokey, passphrase string) (Decryptor, error) {
	scheme, _, err := splitCryptokey(cryptokey)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case SchemeGPG:
		return &gpgCipher{passphrase: passphrase}, nil
	case SchemeCFB:
		return &cfbCipher{passphrase: passphrase}, nil
	default:
		return nil, fmt.Errorf("chunk: unknown encryption scheme %q", scheme)
	}
}

// joinCryptokey renders the cryptokey sidecar value "<scheme>:<hex>\n".
func joinCryptokey(scheme Scheme, hexValue string) string {
	return string(scheme) + ":" + hexValue + "\n"
}

// splitCryptokey parses a cryptokey sidecar value into its scheme and
// hex-encoded value, tolerating a trailing newline.
func splitCryptokey(cryptokey string) (scheme Scheme, hexValue string, err error) {
	cryptokey = strings.TrimSuffix(cryptokey, "\n")
	parts := strings.SplitN(cryptokey, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("chunk: malformed cryptokey %q", cryptokey)
	}
	return Scheme(parts[0]), parts[1], nil
}
