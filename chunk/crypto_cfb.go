package chunk

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// cfbCipher implements the legacy aes-256-cfb scheme: key = MD5(passphrase),
// a random 16-byte IV generated at encrypt time and stored hex-encoded in
// the cryptokey sidecar.
type cfbCipher struct {
	passphrase string
}

func (c *cfbCipher) Encrypt(_ context.Context, plaintext io.Reader) (io.Reader, string, error) {
	key := md5Key(c.passphrase)
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, "", fmt.Errorf("chunk: generate iv: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, "", err
	}
	stream := cipher.NewCFBEncrypter(block, iv)
	return &cipher.StreamReader{S: stream, R: plaintext}, joinCryptokey(SchemeCFB, hex.EncodeToString(iv)), nil
}

func (c *cfbCipher) Decrypt(_ context.Context, ciphertext io.Reader, cryptokey string) (io.Reader, error) {
	_, hexIV, err := splitCryptokey(cryptokey)
	if err != nil {
		return nil, err
	}
	iv, err := hex.DecodeString(hexIV)
	if err != nil {
		return nil, fmt.Errorf("chunk: decode iv: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("chunk: iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	key := md5Key(c.passphrase)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	stream := cipher.NewCFBDecrypter(block, iv)
	return &cipher.StreamReader{S: stream, R: ciphertext}, nil
}

func md5Key(passphrase string) []byte {
	sum := md5.Sum([]byte(passphrase))
	return sum[:]
}
