package bosch

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"fmt"
)

// Cipher encrypts and decrypts gateway payloads: AES-256 in ECB mode,
// zero padded, base64 on the wire.
type Cipher struct {
	block cipher.Block
}

// NewCipher derives the key MD5(token|magic) + MD5(magic|password).
func NewCipher(token, password string, magic []byte) (*Cipher, error) {
	if len(magic) == 0 {
		return nil, ErrNoKeyMaterial
	}
	first := md5.Sum(append([]byte(token), magic...))
	second := md5.Sum(append(append([]byte{}, magic...), password...))
	key := append(first[:], second[:]...)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Cipher{block: block}, nil
}

// Decrypt decodes a base64 payload and strips the zero padding.
func (c *Cipher) Decrypt(payload []byte) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	bs := c.block.BlockSize()
	if len(data) == 0 || len(data)%bs != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of %d", ErrDecrypt, len(data), bs)
	}

	plain := make([]byte, len(data))
	for i := 0; i < len(data); i += bs {
		c.block.Decrypt(plain[i:i+bs], data[i:i+bs])
	}
	return bytes.TrimRight(plain, "\x00"), nil
}
