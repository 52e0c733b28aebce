package security

import (
	"encoding/binary"

	"golang.org/x/crypto/blowfish"
)

// BlockSize is the cipher block size in bytes. Frames carrying encrypted
// payloads are always padded to a multiple of this.
const BlockSize = 8

// compatCipher wraps a blowfish cipher so that each 32-bit half of a block is
// interpreted little-endian, matching the byte order the client uses. The
// stock implementation reads block halves big-endian, so both halves are
// byte-swapped on the way in and out.
type compatCipher struct {
	inner *blowfish.Cipher
}

func newCompatCipher(key uint64) (*compatCipher, error) {
	var keyBytes [8]byte
	binary.LittleEndian.PutUint64(keyBytes[:], key)
	inner, err := blowfish.NewCipher(keyBytes[:])
	if err != nil {
		return nil, err
	}
	return &compatCipher{inner: inner}, nil
}

func swapWords(dst, src []byte) {
	dst[0], dst[1], dst[2], dst[3] = src[3], src[2], src[1], src[0]
	dst[4], dst[5], dst[6], dst[7] = src[7], src[6], src[5], src[4]
}

// encryptBlock encrypts exactly one 8-byte block in place.
func (c *compatCipher) encryptBlock(block []byte) {
	var tmp [BlockSize]byte
	swapWords(tmp[:], block)
	c.inner.Encrypt(tmp[:], tmp[:])
	swapWords(block, tmp[:])
}

// decryptBlock decrypts exactly one 8-byte block in place.
func (c *compatCipher) decryptBlock(block []byte) {
	var tmp [BlockSize]byte
	swapWords(tmp[:], block)
	c.inner.Decrypt(tmp[:], tmp[:])
	swapWords(block, tmp[:])
}
