package midealan

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5" //nolint:gosec // protocol-mandated digest, not used for security
	"encoding/binary"
	"fmt"
)

// Protocol constants.
const (
	frameMagic   = 0x5a5a
	frameVersion = 0x0111

	// discoveryPort is the UDP port units listen on for broadcast probes.
	discoveryPort = 6445

	// devicePort is the default TCP port for the command session.
	devicePort = 6444
)

// signKey is the fixed application key the vendor app signs LAN frames with.
var signKey = []byte("xhdiwjnchekd4d512chdjx5d8e4c394D2D7S")

// encryptionKey derives the AES key used for frame bodies.
func encryptionKey() []byte {
	sum := md5.Sum(signKey) //nolint:gosec // protocol-mandated digest
	return sum[:]
}

// encrypt AES-CBC encrypts a message body with PKCS#7 padding.
func encrypt(plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey())
	if err != nil {
		return nil, fmt.Errorf("initialising cipher: %w", err)
	}

	padding := aes.BlockSize - len(plain)%aes.BlockSize
	padded := append(append([]byte{}, plain...), bytes.Repeat([]byte{byte(padding)}, padding)...)

	out := make([]byte, len(padded))
	iv := make([]byte, aes.BlockSize) // protocol uses a zero IV
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// decrypt reverses encrypt, stripping the PKCS#7 padding.
func decrypt(enc []byte) ([]byte, error) {
	if len(enc) == 0 || len(enc)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d not a block multiple", len(enc))
	}

	block, err := aes.NewCipher(encryptionKey())
	if err != nil {
		return nil, fmt.Errorf("initialising cipher: %w", err)
	}

	out := make([]byte, len(enc))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, enc)

	padding := int(out[len(out)-1])
	if padding < 1 || padding > aes.BlockSize || padding > len(out) {
		return nil, fmt.Errorf("invalid padding %d", padding)
	}
	return out[:len(out)-padding], nil
}

// buildFrame wraps an encrypted body in the 0x5a5a LAN frame header.
func buildFrame(deviceID int64, body []byte) ([]byte, error) {
	enc, err := encrypt(body)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 40)
	binary.BigEndian.PutUint16(header[0:2], frameMagic)
	binary.LittleEndian.PutUint16(header[4:6], uint16(len(enc)+56)) //nolint:gosec // frame fits uint16
	binary.BigEndian.PutUint16(header[2:4], frameVersion)
	binary.LittleEndian.PutUint64(header[20:28], uint64(deviceID)) //nolint:gosec // protocol field

	frame := append(header, enc...)
	sum := md5.Sum(append(frame, signKey...)) //nolint:gosec // protocol-mandated digest
	return append(frame, sum[:]...), nil
}

// parseFrame validates a frame's signature and returns the decrypted body.
func parseFrame(frame []byte) ([]byte, error) {
	if len(frame) < 40+md5.Size {
		return nil, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	if binary.BigEndian.Uint16(frame[0:2]) != frameMagic {
		return nil, fmt.Errorf("bad frame magic %#x", frame[0:2])
	}

	payload := frame[:len(frame)-md5.Size]
	want := frame[len(frame)-md5.Size:]
	sum := md5.Sum(append(append([]byte{}, payload...), signKey...)) //nolint:gosec // protocol-mandated digest
	if !bytes.Equal(sum[:], want) {
		return nil, fmt.Errorf("frame signature mismatch")
	}

	return decrypt(payload[40:])
}
