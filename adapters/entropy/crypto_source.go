package entropy

import (
	"crypto/rand"

	"goreg/internal/errors"
	"goreg/ports"
)

// CryptoSource implements the entropy port over the operating system CSPRNG
type CryptoSource struct{}

// NewCryptoSource creates the OS-backed entropy source
func NewCryptoSource() *CryptoSource {
	return &CryptoSource{}
}

// Fill writes len(buf) cryptographically random bytes into buf
func (s *CryptoSource) Fill(buf []byte) error {
	if _, err := rand.Read(buf); err != nil {
		return errors.Wrap(err, "reading from system entropy source")
	}
	return nil
}

var _ ports.EntropyPort = (*CryptoSource)(nil)
