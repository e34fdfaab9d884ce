package api

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/nerrad567/webstone-core/internal/infrastructure/config"
)

// ErrInvalidKey is returned when the private key PEM cannot be used.
var ErrInvalidKey = errors.New("api: invalid private key")

// loadTLSConfig reads the certificate pair named in cfg. A key protected
// by KeyPassphrase (legacy "Proc-Type: 4,ENCRYPTED" PEM) is decrypted in
// memory.
func loadTLSConfig(cfg config.TLSConfig) (*tls.Config, error) {
	certPEM, err := os.ReadFile(cfg.CertFile)
	if err != nil {
		return nil, fmt.Errorf("reading certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	if cfg.KeyPassphrase != "" {
		if keyPEM, err = decryptKeyPEM(keyPEM, []byte(cfg.KeyPassphrase)); err != nil {
			return nil, err
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("loading key pair: %w", err)
	}
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}, nil
}

// decryptKeyPEM returns keyPEM unchanged when it is not encrypted.
func decryptKeyPEM(keyPEM, passphrase []byte) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKey)
	}
	//nolint:staticcheck // Legacy PEM encryption is the format keys are issued in
	if !x509.IsEncryptedPEMBlock(block) {
		return keyPEM, nil
	}
	//nolint:staticcheck // See above
	der, err := x509.DecryptPEMBlock(block, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
}
