package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// sealPrefix versions the sealed format so the key can be rotated out of band.
const sealPrefix = "v1:"

type CryptoServiceConfig struct {
	EncryptionKey string
}

// CryptoService seals confidential columns before they reach the database.
// Plaintext only ever exists transiently in memory.
type CryptoService struct {
	Config CryptoServiceConfig
	key    []byte
}

func NewCryptoService(config CryptoServiceConfig) *CryptoService {
	return &CryptoService{
		Config: config,
	}
}

func (cs *CryptoService) Init() error {
	if strings.TrimSpace(cs.Config.EncryptionKey) == "" {
		return errors.New("encryption key is required")
	}
	key := sha256.Sum256([]byte(cs.Config.EncryptionKey))
	cs.key = key[:]
	return nil
}

func (cs *CryptoService) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(cs.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	_, err = rand.Read(nonce)
	if err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

func (cs *CryptoService) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, sealPrefix) {
		return "", fmt.Errorf("unknown sealed value format")
	}

	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(sealed, sealPrefix))
	if err != nil {
		return "", err
	}

	if len(raw) < chacha20poly1305.NonceSizeX {
		return "", errors.New("sealed value too short")
	}

	aead, err := chacha20poly1305.NewX(cs.key)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
