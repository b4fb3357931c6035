package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Recovery phrases are sealed with a per-record key under AES-256-GCM; the
// record key itself is wrapped by a KEK derived from the process master key
// and a random salt. Losing the master key loses every phrase.

const (
	kdfID = "hkdf-sha256:v1"
	algID = "aes-256-gcm"
)

type envelope struct {
	Ciphertext   string `json:"ciphertext"`
	IV           string `json:"iv"`
	Salt         string `json:"salt"`
	EncRecordKey string `json:"enc_record_key"`
	KDF          string `json:"kdf"`
	Alg          string `json:"alg"`
	Version      int    `json:"v"`
}

// EncryptPhrase seals a recovery phrase for storage.
func EncryptPhrase(masterKey []byte, phrase string) (string, error) {
	if len(masterKey) == 0 {
		return "", errors.New("master key is empty")
	}

	salt, err := randomBytes(16)
	if err != nil {
		return "", err
	}
	recordKey, err := randomBytes(32)
	if err != nil {
		return "", err
	}
	kek := deriveKEK(masterKey, salt)

	iv, sealed, err := sealAESGCM(recordKey, []byte(phrase))
	if err != nil {
		return "", err
	}
	keyIV, keySealed, err := sealAESGCM(kek, recordKey)
	if err != nil {
		return "", err
	}

	payload := envelope{
		Ciphertext:   base64.StdEncoding.EncodeToString(sealed),
		IV:           base64.StdEncoding.EncodeToString(iv),
		Salt:         base64.StdEncoding.EncodeToString(salt),
		EncRecordKey: base64.StdEncoding.EncodeToString(append(keyIV, keySealed...)),
		KDF:          kdfID,
		Alg:          algID,
		Version:      1,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecryptPhrase reverses EncryptPhrase, returning the clear-text phrase.
func DecryptPhrase(masterKey []byte, stored string) (string, error) {
	if len(masterKey) == 0 {
		return "", errors.New("master key is empty")
	}
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	var body envelope
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("parse payload: %w", err)
	}
	if body.KDF != kdfID || body.Alg != algID {
		return "", errors.New("unsupported encryption format")
	}

	salt, err := base64.StdEncoding.DecodeString(body.Salt)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	kek := deriveKEK(masterKey, salt)

	wrapped, err := base64.StdEncoding.DecodeString(body.EncRecordKey)
	if err != nil {
		return "", fmt.Errorf("decode record key: %w", err)
	}
	recordKey, err := openWrapped(kek, wrapped)
	if err != nil {
		return "", err
	}

	iv, err := base64.StdEncoding.DecodeString(body.IV)
	if err != nil {
		return "", fmt.Errorf("decode iv: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(body.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	plaintext, err := openAESGCM(recordKey, iv, sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func deriveKEK(master, salt []byte) []byte {
	h := sha256.Sum256(append(append([]byte{}, master...), salt...))
	inp := append(h[:], []byte("enc-kek")...)
	inp = append(inp, 0x01)
	out := sha256.Sum256(inp)
	return out[:]
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func sealAESGCM(key, plaintext []byte) (iv, sealed []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	iv, err = randomBytes(gcm.NonceSize())
	if err != nil {
		return nil, nil, err
	}
	return iv, gcm.Seal(nil, iv, plaintext, nil), nil
}

func openAESGCM(key, iv, sealed []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, iv, sealed, nil)
}

// openWrapped splits an iv-prefixed wrapped record key and opens it.
func openWrapped(kek, payload []byte) ([]byte, error) {
	gcm, err := newGCM(kek)
	if err != nil {
		return nil, err
	}
	if len(payload) <= gcm.NonceSize() {
		return nil, errors.New("wrapped record key too short")
	}
	iv := payload[:gcm.NonceSize()]
	return gcm.Open(nil, iv, payload[gcm.NonceSize():], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
