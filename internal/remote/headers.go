package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// The headers file is a flat JSON object of request header name to value,
// exported from an authenticated browser session. It is passed through to
// the service verbatim; mls never interprets individual headers. A file
// ending in ".age" is passphrase-encrypted at rest (see EncryptHeaders).

// LoadHeaders reads the headers file at path. Encrypted files are decrypted
// with the passphrase obtained from prompt.
func LoadHeaders(path string, prompt PassphraseFunc) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening headers file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".age") {
		if prompt == nil {
			return nil, fmt.Errorf("headers file %s is encrypted and no passphrase source is available", path)
		}
		passphrase, err := prompt()
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		identity, err := age.NewScryptIdentity(passphrase)
		if err != nil {
			return nil, fmt.Errorf("creating scrypt identity: %w", err)
		}
		r, err = age.Decrypt(f, identity)
		if err != nil {
			return nil, fmt.Errorf("decrypting headers file: %w", err)
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading headers file: %w", err)
	}

	headers, err := parseHeaders(data)
	if err != nil {
		return nil, fmt.Errorf("parsing headers file %s: %w", path, err)
	}
	return headers, nil
}

// EncryptHeaders encrypts the plain headers file at src with the passphrase
// using age's scrypt-based passphrase encryption and writes <src>.age next
// to it. The plaintext is validated first so a broken file is caught before
// it is sealed. Returns the encrypted file's path.
func EncryptHeaders(src, passphrase string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("reading headers file: %w", err)
	}
	if _, err := parseHeaders(data); err != nil {
		return "", fmt.Errorf("refusing to encrypt %s: %w", src, err)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return "", fmt.Errorf("creating scrypt recipient: %w", err)
	}

	dest := src + ".age"
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("creating encrypted headers file: %w", err)
	}
	defer out.Close()

	w, err := age.Encrypt(out, recipient)
	if err != nil {
		return "", fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("encrypting headers: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing encrypted headers file: %w", err)
	}

	return dest, nil
}

func parseHeaders(data []byte) (map[string]string, error) {
	var headers map[string]string
	if err := json.Unmarshal(data, &headers); err != nil {
		return nil, fmt.Errorf("headers must be a flat JSON object: %w", err)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("headers object is empty")
	}
	return headers, nil
}
