// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	pgpcrypto "github.com/ProtonMail/gopenpgp/v2/crypto"
	"github.com/adrg/xdg"
)

var (
	// ErrNotFound is returned when no credentials are stored.
	ErrNotFound = errors.New("credentials not found")

	// ErrNotWritable is returned when the credentials directory can't be written to.
	ErrNotWritable = errors.New("credentials directory is not writable")
)

// Provider handles loading/saving credentials under the XDG config home.
type Provider struct {
	configDirectory string
}

// NewProvider creates a new Provider storing files in configDirectory relative to the XDG config home.
func NewProvider(configDirectory string) *Provider {
	return &Provider{
		configDirectory: configDirectory,
	}
}

// Read reads the plain credentials file of the given context.
func (provider *Provider) Read(context string) (*Credentials, error) {
	path, err := provider.getFilePath(context, plainExt)
	if err != nil {
		return nil, err
	}

	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	return Unmarshal(data)
}

// Write saves the credentials as plain JSON and returns the save path.
func (provider *Provider) Write(context string, c *Credentials) (string, error) {
	data, err := Marshal(c)
	if err != nil {
		return "", err
	}

	return provider.writeFile(context, plainExt, data)
}

// ReadSealed reads the password-encrypted credentials file of the given context.
func (provider *Provider) ReadSealed(context string, password []byte) (*Credentials, error) {
	path, err := provider.getFilePath(context, sealedExt)
	if err != nil {
		return nil, err
	}

	armored, err := readFile(path)
	if err != nil {
		return nil, err
	}

	return Unseal(string(armored), password)
}

// WriteSealed saves the credentials encrypted with password and returns the save path.
func (provider *Provider) WriteSealed(context string, c *Credentials, password []byte) (string, error) {
	armored, err := Seal(c, password)
	if err != nil {
		return "", err
	}

	return provider.writeFile(context, sealedExt, []byte(armored))
}

// Delete removes all credentials files of the given context.
func (provider *Provider) Delete(context string) error {
	var removed bool

	for _, ext := range []string{plainExt, sealedExt} {
		path, err := provider.getFilePath(context, ext)
		if err != nil {
			return err
		}

		if !fileExists(path) {
			continue
		}

		if err = os.Remove(path); err != nil {
			return err
		}

		removed = true
	}

	if !removed {
		return fmt.Errorf("%w: context %q", ErrNotFound, context)
	}

	return nil
}

// Seal encrypts the credentials JSON with password and returns the armored message.
func Seal(c *Credentials, password []byte) (string, error) {
	data, err := Marshal(c)
	if err != nil {
		return "", err
	}

	encrypted, err := pgpcrypto.EncryptMessageWithPassword(pgpcrypto.NewPlainMessage(data), password)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	return encrypted.GetArmored()
}

// Unseal reverses Seal.
func Unseal(armored string, password []byte) (*Credentials, error) {
	encrypted, err := pgpcrypto.NewPGPMessageFromArmored(armored)
	if err != nil {
		return nil, err
	}

	decrypted, err := pgpcrypto.DecryptMessageWithPassword(encrypted, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	return Unmarshal(decrypted.GetBinary())
}

const (
	plainExt  = ".json"
	sealedExt = ".json.asc"
)

func (provider *Provider) getFilePath(context, ext string) (string, error) {
	return xdg.ConfigFile(filepath.Join(provider.configDirectory, context+ext))
}

func (provider *Provider) writeFile(context, ext string, data []byte) (string, error) {
	path, err := provider.getFilePath(context, ext)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); !isWritable(dir) {
		return "", fmt.Errorf("%w: %s", ErrNotWritable, dir)
	}

	if err = os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	return path, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	return data, err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
