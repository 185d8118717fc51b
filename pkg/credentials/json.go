// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package credentials

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
)

const (
	// TencentCloudCredentialsEnvVar is the name of the environment variable
	// that contains the base64-encoded credentials JSON.
	TencentCloudCredentialsEnvVar = "TENCENTCLOUD_CREDENTIALS"

	// TC3CredentialsEnvVar is the name of the environment variable
	// that contains the base64-encoded credentials JSON.
	TC3CredentialsEnvVar = "TC3_CREDENTIALS"
)

// JSON is the JSON representation of credentials.
type JSON struct {
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	AppID     uint64 `json:"app_id,omitempty"`
}

// ToJSON returns the JSON representation of the current credentials.
func (c *Credentials) ToJSON() JSON {
	snap := c.Snapshot()

	return JSON{
		SecretID:  snap.SecretID,
		SecretKey: snap.SecretKey,
		AppID:     snap.AppID,
	}
}

// GetFromEnv checks if credentials are available in the environment variables.
// If a known environment variable is found, its name and value are returned.
func GetFromEnv() (envKey, valueBase64 string) {
	for _, alias := range []string{TencentCloudCredentialsEnvVar, TC3CredentialsEnvVar} {
		value, valueOk := os.LookupEnv(alias)
		if !valueOk {
			continue
		}

		return alias, value
	}

	return "", ""
}

// Marshal returns the JSON encoding of the credentials.
func Marshal(c *Credentials) ([]byte, error) {
	return json.Marshal(c.ToJSON())
}

// Unmarshal parses and validates credentials JSON.
func Unmarshal(data []byte) (*Credentials, error) {
	var j JSON

	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}

	c := New(j.SecretID, j.SecretKey, j.AppID)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Encode encodes the credentials into a base64 encoded JSON string.
func Encode(c *Credentials) (string, error) {
	data, err := Marshal(c)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode parses and decodes credentials from a base64 encoded JSON string.
func Decode(valueBase64 string) (*Credentials, error) {
	data, err := base64.StdEncoding.DecodeString(valueBase64)
	if err != nil {
		return nil, err
	}

	return Unmarshal(data)
}

// FromEnv decodes credentials from the first known environment variable which is set.
//
// It returns ErrNotFound if none is set.
func FromEnv() (*Credentials, error) {
	envKey, valueBase64 := GetFromEnv()
	if envKey == "" {
		return nil, fmt.Errorf("%w: none of %s, %s is set", ErrNotFound, TencentCloudCredentialsEnvVar, TC3CredentialsEnvVar)
	}

	c, err := Decode(valueBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode credentials from env var %q: %w", envKey, err)
	}

	return c, nil
}
