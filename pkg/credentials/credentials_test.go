// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package credentials_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-tc3-signature/pkg/credentials"
)

func TestRotateSecretKey(t *testing.T) {
	c := credentials.New("AKID", "key-1", 1400000000)

	before := c.Snapshot()

	c.RotateSecretKey("key-2")

	after := c.Snapshot()

	assert.Equal(t, "key-1", before.SecretKey)
	assert.Equal(t, "key-2", after.SecretKey)
	assert.Equal(t, before.Generation+1, after.Generation)
	assert.Equal(t, "AKID", c.SecretID())
	assert.Equal(t, uint64(1400000000), c.AppID())
}

func TestValidate(t *testing.T) {
	require.NoError(t, credentials.New("AKID", "key", 0).Validate())

	err := credentials.New("", "", 0).Validate()
	require.Error(t, err)

	var merr *multierror.Error

	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
}

func TestEncodeDecode(t *testing.T) {
	encoded, err := credentials.Encode(credentials.New("AKID", "key", 1400000000))
	require.NoError(t, err)

	decoded, err := credentials.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, credentials.JSON{
		SecretID:  "AKID",
		SecretKey: "key",
		AppID:     1400000000,
	}, decoded.ToJSON())

	_, err = credentials.Decode("not base64!")
	require.Error(t, err)

	// valid JSON, missing secret key
	_, err = credentials.Unmarshal([]byte(`{"secret_id":"AKID"}`))
	require.Error(t, err)
}

func TestEnv(t *testing.T) {
	encoded1, err := credentials.Encode(credentials.New("AKID1", "key1", 1))
	require.NoError(t, err)

	t.Setenv(credentials.TencentCloudCredentialsEnvVar, encoded1)

	encoded2, err := credentials.Encode(credentials.New("AKID2", "key2", 2))
	require.NoError(t, err)

	t.Setenv(credentials.TC3CredentialsEnvVar, encoded2)

	// both env vars are set, TencentCloudCredentialsEnvVar should take precedence
	envKey, valueBase64 := credentials.GetFromEnv()
	assert.Equal(t, credentials.TencentCloudCredentialsEnvVar, envKey)
	assert.Equal(t, encoded1, valueBase64)

	c, err := credentials.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "AKID1", c.SecretID())

	require.NoError(t, os.Unsetenv(credentials.TencentCloudCredentialsEnvVar))

	// only TC3CredentialsEnvVar is set
	envKey, valueBase64 = credentials.GetFromEnv()
	assert.Equal(t, credentials.TC3CredentialsEnvVar, envKey)
	assert.Equal(t, encoded2, valueBase64)

	require.NoError(t, os.Unsetenv(credentials.TC3CredentialsEnvVar))

	envKey, valueBase64 = credentials.GetFromEnv()
	assert.Empty(t, envKey)
	assert.Empty(t, valueBase64)

	_, err = credentials.FromEnv()
	require.ErrorIs(t, err, credentials.ErrNotFound)

	t.Setenv(credentials.TC3CredentialsEnvVar, "garbage")

	_, err = credentials.FromEnv()
	require.Error(t, err)
}

func fakeXDG(t *testing.T) string {
	t.Helper()

	t.Cleanup(xdg.Reload)

	dir := t.TempDir()

	t.Setenv("XDG_CONFIG_HOME", dir)
	xdg.Reload()

	return dir
}

func TestProvider(t *testing.T) {
	dir := fakeXDG(t)

	provider := credentials.NewProvider("tc3/credentials")

	_, err := provider.Read("default")
	require.ErrorIs(t, err, credentials.ErrNotFound)

	path, err := provider.Write("default", credentials.New("AKID", "key", 1400000000))
	require.NoError(t, err)

	t.Logf("saved credentials to %s", path)

	assert.Equal(t, filepath.Join(dir, "tc3", "credentials", "default.json"), path)

	if runtime.GOOS != "windows" {
		info, statErr := os.Stat(path)
		require.NoError(t, statErr)

		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	c, err := provider.Read("default")
	require.NoError(t, err)

	assert.Equal(t, "AKID", c.SecretID())
	assert.Equal(t, "key", c.Snapshot().SecretKey)

	require.NoError(t, provider.Delete("default"))

	_, err = provider.Read("default")
	require.ErrorIs(t, err, credentials.ErrNotFound)

	require.ErrorIs(t, provider.Delete("default"), credentials.ErrNotFound)
}

func TestProviderSealed(t *testing.T) {
	fakeXDG(t)

	provider := credentials.NewProvider("tc3/credentials")
	password := []byte("correct horse battery staple")

	path, err := provider.WriteSealed("prod", credentials.New("AKID", "key", 1400000000), password)
	require.NoError(t, err)

	armored, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(armored), "BEGIN PGP MESSAGE")
	assert.NotContains(t, string(armored), "AKID")

	c, err := provider.ReadSealed("prod", password)
	require.NoError(t, err)

	assert.Equal(t, "AKID", c.SecretID())
	assert.Equal(t, uint64(1400000000), c.AppID())

	_, err = provider.ReadSealed("prod", []byte("wrong"))
	require.Error(t, err)

	// sealed files are not readable as plain credentials
	_, err = provider.Read("prod")
	require.ErrorIs(t, err, credentials.ErrNotFound)

	require.NoError(t, provider.Delete("prod"))
}

func TestProviderNotWritable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("requires unprivileged unix user")
	}

	dir := fakeXDG(t)

	provider := credentials.NewProvider("ro")

	require.NoError(t, os.Mkdir(filepath.Join(dir, "ro"), 0o500))

	_, err := provider.Write("default", credentials.New("AKID", "key", 0))
	require.ErrorIs(t, err, credentials.ErrNotWritable)
}
