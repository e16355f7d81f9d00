// common/config/config_test.go
package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/storefront-auth/common/config"
)

type sample struct {
	Name    string        `mapstructure:"name"`
	Timeout time.Duration `mapstructure:"timeout"`
	Debug   bool          `mapstructure:"debug"`
	Paths   []string      `mapstructure:"paths"`
	Nested  struct {
		Secret string `mapstructure:"secret"`
		Days   int    `mapstructure:"days"`
	} `mapstructure:"nested"`
}

type validated struct {
	Secret string `mapstructure:"secret"`
}

func (v validated) Validate() error {
	if v.Secret == "" {
		return errors.New("secret is required")
	}
	return nil
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("CFGTEST_TIMEOUT", "3s")
	t.Setenv("CFGTEST_DEBUG", "true")
	t.Setenv("CFGTEST_NESTED_DAYS", "9")

	var out sample
	err := config.Load(config.Options{
		EnvPrefix: "CFGTEST",
		Out:       &out,
		Defaults: map[string]interface{}{
			"name":          "svc",
			"timeout":       "1s",
			"debug":         false,
			"paths":         []string{"/a", "/b"},
			"nested.secret": "",
			"nested.days":   7,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "svc", out.Name)
	assert.Equal(t, 3*time.Second, out.Timeout)
	assert.True(t, out.Debug)
	assert.Equal(t, []string{"/a", "/b"}, out.Paths)
	assert.Equal(t, 9, out.Nested.Days)
}

func TestLoad_Alias(t *testing.T) {
	t.Setenv("LEGACY_SECRET", "from-legacy")

	var out sample
	err := config.Load(config.Options{
		EnvPrefix: "CFGTEST",
		Out:       &out,
		Defaults:  map[string]interface{}{"nested.secret": ""},
		Aliases:   map[string][]string{"nested.secret": {"LEGACY_SECRET"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-legacy", out.Nested.Secret)

	t.Setenv("CFGTEST_NESTED_SECRET", "prefixed")
	require.NoError(t, config.Load(config.Options{
		EnvPrefix: "CFGTEST",
		Out:       &out,
		Defaults:  map[string]interface{}{"nested.secret": ""},
		Aliases:   map[string][]string{"nested.secret": {"LEGACY_SECRET"}},
	}))
	assert.Equal(t, "prefixed", out.Nested.Secret)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from-file\nnested:\n  days: 3\n"), 0o600))

	var out sample
	require.NoError(t, config.Load(config.Options{
		Path:      path,
		EnvPrefix: "CFGTEST_FILE",
		Out:       &out,
		Defaults:  map[string]interface{}{"name": "svc", "nested.days": 7},
	}))
	assert.Equal(t, "from-file", out.Name)
	assert.Equal(t, 3, out.Nested.Days)
}

func TestLoad_Errors(t *testing.T) {
	var out validated
	err := config.Load(config.Options{
		EnvPrefix: "CFGTEST_VALIDATE",
		Out:       &out,
		Defaults:  map[string]interface{}{"secret": ""},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret is required")

	err = config.Load(config.Options{Path: "/does/not/exist.yaml", Out: &out})
	require.Error(t, err)

	require.Error(t, config.Load(config.Options{}))
}

type fakeSecrets struct {
	out *secretsmanager.GetSecretValueOutput
	err error
	in  *secretsmanager.GetSecretValueInput
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestApplySecret(t *testing.T) {
	t.Setenv("CFGTEST_KEEP", "local")
	os.Unsetenv("CFGTEST_NEW")
	t.Cleanup(func() { os.Unsetenv("CFGTEST_NEW") })

	api := &fakeSecrets{out: &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"CFGTEST_KEEP":"remote","CFGTEST_NEW":"value"}`),
	}}
	n, err := config.ApplySecret(context.Background(), api, "authgate/prod", "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "local", os.Getenv("CFGTEST_KEEP"))
	assert.Equal(t, "value", os.Getenv("CFGTEST_NEW"))
	assert.Equal(t, "AWSCURRENT", aws.ToString(api.in.VersionStage))

	n, err = config.ApplySecret(context.Background(), api, "authgate/prod", "AWSPENDING", true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "remote", os.Getenv("CFGTEST_KEEP"))
}

func TestApplySecret_Errors(t *testing.T) {
	_, err := config.ApplySecret(context.Background(), &fakeSecrets{err: errors.New("denied")}, "id", "", false)
	require.Error(t, err)

	_, err = config.ApplySecret(context.Background(), &fakeSecrets{out: &secretsmanager.GetSecretValueOutput{}}, "id", "", false)
	require.Error(t, err)

	_, err = config.ApplySecret(context.Background(), &fakeSecrets{out: &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String("not json"),
	}}, "id", "", false)
	require.Error(t, err)
}

func TestLoadEnv_DotEnv(t *testing.T) {
	os.Unsetenv(config.EnvSecretID)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CFGTEST_DOTENV=yes\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CFGTEST_DOTENV") })

	n, err := config.LoadEnv(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "yes", os.Getenv("CFGTEST_DOTENV"))

	_, err = config.LoadEnv(context.Background(), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}
