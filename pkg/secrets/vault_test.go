package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"faqdesk/backend/pkg/config"
	"faqdesk/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	data  map[string]interface{}
	err   error
	calls int
}

func (f *fakeKV) Get(_ context.Context, _ string) (*vault.KVSecret, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &vault.KVSecret{Data: f.data}, nil
}

func env(values map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := values[k]
		return v, ok
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "JWT_SECRET", EnvKey("jwt-secret"))
	assert.Equal(t, "JWT_SECRET", EnvKey("jwt.secret"))
}

func TestDisabledVaultReadsEnvironment(t *testing.T) {
	m, err := NewVaultManager(config.VaultConfig{Enabled: false, TTL: time.Minute}, logger.Discard())
	require.NoError(t, err)
	m.lookup = env(map[string]string{"JWT_SECRET": "from-env"})

	v, err := m.GetSecret(context.Background(), "jwt_secret")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	assert.Equal(t, "fallback", m.GetSecretWithDefault(context.Background(), "missing", "fallback"))
}

func TestVaultSecretIsCached(t *testing.T) {
	kv := &fakeKV{data: map[string]interface{}{"jwt_secret": "from-vault"}}
	m, err := NewVaultManager(config.VaultConfig{TTL: time.Minute}, logger.Discard())
	require.NoError(t, err)
	m.kv = kv

	for i := 0; i < 3; i++ {
		v, err := m.GetSecret(context.Background(), "jwt_secret")
		require.NoError(t, err)
		assert.Equal(t, "from-vault", v)
	}
	assert.Equal(t, 1, kv.calls)
}

func TestVaultMissingKeyFallsBackToEnvironment(t *testing.T) {
	m, err := NewVaultManager(config.VaultConfig{TTL: time.Minute}, logger.Discard())
	require.NoError(t, err)
	m.kv = &fakeKV{data: map[string]interface{}{}}
	m.lookup = env(map[string]string{"JWT_SECRET": "from-env"})

	v, err := m.GetSecret(context.Background(), "jwt_secret")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
}

func TestVaultErrorIsReturned(t *testing.T) {
	m, err := NewVaultManager(config.VaultConfig{TTL: time.Minute}, logger.Discard())
	require.NoError(t, err)
	m.kv = &fakeKV{err: errors.New("permission denied")}

	_, err = m.GetSecret(context.Background(), "jwt_secret")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSecretNotFound)
}

func TestEnabledVaultRequiresToken(t *testing.T) {
	_, err := NewVaultManager(config.VaultConfig{Enabled: true, Addr: "http://vault:8200"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultToken)
}
