package secrets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"faqdesk/backend/pkg/config"
	"faqdesk/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

type cachedSecret struct {
	value   string
	expires time.Time
}

// kvReader reads one KV v2 secret; *vault.KVv2 satisfies it.
type kvReader interface {
	Get(ctx context.Context, path string) (*vault.KVSecret, error)
}

// VaultManager manages secrets with HashiCorp Vault
type VaultManager struct {
	kv       kvReader
	path     string
	cacheTTL time.Duration
	lookup   lookupFunc
	log      *logger.Logger
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

// NewVaultManager creates a manager from configuration. With Vault disabled
// every secret comes from the environment.
func NewVaultManager(cfg config.VaultConfig, log *logger.Logger) (*VaultManager, error) {
	m := &VaultManager{
		path:     cfg.Path,
		cacheTTL: cfg.TTL,
		log:      log,
		now:      time.Now,
		cache:    make(map[string]cachedSecret),
	}
	if !cfg.Enabled {
		return m, nil
	}

	if cfg.Addr == "" {
		return nil, ErrNoVaultAddress
	}
	if cfg.Token == "" {
		return nil, ErrNoVaultToken
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Addr
	vaultConfig.Timeout = 10 * time.Second
	vaultConfig.MaxRetries = 3

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	m.kv = client.KVv2(cfg.Mount)
	return m, nil
}

// GetSecret retrieves a secret from Vault, with fallback to environment variable
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	if value, ok := m.cached(key); ok {
		return value, nil
	}

	if m.kv == nil {
		value, err := envLookup(m.lookup, key)
		if err != nil {
			return "", err
		}
		m.store(key, value)
		return value, nil
	}

	value, err := m.fromVault(ctx, key)
	if errors.Is(err, ErrSecretNotFound) {
		m.log.Warn("Secret not found in Vault, falling back to environment", "key", key)
		value, err = envLookup(m.lookup, key)
	}
	if err != nil {
		return "", err
	}

	m.store(key, value)
	return value, nil
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrSecretNotFound) {
			m.log.Warn("Failed to get secret, using default value", "key", key, "error", err.Error())
		}
		return defaultValue
	}
	return value
}

func (m *VaultManager) fromVault(ctx context.Context, key string) (string, error) {
	secret, err := m.kv.Get(ctx, m.path)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", ErrSecretNotFound
		}
		return "", fmt.Errorf("failed to read secret %s: %w", m.path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}

	value, ok := secret.Data[key].(string)
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

func (m *VaultManager) cached(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.cache[key]
	if !ok || (m.cacheTTL > 0 && m.now().After(entry.expires)) {
		return "", false
	}
	return entry.value, true
}

func (m *VaultManager) store(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = cachedSecret{value: value, expires: m.now().Add(m.cacheTTL)}
}
