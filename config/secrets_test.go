package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvSecretManager_GetSecret(t *testing.T) {
	t.Setenv("SECANALYTICS_JWT_SECRET", strongSecret)

	manager := &EnvSecretManager{}
	value, err := manager.GetSecret(SecretJWT)
	require.NoError(t, err)
	assert.Equal(t, strongSecret, value)

	_, err = manager.GetSecret("missing_key")
	assert.ErrorContains(t, err, "SECANALYTICS_MISSING_KEY")
}

func TestNewSecretManager(t *testing.T) {
	cfg := &Config{}
	m, err := NewSecretManager(cfg)
	require.NoError(t, err)
	assert.IsType(t, &EnvSecretManager{}, m)

	cfg.Secrets.Provider = "gcp"
	_, err = NewSecretManager(cfg)
	assert.Error(t, err)
}

func TestVaultSecretManager(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/secanalytics", r.URL.Path)
		gotToken = r.Header.Get("X-Vault-Token")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"data": map[string]interface{}{
					SecretBackendPassword: "s3cr3t",
					"number":              42,
				},
			},
		})
	}))
	defer srv.Close()

	cfg := &Config{}
	cfg.Secrets.Provider = "vault"
	cfg.Secrets.Vault.Address = srv.URL
	cfg.Secrets.Vault.Token = "root-token"
	cfg.Secrets.Vault.Path = "secret/data/secanalytics"

	m, err := NewSecretManager(cfg)
	require.NoError(t, err)

	value, err := m.GetSecret(SecretBackendPassword)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", value)
	assert.Equal(t, "root-token", gotToken)

	_, err = m.GetSecret("absent")
	assert.ErrorContains(t, err, "not found")
	_, err = m.GetSecret("number")
	assert.ErrorContains(t, err, "not a string")
}

func TestAWSSecretManager(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secretsmanager.GetSecretValue", r.Header.Get("X-Amz-Target"))
		var in struct {
			SecretId string
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		assert.Equal(t, "team/secanalytics", in.SecretId)

		secret, _ := json.Marshal(map[string]string{SecretJWT: strongSecret})
		w.Header().Set("Content-Type", "application/x-amz-json-1.1")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"ARN":          "arn:aws:secretsmanager:us-east-1:000000000000:secret:team/secanalytics",
			"Name":         "team/secanalytics",
			"SecretString": string(secret),
		})
	}))
	defer srv.Close()

	cfg := &Config{}
	cfg.Secrets.Provider = "aws"
	cfg.Secrets.AWS.Region = "us-east-1"
	cfg.Secrets.AWS.AccessKey = "AKIDEXAMPLE"
	cfg.Secrets.AWS.SecretKey = "wJalrXUtnFEMI"
	cfg.Secrets.AWS.SecretID = "team/secanalytics"
	cfg.Secrets.AWS.Endpoint = srv.URL

	m, err := NewSecretManager(cfg)
	require.NoError(t, err)

	value, err := m.GetSecret(SecretJWT)
	require.NoError(t, err)
	assert.Equal(t, strongSecret, value)

	_, err = m.GetSecret(SecretBackendPassword)
	assert.Error(t, err)
}

func TestLoadSecrets(t *testing.T) {
	t.Run("nothing needed", func(t *testing.T) {
		cfg := &Config{}
		cfg.Secrets.Provider = "unsupported"
		assert.NoError(t, LoadSecrets(cfg), "manager is not created when no secret is missing")
	})

	t.Run("fills missing values", func(t *testing.T) {
		t.Setenv("SECANALYTICS_JWT_SECRET", strongSecret)
		t.Setenv("SECANALYTICS_API_PASSWORD", "api-pass")
		t.Setenv("SECANALYTICS_BACKEND_PASSWORD", "backend-pass")

		cfg := &Config{}
		cfg.Auth.Enabled = true
		cfg.Backend.Auth.Mode = "basic"
		require.NoError(t, LoadSecrets(cfg))

		assert.Equal(t, strongSecret, cfg.Auth.JWTSecret)
		assert.Equal(t, "api-pass", cfg.Auth.Password)
		assert.Equal(t, "backend-pass", cfg.Backend.Auth.Password)
	})

	t.Run("keeps configured values", func(t *testing.T) {
		t.Setenv("SECANALYTICS_JWT_SECRET", "from-env-but-ignored")
		t.Setenv("SECANALYTICS_API_PASSWORD", "api-pass")

		cfg := &Config{}
		cfg.Auth.Enabled = true
		cfg.Auth.JWTSecret = strongSecret
		require.NoError(t, LoadSecrets(cfg))
		assert.Equal(t, strongSecret, cfg.Auth.JWTSecret)
	})

	t.Run("missing secret", func(t *testing.T) {
		cfg := &Config{}
		cfg.Backend.Auth.Mode = "basic"
		err := LoadSecrets(cfg)
		assert.ErrorContains(t, err, "backend password")
	})
}
