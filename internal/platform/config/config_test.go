package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"ADMIN_BACKEND_URL":   "http://localhost:5000/",
		"FIREBASE_PROJECT_ID": "k-flex-dashboard",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, "/admin", cfg.Server.BasePath)
	require.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, SourceREST, cfg.Source.Kind)
	require.Equal(t, "http://localhost:5000", cfg.Backend.BaseURL)
	require.Equal(t, 3, cfg.Backend.MaxRetries)
	require.Equal(t, "k-flex-dashboard", cfg.Firestore.ProjectID)
	require.Equal(t, "k-flex-dashboard", cfg.PubSub.ProjectID)
	require.Equal(t, "k-flex-dashboard", cfg.Secrets.ProjectID)
	require.Equal(t, "auditLogs", cfg.Firestore.AuditCollection)
	require.Equal(t, "order.exchange", cfg.AMQP.Exchange)
	require.Equal(t, time.Minute, cfg.Redis.TTL)
}

func TestLoadResolvesSecrets(t *testing.T) {
	env := map[string]string{
		"ADMIN_BACKEND_URL":    "https://api.kflex.example",
		"ADMIN_BACKEND_TOKEN":  "sm://backend-token",
		"ADMIN_AMQP_URL":       "secret://amqp-url",
		"ADMIN_REDIS_ADDR":     "localhost:6379",
		"ADMIN_REDIS_PASSWORD": "plain",
		"ADMIN_REDIS_TTL":      "30s",
	}
	var seen []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		seen = append(seen, ref)
		return "resolved:" + ref + "\n", nil
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	require.NoError(t, err)

	require.Equal(t, "resolved:secret://backend-token", cfg.Backend.AuthToken)
	require.Equal(t, "resolved:secret://amqp-url", cfg.AMQP.URL)
	require.Equal(t, "plain", cfg.Redis.Password)
	require.Equal(t, 30*time.Second, cfg.Redis.TTL)
	require.ElementsMatch(t, []string{"secret://backend-token", "secret://amqp-url"}, seen)
}

func TestLoadFailsWithoutResolverForSecretReference(t *testing.T) {
	env := map[string]string{
		"ADMIN_BACKEND_URL":   "https://api.kflex.example",
		"ADMIN_BACKEND_TOKEN": "secret://backend-token",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var secretErr *SecretError
	require.ErrorAs(t, err, &secretErr)
	require.Equal(t, "secret://backend-token", secretErr.Ref)
	require.True(t, errors.Is(err, errSecretResolverNotConfigured))
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"ADMIN_SOURCE":             "firestore",
		"ADMIN_BACKEND_TIMEOUT":    "0s",
		"ADMIN_PUBSUB_ORDER_TOPIC": "order-events",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.ElementsMatch(t, []string{"Firestore.ProjectID", "Backend.Timeout", "PubSub.ProjectID"}, validationErr.Fields())
}

func TestLoadRejectsUnknownSource(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{"ADMIN_SOURCE": "mongo"}), WithoutSystemEnv(), WithEnvFile(""))
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields(), "Source.Kind")
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# local overrides\nADMIN_BACKEND_URL=http://from-file\nADMIN_HTTP_ADDR=:9000\nexport ADMIN_BASE_PATH=\"/ops\"\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := Load(context.Background(),
		WithEnvFile(envFile),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"ADMIN_HTTP_ADDR": ":9100"}),
	)
	require.NoError(t, err)

	require.Equal(t, "http://from-file", cfg.Backend.BaseURL)
	require.Equal(t, ":9100", cfg.Server.Address)
	require.Equal(t, "/ops", cfg.Server.BasePath)
}

func TestLoadIgnoresMissingEnvFile(t *testing.T) {
	_, err := Load(context.Background(),
		WithEnvFile(filepath.Join(t.TempDir(), "missing.env")),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"ADMIN_BACKEND_URL": "http://localhost"}),
	)
	require.NoError(t, err)
}
