package config

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSecrets map[string]string

func (s stubSecrets) GetSecretOrEnv(_ context.Context, secretName, _ string) (string, error) {
	if v, ok := s[secretName]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("USE_AZURE_KEY_VAULT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "15 3 * * *", cfg.Audit.Cron)
	assert.Equal(t, float64(600), cfg.Audit.TimeoutDuration().Seconds())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("AUDIT_CRON", "*/5 * * * *")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "*/5 * * * *", cfg.Audit.Cron)
}

func TestLoadWithSecrets_WithoutVault(t *testing.T) {
	t.Setenv("USE_AZURE_KEY_VAULT", "false")

	cfg, err := LoadWithSecrets(context.Background(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "parelpracht", cfg.Database.Name)
}

func TestApplyDatabaseSecrets(t *testing.T) {
	t.Setenv("DEFAULT_DATABASE", "parelpracht_staging")

	cfg := &Config{Database: DatabaseConfig{Host: "localhost", User: "local", Password: "local"}}
	err := applyDatabaseSecrets(context.Background(), cfg, stubSecrets{
		"POSTGRES-MAIN-HOST":     "pg.example.net",
		"POSTGRES-MAIN-PASSWORD": "s3cret",
	})
	require.NoError(t, err)

	assert.Equal(t, "pg.example.net", cfg.Database.Host)
	assert.Equal(t, "local", cfg.Database.User)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "parelpracht_staging", cfg.Database.Name)
}

func TestApplyDatabaseSecrets_MissingPassword(t *testing.T) {
	cfg := &Config{}
	err := applyDatabaseSecrets(context.Background(), cfg, stubSecrets{})
	assert.Error(t, err)
}

func TestConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=disable", d.ConnectionString())
}
