package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dylantneal/eng.com-sub003/internal/auth"
	"github.com/dylantneal/eng.com-sub003/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "token")
	assert.Equal(t, "config.yaml", cmd.PersistentFlags().Lookup("config").DefValue)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("ENGCOM_JWT_SECRET", "token-command-test-secret")
	configPath := filepath.Join(t.TempDir(), "missing.yaml")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--config", configPath, "--user", "u42"})
	require.NoError(t, cmd.Execute())

	cfg, err := config.Load(configPath)
	require.NoError(t, err)

	userID, err := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, time.Hour).Validate(strings.TrimSpace(out.String()))
	require.NoError(t, err, "Токен должен проходить проверку")
	assert.Equal(t, "u42", userID)
}

func TestTokenCommandRequiresUser(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token"})

	assert.Error(t, cmd.Execute())
}
