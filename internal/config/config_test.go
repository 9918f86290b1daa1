package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

const serversYAML = `
servers:
  - id: survival
    display_name: Survival SMP
    host: mc.example.com
    port: 25575
    password: hunter2
    allowed_chats: [-1001, -1002]
    connect_timeout: 3s
    commands:
      add:
        java: "whitelist add {username}"
        bedrock: "fwhitelist add {gamertag}"
  - id: creative
    host: 10.0.0.5
    port: 25576
    password_file: creative.pw
    bedrock_prefix: ""
    commands:
      add:
        java: "easywl add {uuid}"
      kick: {}
    failure_markers:
      - text: "nicht gefunden"
        message: "player unknown"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadServers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "creative.pw", "s3cret\n")
	path := writeFile(t, dir, "servers.yaml", serversYAML)

	servers, err := LoadServers(path)
	require.NoError(t, err)
	require.Len(t, servers, 2)

	survival := servers[0]
	assert.Equal(t, "survival", survival.Name)
	assert.Equal(t, "Survival SMP", survival.Label())
	assert.Equal(t, "mc.example.com:25575", survival.Addr())
	assert.Equal(t, "hunter2", survival.Password)
	assert.Equal(t, []int64{-1001, -1002}, survival.AllowedChats)
	assert.Equal(t, ".", survival.BedrockPrefix)
	assert.Equal(t, 3*time.Second, survival.ConnectTimeout)

	tmpl, ok := survival.Template(domain.ActionRemove, domain.Bedrock)
	require.True(t, ok)
	assert.Equal(t, DefaultRemoveBedrock, tmpl)
	tmpl, ok = survival.Template(domain.ActionKick, domain.Java)
	require.True(t, ok)
	assert.Equal(t, DefaultKick, tmpl)

	creative := servers[1]
	assert.Equal(t, "creative", creative.Label())
	assert.Equal(t, "s3cret", creative.Password)
	assert.Equal(t, "", creative.BedrockPrefix)
	_, ok = creative.Template(domain.ActionAdd, domain.Bedrock)
	assert.False(t, ok, "java-only server")
	_, ok = creative.Template(domain.ActionKick, domain.Java)
	assert.False(t, ok, "kick explicitly disabled")
	assert.Equal(t, []domain.ResponseMarker{{Text: "nicht gefunden", Message: "player unknown"}}, creative.FailureMarkers)
}

func TestLoadServers_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "servers: []", "lists no servers"},
		{"missing fields", "servers:\n  - id: a\n    commands: {add: {java: x}}", "missing required RCON configuration: host, port, password"},
		{"no add", "servers:\n  - {id: a, host: h, port: 1, password: p}", "missing whitelist add command"},
		{"bad port", "servers:\n  - {id: a, host: h, port: 70000, password: p, commands: {add: {java: x}}}", "out of range"},
		{"bad platform", "servers:\n  - {id: a, host: h, port: 1, password: p, commands: {add: {pocket: x}}}", "unknown platform"},
		{"bad action", "servers:\n  - {id: a, host: h, port: 1, password: p, commands: {ban: {java: x}}}", "unknown command action"},
		{"duplicate", "servers:\n  - {id: a, host: h, port: 1, password: p, commands: {add: {java: x}}}\n  - {id: a, host: h, port: 2, password: p, commands: {add: {java: x}}}", "duplicate id"},
		{"blank marker", "servers:\n  - {id: a, host: h, port: 1, password: p, commands: {add: {java: x}}, failure_markers: [{text: ' '}]}", "failure_markers[0]: text is empty"},
		{"unnamed", "servers:\n  - {host: h, port: 1, password: p, commands: {add: {java: x}}}", "server #1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "servers.yaml", tt.content)
			_, err := LoadServers(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadServers(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	servers := writeFile(t, dir, "servers.yaml", "servers:\n  - {id: a, host: h, port: 1, password: p, commands: {add: {java: x}}}")
	envFile := writeFile(t, dir, ".env", "TELEGRAM_BOT_TOKEN=from-file\nRCON_COMMAND_TIMEOUT=7s\nRCON_CONCURRENCY=4\n")

	t.Setenv("SERVERS_FILE", servers)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("RCON_KICK_ON_REMOVE", "false")
	t.Setenv("MCPROFILE_RATE_LIMIT", "0.5")
	// godotenv sets these directly; t.Setenv would stop the file from applying.
	t.Cleanup(func() {
		os.Unsetenv("RCON_COMMAND_TIMEOUT")
		os.Unsetenv("RCON_CONCURRENCY")
	})

	cfg, err := Init(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.BotToken, "environment wins over .env")
	assert.Equal(t, 10*time.Second, cfg.Rcon.ConnectTimeout)
	assert.Equal(t, 7*time.Second, cfg.Rcon.CommandTimeout)
	assert.Equal(t, 4, cfg.Rcon.Concurrency)
	assert.False(t, cfg.Rcon.KickOnRemove)
	assert.Equal(t, 0.5, cfg.Profile.RateLimit)
	assert.Equal(t, 24*time.Hour, cfg.Profile.CacheTTL)
	assert.Equal(t, "@every 1m", cfg.Monitor.ProbeSchedule)
	assert.Equal(t, "none", cfg.Tracing.Exporter)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRate)
	require.Len(t, cfg.Servers, 1)
}

func TestInit_RequiredAndInvalid(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	_, err := Init("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")

	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("RCON_CONNECT_TIMEOUT", "soon")
	_, err = Init(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RCON_CONNECT_TIMEOUT")
}
