package rcon

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	gorcon "github.com/gorcon/rcon"
	"github.com/gorcon/rcon/rcontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

// minecraftHandler answers like a vanilla server with a small whitelist vocabulary.
func minecraftHandler(c *rcontest.Context) {
	body := c.Request().Body()
	var reply string
	switch {
	case strings.HasPrefix(body, "whitelist add "):
		reply = "Added " + strings.TrimPrefix(body, "whitelist add ") + " to the whitelist"
	case body == "slow":
		time.Sleep(300 * time.Millisecond)
		reply = "done"
	default:
		reply = "Unknown or incomplete command, see below for error"
	}
	packet := gorcon.NewPacket(gorcon.SERVERDATA_RESPONSE_VALUE, c.Request().ID, reply)
	_, _ = packet.WriteTo(c.Conn())
}

func newTestServer(t *testing.T) *rcontest.Server {
	t.Helper()
	server := rcontest.NewServer(
		rcontest.SetSettings(rcontest.Settings{Password: "password"}),
		rcontest.SetCommandHandler(minecraftHandler),
	)
	t.Cleanup(server.Close)
	return server
}

func targetAt(t *testing.T, addr, password string) domain.TargetConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return domain.TargetConfig{Name: "test", Host: host, Port: uint16(port), Password: password}
}

func TestClient_RoundTrip(t *testing.T) {
	server := newTestServer(t)
	g := NewGovernor(NewClient(time.Second, time.Second))

	res := g.Run(context.Background(), targetAt(t, server.Addr(), "password"), "whitelist add Steve", domain.Java)

	require.True(t, res.Succeeded, res.Detail)
	assert.Equal(t, "Added Steve to the whitelist", res.Response)
}

func TestClient_SemanticFailure(t *testing.T) {
	server := newTestServer(t)
	g := NewGovernor(NewClient(time.Second, time.Second))

	res := g.Run(context.Background(), targetAt(t, server.Addr(), "password"), "whitelist ad Steve", domain.Java)

	assert.False(t, res.Succeeded)
	assert.Equal(t, domain.CategorySemanticFailure, res.Category)
}

func TestClient_BadPassword(t *testing.T) {
	server := newTestServer(t)
	g := NewGovernor(NewClient(time.Second, time.Second))

	res := g.Run(context.Background(), targetAt(t, server.Addr(), "wrong"), "whitelist add Steve", domain.Java)

	assert.False(t, res.Succeeded)
	assert.Equal(t, domain.CategoryAuthenticationFailed, res.Category)
}

func TestClient_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	g := NewGovernor(NewClient(time.Second, time.Second))
	res := g.Run(context.Background(), targetAt(t, addr, "password"), "whitelist add Steve", domain.Java)

	assert.False(t, res.Succeeded)
	assert.Equal(t, domain.CategoryConnectionRefused, res.Category)
}

func TestClient_SlowServerTimesOut(t *testing.T) {
	server := newTestServer(t)
	g := NewGovernor(NewClient(time.Second, time.Second), WithTimeouts(50*time.Millisecond, 50*time.Millisecond))

	start := time.Now()
	res := g.Run(context.Background(), targetAt(t, server.Addr(), "password"), "slow", domain.Java)

	assert.Equal(t, domain.CategoryTimeout, res.Category)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestClient_DialRespectsDeadline(t *testing.T) {
	c := NewClient(10*time.Second, 5*time.Second)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := c.Dial(ctx, domain.TargetConfig{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	category, _ := ClassifyTransport(err)
	assert.Equal(t, domain.CategoryTimeout, category)
}
