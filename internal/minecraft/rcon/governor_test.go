package rcon

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gorcon "github.com/gorcon/rcon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

type fakeSession struct {
	response string
	err      error
	release  chan struct{}

	mu       sync.Mutex
	commands []string
	closed   atomic.Int32
}

func (s *fakeSession) Execute(command string) (string, error) {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	return s.response, s.err
}

func (s *fakeSession) Close() error {
	s.closed.Add(1)
	return nil
}

type fakeDialer struct {
	session *fakeSession
	err     error
	calls   atomic.Int32
}

func (d *fakeDialer) Dial(_ context.Context, _ domain.TargetConfig) (domain.Session, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

var survival = domain.TargetConfig{Name: "survival", Host: "127.0.0.1", Port: 25575, Password: "pw"}

func TestGovernor_Success(t *testing.T) {
	sess := &fakeSession{response: "Added Steve to the whitelist"}
	g := NewGovernor(&fakeDialer{session: sess})

	res := g.Run(context.Background(), survival, "whitelist add Steve", domain.Java)

	assert.True(t, res.Succeeded)
	assert.Equal(t, "survival", res.Target)
	assert.Equal(t, "Added Steve to the whitelist", res.Response)
	assert.Equal(t, domain.CategoryNone, res.Category)
	assert.Equal(t, []string{"whitelist add Steve"}, sess.commands)
	assert.EqualValues(t, 1, sess.closed.Load(), "session closed after success")
}

func TestGovernor_SemanticFailureOverridesTransportSuccess(t *testing.T) {
	sess := &fakeSession{response: "Unknown or incomplete command, see below for error"}
	g := NewGovernor(&fakeDialer{session: sess})

	res := g.Run(context.Background(), survival, "whitelist ad Steve", domain.Java)

	assert.False(t, res.Succeeded)
	assert.Equal(t, domain.CategorySemanticFailure, res.Category)
	assert.Equal(t, "unrecognized command", res.Detail)
	assert.Equal(t, sess.response, res.Response)
	assert.EqualValues(t, 1, sess.closed.Load())
}

func TestGovernor_TransportFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorCategory
	}{
		{"refused", fmt.Errorf("RCON connect: %w", refusedErr()), domain.CategoryConnectionRefused},
		{"auth", fmt.Errorf("RCON connect: %w", gorcon.ErrAuthFailed), domain.CategoryAuthenticationFailed},
		{"timeout", fmt.Errorf("RCON connect: %w", timeoutErr{}), domain.CategoryTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGovernor(&fakeDialer{err: tt.err})
			res := g.Run(context.Background(), survival, "whitelist add Steve", domain.Java)
			assert.False(t, res.Succeeded)
			assert.Equal(t, tt.want, res.Category)
			assert.Empty(t, res.Response)
		})
	}
}

func TestGovernor_ExecuteErrorClosesSession(t *testing.T) {
	sess := &fakeSession{err: fmt.Errorf("RCON exec: %w", timeoutErr{})}
	g := NewGovernor(&fakeDialer{session: sess})

	res := g.Run(context.Background(), survival, "whitelist add Steve", domain.Java)

	assert.Equal(t, domain.CategoryTimeout, res.Category)
	assert.EqualValues(t, 1, sess.closed.Load())
}

func TestGovernor_DeadlineDoesNotWaitForSocket(t *testing.T) {
	release := make(chan struct{})
	sess := &fakeSession{response: "Added Steve to the whitelist", release: release}
	g := NewGovernor(&fakeDialer{session: sess}, WithTimeouts(20*time.Millisecond, 30*time.Millisecond))

	start := time.Now()
	res := g.Run(context.Background(), survival, "whitelist add Steve", domain.Java)

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, res.Succeeded)
	assert.Equal(t, domain.CategoryTimeout, res.Category)
	assert.Empty(t, res.Response, "late response must never be reported")

	// The abandoned session is closed in the background while still blocked.
	require.Eventually(t, func() bool { return sess.closed.Load() >= 1 }, time.Second, 5*time.Millisecond)

	close(release)
	require.Eventually(t, func() bool { return sess.closed.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestGovernor_PerTargetTimeouts(t *testing.T) {
	g := NewGovernor(&fakeDialer{})
	assert.Equal(t, 15*time.Second, g.Budget(survival))

	slow := survival
	slow.ConnectTimeout = 2 * time.Second
	slow.CommandTimeout = time.Second
	assert.Equal(t, 3*time.Second, g.Budget(slow))
}

func TestGovernor_ParentCanceled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	sess := &fakeSession{release: release}
	g := NewGovernor(&fakeDialer{session: sess})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	res := g.Run(ctx, survival, "whitelist add Steve", domain.Java)
	assert.Equal(t, domain.CategoryUnknown, res.Category)
	assert.Equal(t, "canceled", res.Detail)
}

func TestGovernor_TargetMarkersOverrideDefault(t *testing.T) {
	target := survival
	target.FailureMarkers = []domain.ResponseMarker{{Text: "nicht gefunden", Message: "player unknown"}}

	g := NewGovernor(&fakeDialer{session: &fakeSession{response: "Spieler nicht gefunden"}})
	res := g.Run(context.Background(), target, "whitelist remove Steve", domain.Java)
	assert.Equal(t, domain.CategorySemanticFailure, res.Category)
	assert.Equal(t, "player unknown", res.Detail)

	g = NewGovernor(&fakeDialer{session: &fakeSession{response: "Unknown command"}})
	res = g.Run(context.Background(), target, "whitelist remove Steve", domain.Java)
	assert.True(t, res.Succeeded, "default markers replaced by the target's own")
}

func TestGovernor_BlankTargetMarkersKeepDefaults(t *testing.T) {
	target := survival
	target.FailureMarkers = []domain.ResponseMarker{{Text: ""}}

	g := NewGovernor(&fakeDialer{session: &fakeSession{response: "Unknown command"}})
	res := g.Run(context.Background(), target, "whitelist add Steve", domain.Java)
	assert.Equal(t, domain.CategorySemanticFailure, res.Category)
	assert.Equal(t, "unrecognized command", res.Detail)
}

func TestGovernor_Bedrock(t *testing.T) {
	g := NewGovernor(&fakeDialer{session: &fakeSession{response: "Unknown command: fwhitelist"}})

	res := g.Run(context.Background(), survival, "fwhitelist add Steve", domain.Bedrock)
	assert.Equal(t, domain.CategorySemanticFailure, res.Category)
	assert.Equal(t, "target lacks support for this player platform", res.Detail)
}
