package whitelist

import (
	"context"
	"strings"
	"sync"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

// scriptedDialer plays a fake RCON server per target name.
type scriptedDialer struct {
	mu       sync.Mutex
	dials    int
	commands []string
	// dialErr fails Dial for a target; replies answers commands by prefix.
	dialErr map[string]error
	replies map[string]map[string]string
}

func newScriptedDialer() *scriptedDialer {
	return &scriptedDialer{dialErr: map[string]error{}, replies: map[string]map[string]string{}}
}

func (d *scriptedDialer) reply(target, prefix, response string) *scriptedDialer {
	if d.replies[target] == nil {
		d.replies[target] = map[string]string{}
	}
	d.replies[target][prefix] = response
	return d
}

func (d *scriptedDialer) Dial(_ context.Context, target domain.TargetConfig) (domain.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if err := d.dialErr[target.Name]; err != nil {
		return nil, err
	}
	return &scriptedSession{dialer: d, target: target.Name}, nil
}

func (d *scriptedDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *scriptedDialer) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

type scriptedSession struct {
	dialer *scriptedDialer
	target string
}

func (s *scriptedSession) Execute(command string) (string, error) {
	d := s.dialer
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, s.target+": "+command)
	for prefix, response := range d.replies[s.target] {
		if strings.HasPrefix(command, prefix) {
			return response, nil
		}
	}
	return "", nil
}

func (s *scriptedSession) Close() error { return nil }

func testTarget(name string) domain.TargetConfig {
	return domain.TargetConfig{
		Name:          name,
		Host:          "127.0.0.1",
		Port:          25575,
		Password:      "pw",
		BedrockPrefix: ".",
		Commands: map[domain.ActionKind]map[domain.Platform]string{
			domain.ActionAdd: {
				domain.Java:    "whitelist add {username}",
				domain.Bedrock: "fwhitelist add {gamertag}",
			},
			domain.ActionRemove: {
				domain.Java:    "whitelist remove {username}",
				domain.Bedrock: "fwhitelist remove {gamertag}",
			},
			domain.ActionKick: {
				domain.Java:    "kick {username} Removed from whitelist",
				domain.Bedrock: "kick {username} Removed from whitelist",
			},
		},
	}
}
