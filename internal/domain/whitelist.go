package domain

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Platform identifies the player-identity system of a Minecraft account.
type Platform string

const (
	// Java accounts carry a stable UUID.
	Java Platform = "java"
	// Bedrock accounts join through a bridge and have no stable external id.
	Bedrock Platform = "bedrock"
)

func (p Platform) String() string { return string(p) }

// Title returns the edition name shown to users.
func (p Platform) Title() string {
	if p == Bedrock {
		return "Bedrock Edition"
	}
	return "Java Edition"
}

func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case Java, Bedrock:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// ActionKind is the whitelist operation to run on a target.
type ActionKind string

const (
	ActionAdd    ActionKind = "add"
	ActionRemove ActionKind = "remove"
	ActionKick   ActionKind = "kick"
)

func (k ActionKind) String() string { return string(k) }

// ActionRequest describes one player-level action. ExternalID is the Java
// UUID (or Floodgate UUID for Bedrock) and may be empty.
type ActionRequest struct {
	Kind       ActionKind
	Platform   Platform
	Identity   string
	ExternalID string
}

// ResponseMarker is a lower-case substring that marks an RCON response as a
// command-level failure. An empty Message means the cleaned response itself
// is reported.
type ResponseMarker struct {
	Text           string `yaml:"text"`
	Message        string `yaml:"message"`
	BedrockMessage string `yaml:"bedrock_message"`
}

// TargetConfig is one Minecraft server reachable over RCON.
type TargetConfig struct {
	Name        string
	DisplayName string
	Host        string
	Port        uint16
	Password    string

	// Commands maps an action and platform to a command template.
	Commands map[ActionKind]map[Platform]string

	// BedrockPrefix is prepended to Bedrock player names by the whitelist
	// bridge (Floodgate uses ".").
	BedrockPrefix string

	AllowedChats   []int64
	FailureMarkers []ResponseMarker

	// Zero values fall back to the governor defaults.
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

// Addr returns host:port for dialing.
func (t TargetConfig) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

// Label is the display name, or the id when none is configured.
func (t TargetConfig) Label() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.Name
}

// Template returns the command template for an action, if configured.
func (t TargetConfig) Template(kind ActionKind, platform Platform) (string, bool) {
	byPlatform, ok := t.Commands[kind]
	if !ok {
		return "", false
	}
	tmpl, ok := byPlatform[platform]
	if !ok || tmpl == "" {
		return "", false
	}
	return tmpl, true
}

// AllowsChat reports whether the server may be managed from a chat. A server
// without an allow-list is available everywhere.
func (t TargetConfig) AllowsChat(chatID int64) bool {
	if len(t.AllowedChats) == 0 {
		return true
	}
	for _, id := range t.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}
