package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

// Defaults for servers that do not configure their own remove or kick commands.
const (
	DefaultRemoveJava    = "whitelist remove {username}"
	DefaultRemoveBedrock = "fwhitelist remove {gamertag}"
	DefaultKick          = "kick {username} You have been removed from the whitelist"
	DefaultBedrockPrefix = "."
)

type serversFile struct {
	Servers []serverEntry `yaml:"servers"`
}

type serverEntry struct {
	ID             string                       `yaml:"id"`
	DisplayName    string                       `yaml:"display_name"`
	Host           string                       `yaml:"host"`
	Port           int                          `yaml:"port"`
	Password       string                       `yaml:"password"`
	PasswordFile   string                       `yaml:"password_file"`
	AllowedChats   []int64                      `yaml:"allowed_chats"`
	BedrockPrefix  *string                      `yaml:"bedrock_prefix"`
	Commands       map[string]map[string]string `yaml:"commands"`
	FailureMarkers []domain.ResponseMarker      `yaml:"failure_markers"`
	ConnectTimeout time.Duration                `yaml:"connect_timeout"`
	CommandTimeout time.Duration                `yaml:"command_timeout"`
}

// LoadServers reads and validates the servers file. The returned order
// matches the file.
func LoadServers(path string) ([]domain.TargetConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("servers file %s not found: create it with your server configuration", path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading servers file: %w", err)
	}

	var file serversFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing servers file: %w", err)
	}
	if len(file.Servers) == 0 {
		return nil, fmt.Errorf("servers file %s lists no servers", path)
	}

	seen := make(map[string]bool, len(file.Servers))
	targets := make([]domain.TargetConfig, 0, len(file.Servers))
	for i, entry := range file.Servers {
		target, err := entry.target(filepath.Dir(path))
		if err != nil {
			name := entry.ID
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return nil, fmt.Errorf("server %s: %w", name, err)
		}
		if seen[target.Name] {
			return nil, fmt.Errorf("server %s: duplicate id", target.Name)
		}
		seen[target.Name] = true
		targets = append(targets, target)
	}
	return targets, nil
}

func (e serverEntry) target(baseDir string) (domain.TargetConfig, error) {
	var missing []string
	if e.ID == "" {
		missing = append(missing, "id")
	}
	if e.Host == "" {
		missing = append(missing, "host")
	}
	if e.Port == 0 {
		missing = append(missing, "port")
	}
	if e.Password == "" && e.PasswordFile == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return domain.TargetConfig{}, fmt.Errorf("missing required RCON configuration: %s", strings.Join(missing, ", "))
	}
	if e.Port < 1 || e.Port > 65535 {
		return domain.TargetConfig{}, fmt.Errorf("port %d out of range", e.Port)
	}

	password := e.Password
	if e.PasswordFile != "" {
		p := e.PasswordFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return domain.TargetConfig{}, fmt.Errorf("reading password file: %w", err)
		}
		password = strings.TrimSpace(string(raw))
	}

	for i, m := range e.FailureMarkers {
		if strings.TrimSpace(m.Text) == "" {
			return domain.TargetConfig{}, fmt.Errorf("failure_markers[%d]: text is empty", i)
		}
	}

	commands, err := parseCommands(e.Commands)
	if err != nil {
		return domain.TargetConfig{}, err
	}
	if len(commands[domain.ActionAdd]) == 0 {
		return domain.TargetConfig{}, fmt.Errorf("missing whitelist add command configuration")
	}
	setDefault(commands, domain.ActionRemove, domain.Java, DefaultRemoveJava)
	setDefault(commands, domain.ActionRemove, domain.Bedrock, DefaultRemoveBedrock)
	setDefault(commands, domain.ActionKick, domain.Java, DefaultKick)
	setDefault(commands, domain.ActionKick, domain.Bedrock, DefaultKick)

	prefix := DefaultBedrockPrefix
	if e.BedrockPrefix != nil {
		prefix = *e.BedrockPrefix
	}

	return domain.TargetConfig{
		Name:           e.ID,
		DisplayName:    e.DisplayName,
		Host:           e.Host,
		Port:           uint16(e.Port),
		Password:       password,
		Commands:       commands,
		BedrockPrefix:  prefix,
		AllowedChats:   e.AllowedChats,
		FailureMarkers: e.FailureMarkers,
		ConnectTimeout: e.ConnectTimeout,
		CommandTimeout: e.CommandTimeout,
	}, nil
}

func parseCommands(raw map[string]map[string]string) (map[domain.ActionKind]map[domain.Platform]string, error) {
	out := make(map[domain.ActionKind]map[domain.Platform]string)
	for action, byPlatform := range raw {
		kind := domain.ActionKind(action)
		switch kind {
		case domain.ActionAdd, domain.ActionRemove, domain.ActionKick:
		default:
			return nil, fmt.Errorf("unknown command action %q", action)
		}
		out[kind] = make(map[domain.Platform]string)
		for platform, tmpl := range byPlatform {
			p, err := domain.ParsePlatform(platform)
			if err != nil {
				return nil, fmt.Errorf("commands.%s: %w", action, err)
			}
			if strings.TrimSpace(tmpl) != "" {
				out[kind][p] = tmpl
			}
		}
	}
	return out, nil
}

// setDefault fills a missing template. An action listed with no templates
// (for example "kick: {}") stays disabled.
func setDefault(commands map[domain.ActionKind]map[domain.Platform]string, kind domain.ActionKind, platform domain.Platform, tmpl string) {
	byPlatform, ok := commands[kind]
	if ok && len(byPlatform) == 0 {
		return
	}
	if !ok {
		byPlatform = make(map[domain.Platform]string)
		commands[kind] = byPlatform
	}
	if _, set := byPlatform[platform]; !set {
		byPlatform[platform] = tmpl
	}
}
