package whitelist

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

// Placeholders understood in command templates.
const (
	PlaceholderUsername = "{username}"
	PlaceholderGamertag = "{gamertag}"
	PlaceholderUUID     = "{uuid}"
)

var (
	ErrNoTemplate         = errors.New("no command template configured")
	ErrMissingExternalID  = errors.New("command template requires a player UUID")
	ErrUnknownPlaceholder = errors.New("unknown placeholder in command template")
	ErrEmptyIdentity      = errors.New("player name is empty")
	ErrInvalidIdentity    = errors.New("player name contains characters not allowed in a command")
)

var placeholderPattern = regexp.MustCompile(`\{[A-Za-z_]+\}`)

// Command selects the target's template for req and renders it.
func Command(target domain.TargetConfig, req domain.ActionRequest) (string, error) {
	tmpl, ok := target.Template(req.Kind, req.Platform)
	if !ok {
		return "", fmt.Errorf("%w: %s %s on %s", ErrNoTemplate, req.Kind, req.Platform, target.Name)
	}
	return Render(tmpl, target.BedrockPrefix, req)
}

// RequiresExternalID reports whether the target's template for kind needs
// a UUID to render.
func RequiresExternalID(target domain.TargetConfig, kind domain.ActionKind, platform domain.Platform) bool {
	tmpl, ok := target.Template(kind, platform)
	return ok && strings.Contains(tmpl, PlaceholderUUID)
}

// PlayerName is the name the server sees. Bedrock players joining through
// the bridge carry its prefix, and Floodgate replaces spaces in their
// gamertag with underscores.
func PlayerName(identity, bedrockPrefix string, platform domain.Platform) string {
	if platform != domain.Bedrock {
		return identity
	}
	name := strings.ReplaceAll(identity, " ", "_")
	if bedrockPrefix == "" || strings.HasPrefix(name, bedrockPrefix) {
		return name
	}
	return bedrockPrefix + name
}

// Render substitutes placeholders in tmpl. It is pure: the same inputs
// always give the same command, and the result never contains a placeholder.
func Render(tmpl, bedrockPrefix string, req domain.ActionRequest) (string, error) {
	identity := strings.TrimSpace(req.Identity)
	if identity == "" {
		return "", ErrEmptyIdentity
	}

	if !commandSafe(identity) || !commandSafe(req.ExternalID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}

	for _, token := range placeholderPattern.FindAllString(tmpl, -1) {
		switch token {
		case PlaceholderUsername, PlaceholderGamertag, PlaceholderUUID:
		default:
			return "", fmt.Errorf("%w: %s", ErrUnknownPlaceholder, token)
		}
	}

	name := PlayerName(identity, bedrockPrefix, req.Platform)

	externalID := req.ExternalID
	if externalID == "" && strings.Contains(tmpl, PlaceholderUUID) {
		if req.Kind == domain.ActionAdd {
			return "", fmt.Errorf("%w: %s", ErrMissingExternalID, identity)
		}
		externalID = name
	}

	gamertag := strings.TrimPrefix(identity, bedrockPrefix)
	if req.Platform != domain.Bedrock || bedrockPrefix == "" {
		gamertag = identity
	}

	r := strings.NewReplacer(
		PlaceholderUsername, name,
		PlaceholderGamertag, gamertag,
		PlaceholderUUID, externalID,
	)
	return strings.TrimSpace(r.Replace(tmpl)), nil
}

// commandSafe rejects values that could leave a placeholder in the rendered
// command or split it across lines.
func commandSafe(v string) bool {
	return !strings.ContainsFunc(v, func(r rune) bool {
		return r == '{' || r == '}' || unicode.IsControl(r)
	})
}
