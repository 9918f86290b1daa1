package telegram

import (
	"fmt"
	"strings"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

func categoryLabel(c domain.ErrorCategory) string {
	switch c {
	case domain.CategoryConfiguration:
		return "server misconfigured"
	case domain.CategoryConnectionRefused:
		return "connection failed"
	case domain.CategoryTimeout:
		return "timed out"
	case domain.CategoryAuthenticationFailed:
		return "authentication failed"
	case domain.CategorySemanticFailure:
		return "command rejected"
	default:
		return "error"
	}
}

// describeFailure renders a failed result as one line for chat.
func describeFailure(res domain.ExecutionResult) string {
	if res.Detail == "" {
		return categoryLabel(res.Category)
	}
	return categoryLabel(res.Category) + ": " + res.Detail
}

// formatReport renders an aggregate run, successes first, in the order the
// targets were given.
func formatReport(verb, player string, targets []domain.TargetConfig, report domain.AggregateReport) string {
	labels := make(map[string]string, len(targets))
	for _, t := range targets {
		labels[t.Name] = t.Label()
	}
	label := func(name string) string {
		if l, ok := labels[name]; ok {
			return l
		}
		return name
	}

	var sb strings.Builder
	if ok := report.Succeeded(); len(ok) > 0 {
		fmt.Fprintf(&sb, "✅ %s %s on:\n", verb, player)
		for _, r := range ok {
			fmt.Fprintf(&sb, "• %s\n", label(r.Target))
		}
	}
	if failed := report.Failed(); len(failed) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("❌ Failed on:\n")
		for _, r := range failed {
			fmt.Fprintf(&sb, "• %s: %s\n", label(r.Target), describeFailure(r))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
