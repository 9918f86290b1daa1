package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/danyaalu/whitelist-bot/internal/domain"
	"github.com/danyaalu/whitelist-bot/internal/profile"
	"github.com/danyaalu/whitelist-bot/internal/store"
	"github.com/danyaalu/whitelist-bot/internal/whitelist"
)

const allServers = "all"

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !update.Message.IsCommand() {
		return
	}

	if !b.isAllowedUser(userID) {
		b.reply(chatID, "⛔ You are not allowed to use this bot")
		return
	}

	args := strings.TrimSpace(update.Message.CommandArguments())

	unlock := b.lockUser(userID)
	defer unlock()

	switch update.Message.Command() {

	case "start", "help":
		b.handleHelp(chatID)

	case "servers":
		b.handleServers(ctx, chatID)

	case "add_java":
		b.handleAdd(ctx, chatID, userID, domain.Java, args)

	case "add_bedrock":
		b.handleAdd(ctx, chatID, userID, domain.Bedrock, args)

	case "remove":
		b.handleRemove(ctx, chatID, userID, args)

	case "mywhitelist":
		b.handleMyWhitelist(ctx, chatID, userID)
	}
}

// ── help ─────────────────────────────────────────────────────────────────────

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `⛏ Whitelist Bot

/servers - servers available in this chat
/add_java <server|all> <username> - whitelist a Java Edition player
/add_bedrock <server|all> <gamertag> - whitelist a Bedrock Edition player
/remove <server> - remove yourself from a server's whitelist
/mywhitelist - servers you are whitelisted on`)
}

// ── servers ──────────────────────────────────────────────────────────────────

func (b *Bot) handleServers(ctx context.Context, chatID int64) {
	servers := b.serversForChat(chatID)
	if len(servers) == 0 {
		b.reply(chatID, "No servers are available in this chat")
		return
	}

	var sb strings.Builder
	sb.WriteString("🖥 Servers:\n")
	for _, s := range servers {
		fmt.Fprintf(&sb, "• %s (%s) %s\n", s.Label(), s.Name, b.status.Check(ctx, s))
	}
	b.reply(chatID, strings.TrimRight(sb.String(), "\n"))
}

// ── add ──────────────────────────────────────────────────────────────────────

func (b *Bot) handleAdd(ctx context.Context, chatID, userID int64, platform domain.Platform, args string) {
	command, noun := "/add_java", "username"
	if platform == domain.Bedrock {
		command, noun = "/add_bedrock", "gamertag"
	}

	serverArg, name, ok := strings.Cut(args, " ")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		b.reply(chatID, fmt.Sprintf("Usage: %s <server|all> <%s>", command, noun))
		return
	}

	if !validName(platform, name) {
		b.reply(chatID, fmt.Sprintf("❌ %q is not a valid %s %s", name, platform.Title(), noun))
		return
	}

	var targets []domain.TargetConfig
	if strings.EqualFold(serverArg, allServers) {
		pending, err := b.pendingServers(ctx, chatID, userID)
		if err != nil {
			b.replyInternalError(chatID, "list whitelist entries", err)
			return
		}
		if len(pending) == 0 {
			b.reply(chatID, "You are already whitelisted on every server available in this chat")
			return
		}
		targets = pending
	} else {
		target, ok := b.serverForChat(chatID, serverArg)
		if !ok {
			b.reply(chatID, fmt.Sprintf("❌ Unknown server %q. Use /servers to see the list", serverArg))
			return
		}
		entry, err := b.store.Get(ctx, userID, target.Name)
		switch {
		case err == nil:
			b.reply(chatID, fmt.Sprintf("You are already whitelisted on %s as %s. Use /remove %s first",
				target.Label(), entry.Username, target.Name))
			return
		case !errors.Is(err, store.ErrNotFound):
			b.replyInternalError(chatID, "read whitelist entry", err)
			return
		}
		targets = []domain.TargetConfig{target}
	}

	req, err := b.resolvePlayer(ctx, platform, name, targets)
	if err != nil {
		b.reply(chatID, "❌ "+lookupMessage(err))
		return
	}

	b.reply(chatID, fmt.Sprintf("⏳ Adding %s to %s...", req.Identity, describeTargets(targets)))

	var report domain.AggregateReport
	if len(targets) == 1 {
		report.Results = []domain.ExecutionResult{b.whitelist.Perform(ctx, targets[0], req)}
	} else {
		report = b.aggregator.PerformAll(ctx, targets, req)
	}

	for _, res := range report.Succeeded() {
		b.record(ctx, userID, res.Target, req)
	}

	if len(targets) == 1 {
		res := report.Results[0]
		if res.Succeeded {
			b.reply(chatID, fmt.Sprintf("✅ %s has been whitelisted on %s", req.Identity, targets[0].Label()))
		} else {
			b.reply(chatID, fmt.Sprintf("❌ Could not whitelist %s on %s: %s",
				req.Identity, targets[0].Label(), describeFailure(res)))
		}
		return
	}
	b.reply(chatID, formatReport("Whitelisted", req.Identity, targets, report))
}

// pendingServers lists the chat's servers the user holds no entry on.
func (b *Bot) pendingServers(ctx context.Context, chatID, userID int64) ([]domain.TargetConfig, error) {
	entries, err := b.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		have[e.ServerID] = struct{}{}
	}

	var out []domain.TargetConfig
	for _, s := range b.serversForChat(chatID) {
		if _, ok := have[s.Name]; !ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// resolvePlayer builds the add request. Java names are always looked up for
// their canonical spelling and UUID; Bedrock gamertags only when a target
// template needs the Floodgate UUID.
func (b *Bot) resolvePlayer(ctx context.Context, platform domain.Platform, name string, targets []domain.TargetConfig) (domain.ActionRequest, error) {
	req := domain.ActionRequest{Kind: domain.ActionAdd, Platform: platform, Identity: name}

	if platform == domain.Java {
		p, err := b.profiles.Java(ctx, name)
		if err != nil {
			return req, err
		}
		req.Identity = p.Username
		req.ExternalID = p.UUID
		return req, nil
	}

	for _, t := range targets {
		if whitelist.RequiresExternalID(t, domain.ActionAdd, domain.Bedrock) {
			p, err := b.profiles.Bedrock(ctx, name)
			if err != nil {
				return req, err
			}
			if p.Gamertag != "" {
				req.Identity = p.Gamertag
			}
			req.ExternalID = p.FloodgateUUID
			break
		}
	}
	return req, nil
}

func (b *Bot) record(ctx context.Context, userID int64, serverID string, req domain.ActionRequest) {
	err := b.store.Add(ctx, store.Entry{
		UserID:     userID,
		ServerID:   serverID,
		Platform:   req.Platform,
		Username:   req.Identity,
		ExternalID: req.ExternalID,
	})
	if err != nil {
		b.logger.Error("record whitelist entry", "user", userID, "server", serverID, "error", err)
	}
}

// ── remove ───────────────────────────────────────────────────────────────────

func (b *Bot) handleRemove(ctx context.Context, chatID, userID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /remove <server>")
		return
	}

	target, ok := b.serverForChat(chatID, args)
	if !ok {
		b.reply(chatID, fmt.Sprintf("❌ Unknown server %q. Use /servers to see the list", args))
		return
	}

	entry, err := b.store.Get(ctx, userID, target.Name)
	if errors.Is(err, store.ErrNotFound) {
		b.reply(chatID, fmt.Sprintf("You are not whitelisted on %s", target.Label()))
		return
	}
	if err != nil {
		b.replyInternalError(chatID, "read whitelist entry", err)
		return
	}

	b.reply(chatID, fmt.Sprintf("⏳ Removing %s from %s...", entry.Username, target.Label()))

	res := b.whitelist.Perform(ctx, target, domain.ActionRequest{
		Kind:       domain.ActionRemove,
		Platform:   entry.Platform,
		Identity:   entry.Username,
		ExternalID: entry.ExternalID,
	})
	if !res.Succeeded {
		b.reply(chatID, fmt.Sprintf("❌ Could not remove %s from %s: %s\nYour entry has been kept.",
			entry.Username, target.Label(), describeFailure(res)))
		return
	}

	if err := b.store.Remove(ctx, userID, target.Name); err != nil && !errors.Is(err, store.ErrNotFound) {
		b.logger.Error("delete whitelist entry", "user", userID, "server", target.Name, "error", err)
	}
	b.reply(chatID, fmt.Sprintf("✅ %s has been removed from %s", entry.Username, target.Label()))
}

// ── my whitelist ─────────────────────────────────────────────────────────────

func (b *Bot) handleMyWhitelist(ctx context.Context, chatID, userID int64) {
	entries, err := b.store.ListByUser(ctx, userID)
	if err != nil {
		b.replyInternalError(chatID, "list whitelist entries", err)
		return
	}
	if len(entries) == 0 {
		b.reply(chatID, "You are not whitelisted on any server")
		return
	}

	labels := make(map[string]string, len(b.servers))
	for _, s := range b.servers {
		labels[s.Name] = s.Label()
	}

	var sb strings.Builder
	sb.WriteString("📋 Your whitelist:\n")
	for _, e := range entries {
		label, ok := labels[e.ServerID]
		if !ok {
			label = e.ServerID + " (no longer configured)"
		}
		fmt.Fprintf(&sb, "• %s: %s (%s)\n", label, e.Username, e.Platform.Title())
	}
	b.reply(chatID, strings.TrimRight(sb.String(), "\n"))
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (b *Bot) replyInternalError(chatID int64, op string, err error) {
	b.logger.Error(op, "chat", chatID, "error", err)
	b.reply(chatID, "❌ Internal error, please try again later")
}

func validName(platform domain.Platform, name string) bool {
	if platform == domain.Bedrock {
		return profile.ValidGamertag(name)
	}
	return profile.ValidUsername(name)
}

func lookupMessage(err error) string {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return "Player not found. Please check the spelling"
	case errors.Is(err, profile.ErrRateLimited):
		return "Player lookup is rate limited, please try again in a minute"
	default:
		return "Could not verify the player: " + err.Error()
	}
}

func describeTargets(targets []domain.TargetConfig) string {
	if len(targets) == 1 {
		return targets[0].Label()
	}
	return fmt.Sprintf("%d servers", len(targets))
}
