package telegram

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/danyaalu/whitelist-bot/internal/domain"
	"github.com/danyaalu/whitelist-bot/internal/profile"
	"github.com/danyaalu/whitelist-bot/internal/store"
)

// Whitelister runs one action on one server. *whitelist.Orchestrator satisfies it.
type Whitelister interface {
	Perform(ctx context.Context, target domain.TargetConfig, req domain.ActionRequest) domain.ExecutionResult
}

// MultiWhitelister runs one action on many servers. *whitelist.Aggregator satisfies it.
type MultiWhitelister interface {
	PerformAll(ctx context.Context, targets []domain.TargetConfig, req domain.ActionRequest) domain.AggregateReport
}

// ProfileResolver looks players up. *profile.Client satisfies it.
type ProfileResolver interface {
	Java(ctx context.Context, username string) (profile.JavaProfile, error)
	Bedrock(ctx context.Context, gamertag string) (profile.BedrockProfile, error)
}

// EntryStore persists whitelist records. *store.Whitelist satisfies it.
type EntryStore interface {
	Get(ctx context.Context, userID int64, serverID string) (store.Entry, error)
	Add(ctx context.Context, e store.Entry) error
	Remove(ctx context.Context, userID int64, serverID string) error
	ListByUser(ctx context.Context, userID int64) ([]store.Entry, error)
}

// StatusChecker describes server reachability. *status.Checker satisfies it.
type StatusChecker interface {
	Check(ctx context.Context, target domain.TargetConfig) string
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot is the Telegram bot that manages server whitelists
type Bot struct {
	api          *tgbotapi.BotAPI
	sender       sender
	allowedUsers map[int64]struct{}
	servers      []domain.TargetConfig
	whitelist    Whitelister
	aggregator   MultiWhitelister
	profiles     ProfileResolver
	store        EntryStore
	status       StatusChecker
	logger       *slog.Logger

	userLocks sync.Map // int64 -> *sync.Mutex
}

// Config holds all dependencies needed to build a Bot
type Config struct {
	Token        string
	AllowedUsers map[int64]struct{}
	Servers      []domain.TargetConfig
	Whitelist    Whitelister
	Aggregator   MultiWhitelister
	Profiles     ProfileResolver
	Store        EntryStore
	Status       StatusChecker
	Logger       *slog.Logger
}

func NewBot(cfg Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	b := newBot(api, cfg)
	b.api = api
	return b, nil
}

func newBot(s sender, cfg Config) *Bot {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "telegram")
	}
	return &Bot{
		sender:       s,
		allowedUsers: cfg.AllowedUsers,
		servers:      cfg.Servers,
		whitelist:    cfg.Whitelist,
		aggregator:   cfg.Aggregator,
		profiles:     cfg.Profiles,
		store:        cfg.Store,
		status:       cfg.Status,
		logger:       logger,
	}
}

// Start long-polls for Telegram updates until ctx is done. Each update is
// handled on its own goroutine; updates from the same user are serialised.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started", "username", b.api.Self.UserName)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

// isAllowedUser admits everyone when no allow-list is configured.
func (b *Bot) isAllowedUser(userID int64) bool {
	if len(b.allowedUsers) == 0 {
		return true
	}
	_, ok := b.allowedUsers[userID]
	return ok
}

// lockUser serialises commands from one user so a double-tapped command
// cannot whitelist twice.
func (b *Bot) lockUser(userID int64) func() {
	v, _ := b.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// serversForChat lists the servers that may be managed from a chat, in config order.
func (b *Bot) serversForChat(chatID int64) []domain.TargetConfig {
	var out []domain.TargetConfig
	for _, s := range b.servers {
		if s.AllowsChat(chatID) {
			out = append(out, s)
		}
	}
	return out
}

func (b *Bot) serverForChat(chatID int64, id string) (domain.TargetConfig, bool) {
	for _, s := range b.serversForChat(chatID) {
		if s.Name == id {
			return s, true
		}
	}
	return domain.TargetConfig{}, false
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Warn("reply failed", "chat", chatID, "error", err)
	}
}
