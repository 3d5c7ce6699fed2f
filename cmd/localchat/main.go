package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"localchat/internal/config"
	"localchat/internal/domain"
	"localchat/internal/logger"
	"localchat/internal/poll"
	"localchat/internal/service"
	"localchat/internal/store/bolt"
	"localchat/internal/store/sqlite"
	"localchat/internal/store/unavailable"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	l := logger.New(cfg.LogLevel)

	store, closeStore := openStore(cfg, l)
	defer closeStore()

	identity := service.NewIdentity(store.Users, store.Sessions, l)
	conversation := service.NewConversation(store.Users, store.Chats, store.Messages, l)
	poller := poll.NewPoller(conversation, cfg.Poll.Interval, l)

	ctx := context.Background()
	if u, err := identity.Init(ctx); err != nil {
		l.Error("failed to restore session", "error", err.Error())
	} else if u != nil {
		fmt.Printf("welcome back, %s\n", u.Username)
	}

	runLoop(ctx, os.Stdin, identity, conversation, poller)
}

// openStore opens the configured backend. When storage cannot be opened the
// unavailable store takes its place: reads see an empty database and writes
// report the missing capability instead of crashing.
func openStore(cfg *config.Config, l *logger.Logger) (domain.Store, func()) {
	noop := func() {}
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		path := filepath.Join(cfg.Store.DataDir, cfg.Store.FileName)
		db, err := sqlite.Open(path)
		if err != nil {
			l.Error("sqlite unavailable, continuing without storage", "path", path, "error", err.Error())
			return unavailable.NewStore(), noop
		}
		if err := sqlite.Migrate(db); err != nil {
			l.Error("sqlite migration failed, continuing without storage", "error", err.Error())
			db.Close()
			return unavailable.NewStore(), noop
		}
		return sqlite.NewStore(db), func() { db.Close() }
	case config.DriverBolt:
		path := filepath.Join(cfg.Store.DataDir, cfg.Store.FileName)
		db, err := bolt.Open(path)
		if err != nil {
			l.Error("bolt unavailable, continuing without storage", "path", path, "error", err.Error())
			return unavailable.NewStore(), noop
		}
		return bolt.NewStore(db), func() { db.Close() }
	default:
		return unavailable.NewStore(), noop
	}
}

func runLoop(ctx context.Context, in io.Reader, identity *service.Identity, conversation *service.Conversation, poller *poll.Poller) {
	var (
		activeChat  *domain.Chat
		activeWatch *poll.Watch
		shown       int
	)
	stopWatch := func() {
		if activeWatch != nil {
			activeWatch.Stop()
			activeWatch = nil
		}
	}
	defer stopWatch()

	fmt.Println("commands: register, login, logout, whoami, search, chats, open, send, read, quit")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "quit", "exit":
			return

		case "register":
			if len(args) < 2 {
				fmt.Println("usage: register <username> <password> [email]")
				continue
			}
			var email *string
			if len(args) > 2 {
				email = &args[2]
			}
			u, err := identity.Register(ctx, args[0], args[1], email)
			if reportErr(err) {
				continue
			}
			fmt.Printf("registered and signed in as %s (id %d)\n", u.Username, u.ID)

		case "login":
			if len(args) != 2 {
				fmt.Println("usage: login <username> <password>")
				continue
			}
			u, err := identity.Login(ctx, args[0], args[1])
			if reportErr(err) {
				continue
			}
			fmt.Printf("signed in as %s\n", u.Username)

		case "logout":
			stopWatch()
			activeChat = nil
			if !reportErr(identity.Logout(ctx)) {
				fmt.Println("signed out")
			}

		case "whoami":
			u, err := identity.CurrentUser(ctx)
			if reportErr(err) {
				continue
			}
			if u == nil {
				fmt.Println("not signed in")
			} else {
				fmt.Printf("%s (id %d, last seen %s)\n", u.Username, u.ID, u.LastSeen.Format("15:04:05"))
			}

		case "search":
			if len(args) != 1 {
				fmt.Println("usage: search <query>")
				continue
			}
			users, err := identity.SearchUsers(ctx, args[0])
			if reportErr(err) {
				continue
			}
			for _, u := range users {
				fmt.Printf("  %s (id %d)\n", u.Username, u.ID)
			}

		case "chats":
			me, ok := requireUser(ctx, identity)
			if !ok {
				continue
			}
			summaries, err := conversation.ListChatsFor(ctx, me.ID)
			if reportErr(err) {
				continue
			}
			for _, s := range summaries {
				peer := "unknown"
				if s.Peer != nil {
					peer = s.Peer.Username
				}
				last := ""
				if s.Chat.LastMessage != nil {
					last = *s.Chat.LastMessage
				}
				fmt.Printf("  [%d] %s: %s\n", s.Chat.ID, peer, last)
			}

		case "open":
			if len(args) != 1 {
				fmt.Println("usage: open <username>")
				continue
			}
			me, ok := requireUser(ctx, identity)
			if !ok {
				continue
			}
			target, err := findByUsername(ctx, identity, args[0])
			if reportErr(err) {
				continue
			}
			chat, err := conversation.FindOrCreateChat(ctx, me.ID, target.ID)
			if reportErr(err) {
				continue
			}
			stopWatch()
			activeChat = chat
			shown = 0
			if err := conversation.MarkRead(ctx, chat.ID, me.ID); err != nil {
				reportErr(err)
			}
			activeWatch = poller.Watch(ctx, chat.ID, func(msgs []*domain.Message) {
				for _, m := range msgs[min(shown, len(msgs)):] {
					fmt.Printf("  [%s] %d: %s\n", m.Timestamp.Format("15:04:05"), m.SenderID, m.Body)
				}
				shown = len(msgs)
			}, nil)

		case "send":
			if activeChat == nil {
				fmt.Println("open a chat first")
				continue
			}
			me, ok := requireUser(ctx, identity)
			if !ok {
				continue
			}
			_, err := conversation.SendMessage(ctx, activeChat.ID, me.ID, strings.Join(args, " "))
			reportErr(err)

		case "read":
			if activeChat == nil {
				fmt.Println("open a chat first")
				continue
			}
			me, ok := requireUser(ctx, identity)
			if !ok {
				continue
			}
			reportErr(conversation.MarkRead(ctx, activeChat.ID, me.ID))

		default:
			fmt.Printf("unknown command %q\n", cmd)
		}
	}
}

func requireUser(ctx context.Context, identity *service.Identity) (*domain.User, bool) {
	u, err := identity.CurrentUser(ctx)
	if reportErr(err) {
		return nil, false
	}
	if u == nil {
		fmt.Println("sign in first")
		return nil, false
	}
	return u, true
}

func findByUsername(ctx context.Context, identity *service.Identity, username string) (*domain.User, error) {
	matches, err := identity.SearchUsers(ctx, username)
	if err != nil {
		return nil, err
	}
	for _, u := range matches {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, fmt.Errorf("username %q: %w", username, domain.ErrNotFound)
}

func reportErr(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrAuth):
		fmt.Println(err)
	case errors.Is(err, domain.ErrStorageUnavailable):
		fmt.Println("persistent storage is unavailable in this environment")
	default:
		fmt.Printf("unexpected error: %v\n", err)
	}
	return true
}
