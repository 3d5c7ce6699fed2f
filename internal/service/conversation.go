package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"localchat/internal/domain"
	"localchat/internal/logger"
)

// Conversation handles chat-thread lookup and creation, message send/fetch,
// and read-marking.
type Conversation struct {
	users    domain.UserStore
	chats    domain.ChatStore
	messages domain.MessageStore
	logger   *logger.Logger
}

func NewConversation(users domain.UserStore, chats domain.ChatStore, messages domain.MessageStore, l *logger.Logger) *Conversation {
	return &Conversation{
		users:    users,
		chats:    chats,
		messages: messages,
		logger:   l,
	}
}

// ChatSummary is a chat joined with the other participant's current user
// record. Peer is nil when the user row cannot be found.
type ChatSummary struct {
	Chat *domain.Chat
	Peer *domain.User
}

// FindOrCreateChat returns the chat between the two users, creating it on
// first contact. Argument order does not matter; at most one chat exists per
// pair under the single-writer model.
func (s *Conversation) FindOrCreateChat(ctx context.Context, userA, userB int64) (*domain.Chat, error) {
	if userA == userB {
		return nil, fmt.Errorf("%w: a chat requires two distinct users", domain.ErrValidation)
	}

	existing, err := s.chats.FindByPair(ctx, userA, userB)
	if err != nil {
		return nil, wrapStore("find chat", err)
	}
	if existing != nil {
		return existing, nil
	}

	chat := &domain.Chat{
		Participants: [2]int64{userA, userB},
		CreatedAt:    time.Now(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, wrapStore("create chat", err)
	}
	s.logger.Info("chat created", "chat_id", chat.ID, "participants", chat.Participants)
	return chat, nil
}

// ListChatsFor returns the user's chats joined with the peer's user record,
// most recent activity first.
func (s *Conversation) ListChatsFor(ctx context.Context, userID int64) ([]*ChatSummary, error) {
	chats, err := s.chats.ListForUser(ctx, userID)
	if err != nil {
		return nil, wrapStore("list chats", err)
	}

	res := make([]*ChatSummary, 0, len(chats))
	for _, c := range chats {
		peer, err := s.users.GetByID(ctx, c.Peer(userID))
		if err != nil {
			return nil, wrapStore("get peer", err)
		}
		res = append(res, &ChatSummary{Chat: c, Peer: peer})
	}

	sort.SliceStable(res, func(i, j int) bool {
		return lastActivity(res[i].Chat).After(lastActivity(res[j].Chat))
	})
	return res, nil
}

// SendMessage appends a message and then refreshes the chat's denormalized
// summary. The two writes are separate transactions: a failure after the
// first leaves a stored message with a stale summary, which readers tolerate.
func (s *Conversation) SendMessage(ctx context.Context, chatID, senderID int64, text string) (*domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message body is empty", domain.ErrValidation)
	}

	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, wrapStore("get chat", err)
	}
	if chat == nil {
		return nil, fmt.Errorf("chat %d: %w", chatID, domain.ErrNotFound)
	}
	if !chat.Has(senderID) {
		return nil, fmt.Errorf("%w: sender %d is not a participant of chat %d", domain.ErrValidation, senderID, chatID)
	}

	msg := &domain.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Body:      text,
		Timestamp: time.Now(),
		Read:      false,
		Delivered: true,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, wrapStore("create message", err)
	}

	if err := s.chats.UpdateLastMessage(ctx, chatID, msg.Body, msg.Timestamp); err != nil {
		// The message is already durable at this point.
		s.logger.Error("chat summary update failed after message insert",
			"chat_id", chatID, "message_id", msg.ID, "error", err.Error())
		return nil, wrapStore("update chat summary", err)
	}
	return msg, nil
}

// ListMessages returns the chat's messages in ascending timestamp order,
// ties broken by id. An unknown chat id yields an empty list.
func (s *Conversation) ListMessages(ctx context.Context, chatID int64) ([]*domain.Message, error) {
	msgs, err := s.messages.ListForChat(ctx, chatID)
	if err != nil {
		return nil, wrapStore("list messages", err)
	}
	return msgs, nil
}

// MarkRead flips the read flag on every unread message in the chat that the
// viewer did not send. Calling it again is a no-op.
func (s *Conversation) MarkRead(ctx context.Context, chatID, viewerID int64) error {
	n, err := s.messages.MarkRead(ctx, chatID, viewerID)
	if err != nil {
		return wrapStore("mark read", err)
	}
	if n > 0 {
		s.logger.Debug("messages marked read", "chat_id", chatID, "viewer_id", viewerID, "count", n)
	}
	return nil
}

// lastActivity is the chat's sort key: the summary timestamp when present,
// otherwise creation time.
func lastActivity(c *domain.Chat) time.Time {
	if c.LastMessageTime != nil {
		return *c.LastMessageTime
	}
	return c.CreatedAt
}
