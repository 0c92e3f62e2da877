package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lostFoundWs/internal/modules/realtime/domain"
	"lostFoundWs/internal/shared/normalization"
)

// TargetSendPrivateMessage is the hub method browsers invoke as
// invoke('SendPrivateMessage', receiverId, content).
const TargetSendPrivateMessage = "SendPrivateMessage"

// CommandHandler serves one hub method. A returned error goes back to the caller in
// the completion record when the invocation asked for one.
type CommandHandler func(ctx context.Context, client *Client, cmd Command) error

// PrivateMessenger relays an ephemeral message between two users.
type PrivateMessenger interface {
	PrivateMessage(ctx context.Context, msg domain.PrivateMessage)
}

type CommandProcessor struct {
	handlers map[string]CommandHandler
	timeout  time.Duration
	logger   *slog.Logger
}

// NewCommandProcessor answers pings and, when messenger is non-nil, serves
// SendPrivateMessage.
func NewCommandProcessor(messenger PrivateMessenger, logger *slog.Logger) *CommandProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	processor := &CommandProcessor{
		handlers: make(map[string]CommandHandler),
		timeout:  5 * time.Second,
		logger:   logger.With(slog.String("component", "ws-commands")),
	}
	if messenger != nil {
		processor.Register(TargetSendPrivateMessage, processor.privateMessageHandler(messenger))
	}
	return processor
}

func (p *CommandProcessor) Register(target string, handler CommandHandler) {
	if handler == nil {
		return
	}
	key := normalizeTarget(target)
	if key == "" {
		return
	}
	p.handlers[key] = handler
}

// Process handles one record from client. Pings are answered, invocations run their
// hub method, a close record detaches the client; anything else is ignored.
func (p *CommandProcessor) Process(client *Client, cmd Command) {
	if client == nil {
		return
	}
	switch cmd.Type {
	case domain.MessagePing:
		if err := client.enqueue(pingRecord); err != nil {
			p.logger.Debug("ws ping answer dropped", slog.String("connectionId", client.id), slog.Any("error", err))
		}
	case domain.MessageInvocation:
		p.invoke(client, cmd)
	case domain.MessageClose:
		client.hub.detachClient(client)
	default:
		p.logger.Debug("ws record ignored", slog.String("connectionId", client.id), slog.Int("type", int(cmd.Type)))
	}
}

func (p *CommandProcessor) invoke(client *Client, cmd Command) {
	key := normalizeTarget(cmd.Target)
	handler, ok := p.handlers[key]
	var err error
	if !ok {
		err = fmt.Errorf("%w '%s'", ErrUnknownHubMethod, cmd.Target)
		p.logger.Debug("ws invocation ignored", slog.Int64("userId", client.userID), slog.String("connectionId", client.id), slog.String("target", cmd.Target))
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err = handler(ctx, client, cmd)
		cancel()
	}
	if cmd.InvocationID == "" {
		return
	}
	completion := completionMessage{Type: domain.MessageCompletion, InvocationID: cmd.InvocationID}
	if err != nil {
		completion.Error = err.Error()
	}
	if sendErr := client.sendRecord(completion); sendErr != nil {
		p.logger.Debug("ws completion dropped", slog.String("connectionId", client.id), slog.Any("error", sendErr))
	}
}

func (p *CommandProcessor) privateMessageHandler(messenger PrivateMessenger) CommandHandler {
	return func(ctx context.Context, client *Client, cmd Command) error {
		body, err := decodePrivateMessage(cmd.Arguments)
		if err == nil {
			err = body.Validate(client.userID)
		}
		if err != nil {
			p.logger.Debug("ws private message rejected", slog.String("connectionId", client.id), slog.Any("error", err))
			return err
		}
		messenger.PrivateMessage(ctx, domain.PrivateMessage{
			SenderID:   client.userID,
			ReceiverID: body.ReceiverID,
			Content:    body.Content,
		})
		return nil
	}
}

// decodePrivateMessage reads the positional (receiverId, content) arguments. The
// receiver id may arrive as a number or a numeric string.
func decodePrivateMessage(args []json.RawMessage) (domain.SendPrivateMessageCommand, error) {
	var cmd domain.SendPrivateMessageCommand
	if len(args) != 2 {
		return cmd, fmt.Errorf("%w: expected 2 arguments, got %d", domain.ErrInvalidCommand, len(args))
	}
	var receiver, content any
	if err := json.Unmarshal(args[0], &receiver); err != nil {
		return cmd, fmt.Errorf("%w: receiverId: %v", domain.ErrInvalidCommand, err)
	}
	if err := json.Unmarshal(args[1], &content); err != nil {
		return cmd, fmt.Errorf("%w: content: %v", domain.ErrInvalidCommand, err)
	}
	receiverID, ok := normalization.AsInt64(receiver)
	if !ok {
		return cmd, fmt.Errorf("%w: receiverId is not an integer", domain.ErrInvalidCommand)
	}
	cmd.ReceiverID = receiverID
	cmd.Content = normalization.AsString(content)
	return cmd, nil
}

func normalizeTarget(target string) string {
	return strings.ToLower(strings.TrimSpace(target))
}
