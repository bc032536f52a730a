package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
)

var ErrEmptyChannel = errors.New("channel id is required")

// Sender publica la respuesta en el canal de origen.
type Sender interface {
	PostMessage(ctx context.Context, channelID, text string) error
}

type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

type slackAuthTester interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
}

// SlackSender envía mensajes con chat.postMessage usando el bot token.
type SlackSender struct {
	client slackPoster
}

func NewSlackSender(client *slack.Client) *SlackSender {
	return &SlackSender{client: client}
}

func (s *SlackSender) PostMessage(ctx context.Context, channelID, text string) error {
	if strings.TrimSpace(channelID) == "" {
		return ErrEmptyChannel
	}
	if _, _, err := s.client.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack post message: %w", err)
	}
	return nil
}

// ResolveBotUserID consulta auth.test para conocer el user id del propio bot.
func ResolveBotUserID(ctx context.Context, client slackAuthTester) (string, error) {
	resp, err := client.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth test: %w", err)
	}
	if resp == nil || resp.UserID == "" {
		return "", errors.New("slack auth test returned no user id")
	}
	return resp.UserID, nil
}
