package briefing

import (
	"context"
	"errors"

	"github.com/samvad-hq/samvad-briefing/pkg/telegram"
)

// MsgGenerating is the placeholder shown while an on-demand cycle runs.
const MsgGenerating = "Generating ad-hoc daily briefing... ⏳"

// Messenger is the messaging transport a cycle reports through.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) (telegram.MessageRef, error)
	Edit(ctx context.Context, ref telegram.MessageRef, text string) error
}

// PushOutput sends the result to a fixed chat without a progress message.
type PushOutput struct {
	messenger Messenger
	chatID    int64
}

// NewPushOutput targets chatID.
func NewPushOutput(m Messenger, chatID int64) *PushOutput {
	return &PushOutput{messenger: m, chatID: chatID}
}

func (p *PushOutput) Progress(context.Context) error { return nil }

func (p *PushOutput) Publish(ctx context.Context, text string) error {
	_, err := p.messenger.Send(ctx, p.chatID, text)
	return err
}

// ReplyOutput posts a placeholder and later replaces it with the result.
// It serves a single request.
type ReplyOutput struct {
	messenger   Messenger
	chatID      int64
	placeholder string
	ref         *telegram.MessageRef
}

// NewReplyOutput replies in chatID, showing placeholder while work runs.
func NewReplyOutput(m Messenger, chatID int64, placeholder string) *ReplyOutput {
	if placeholder == "" {
		placeholder = MsgGenerating
	}
	return &ReplyOutput{messenger: m, chatID: chatID, placeholder: placeholder}
}

func (r *ReplyOutput) Progress(ctx context.Context) error {
	ref, err := r.messenger.Send(ctx, r.chatID, r.placeholder)
	if err != nil {
		return err
	}
	r.ref = &ref
	return nil
}

// Publish edits the placeholder, or sends a fresh message when no
// placeholder was posted or it can no longer be edited.
func (r *ReplyOutput) Publish(ctx context.Context, text string) error {
	if r.ref == nil {
		_, err := r.messenger.Send(ctx, r.chatID, text)
		return err
	}
	err := r.messenger.Edit(ctx, *r.ref, text)
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) {
		_, err = r.messenger.Send(ctx, r.chatID, text)
	}
	return err
}
