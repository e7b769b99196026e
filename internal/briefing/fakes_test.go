package briefing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-briefing/internal/domain"
	"github.com/samvad-hq/samvad-briefing/pkg/telegram"
)

type fakeAssembler struct {
	batch []domain.Article
	err   error
	calls int
}

func (f *fakeAssembler) Assemble(context.Context, int, time.Duration) ([]domain.Article, error) {
	f.calls++
	return f.batch, f.err
}

type fakeSummarizer struct {
	out   string
	err   error
	calls int
	got   []domain.Article
}

func (f *fakeSummarizer) SummarizeBatch(_ context.Context, articles []domain.Article) (string, error) {
	f.calls++
	f.got = articles
	return f.out, f.err
}

// fakeMessenger records sends and edits; failSend/failEdit force errors.
type fakeMessenger struct {
	mu       sync.Mutex
	nextID   int64
	sent     []sentMessage
	edits    []sentMessage
	failSend func(text string) error
	failEdit error
}

type sentMessage struct {
	chatID    int64
	messageID int64
	text      string
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string) (telegram.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend != nil {
		if err := f.failSend(text); err != nil {
			return telegram.MessageRef{}, err
		}
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{chatID: chatID, messageID: f.nextID, text: text})
	return telegram.MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeMessenger) Edit(_ context.Context, ref telegram.MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEdit != nil {
		return f.failEdit
	}
	f.edits = append(f.edits, sentMessage{chatID: ref.ChatID, messageID: ref.MessageID, text: text})
	return nil
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.text)
	}
	return out
}

var errDeliver = errors.New("telegram down")
