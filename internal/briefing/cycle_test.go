package briefing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-briefing/internal/domain"
	"github.com/samvad-hq/samvad-briefing/internal/storage"
	"github.com/samvad-hq/samvad-briefing/pkg/telegram"
)

const targetChat int64 = -1001

var twoArticles = []domain.Article{
	{Source: "X", Title: "one", URL: "https://x/1", Body: "body one"},
	{Source: "X", Title: "two", URL: "https://x/2", Body: "body two"},
}

func newTestCycle(asm BatchAssembler, sum BatchSummarizer, store SeenMarker) *Cycle {
	return NewCycle(asm, sum, store, NewManager(), CycleConfig{MaxPerSource: 5, RecencyWindow: 48 * time.Hour}, nil)
}

func seenCount(t *testing.T, store *storage.MemoryStore) int {
	t.Helper()
	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	return n
}

func TestCycleDeliversThenMarks(t *testing.T) {
	store := storage.NewMemoryStore()
	msg := &fakeMessenger{}
	sum := &fakeSummarizer{out: "*briefing*"}
	cycle := newTestCycle(&fakeAssembler{batch: twoArticles}, sum, store)

	res, err := cycle.Run(context.Background(), TriggerScheduled, NewPushOutput(msg, targetChat))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != OutcomeDelivered || res.Articles != 2 || res.Marked != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.ID == "" {
		t.Fatalf("expected a cycle id")
	}
	if got := msg.texts(); len(got) != 1 || got[0] != "*briefing*" || msg.sent[0].chatID != targetChat {
		t.Fatalf("unexpected sends %+v", msg.sent)
	}
	for _, art := range twoArticles {
		if seen, _ := store.SeenArticle(context.Background(), art.URL); !seen {
			t.Fatalf("%s not marked after delivery", art.URL)
		}
	}
	if st := cycle.State().GetStatus(); st.State != StateIdle || st.LastOutcome != OutcomeDelivered || st.Cycles != 1 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestCycleDeliveryFailureMarksNothing(t *testing.T) {
	store := storage.NewMemoryStore()
	msg := &fakeMessenger{failSend: func(string) error { return errDeliver }}
	cycle := newTestCycle(&fakeAssembler{batch: twoArticles}, &fakeSummarizer{out: "briefing"}, store)

	res, err := cycle.Run(context.Background(), TriggerScheduled, NewPushOutput(msg, targetChat))
	if !errors.Is(err, errDeliver) {
		t.Fatalf("expected delivery error, got %v", err)
	}
	if res.Outcome != OutcomeFailed {
		t.Fatalf("unexpected outcome %s", res.Outcome)
	}
	if n := seenCount(t, store); n != 0 {
		t.Fatalf("expected no marks after failed delivery, got %d", n)
	}
	st := cycle.State().GetStatus()
	if st.State != StateIdle || st.LastError == "" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestCycleSummarizerFailureMarksNothing(t *testing.T) {
	store := storage.NewMemoryStore()
	msg := &fakeMessenger{}
	sum := &fakeSummarizer{err: errors.New("quota exceeded")}
	cycle := newTestCycle(&fakeAssembler{batch: twoArticles}, sum, store)

	_, err := cycle.Run(context.Background(), TriggerScheduled, NewPushOutput(msg, targetChat))
	if err == nil {
		t.Fatalf("expected summarizer error")
	}
	if n := seenCount(t, store); n != 0 {
		t.Fatalf("expected no marks after summarizer failure, got %d", n)
	}
	if got := msg.texts(); len(got) != 1 || got[0] != MsgCycleFailed {
		t.Fatalf("expected a user-visible failure message, got %q", got)
	}
}

func TestCycleEmptyBatchSkipsSummarizer(t *testing.T) {
	cases := []struct {
		trigger Trigger
		want    string
	}{
		{trigger: TriggerScheduled, want: MsgNoNewsScheduled},
		{trigger: TriggerOnDemand, want: MsgNoNewsOnDemand},
	}

	for _, tc := range cases {
		t.Run(string(tc.trigger), func(t *testing.T) {
			store := storage.NewMemoryStore()
			msg := &fakeMessenger{}
			sum := &fakeSummarizer{out: "unused"}
			cycle := newTestCycle(&fakeAssembler{}, sum, store)

			res, err := cycle.Run(context.Background(), tc.trigger, NewPushOutput(msg, targetChat))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if res.Outcome != OutcomeNoNews {
				t.Fatalf("unexpected outcome %s", res.Outcome)
			}
			if sum.calls != 0 {
				t.Fatalf("summarizer must not be called for an empty batch")
			}
			if got := msg.texts(); len(got) != 1 || got[0] != tc.want {
				t.Fatalf("expected only the no-news notice, got %q", got)
			}
		})
	}
}

func TestCycleAssembleFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	msg := &fakeMessenger{}
	sum := &fakeSummarizer{}
	cycle := newTestCycle(&fakeAssembler{err: context.DeadlineExceeded}, sum, store)

	if _, err := cycle.Run(context.Background(), TriggerScheduled, NewPushOutput(msg, targetChat)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected assemble error, got %v", err)
	}
	if sum.calls != 0 {
		t.Fatalf("summarizer must not run after assemble failure")
	}
}

func TestCycleOnDemandEditsPlaceholder(t *testing.T) {
	store := storage.NewMemoryStore()
	msg := &fakeMessenger{}
	cycle := newTestCycle(&fakeAssembler{batch: twoArticles}, &fakeSummarizer{out: "result"}, store)

	res, err := cycle.Run(context.Background(), TriggerOnDemand, NewReplyOutput(msg, 42, ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Marked != 2 {
		t.Fatalf("expected both urls marked, got %d", res.Marked)
	}
	if len(msg.sent) != 1 || msg.sent[0].text != MsgGenerating {
		t.Fatalf("expected a placeholder, got %+v", msg.sent)
	}
	if len(msg.edits) != 1 || msg.edits[0].text != "result" || msg.edits[0].messageID != msg.sent[0].messageID {
		t.Fatalf("expected placeholder edited with result, got %+v", msg.edits)
	}
}

func TestReplyOutputFallsBackToSendWhenEditRejected(t *testing.T) {
	msg := &fakeMessenger{failEdit: &telegram.APIError{Method: "editMessageText", Code: 400, Description: "message to edit not found"}}
	out := NewReplyOutput(msg, 42, "wait")

	if err := out.Progress(context.Background()); err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if err := out.Publish(context.Background(), "final"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := msg.texts(); len(got) != 2 || got[1] != "final" {
		t.Fatalf("expected fallback send, got %q", got)
	}
}

func TestCycleOnDemandEditFailureMarksNothing(t *testing.T) {
	store := storage.NewMemoryStore()
	msg := &fakeMessenger{failEdit: errDeliver}
	cycle := newTestCycle(&fakeAssembler{batch: twoArticles}, &fakeSummarizer{out: "result"}, store)

	if _, err := cycle.Run(context.Background(), TriggerOnDemand, NewReplyOutput(msg, 42, "")); !errors.Is(err, errDeliver) {
		t.Fatalf("expected delivery error, got %v", err)
	}
	if n := seenCount(t, store); n != 0 {
		t.Fatalf("expected no marks, got %d", n)
	}
}

type flakyMarker struct {
	bad   string
	marks []string
}

func (f *flakyMarker) MarkArticle(_ context.Context, url string) error {
	if url == f.bad {
		return errors.New("disk full")
	}
	f.marks = append(f.marks, url)
	return nil
}

func TestCycleMarkErrorsDoNotFailDeliveredCycle(t *testing.T) {
	marker := &flakyMarker{bad: "https://x/1"}
	cycle := newTestCycle(&fakeAssembler{batch: twoArticles}, &fakeSummarizer{out: "ok"}, marker)

	res, err := cycle.Run(context.Background(), TriggerScheduled, NewPushOutput(&fakeMessenger{}, targetChat))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != OutcomeDelivered || res.Marked != 1 || len(marker.marks) != 1 {
		t.Fatalf("unexpected result %+v marks=%v", res, marker.marks)
	}
}

func TestCycleMarksEvenWhenCancelledAfterDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := storage.NewMemoryStore()
	msg := &fakeMessenger{failSend: func(string) error {
		cancel()
		return nil
	}}
	cycle := newTestCycle(&fakeAssembler{batch: twoArticles}, &fakeSummarizer{out: "ok"}, ctxMarker{store})

	if _, err := cycle.Run(ctx, TriggerScheduled, NewPushOutput(msg, targetChat)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := seenCount(t, store); n != 2 {
		t.Fatalf("expected 2 marks, got %d", n)
	}
}

// ctxMarker refuses to mark on a cancelled context.
type ctxMarker struct{ store *storage.MemoryStore }

func (c ctxMarker) MarkArticle(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.store.MarkArticle(ctx, url)
}
