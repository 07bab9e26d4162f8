package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/tablens/internal/domain"
)

type recordedSleep struct {
	waits []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", fmt.Errorf("wrap: %w", domain.ErrTransient), true},
		{"api 503", &openai.APIError{HTTPStatusCode: 503}, true},
		{"api 400", &openai.APIError{HTTPStatusCode: 400}, false},
		{"request 502", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, true},
		{"request 504 wrapped", fmt.Errorf("embed: %w", &openai.RequestError{HTTPStatusCode: 504, Err: errors.New("x")}), true},
		{"net timeout", timeoutErr{}, true},
		{"connection text", errors.New("dial tcp: connection refused"), true},
		{"timeout text", errors.New("read Timeout"), true},
		{"plain", errors.New("invalid api key"), false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	rec := &recordedSleep{}
	p := Policy{Sleep: rec.sleep}

	calls := 0
	err := p.Do(context.Background(), "embed", func(context.Context) error {
		calls++
		if calls < 3 {
			return &openai.APIError{HTTPStatusCode: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(rec.waits) != len(want) || rec.waits[0] != want[0] || rec.waits[1] != want[1] {
		t.Errorf("unexpected waits: %v", rec.waits)
	}
}

func TestDo_Exhausted(t *testing.T) {
	rec := &recordedSleep{}
	p := Policy{Sleep: rec.sleep}

	calls := 0
	cause := errors.New("connection reset by peer")
	err := p.Do(context.Background(), "embed", func(context.Context) error {
		calls++
		return cause
	})

	var tse *domain.TransientServiceError
	if !errors.As(err, &tse) {
		t.Fatalf("expected TransientServiceError, got %v", err)
	}
	if tse.Attempts != 4 || calls != 4 {
		t.Errorf("expected 4 attempts, got %d (calls %d)", tse.Attempts, calls)
	}
	if !errors.Is(err, domain.ErrTransient) || !errors.Is(err, cause) {
		t.Errorf("error should unwrap to sentinel and cause: %v", err)
	}
	if len(rec.waits) != 3 || rec.waits[2] != 4*time.Second {
		t.Errorf("unexpected waits: %v", rec.waits)
	}
}

func TestDo_PermanentFailsImmediately(t *testing.T) {
	rec := &recordedSleep{}
	p := Policy{Sleep: rec.sleep}

	calls := 0
	err := p.Do(context.Background(), "embed", func(context.Context) error {
		calls++
		return &openai.APIError{HTTPStatusCode: 401}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 || len(rec.waits) != 0 {
		t.Errorf("permanent error retried: calls %d waits %v", calls, rec.waits)
	}
}

func TestValue_CanceledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Value(ctx, Policy{BaseDelay: time.Hour}, "complete", func(context.Context) (string, error) {
		return "", domain.ErrTransient
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	p := Policy{BaseDelay: 10 * time.Millisecond}
	if got := p.Backoff(3); got != 80*time.Millisecond {
		t.Errorf("Backoff(3) = %v", got)
	}
}
