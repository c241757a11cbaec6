package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testPath = "branches/2026-03-14_feature-login/git-journal.md"

// drain collects every message already queued on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

// serve runs the handler until fn returns, then returns the response body.
func serve(t *testing.T, b *Broker, lastID string, fn func()) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	if lastID != "" {
		req.Header.Set("Last-Event-ID", lastID)
	}
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	fn()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
	return w.Body.String()
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}
	b.Unsubscribe(ch)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients after unsubscribe = %d, want 0", n)
	}
}

func TestJournalEventPayload(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishJournalEvent("created", testPath)

	select {
	case msg := <-ch:
		s := string(msg)
		for _, want := range []string{
			"id: 1\n",
			"event: journal.created\n",
			`"path":"` + testPath + `"`,
			`"folder":"2026-03-14_feature-login"`,
			`"branch":"feature-login"`,
			`"created":"2026-03-14"`,
		} {
			if !strings.Contains(s, want) {
				t.Errorf("frame %q missing %q", s, want)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestJournalEventOutsideFolderLayout(t *testing.T) {
	c := changeFor("README.md")
	if c.Path != "README.md" || c.Folder != "" || c.Branch != "" {
		t.Errorf("changeFor = %+v", c)
	}
}

func TestPublishJournalEvent_ListThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishJournalEvent("created", "a/git-journal.md")
	b.PublishJournalEvent("updated", "b/git-journal.md")
	b.PublishJournalEvent("renamed", "c/git-journal.md")
	time.Sleep(50 * time.Millisecond)

	var journals, lists int
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: "+EventJournalsChanged) {
			lists++
		} else {
			journals++
		}
	}
	if journals != 2 {
		t.Errorf("journal events = %d, want 2", journals)
	}
	if lists != 1 {
		t.Errorf("journals.changed events = %d, want 1", lists)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	body := serve(t, b, "", func() {
		if n := b.ClientCount(); n != 1 {
			t.Errorf("clients = %d, want 1", n)
		}
		b.PublishJournalEvent("updated", testPath)
	})

	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("stream does not start with a retry hint: %q", body)
	}
	if !strings.Contains(body, "event: journal.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients after disconnect = %d, want 0", n)
	}
}

func TestSSEHandler_ReplaysAfterLastEventID(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	// ids 1 (journal.created) and 2 (journals.changed), then 3.
	b.PublishJournalEvent("created", testPath)
	b.PublishJournalEvent("deleted", testPath)
	time.Sleep(50 * time.Millisecond)

	body := serve(t, b, "2", func() {})

	if strings.Contains(body, "id: 1\n") || strings.Contains(body, "id: 2\n") {
		t.Errorf("replayed events the client already had: %q", body)
	}
	if !strings.Contains(body, "id: 3\nevent: journal.deleted") {
		t.Errorf("missed event not replayed: %q", body)
	}
}

func TestSSEHandler_Heartbeat(t *testing.T) {
	b := NewBroker(time.Hour, WithHeartbeat(10*time.Millisecond))
	defer b.Close()

	body := serve(t, b, "", func() {})
	if !strings.Contains(body, ": keepalive\n\n") {
		t.Errorf("no keepalive in %q", body)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < clientBuffer+10; i++ {
		b.Publish(Event{Type: EventJournalUpdated, Data: JournalChange{Path: testPath}})
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(drain(ch)); n != clientBuffer {
		t.Errorf("queued = %d, want %d", n, clientBuffer)
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()

	b.Close()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients after close = %d, want 0", n)
	}

	b.Publish(Event{Type: EventJournalUpdated, Data: JournalChange{Path: "x"}})
	b.PublishJournalEvent("updated", "x")
}
