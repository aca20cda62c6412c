package trivia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(baseURL string) (*Client, *int) {
	c := NewClient(baseURL)
	sleeps := 0
	c.sleep = func(time.Duration) { sleeps++ }
	return c, &sleeps
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api_token.php"):
			w.Write([]byte(`{"response_code":0,"token":"tok-1"}`))
		case strings.HasPrefix(r.URL.Path, "/api.php"):
			if r.URL.Query().Get("token") != "tok-1" {
				t.Errorf("fetch sent token %q, want %q", r.URL.Query().Get("token"), "tok-1")
			}
			w.Write([]byte(`{"response_code":0,"results":[
				{"category":"Science","difficulty":"easy","question":"2+2?","correct_answer":"4","incorrect_answers":["3","5"]}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	batch, err := c.Fetch(context.Background(), 1, Filters{})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("got %d questions, want 1", len(batch))
	}
	q := batch[0]
	if q.Prompt != "2+2?" {
		t.Errorf("Prompt = %q, want %q", q.Prompt, "2+2?")
	}
	if len(q.Options) != 3 {
		t.Fatalf("got %d options, want 3", len(q.Options))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		t.Fatalf("CorrectIndex = %d, out of range", q.CorrectIndex)
	}
	if q.Options[q.CorrectIndex] != "4" {
		t.Errorf("Options[CorrectIndex] = %q, want %q", q.Options[q.CorrectIndex], "4")
	}
}

func TestFetch_FiltersForwarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api_token.php"):
			w.Write([]byte(`{"response_code":0,"token":"tok-1"}`))
		default:
			if got := r.URL.Query().Get("category"); got != "18" {
				t.Errorf("category = %q, want %q", got, "18")
			}
			if got := r.URL.Query().Get("difficulty"); got != "hard" {
				t.Errorf("difficulty = %q, want %q", got, "hard")
			}
			w.Write([]byte(`{"response_code":0,"results":[
				{"question":"q","correct_answer":"a","incorrect_answers":["b"]}
			]}`))
		}
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	if _, err := c.Fetch(context.Background(), 1, Filters{Category: "18", Difficulty: "hard"}); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
}

func TestFetch_TokenExhaustedGetsFreshToken(t *testing.T) {
	tokens := 0
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api_token.php"):
			tokens++
			if tokens == 1 {
				w.Write([]byte(`{"response_code":0,"token":"stale"}`))
			} else {
				w.Write([]byte(`{"response_code":0,"token":"fresh"}`))
			}
		default:
			fetches++
			if r.URL.Query().Get("token") == "stale" {
				w.Write([]byte(`{"response_code":4}`))
				return
			}
			w.Write([]byte(`{"response_code":0,"results":[
				{"question":"q","correct_answer":"a","incorrect_answers":["b"]}
			]}`))
		}
	}))
	defer srv.Close()

	c, sleeps := newTestClient(srv.URL)
	batch, err := c.Fetch(context.Background(), 1, Filters{})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("got %d questions, want 1", len(batch))
	}
	if tokens != 2 {
		t.Errorf("token requests = %d, want 2", tokens)
	}
	if fetches != 2 {
		t.Errorf("fetch attempts = %d, want 2", fetches)
	}
	if *sleeps != 1 {
		t.Errorf("retry delays = %d, want 1", *sleeps)
	}
}

func TestFetch_NetworkFailureBoundedRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api_token.php") {
			w.Write([]byte(`{"response_code":0,"token":"tok"}`))
			return
		}
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, sleeps := newTestClient(srv.URL)
	if _, err := c.Fetch(context.Background(), 1, Filters{}); err == nil {
		t.Fatal("Fetch() should fail when upstream keeps erroring")
	}
	if attempts != maxAttempts {
		t.Errorf("attempts = %d, want %d", attempts, maxAttempts)
	}
	if *sleeps != maxAttempts-1 {
		t.Errorf("retry delays = %d, want %d", *sleeps, maxAttempts-1)
	}
}

func TestFetch_NoResultsIsNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api_token.php") {
			w.Write([]byte(`{"response_code":0,"token":"tok"}`))
			return
		}
		attempts++
		w.Write([]byte(`{"response_code":1,"results":[]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	if _, err := c.Fetch(context.Background(), 1, Filters{}); err == nil {
		t.Fatal("Fetch() should fail on empty result set")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on permanent refusal)", attempts)
	}
}

func TestShuffled_TracksCorrectIndex(t *testing.T) {
	for i := 0; i < 100; i++ {
		q := shuffled("prompt", "right", []string{"w1", "w2", "w3"}, "", "")
		if len(q.Options) != 4 {
			t.Fatalf("got %d options, want 4", len(q.Options))
		}
		if q.Options[q.CorrectIndex] != "right" {
			t.Fatalf("Options[%d] = %q, want %q", q.CorrectIndex, q.Options[q.CorrectIndex], "right")
		}
	}
}

func TestShuffled_NoAnswerKey(t *testing.T) {
	q := shuffled("prompt", "", []string{"a", "b"}, "", "")
	if q.CorrectIndex != -1 {
		t.Errorf("CorrectIndex = %d, want -1 when source has no answer", q.CorrectIndex)
	}
	if len(q.Options) != 2 {
		t.Errorf("got %d options, want 2", len(q.Options))
	}
}
