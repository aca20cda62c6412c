package trivia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

// Upstream response codes, opentdb-style.
const (
	codeSuccess        = 0
	codeNoResults      = 1
	codeTokenNotFound  = 3
	codeTokenExhausted = 4
)

const (
	maxAttempts  = 3
	retryDelay   = 500 * time.Millisecond
	requestLimit = 10 * time.Second
)

// Client talks to an opentdb-compatible question source. Each room gets its
// own Client so its session token is leased per room and surviving questions
// are not repeated across restarts.
type Client struct {
	baseURL string
	http    *http.Client
	token   string

	// sleep is swapped out in tests to avoid real retry delays.
	sleep func(time.Duration)
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestLimit},
		sleep:   time.Sleep,
	}
}

type tokenResponse struct {
	ResponseCode int    `json:"response_code"`
	Token        string `json:"token"`
}

type questionsResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Category         string   `json:"category"`
		Difficulty       string   `json:"difficulty"`
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

// Fetch retrieves count questions, leasing a session token on first use and
// replacing it when the upstream reports it exhausted. Attempts are bounded
// with a fixed delay between them; exhausting the budget fails the whole
// batch.
func (c *Client) Fetch(ctx context.Context, count int, f Filters) ([]Question, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			c.sleep(retryDelay)
		}

		if c.token == "" {
			if err := c.requestToken(ctx); err != nil {
				lastErr = err
				continue
			}
		}

		batch, err := c.fetchOnce(ctx, count, f)
		if err == nil {
			return batch, nil
		}
		lastErr = err

		var te *tokenError
		if errors.As(err, &te) {
			// Stale lease; drop it so the next attempt requests a fresh one.
			slog.Debug("question token expired, releasing", "code", te.code)
			c.token = ""
			continue
		}
		var pe *permanentError
		if errors.As(err, &pe) {
			// Retrying cannot help (e.g. no questions match the filters).
			return nil, lastErr
		}
	}
	return nil, fmt.Errorf("question fetch failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) requestToken(ctx context.Context) error {
	var tr tokenResponse
	if err := c.getJSON(ctx, c.baseURL+"/api_token.php?command=request", &tr); err != nil {
		return fmt.Errorf("requesting token: %w", err)
	}
	if tr.ResponseCode != codeSuccess || tr.Token == "" {
		return fmt.Errorf("token request refused (code %d)", tr.ResponseCode)
	}
	c.token = tr.Token
	return nil
}

func (c *Client) fetchOnce(ctx context.Context, count int, f Filters) ([]Question, error) {
	q := url.Values{}
	q.Set("amount", fmt.Sprint(count))
	q.Set("type", "multiple")
	q.Set("token", c.token)
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Difficulty != "" {
		q.Set("difficulty", f.Difficulty)
	}

	var qr questionsResponse
	if err := c.getJSON(ctx, c.baseURL+"/api.php?"+q.Encode(), &qr); err != nil {
		return nil, err
	}

	switch qr.ResponseCode {
	case codeSuccess:
	case codeTokenNotFound, codeTokenExhausted:
		return nil, &tokenError{code: qr.ResponseCode}
	default:
		return nil, &permanentError{code: qr.ResponseCode}
	}
	if len(qr.Results) == 0 {
		return nil, &permanentError{code: codeNoResults}
	}

	batch := make([]Question, 0, len(qr.Results))
	for _, item := range qr.Results {
		batch = append(batch, shuffled(
			html.UnescapeString(item.Question),
			html.UnescapeString(item.CorrectAnswer),
			unescapeAll(item.IncorrectAnswers),
			item.Category,
			item.Difficulty,
		))
	}
	return batch, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// shuffled builds a Question with the answer options in unbiased random
// order, tracking where the correct option lands. A source item with no
// correct answer yields CorrectIndex -1.
func shuffled(prompt, correct string, incorrect []string, category, difficulty string) Question {
	options := make([]string, 0, len(incorrect)+1)
	options = append(options, incorrect...)
	correctIdx := -1
	if correct != "" {
		options = append(options, correct)
		correctIdx = len(options) - 1
	}
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
		switch correctIdx {
		case i:
			correctIdx = j
		case j:
			correctIdx = i
		}
	})
	return Question{
		Prompt:       prompt,
		Options:      options,
		CorrectIndex: correctIdx,
		Category:     category,
		Difficulty:   difficulty,
	}
}

func unescapeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = html.UnescapeString(s)
	}
	return out
}
