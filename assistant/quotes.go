package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rustyeddy/tradelog/logger"
)

const defaultQuoteTimeout = 5 * time.Second

// Quote is a short investing quote shown next to the greeting.
type Quote struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

var builtinQuotes = []Quote{
	{"The stock market is filled with individuals who know the price of everything, but the value of nothing.", "Philip Fisher"},
	{"Risk comes from not knowing what you're doing.", "Warren Buffett"},
	{"It's not how much money you make, but how much money you keep, how hard it works for you, and how many generations you keep it for.", "Robert Kiyosaki"},
	{"The four most dangerous words in investing are: 'This time it's different.'", "Sir John Templeton"},
	{"Time in the market beats timing the market.", "Ken Fisher"},
	{"Bulls make money, bears make money, but pigs get slaughtered.", "Wall Street Saying"},
	{"Don't put all your eggs in one basket.", "Traditional Wisdom"},
	{"The trend is your friend until the end when it bends.", "Ed Seykota"},
}

// Quotes hands out random quotes. With a URL it asks that service first
// (a quotable.io style endpoint returning {"content", "author"}) and
// falls back to the built-in list on any failure.
type Quotes struct {
	url        string
	httpClient *http.Client
	intn       func(n int) int
}

// NewQuotes returns a Quotes. An empty url uses the built-in list only.
func NewQuotes(url string, timeout time.Duration) *Quotes {
	if timeout <= 0 {
		timeout = defaultQuoteTimeout
	}
	return &Quotes{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
		intn:       rand.Intn,
	}
}

// Random never fails; errors from the remote service are logged.
func (q *Quotes) Random(ctx context.Context) Quote {
	if q.url != "" {
		quote, err := q.fetch(ctx)
		if err == nil {
			return quote
		}
		logger.FromContext(ctx).Warn("quote service failed, using built-in quotes", "error", err)
	}
	return builtinQuotes[q.intn(len(builtinQuotes))]
}

func (q *Quotes) fetch(ctx context.Context) (Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.url, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := q.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote service status %d", resp.StatusCode)
	}
	var out Quote
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Quote{}, fmt.Errorf("decode quote: %w", err)
	}
	if strings.TrimSpace(out.Content) == "" {
		return Quote{}, fmt.Errorf("quote service returned no content")
	}
	return out, nil
}
