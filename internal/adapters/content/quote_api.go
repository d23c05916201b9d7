package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/log"
	"telegram-moderation-bot/internal/ports"
)

const maxQuoteResponseSize = 64 << 10

// quoteResponse покрывает распространенные форматы публичных API цитат:
// {"content","author"}, {"quote","author"} и zenquotes [{"q","a"}].
type quoteResponse struct {
	Content string `json:"content"`
	Quote   string `json:"quote"`
	Q       string `json:"q"`
	Author  string `json:"author"`
	A       string `json:"a"`
}

func (r quoteResponse) text() string {
	for _, s := range []string{r.Content, r.Quote, r.Q} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func (r quoteResponse) by() string {
	if r.Author != "" {
		return r.Author
	}
	return r.A
}

// parseQuote разбирает ответ API: объект или массив объектов.
func parseQuote(data []byte) (string, error) {
	var one quoteResponse
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var many []quoteResponse
		if err := json.Unmarshal(data, &many); err != nil {
			return "", fmt.Errorf("failed to unmarshal json: %w", err)
		}
		if len(many) == 0 {
			return "", fmt.Errorf("empty quote list")
		}
		one = many[0]
	} else if err := json.Unmarshal(data, &one); err != nil {
		return "", fmt.Errorf("failed to unmarshal json: %w", err)
	}

	text := one.text()
	if text == "" {
		return "", fmt.Errorf("quote response has no text")
	}
	if author := strings.TrimSpace(one.by()); author != "" {
		return fmt.Sprintf("📜 \"%s\" — %s", text, author), nil
	}
	return fmt.Sprintf("📜 \"%s\"", text), nil
}

// QuoteAPIProvider получает цитаты из внешнего HTTP API. При любой ошибке
// возвращает текст из запасного провайдера.
type QuoteAPIProvider struct {
	url      string
	client   *retryablehttp.Client
	fallback ports.ContentProvider
	log      *slog.Logger
}

// NewQuoteAPIProvider создает новый экземпляр QuoteAPIProvider.
func NewQuoteAPIProvider(url string, timeout time.Duration, retries int, fallback ports.ContentProvider, logger *slog.Logger) *QuoteAPIProvider {
	if logger == nil {
		logger = slog.Default()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = retryablehttp.LeveledLogger(&log.RetryableHTTPAdapter{Logger: logger.With("subsystem", "quote_api")})

	return &QuoteAPIProvider{url: url, client: client, fallback: fallback, log: logger}
}

// GetContent возвращает цитату из API или из запасного провайдера.
func (p *QuoteAPIProvider) GetContent(ctx context.Context, category domain.Category) (string, error) {
	text, err := p.fetch(ctx)
	if err == nil {
		return text, nil
	}
	p.log.Warn("Quote API unavailable, using fallback", "error", err)
	if p.fallback == nil {
		return "", err
	}
	return p.fallback.GetContent(ctx, category)
}

func (p *QuoteAPIProvider) fetch(ctx context.Context) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("quote API returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxQuoteResponseSize))
	if err != nil {
		return "", fmt.Errorf("read quote response: %w", err)
	}
	return parseQuote(data)
}
