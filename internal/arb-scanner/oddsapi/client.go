package oddsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-arb-scanner/internal/arbitrage"
)

// DefaultBaseURL aponta para a v4 da The Odds API
const DefaultBaseURL = "https://api.the-odds-api.com/v4"

// Quota é o último estado de cota informado pelos headers x-requests-*
type Quota struct {
	Remaining int
	Used      int
	Known     bool
}

// Client consulta o catálogo de esportes e os snapshots de odds do fornecedor.
// Todas as chamadas compartilham a mesma cota de requisições.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
	now        func() time.Time
	quotaFloor int
	onRequest  func(endpoint string, err error)

	mu    sync.Mutex
	quota Quota
}

// ClientOption configura o Client
type ClientOption func(*Client)

// NewClient cria um cliente para a API de odds
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		log: zap.NewNop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// WithQuotaFloor faz o cliente recusar chamadas quando a cota restante chega ao piso
func WithQuotaFloor(floor int) ClientOption {
	return func(c *Client) { c.quotaFloor = floor }
}

func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// WithRequestHook registra um callback por requisição (métricas)
func WithRequestHook(fn func(endpoint string, err error)) ClientOption {
	return func(c *Client) { c.onRequest = fn }
}

// Quota retorna o último estado de cota conhecido
func (c *Client) Quota() Quota {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quota
}

// ListSports retorna as chaves de esporte do catálogo, sem duplicatas
func (c *Client) ListSports(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "sports", "/sports/", nil)
	if err != nil {
		return nil, err
	}

	var items []sport
	if err := decodeList(body, &items); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(items))
	keys := make([]string, 0, len(items))
	for _, it := range items {
		if it.Key == "" {
			continue
		}
		if _, ok := seen[it.Key]; ok {
			continue
		}
		seen[it.Key] = struct{}{}
		keys = append(keys, it.Key)
	}
	return keys, nil
}

// FetchOddsSnapshot retorna os eventos de um esporte com início no futuro.
// Eventos sem commence_time são repassados; o normalizador os descarta.
func (c *Client) FetchOddsSnapshot(ctx context.Context, sportKey, region, oddsFormat string) ([]arbitrage.RawEvent, error) {
	q := url.Values{}
	q.Set("regions", region)
	q.Set("oddsFormat", oddsFormat)
	q.Set("dateFormat", "unix")

	body, err := c.get(ctx, "odds", "/sports/"+url.PathEscape(sportKey)+"/odds/", q)
	if err != nil {
		return nil, err
	}

	var items []event
	if err := decodeList(body, &items); err != nil {
		return nil, fmt.Errorf("sport %s: %w", sportKey, err)
	}

	now := c.now().Unix()
	out := make([]arbitrage.RawEvent, 0, len(items))
	for _, it := range items {
		if it.CommenceTime != nil && int64(*it.CommenceTime) <= now {
			continue
		}
		out = append(out, it.raw())
	}

	c.log.Debug("odds snapshot fetched",
		zap.String("sport", sportKey),
		zap.Int("events", len(items)),
		zap.Int("upcoming", len(out)),
	)
	return out, nil
}

// get executa um GET autenticado e mapeia status de erro para a taxonomia do pacote
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) (body []byte, err error) {
	if c.onRequest != nil {
		defer func() { c.onRequest(endpoint, err) }()
	}

	if err := c.checkQuota(); err != nil {
		return nil, err
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	c.recordQuota(resp.Header)

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) statusError(status int, body []byte) error {
	msg := http.StatusText(status)
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
		msg = eb.Message
	}
	apiErr := APIError{StatusCode: status, Message: msg}

	switch status {
	case http.StatusUnauthorized:
		return &AuthenticationError{APIError: apiErr}
	case http.StatusTooManyRequests:
		return &RateLimitError{APIError: apiErr, Remaining: c.remaining()}
	default:
		return &ProviderError{APIError: apiErr}
	}
}

func (c *Client) checkQuota() error {
	if c.quotaFloor <= 0 {
		return nil
	}
	c.mu.Lock()
	q := c.quota
	c.mu.Unlock()
	if q.Known && q.Remaining <= c.quotaFloor {
		return &RateLimitError{
			APIError:  APIError{StatusCode: http.StatusTooManyRequests, Message: "request quota floor reached"},
			Remaining: q.Remaining,
		}
	}
	return nil
}

func (c *Client) recordQuota(h http.Header) {
	remaining, okR := headerInt(h, "x-requests-remaining")
	used, okU := headerInt(h, "x-requests-used")
	if !okR && !okU {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if okR {
		c.quota.Remaining = remaining
		c.quota.Known = true
	}
	if okU {
		c.quota.Used = used
	}
}

func (c *Client) remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.quota.Known {
		return -1
	}
	return c.quota.Remaining
}

func headerInt(h http.Header, key string) (int, bool) {
	v := strings.TrimSpace(h.Get(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// decodeList exige um array JSON; objetos (ex: {"message": ...}) viram ErrUnexpectedPayload
func decodeList(body []byte, dst any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		var eb errorBody
		if err := json.Unmarshal(trimmed, &eb); err == nil && eb.Message != "" {
			return fmt.Errorf("%w: %s", ErrUnexpectedPayload, eb.Message)
		}
		return ErrUnexpectedPayload
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}
	return nil
}
