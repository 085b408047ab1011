package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
	"voiceorder-service/pkg/config"
	"voiceorder-service/prometheus"
)

// Company is a read-only projection from the external catalog.
type Company struct {
	Name string `json:"name"`
	ID   string `json:"_id"`
}

// Product is a read-only projection from the external catalog.
type Product struct {
	Name  string  `json:"name"`
	Size  string  `json:"size"`
	Price float64 `json:"price"`
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// Client talks to the key-authenticated document-store proxy. Query results
// are cached in memory per query key with a TTL.
type Client struct {
	proxyURL   string
	apiKey     string
	cacheTTL   time.Duration
	httpClient *http.Client

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewClient creates a catalog proxy client from configuration
func NewClient(cfg *config.SanityConfig) *Client {
	return &Client{
		proxyURL:   cfg.ProxyURL,
		apiKey:     cfg.APIKey,
		cacheTTL:   cfg.CacheTTL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      make(map[string]cacheEntry),
	}
}

// ListCompanies fetches all companies, ordered by name
func (c *Client) ListCompanies(ctx context.Context) ([]Company, error) {
	const cacheKey = "companies"
	if cached, ok := c.fromCache(cacheKey); ok {
		return cached.([]Company), nil
	}

	data, err := c.query(ctx, `*[_type == "company"]{name, _id} | order(name asc)`)
	if err != nil {
		return nil, err
	}

	var companies []Company
	if err := json.Unmarshal(data, &companies); err != nil {
		return nil, fmt.Errorf("failed to decode companies: %w", err)
	}

	c.store(cacheKey, companies)
	return companies, nil
}

// ListProducts fetches the live product catalog for a company, ordered by name
func (c *Client) ListProducts(ctx context.Context, companyID string) ([]Product, error) {
	cacheKey := "products:" + companyID
	if cached, ok := c.fromCache(cacheKey); ok {
		return cached.([]Product), nil
	}

	groq := fmt.Sprintf(`*[_type == "product" && company._ref == "%s"]{name, size, price} | order(name asc)`, companyID)
	data, err := c.query(ctx, groq)
	if err != nil {
		return nil, err
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	c.store(cacheKey, products)
	return products, nil
}

type proxyRequest struct {
	Query  string            `json:"query"`
	Params map[string]string `json:"params"`
}

type proxyResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (c *Client) query(ctx context.Context, groq string) (json.RawMessage, error) {
	body, err := json.Marshal(proxyRequest{Query: groq, Params: map[string]string{}})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proxyURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog proxy response: %w", err)
	}

	var proxyResp proxyResponse
	if err := json.Unmarshal(respBody, &proxyResp); err != nil {
		return nil, fmt.Errorf("malformed catalog proxy response: %w", err)
	}

	if !proxyResp.Success {
		if proxyResp.Error != "" {
			return nil, fmt.Errorf("%s", proxyResp.Error)
		}
		return nil, fmt.Errorf("sanity query failed")
	}

	return proxyResp.Data, nil
}

func (c *Client) fromCache(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		prometheus.RecordCatalogCacheMiss()
		return nil, false
	}

	prometheus.RecordCatalogCacheHit()
	return entry.value, true
}

func (c *Client) store(key string, value interface{}) {
	if c.cacheTTL <= 0 {
		return
	}
	c.mu.Lock()
	c.cache[key] = cacheEntry{value: value, expiresAt: time.Now().Add(c.cacheTTL)}
	c.mu.Unlock()
}
