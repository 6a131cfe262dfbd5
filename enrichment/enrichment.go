// ABOUTME: Best-effort firmographic enrichment for target companies
// ABOUTME: Enricher interface plus an HTTP JSON source for industry and headcount
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/models"
)

// Enrichment carries whatever the source knew; every field may be empty.
type Enrichment struct {
	Industry  string `json:"industry,omitempty"`
	Employees *int   `json:"employees,omitempty"`
}

// IsEmpty reports whether nothing was learned.
func (e Enrichment) IsEmpty() bool {
	return e.Industry == "" && e.Employees == nil
}

// Enricher looks up missing company attributes. Failures are ServiceErrors
// and callers treat them as "no data".
type Enricher interface {
	Enrich(ctx context.Context, company models.Company) (Enrichment, error)
}

// NeedsEnrichment reports whether a company lacks industry or headcount.
func NeedsEnrichment(c models.Company) bool {
	return strings.TrimSpace(c.Industry) == "" || c.Employees == nil
}

// HTTPEnricher queries a JSON endpoint: GET <base>?domain=..&name=..
// answering {"industry": "...", "employees": 120}.
type HTTPEnricher struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPEnricher(baseURL string, timeout time.Duration) (*HTTPEnricher, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("ENRICHMENT_URL is not set")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPEnricher{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}, nil
}

func (h *HTTPEnricher) Enrich(ctx context.Context, company models.Company) (Enrichment, error) {
	const op = "enrich"
	q := url.Values{}
	if company.Domain != "" {
		q.Set("domain", company.Domain)
	}
	q.Set("name", company.Name)

	sep := "?"
	if strings.Contains(h.baseURL, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+sep+q.Encode(), nil)
	if err != nil {
		return Enrichment{}, apperr.Service(op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return Enrichment{}, apperr.Service(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return Enrichment{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Enrichment{}, apperr.Service(op, fmt.Errorf("enrichment http %d: %s", resp.StatusCode, body))
	}

	var out Enrichment
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Enrichment{}, apperr.Service(op, fmt.Errorf("decode enrichment: %w", err))
	}
	out.Industry = strings.TrimSpace(out.Industry)
	if out.Employees != nil && *out.Employees < 0 {
		out.Employees = nil
	}
	return out, nil
}
