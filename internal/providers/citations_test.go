package providers

import (
	"errors"
	"testing"
)

func TestExtractCitations(t *testing.T) {
	text := `Acme (https://www.acme.com/products) is a strong choice.
See the comparison at https://reviews.example.org/crm-roundup, and
Monday's pricing page: https://monday.com/pricing.
More details: https://www.acme.com/products`

	citations := ExtractCitations(text, "acme.com", []string{"monday.com"})

	if len(citations) != 3 {
		t.Fatalf("Expected 3 citations after dedup, got %d", len(citations))
	}

	first := citations[0]
	if first.URL != "https://www.acme.com/products" {
		t.Errorf("Unexpected first URL: %s", first.URL)
	}
	if first.Domain != "acme.com" {
		t.Errorf("Expected www stripped, got %s", first.Domain)
	}
	if !first.IsBrand || first.IsCompetitor {
		t.Errorf("Expected brand flag on %s", first.URL)
	}
	if first.Position != 1 {
		t.Errorf("Expected position 1, got %d", first.Position)
	}

	second := citations[1]
	if second.Domain != "reviews.example.org" {
		t.Errorf("Unexpected second domain: %s", second.Domain)
	}
	if second.IsBrand || second.IsCompetitor {
		t.Error("Neutral citation should carry no ownership flags")
	}
	if second.URL != "https://reviews.example.org/crm-roundup" {
		t.Errorf("Expected trailing comma trimmed, got %s", second.URL)
	}

	third := citations[2]
	if !third.IsCompetitor {
		t.Errorf("Expected competitor flag on %s", third.URL)
	}
	if third.URL != "https://monday.com/pricing" {
		t.Errorf("Expected trailing period trimmed, got %s", third.URL)
	}
}

func TestExtractCitationsNoURLs(t *testing.T) {
	if got := ExtractCitations("no links in this answer", "acme.com", nil); got != nil {
		t.Errorf("Expected nil, got %v", got)
	}
}

func TestDomainMatchesSubdomains(t *testing.T) {
	if !domainMatches("blog.acme.com", "acme.com") {
		t.Error("Subdomain should match the brand domain")
	}
	if domainMatches("notacme.com", "acme.com") {
		t.Error("Suffix collision must not match")
	}
	if domainMatches("acme.com", "") {
		t.Error("Empty target never matches")
	}
}

func TestProviderErrorRetryable(t *testing.T) {
	timeout := &ProviderError{Engine: "openai", Kind: ErrTimeout, Cause: errors.New("deadline")}
	if !timeout.Retryable() {
		t.Error("Timeouts are retryable")
	}
	if !errors.Is(timeout, ErrTimeout) {
		t.Error("Expected errors.Is to match the kind")
	}

	quota := quotaError("gemini", errors.New("429"))
	if !quota.Retryable() {
		t.Error("Quota rejections are retryable")
	}

	malformed := malformedError("claude", errors.New("empty"))
	if malformed.Retryable() {
		t.Error("Malformed responses are not retryable")
	}
}

func TestIsQuotaError(t *testing.T) {
	cases := map[string]bool{
		"HTTP 429 Too Many Requests":        true,
		"rate limit exceeded":               true,
		"RESOURCE_EXHAUSTED: quota":         true,
		"connection refused":                false,
		"invalid request: missing model":    false,
		"the model is currently overloaded": true,
	}
	for msg, want := range cases {
		if got := isQuotaError(errors.New(msg)); got != want {
			t.Errorf("isQuotaError(%q) = %v, want %v", msg, got, want)
		}
	}
}
