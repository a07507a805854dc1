package providers

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/brandlens/brandlens/internal/models"
)

// urlPattern matches http(s) URLs embedded in answer prose. Trailing
// punctuation from the surrounding sentence is trimmed afterwards.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// ExtractCitations pulls source URLs out of raw answer text in order of
// first appearance, deduplicated by full URL. brandDomain and
// competitorDomains flag ownership so the aggregation stage can compute
// citation share without re-parsing.
func ExtractCitations(text, brandDomain string, competitorDomains []string) []models.Citation {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var citations []models.Citation
	for _, raw := range matches {
		cleaned := strings.TrimRight(raw, ".,;:!?")
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true

		domain := domainOf(cleaned)
		if domain == "" {
			continue
		}

		citations = append(citations, models.Citation{
			URL:          cleaned,
			Domain:       domain,
			Position:     len(citations) + 1,
			IsBrand:      domainMatches(domain, brandDomain),
			IsCompetitor: anyDomainMatches(domain, competitorDomains),
		})
	}
	return citations
}

// domainOf extracts the registrable host, lowercased and without a
// leading www prefix.
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// domainMatches reports whether host equals target or is a subdomain of it
func domainMatches(host, target string) bool {
	if target == "" {
		return false
	}
	target = strings.ToLower(strings.TrimPrefix(target, "www."))
	return host == target || strings.HasSuffix(host, "."+target)
}

func anyDomainMatches(host string, targets []string) bool {
	for _, t := range targets {
		if domainMatches(host, t) {
			return true
		}
	}
	return false
}
