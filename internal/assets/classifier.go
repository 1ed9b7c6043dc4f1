// Package assets discovers harvestable remote resources in article bodies and
// assigns them stable local names.
package assets

import (
	"net/url"
	"strings"
)

// Classifier decides whether a URL belongs to the trusted image CDN.
type Classifier struct {
	allowedHosts []string
}

// NewClassifier creates a classifier for the given CDN allow-list.
// Hosts are matched case-insensitively.
func NewClassifier(allowedHosts []string) *Classifier {
	hosts := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}

	return &Classifier{allowedHosts: hosts}
}

// IsHarvestable reports whether the URL's host equals, or is a subdomain of,
// one of the allowed CDN hosts. Malformed and protocol-relative URLs are not
// harvestable.
func (c *Classifier) IsHarvestable(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}

	for _, allowed := range c.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}

	return false
}
