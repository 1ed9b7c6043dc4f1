package assets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/gomirror/internal/assets"
)

var testAllowedHosts = []string{"mmbiz.qpic.cn", "res.wx.qq.com"}

func TestClassifierAllowedHosts(t *testing.T) {
	c := assets.NewClassifier(testAllowedHosts)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"exact host", "https://mmbiz.qpic.cn/img/abc", true},
		{"second allowed host", "http://res.wx.qq.com/a.png", true},
		{"subdomain of allowed host", "https://cdn.mmbiz.qpic.cn/img/abc", true},
		{"case-insensitive host", "https://MMBIZ.QPIC.CN/img/abc", true},
		{"unrelated host", "https://example.com/img/abc", false},
		{"allowed host as suffix of another domain", "https://evilmmbiz.qpic.cn.attacker.com/x", false},
		{"host sharing only the suffix", "https://notmmbiz.qpic.cn/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsHarvestable(tt.url))
		})
	}
}

func TestClassifierRejectsMalformedURLs(t *testing.T) {
	c := assets.NewClassifier(testAllowedHosts)

	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"protocol-relative", "//mmbiz.qpic.cn/img/abc"},
		{"no scheme", "mmbiz.qpic.cn/img/abc"},
		{"data URI", "data:image/png;base64,AAAA"},
		{"ftp scheme", "ftp://mmbiz.qpic.cn/img/abc"},
		{"control character", "https://mmbiz.qpic.cn/\x7f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, c.IsHarvestable(tt.url))
		})
	}
}
