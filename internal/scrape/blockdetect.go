package scrape

import (
	"bytes"
	"strings"
)

// BlockType names the anti-bot wall a page was served behind.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// shellLimit is the body size under which a page may be a bare JS loader.
const shellLimit = 2000

// blockRule matches when every needle is present in the lowercased body.
type blockRule struct {
	kind    BlockType
	needles []string
	small   bool
}

var blockRules = []blockRule{
	{kind: BlockCloudflare, needles: []string{"checking your browser"}},
	{kind: BlockCloudflare, needles: []string{"cf-browser-verification"}},
	{kind: BlockCloudflare, needles: []string{"cloudflare", "challenge"}},
	{kind: BlockCaptcha, needles: []string{"captcha"}},
	{kind: BlockJSShell, needles: []string{"<noscript", "javascript"}, small: true},
	{kind: BlockJSShell, needles: []string{`meta http-equiv="refresh"`}, small: true},
}

// DetectBlock reports whether a fetched HTML body is a challenge page
// rather than site content. Rules are tried in order.
func DetectBlock(body []byte) (bool, BlockType) {
	lower := string(bytes.ToLower(body))
	for _, r := range blockRules {
		if r.small && len(body) >= shellLimit {
			continue
		}
		if containsAll(lower, r.needles) {
			return true, r.kind
		}
	}
	return false, BlockNone
}

func containsAll(s string, needles []string) bool {
	for _, n := range needles {
		if !strings.Contains(s, n) {
			return false
		}
	}
	return true
}
