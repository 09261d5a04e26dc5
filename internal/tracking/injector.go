// Package tracking rewrites email HTML to add open, click, and unsubscribe
// instrumentation scoped to one (subscriber, campaign) pair. Pure string
// transformation, safe for concurrent use.
package tracking

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var ErrEmptyHTML = errors.New("tracking: empty html body")

// hrefRe matches double-quoted href attributes, the form templates produce.
var hrefRe = regexp.MustCompile(`(?i)href="([^"]*)"`)

// bodyCloseRe locates the closing body tag. Matching on the original string
// keeps byte offsets valid for multi-byte runes elsewhere in the document.
var bodyCloseRe = regexp.MustCompile(`(?i)</body>`)

// Instrument returns the HTML with:
//   - every hyperlink rewritten to the click-indirection endpoint carrying
//     the original target percent-encoded; anchors, mailto: links, and links
//     already pointing at the unsubscribe endpoint pass through unmodified,
//   - an invisible 1x1 open-tracking pixel inserted before </body> (appended
//     at the end when the document has no closing body tag),
//   - a visible unsubscribe link after the pixel.
//
// Malformed or tag-free input is instrumented on a best-effort basis and
// never corrupts what was there.
func Instrument(html, subscriberID, campaignID, baseURL string) (string, error) {
	if html == "" {
		return "", ErrEmptyHTML
	}
	baseURL = strings.TrimRight(baseURL, "/")

	out := rewriteLinks(html, subscriberID, campaignID, baseURL)

	block := pixelTag(subscriberID, campaignID, baseURL) + unsubscribeTag(subscriberID, campaignID, baseURL)
	if loc := bodyCloseRe.FindStringIndex(out); loc != nil {
		out = out[:loc[0]] + block + out[loc[0]:]
	} else {
		out += block
	}

	return out, nil
}

// UnsubscribeURL is the shape consumed by the tracking redirect handlers.
func UnsubscribeURL(subscriberID, campaignID, baseURL string) string {
	return fmt.Sprintf("%s/tracking/unsubscribe?subscriber_id=%s&campaign_id=%s",
		strings.TrimRight(baseURL, "/"), url.QueryEscape(subscriberID), url.QueryEscape(campaignID))
}

func rewriteLinks(html, subscriberID, campaignID, baseURL string) string {
	return hrefRe.ReplaceAllStringFunc(html, func(m string) string {
		target := hrefRe.FindStringSubmatch(m)[1]
		if skipTarget(target) {
			return m
		}
		click := fmt.Sprintf("%s/tracking/click?subscriber_id=%s&campaign_id=%s&url=%s",
			baseURL, url.QueryEscape(subscriberID), url.QueryEscape(campaignID), url.QueryEscape(target))
		return `href="` + click + `"`
	})
}

func skipTarget(target string) bool {
	t := strings.TrimSpace(target)
	switch {
	case t == "":
		return true
	case strings.HasPrefix(t, "#"):
		return true
	case strings.HasPrefix(strings.ToLower(t), "mailto:"):
		return true
	case strings.Contains(t, "/tracking/unsubscribe"):
		return true
	}
	return false
}

func pixelTag(subscriberID, campaignID, baseURL string) string {
	return fmt.Sprintf(
		`<img src="%s/tracking/pixel?subscriber_id=%s&campaign_id=%s" width="1" height="1" alt="" style="display:none;" />`,
		baseURL, url.QueryEscape(subscriberID), url.QueryEscape(campaignID))
}

func unsubscribeTag(subscriberID, campaignID, baseURL string) string {
	return fmt.Sprintf(`<p style="font-size:12px;color:#999;"><a href="%s">Unsubscribe</a></p>`,
		UnsubscribeURL(subscriberID, campaignID, baseURL))
}
