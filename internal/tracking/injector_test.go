package tracking

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "http://localhost:8000"

func TestInstrumentRewritesOnlyTrackableLinks(t *testing.T) {
	html := `<html><body>` +
		`<a href="https://x.com">go</a>` +
		`<a href="#top">top</a>` +
		`<a href="mailto:a@b.com">mail</a>` +
		`</body></html>`

	out, err := Instrument(html, "sub-1", "camp-1", base)
	require.NoError(t, err)

	assert.Contains(t, out,
		`href="`+base+`/tracking/click?subscriber_id=sub-1&campaign_id=camp-1&url=`+url.QueryEscape("https://x.com")+`"`)
	assert.Contains(t, out, `href="#top"`)
	assert.Contains(t, out, `href="mailto:a@b.com"`)
	assert.NotContains(t, out, `url=%23top`)
}

func TestInstrumentSkipsExistingUnsubscribeLink(t *testing.T) {
	unsub := UnsubscribeURL("sub-1", "camp-1", base)
	html := `<body><a href="` + unsub + `">bye</a></body>`

	out, err := Instrument(html, "sub-1", "camp-1", base)
	require.NoError(t, err)

	// the original unsubscribe link stays, it is not wrapped in /tracking/click
	assert.NotContains(t, out, `click?subscriber_id=sub-1&campaign_id=camp-1&url=`+url.QueryEscape(unsub))
}

func TestInstrumentPixelBeforeClosingBody(t *testing.T) {
	out, err := Instrument(`<html><body><p>hi</p></body></html>`, "s", "c", base)
	require.NoError(t, err)

	pixelAt := strings.Index(out, "/tracking/pixel?")
	bodyAt := strings.Index(out, "</body>")
	require.GreaterOrEqual(t, pixelAt, 0)
	require.GreaterOrEqual(t, bodyAt, 0)
	assert.Less(t, pixelAt, bodyAt, "pixel must sit before the closing body tag")
}

func TestInstrumentUppercaseBodyWithMultibyteRunes(t *testing.T) {
	// İ lowercases to a shorter UTF-8 sequence; the insertion offset must be
	// computed on the original bytes or the block lands mid-tag.
	html := `<html><BODY><p>İstanbul KELVİN</p></BODY></html>`

	out, err := Instrument(html, "s", "c", base)
	require.NoError(t, err)

	assert.Contains(t, out, `<p>İstanbul KELVİN</p>`)
	pixelAt := strings.Index(out, "/tracking/pixel?")
	bodyAt := strings.Index(out, "</BODY>")
	require.GreaterOrEqual(t, pixelAt, 0)
	require.GreaterOrEqual(t, bodyAt, 0)
	assert.Less(t, pixelAt, bodyAt)
	assert.True(t, strings.HasSuffix(out, "</BODY></html>"))
}

func TestInstrumentWithoutBodyTagAppendsAtEnd(t *testing.T) {
	out, err := Instrument(`<p>plain fragment</p>`, "s", "c", base)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<p>plain fragment</p>`))
	assert.Contains(t, out, "/tracking/pixel?subscriber_id=s&campaign_id=c")
	assert.Contains(t, out, "/tracking/unsubscribe?subscriber_id=s&campaign_id=c")
}

func TestInstrumentUnsubscribeLinkAfterPixel(t *testing.T) {
	out, err := Instrument(`<body>x</body>`, "s", "c", base)
	require.NoError(t, err)

	pixelAt := strings.Index(out, "/tracking/pixel?")
	unsubAt := strings.Index(out, "/tracking/unsubscribe?")
	assert.Less(t, pixelAt, unsubAt)
}

func TestInstrumentEmptyHTML(t *testing.T) {
	_, err := Instrument("", "s", "c", base)
	assert.ErrorIs(t, err, ErrEmptyHTML)
}

func TestInstrumentPercentEncodesQueryTargets(t *testing.T) {
	html := `<body><a href="https://x.com/path?a=1&b=2">go</a></body>`
	out, err := Instrument(html, "s", "c", base)
	require.NoError(t, err)

	assert.Contains(t, out, "url="+url.QueryEscape("https://x.com/path?a=1&b=2"))
}
