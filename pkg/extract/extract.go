package extract

import (
	"net/http"
	"regexp"

	"github.com/cuemby/pulsewave/pkg/types"
	"github.com/cuemby/pulsewave/pkg/vucontext"
)

// Response is the subset of an HTTP response extractors read from.
// Body must already be fully drained by the caller.
type Response struct {
	Header  http.Header
	Cookies []*http.Cookie
	Body    []byte
}

// Apply runs a single extractor against resp, binding into ctx on
// success. Extraction never returns an error: a miss simply leaves the
// name unbound, per §4.8.
func Apply(ex types.Extractor, resp Response, ctx *vucontext.Context) {
	switch ex.Kind {
	case types.ExtractorJSONPath:
		v, ok := evalJSONPath(resp.Body, ex.Path)
		if !ok {
			return
		}
		ctx.Set(ex.Name, jsonValueToString(v))

	case types.ExtractorRegex:
		re, err := regexp.Compile(ex.Pattern)
		if err != nil {
			return
		}
		m := re.FindSubmatch(resp.Body)
		if len(m) < 2 {
			return
		}
		ctx.Set(ex.Name, string(m[1]))

	case types.ExtractorHeader:
		v := resp.Header.Get(ex.Header)
		if v == "" {
			return
		}
		ctx.Set(ex.Name, v)

	case types.ExtractorCookie:
		for _, c := range resp.Cookies {
			if c.Name == ex.Cookie {
				ctx.Set(ex.Name, c.Value)
				return
			}
		}
	}
}

// ApplyAll runs every extractor in order against the same response.
func ApplyAll(extractors []types.Extractor, resp Response, ctx *vucontext.Context) {
	for _, ex := range extractors {
		Apply(ex, resp, ctx)
	}
}
