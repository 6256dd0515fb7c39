package assert

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cuemby/pulsewave/pkg/extract"
	"github.com/cuemby/pulsewave/pkg/types"
	"github.com/cuemby/pulsewave/pkg/vucontext"
)

// Response is the subset of a step's outcome assertions read from.
type Response struct {
	Status  int
	Header  http.Header
	Body    []byte
	Latency time.Duration // elapsed time including body read, excluding think-time
}

// Result is one assertion's verdict, carrying human-readable values for
// reporting regardless of outcome.
type Result struct {
	Kind     types.AssertionKind
	Pass     bool
	Expected string
	Actual   string
}

// Evaluate runs a single assertion against resp.
func Evaluate(a types.Assertion, resp Response) Result {
	switch a.Kind {
	case types.AssertionStatusCode:
		return Result{
			Kind:     a.Kind,
			Pass:     resp.Status == a.StatusCode,
			Expected: fmt.Sprintf("%d", a.StatusCode),
			Actual:   fmt.Sprintf("%d", resp.Status),
		}

	case types.AssertionResponseTime:
		return Result{
			Kind:     a.Kind,
			Pass:     resp.Latency <= a.MaxLatency,
			Expected: fmt.Sprintf("<= %s", a.MaxLatency),
			Actual:   resp.Latency.String(),
		}

	case types.AssertionJSONPath:
		return evaluateJSONPath(a, resp)

	case types.AssertionBodyContains:
		pass := strings.Contains(string(resp.Body), a.Contains)
		return Result{
			Kind:     a.Kind,
			Pass:     pass,
			Expected: fmt.Sprintf("contains %q", a.Contains),
			Actual:   truncate(string(resp.Body)),
		}

	case types.AssertionBodyMatches:
		re, err := regexp.Compile(a.Pattern)
		pass := err == nil && re.Match(resp.Body)
		return Result{
			Kind:     a.Kind,
			Pass:     pass,
			Expected: fmt.Sprintf("matches %q", a.Pattern),
			Actual:   truncate(string(resp.Body)),
		}

	case types.AssertionHeaderExists:
		_, ok := resp.Header[http.CanonicalHeaderKey(a.Header)]
		return Result{
			Kind:     a.Kind,
			Pass:     ok,
			Expected: fmt.Sprintf("header %q present", a.Header),
			Actual:   fmt.Sprintf("present=%v", ok),
		}

	default:
		return Result{Kind: a.Kind, Pass: false, Expected: "unknown assertion kind", Actual: string(a.Kind)}
	}
}

// evaluateJSONPath handles §4.9's rule that with no Expected, the
// assertion passes iff the path resolves to any value at all.
func evaluateJSONPath(a types.Assertion, resp Response) Result {
	v, ok := jsonPathValue(resp.Body, a.Path)

	if a.Expected == nil {
		return Result{
			Kind:     a.Kind,
			Pass:     ok,
			Expected: fmt.Sprintf("%s resolves", a.Path),
			Actual:   fmt.Sprintf("resolved=%v", ok),
		}
	}

	actual := ""
	if ok {
		actual = v
	}
	return Result{
		Kind:     a.Kind,
		Pass:     ok && actual == *a.Expected,
		Expected: *a.Expected,
		Actual:   actual,
	}
}

// jsonPathValue delegates the actual JSONPath evaluation to the
// extract package so both components share one parser.
func jsonPathValue(body []byte, path string) (string, bool) {
	ex := types.Extractor{Kind: types.ExtractorJSONPath, Name: "_", Path: path}
	resp := extract.Response{Body: body}
	scratch := vucontext.New()
	extract.Apply(ex, resp, scratch)
	return scratch.Get("_")
}

// EvaluateAll runs every assertion and reports whether the step passed
// (all assertions passed) plus the per-assertion results in order.
func EvaluateAll(assertions []types.Assertion, resp Response) (bool, []Result) {
	results := make([]Result, 0, len(assertions))
	ok := true
	for _, a := range assertions {
		r := Evaluate(a, resp)
		if !r.Pass {
			ok = false
		}
		results = append(results, r)
	}
	return ok, results
}

func truncate(s string) string {
	const maxLen = 200
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
