package assert

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/pulsewave/pkg/types"
)

func strPtr(s string) *string { return &s }

func TestEvaluateStatusCode(t *testing.T) {
	a := types.Assertion{Kind: types.AssertionStatusCode, StatusCode: 200}
	r := Evaluate(a, Response{Status: 200})
	assert.True(t, r.Pass)

	r = Evaluate(a, Response{Status: 500})
	assert.False(t, r.Pass)
}

func TestEvaluateResponseTime(t *testing.T) {
	a := types.Assertion{Kind: types.AssertionResponseTime, MaxLatency: 100 * time.Millisecond}
	r := Evaluate(a, Response{Latency: 50 * time.Millisecond})
	assert.True(t, r.Pass)

	r = Evaluate(a, Response{Latency: 200 * time.Millisecond})
	assert.False(t, r.Pass)
}

func TestEvaluateJSONPathNoExpectedPassesIfResolved(t *testing.T) {
	a := types.Assertion{Kind: types.AssertionJSONPath, Path: "$.id"}
	r := Evaluate(a, Response{Body: []byte(`{"id":"42"}`)})
	assert.True(t, r.Pass)

	r = Evaluate(a, Response{Body: []byte(`{}`)})
	assert.False(t, r.Pass)
}

func TestEvaluateJSONPathWithExpected(t *testing.T) {
	a := types.Assertion{Kind: types.AssertionJSONPath, Path: "$.status", Expected: strPtr("ok")}
	r := Evaluate(a, Response{Body: []byte(`{"status":"ok"}`)})
	assert.True(t, r.Pass)

	r = Evaluate(a, Response{Body: []byte(`{"status":"fail"}`)})
	assert.False(t, r.Pass)
}

func TestEvaluateBodyContains(t *testing.T) {
	a := types.Assertion{Kind: types.AssertionBodyContains, Contains: "hello"}
	r := Evaluate(a, Response{Body: []byte("hello world")})
	assert.True(t, r.Pass)

	r = Evaluate(a, Response{Body: []byte("goodbye")})
	assert.False(t, r.Pass)
}

func TestEvaluateBodyMatches(t *testing.T) {
	a := types.Assertion{Kind: types.AssertionBodyMatches, Pattern: `^\d+$`}
	r := Evaluate(a, Response{Body: []byte("12345")})
	assert.True(t, r.Pass)

	r = Evaluate(a, Response{Body: []byte("not a number")})
	assert.False(t, r.Pass)
}

func TestEvaluateHeaderExists(t *testing.T) {
	h := http.Header{}
	h.Set("X-Trace-Id", "abc")
	a := types.Assertion{Kind: types.AssertionHeaderExists, Header: "x-trace-id"}

	r := Evaluate(a, Response{Header: h})
	assert.True(t, r.Pass)

	r = Evaluate(a, Response{Header: http.Header{}})
	assert.False(t, r.Pass)
}

func TestEvaluateAllFailsIfAnyFail(t *testing.T) {
	assertions := []types.Assertion{
		{Kind: types.AssertionStatusCode, StatusCode: 200},
		{Kind: types.AssertionBodyContains, Contains: "missing"},
	}
	ok, results := EvaluateAll(assertions, Response{Status: 200, Body: []byte("hello")})
	assert.False(t, ok)
	assert.Len(t, results, 2)
	assert.True(t, results[0].Pass)
	assert.False(t, results[1].Pass)
}

func TestEvaluateAllPassesWhenAllPass(t *testing.T) {
	assertions := []types.Assertion{
		{Kind: types.AssertionStatusCode, StatusCode: 200},
	}
	ok, _ := EvaluateAll(assertions, Response{Status: 200})
	assert.True(t, ok)
}
