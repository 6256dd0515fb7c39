package vucontext

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	c := New()
	c.Set("user_id", "42")
	v, ok := c.Get("user_id")
	assert.True(t, ok)
	assert.Equal(t, "42", v)
}

func TestGetUnbound(t *testing.T) {
	c := New()
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestKeysPreservesInsertionOrder(t *testing.T) {
	c := New()
	c.Set("b", "2")
	c.Set("a", "1")
	c.Set("b", "20") // re-set shouldn't move it
	assert.Equal(t, []string{"b", "a"}, c.Keys())
}

func TestReset(t *testing.T) {
	c := New()
	c.Set("a", "1")
	c.Reset()
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Empty(t, c.Keys())
}

func TestSubstituteBracedAndBare(t *testing.T) {
	c := New()
	c.Set("user_id", "42")
	c.Set("token", "abc123")

	got := c.Substitute("/users/${user_id}?auth=$token")
	assert.Equal(t, "/users/42?auth=abc123", got)
}

func TestSubstituteUnboundNameIsEmpty(t *testing.T) {
	c := New()
	got := c.Substitute("hello ${missing} world")
	assert.Equal(t, "hello  world", got)
}

func TestSubstituteNoDollarIsUnchanged(t *testing.T) {
	c := New()
	got := c.Substitute("no variables here")
	assert.Equal(t, "no variables here", got)
}

func TestSubstituteTimestampIsReEvaluated(t *testing.T) {
	c := New()

	before := time.Now().UnixMilli()
	got := c.Substitute("${timestamp}")
	after := time.Now().UnixMilli()

	n, err := strconv.ParseInt(got, 10, 64)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, n, before)
	assert.LessOrEqual(t, n, after)
}

func TestSetTimestampIsNoop(t *testing.T) {
	c := New()
	c.Set("timestamp", "ignored")
	got := c.Substitute("${timestamp}")
	assert.NotEqual(t, "ignored", got)
}

func TestSubstituteTrailingDollarSign(t *testing.T) {
	c := New()
	got := c.Substitute("price: 5$")
	assert.Equal(t, "price: 5$", got)
}

func TestSubstituteUnterminatedBrace(t *testing.T) {
	c := New()
	got := c.Substitute("broken ${unclosed")
	assert.Equal(t, "broken ${unclosed", got)
}
