package vucontext

import (
	"strconv"
	"strings"
	"time"
)

// reservedTimestamp is the one name a Context never stores: it is
// resolved fresh on every substitution to the current epoch-ms.
const reservedTimestamp = "timestamp"

// Context is an ordered str→str mapping, scoped to one virtual user's
// one scenario execution. The zero value is ready to use.
type Context struct {
	keys   []string
	values map[string]string
}

// New returns an empty context.
func New() *Context {
	return &Context{values: make(map[string]string)}
}

// Set binds name to value, appending name to the insertion order if it
// is new. Setting the reserved name "timestamp" is a no-op: it can
// never be overridden since substitution always resolves it live.
func (c *Context) Set(name, value string) {
	if name == reservedTimestamp {
		return
	}
	if c.values == nil {
		c.values = make(map[string]string)
	}
	if _, ok := c.values[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.values[name] = value
}

// Get returns the bound value for name and whether it is bound.
func (c *Context) Get(name string) (string, bool) {
	if name == reservedTimestamp {
		return currentTimestamp(), true
	}
	v, ok := c.values[name]
	return v, ok
}

// Keys returns the bound names in insertion order.
func (c *Context) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Reset clears every binding, returning the context to its zero state
// for reuse across scenario executions.
func (c *Context) Reset() {
	c.keys = nil
	c.values = make(map[string]string)
}

func currentTimestamp() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// isNameByte reports whether b can appear in a substitution name:
// alphanumeric or underscore.
func isNameByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '_':
		return true
	default:
		return false
	}
}

// Substitute replaces every ${name} and $name occurrence in s with the
// context's bound value for name, or the empty string if unbound. The
// reserved name "timestamp" always resolves to the current epoch-ms.
func (c *Context) Substitute(s string) string {
	if !strings.ContainsRune(s, '$') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '$' || i == len(s)-1 {
			b.WriteByte(ch)
			continue
		}

		if s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				b.WriteByte(ch)
				continue
			}
			name := s[i+2 : i+2+end]
			b.WriteString(c.resolve(name))
			i += 2 + end
			continue
		}

		j := i + 1
		for j < len(s) && isNameByte(s[j]) {
			j++
		}
		if j == i+1 {
			b.WriteByte(ch)
			continue
		}
		name := s[i+1 : j]
		b.WriteString(c.resolve(name))
		i = j - 1
	}

	return b.String()
}

func (c *Context) resolve(name string) string {
	v, _ := c.Get(name)
	return v
}
