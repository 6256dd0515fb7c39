// Package extract binds names in a vucontext.Context from an HTTP
// response: a minimal JSONPath, a regex capture group, a response
// header, or a Set-Cookie value. Extraction never fails a step; a
// miss simply leaves the name unbound.
package extract
