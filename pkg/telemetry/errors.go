package telemetry

import "strings"

// Category is one of the fixed error categories from §4.4.
type Category string

const (
	CategoryClientError  Category = "client_error"
	CategoryServerError  Category = "server_error"
	CategoryNetworkError Category = "network_error"
	CategoryTimeoutError Category = "timeout_error"
	CategoryTLSError     Category = "tls_error"
	CategoryOtherError   Category = "other_error"
)

// networkMarkers and friends are matched, lowercased, against a
// transport error's message when no HTTP status is available.
var (
	networkMarkers = []string{"connection refused", "no such host", "connect:", "econnrefused", "connection reset", "broken pipe", "network is unreachable"}
	timeoutMarkers = []string{"timeout", "deadline exceeded", "i/o timeout"}
	tlsMarkers     = []string{"certificate", "tls:", "x509", "handshake"}
)

// Classify maps a completed outcome to a fixed category. status is the
// HTTP status code if the transport produced a response (status > 0);
// otherwise transportErr is the transport-layer error.
func Classify(status int, transportErr error) Category {
	if status > 0 {
		switch {
		case status >= 400 && status <= 499:
			return CategoryClientError
		case status >= 500 && status <= 599:
			return CategoryServerError
		default:
			return CategoryOtherError
		}
	}

	if transportErr == nil {
		return CategoryOtherError
	}

	msg := strings.ToLower(transportErr.Error())
	for _, m := range tlsMarkers {
		if strings.Contains(msg, m) {
			return CategoryTLSError
		}
	}
	for _, m := range timeoutMarkers {
		if strings.Contains(msg, m) {
			return CategoryTimeoutError
		}
	}
	for _, m := range networkMarkers {
		if strings.Contains(msg, m) {
			return CategoryNetworkError
		}
	}
	return CategoryOtherError
}
