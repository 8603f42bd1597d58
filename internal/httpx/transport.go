package httpx

import (
	"net"
	"net/http"
	"time"
)

// NewTransport creates an HTTP transport with connection pooling and
// reasonable timeouts, shared by the places and LLM clients.
func NewTransport(maxIdleConns, maxIdleConnsPerHost int) *http.Transport {
	if maxIdleConns <= 0 {
		maxIdleConns = 100
	}
	if maxIdleConnsPerHost <= 0 {
		maxIdleConnsPerHost = 100
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
