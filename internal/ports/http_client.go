package ports

import "net/http"

// HTTPClient performs the Telegram Bot API calls. *http.Client satisfies it;
// tests substitute an httptest server's client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
