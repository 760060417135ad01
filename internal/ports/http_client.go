package ports

import "net/http"

// HTTPClient performs the POST of a batch to an ingest service.
// *http.Client satisfies it; tests pass a recording fake.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
