package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// RemoteLoader fetches a dataset from an HTTP provider exposing three JSON
// endpoints: /races, /horses, and /payoffs. Requests go through the shared
// rate-limited retrying client.
type RemoteLoader struct {
	client  *RateLimitedHTTPClient
	baseURL string
	apiKey  string
}

// NewRemoteLoader creates a loader against the given base URL
func NewRemoteLoader(client *RateLimitedHTTPClient, baseURL, apiKey string) *RemoteLoader {
	return &RemoteLoader{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name returns the name of the data source
func (l *RemoteLoader) Name() string { return "remote" }

// Load fetches all three endpoints; /payoffs may return 404 for ante-post data
func (l *RemoteLoader) Load(ctx context.Context) (*Dataset, error) {
	dataset := &Dataset{}
	if err := l.fetch(ctx, "/races", &dataset.Races); err != nil {
		return nil, err
	}
	if err := l.fetch(ctx, "/horses", &dataset.Horses); err != nil {
		return nil, err
	}
	if err := l.fetch(ctx, "/payoffs", &dataset.Payoffs); err != nil {
		if dsErr, ok := err.(DataSourceError); ok && dsErr.Code == ErrCodeNotFound {
			return dataset, nil
		}
		return nil, err
	}

	// Horse odds may arrive as JSON strings depending on the provider
	for i := range dataset.Horses {
		if dataset.Horses[i].Odds == nil {
			dataset.Horses[i].Odds = map[string]float64{}
		}
	}
	return dataset, nil
}

func (l *RemoteLoader) fetch(ctx context.Context, path string, out any) error {
	url := l.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewDataSourceError(l.Name(), ErrCodeInvalidData, url, err)
	}
	req.Header.Set("Accept", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.client.Do(ctx, req)
	if err != nil {
		return NewDataSourceError(l.Name(), ErrCodeNetworkError, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return NewDataSourceError(l.Name(), ErrCodeNotFound, url, ErrNotFound)
	case resp.StatusCode >= 500:
		return NewDataSourceError(l.Name(), ErrCodeServerError, fmt.Sprintf("%s returned %d", url, resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return NewDataSourceError(l.Name(), ErrCodeInvalidData, fmt.Sprintf("%s returned %d", url, resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewDataSourceError(l.Name(), ErrCodeInvalidData, "decoding "+url, err)
	}
	return nil
}
