package datasource

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// SourceType represents the type of data source
type SourceType string

const (
	// CSVSourceType loads from a directory of CSV files
	CSVSourceType SourceType = "csv"
	// ExcelSourceType loads from an xlsx workbook
	ExcelSourceType SourceType = "excel"
	// DatabaseSourceType loads from PostgreSQL
	DatabaseSourceType SourceType = "db"
	// RemoteSourceType loads from an HTTP provider
	RemoteSourceType SourceType = "remote"
)

// Options carries the connection details for each source type; only the
// fields relevant to the chosen type need to be set.
type Options struct {
	Path    string // CSV directory or xlsx file
	DSN     string // PostgreSQL connection string
	BaseURL string // remote provider base URL
	APIKey  string // remote provider credential
	HTTP    HTTPClientConfig
}

// New creates a Loader for the given source type. The returned cleanup
// function releases any held connections and is always safe to call.
func New(ctx context.Context, kind SourceType, opts Options, log *logrus.Logger) (Loader, func(), error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	noop := func() {}

	switch kind {
	case CSVSourceType:
		if opts.Path == "" {
			return nil, noop, fmt.Errorf("csv source requires a dataset directory")
		}
		return NewCSVLoader(opts.Path), noop, nil

	case ExcelSourceType:
		if opts.Path == "" {
			return nil, noop, fmt.Errorf("excel source requires a workbook path")
		}
		return NewExcelLoader(opts.Path), noop, nil

	case DatabaseSourceType:
		if opts.DSN == "" {
			return nil, noop, fmt.Errorf("db source requires a connection string")
		}
		loader, err := NewDatabaseLoader(ctx, opts.DSN)
		if err != nil {
			return nil, noop, err
		}
		return loader, loader.Close, nil

	case RemoteSourceType:
		if opts.BaseURL == "" {
			return nil, noop, fmt.Errorf("remote source requires a base URL")
		}
		client := NewRateLimitedHTTPClient(opts.HTTP, log)
		loader := NewRemoteLoader(client, opts.BaseURL, opts.APIKey)
		return loader, func() { client.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown data source type: %s", kind)
	}
}
