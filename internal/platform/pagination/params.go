// Package pagination turns listing query strings into bounded page requests.
package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/textutil"
)

const (
	// DefaultPageSize applies when the client sends no pageSize.
	DefaultPageSize = 50
	// DefaultMaxPageSize is the ceiling when Options leaves MaxPageSize unset.
	DefaultMaxPageSize = 100

	maxFilterValueLength = 64
)

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid pageSize")
	ErrInvalidFilter    = errors.New("pagination: invalid filter")
	ErrInvalidPageToken = errors.New("pagination: invalid pageToken")
)

// Options describes one listing endpoint.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	// AllowedFilters are the query keys treated as exact-match filters. Others are ignored.
	AllowedFilters []string
}

// Params is a parsed page request.
type Params struct {
	PageSize  int
	PageToken string
	Cursor    Cursor
	Filters   map[string]string
}

// FromRequest parses r's query string.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil || r.URL == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse reads pageSize, pageToken and the allowed filters from values.
func Parse(values url.Values, opts Options) (Params, error) {
	size, err := opts.pageSize(values.Get("pageSize"))
	if err != nil {
		return Params{}, err
	}
	params := Params{PageSize: size, PageToken: strings.TrimSpace(values.Get("pageToken"))}
	if params.Cursor, err = DecodeToken(params.PageToken); err != nil {
		return Params{}, err
	}
	for _, key := range opts.AllowedFilters {
		given := values[key]
		switch {
		case len(given) == 0:
			continue
		case len(given) > 1:
			return Params{}, fmt.Errorf("%w: %s given more than once", ErrInvalidFilter, key)
		}
		value := strings.Trim(textutil.PlainText(given[0], maxFilterValueLength), `"' `)
		if value == "" {
			continue
		}
		if params.Filters == nil {
			params.Filters = make(map[string]string)
		}
		params.Filters[key] = value
	}
	return params, nil
}

func (o Options) pageSize(raw string) (int, error) {
	ceiling := o.MaxPageSize
	if ceiling <= 0 {
		ceiling = DefaultMaxPageSize
	}
	size := o.DefaultPageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if raw = strings.TrimSpace(raw); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
		}
		if n <= 0 {
			return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidPageSize)
		}
		size = n
	}
	return min(size, ceiling), nil
}
