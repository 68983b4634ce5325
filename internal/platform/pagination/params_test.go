package pagination

import (
	"encoding/base64"
	"errors"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestParsePageSize(t *testing.T) {
	opts := Options{DefaultPageSize: 25, MaxPageSize: 40}
	cases := []struct {
		raw  string
		want int
		err  error
	}{
		{raw: "", want: 25},
		{raw: " 30 ", want: 30},
		{raw: "400", want: 40},
		{raw: "abc", err: ErrInvalidPageSize},
		{raw: "0", err: ErrInvalidPageSize},
		{raw: "-3", err: ErrInvalidPageSize},
	}
	for _, tc := range cases {
		params, err := Parse(url.Values{"pageSize": {tc.raw}}, opts)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("pageSize %q: expected %v, got %v", tc.raw, tc.err, err)
			}
			continue
		}
		if err != nil || params.PageSize != tc.want {
			t.Fatalf("pageSize %q: expected %d, got %d (%v)", tc.raw, tc.want, params.PageSize, err)
		}
	}

	params, err := Parse(url.Values{}, Options{})
	if err != nil || params.PageSize != DefaultPageSize || !params.Cursor.IsZero() || params.Filters != nil {
		t.Fatalf("unexpected defaults %+v %v", params, err)
	}
}

func TestPageTokenRoundTrip(t *testing.T) {
	cursor := Cursor{CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 123, time.UTC), ID: "ord.with.dots"}
	token, err := EncodeToken(cursor)
	if err != nil {
		t.Fatalf("EncodeToken returned error: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/order/all-orders?pageToken="+url.QueryEscape(token), nil)
	params, err := FromRequest(req, Options{})
	if err != nil {
		t.Fatalf("FromRequest returned error: %v", err)
	}
	if params.PageToken != token || !params.Cursor.CreatedAt.Equal(cursor.CreatedAt) || params.Cursor.ID != cursor.ID {
		t.Fatalf("expected cursor %#v got %#v", cursor, params.Cursor)
	}

	if token, err := EncodeToken(Cursor{}); err != nil || token != "" {
		t.Fatalf("expected empty token for zero cursor, got %q %v", token, err)
	}
	if _, err := EncodeToken(Cursor{CreatedAt: cursor.CreatedAt}); err == nil {
		t.Fatal("expected error for cursor without id")
	}
}

func TestParseRejectsMalformedTokens(t *testing.T) {
	encode := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	for _, token := range []string{
		"%%%not-base64",
		encode("{}"),
		encode("c0.abc.ord_1"),
		encode("c1.abc"),
		encode("c1.!!.ord_1"),
	} {
		if _, err := Parse(url.Values{"pageToken": {token}}, Options{}); !errors.Is(err, ErrInvalidPageToken) {
			t.Fatalf("token %q: expected ErrInvalidPageToken got %v", token, err)
		}
	}
}

func TestParseFilters(t *testing.T) {
	values := url.Values{}
	values.Set("status", "  'Packing' ")
	values.Set("paymentMethod", "<b>COD</b>")
	values.Set("ignored", "x")

	params, err := Parse(values, Options{AllowedFilters: []string{"status", "paymentMethod"}})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(params.Filters) != 2 || params.Filters["status"] != "Packing" || params.Filters["paymentMethod"] != "COD" {
		t.Fatalf("unexpected filters %#v", params.Filters)
	}

	values.Add("status", "Shipped")
	if _, err := Parse(values, Options{AllowedFilters: []string{"status"}}); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter for repeated filter got %v", err)
	}
}
