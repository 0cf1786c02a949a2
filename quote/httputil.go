package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/batch"
)

// contains http utils to deal with remote services

const userAgent = "Mozilla/5.0 (compatible; stockfolio/1.3)"

// getJSON performs an HTTP GET request bounded by timeout and decodes the
// JSON response into a generic value suitable for jsonpath.
func getJSON(ctx context.Context, client *http.Client, timeout time.Duration, addr string) (any, error) {
	return batch.WithTimeout(ctx, timeout, func(ctx context.Context) (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, &stockfolio.APIError{URL: redact(addr), Message: err.Error()}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, &stockfolio.APIError{Status: resp.StatusCode, URL: redact(addr), Message: resp.Status}
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", redact(addr), err)
		}
		var jobj any
		if err := json.Unmarshal(body, &jobj); err != nil {
			return nil, fmt.Errorf("decode %s: %w", redact(addr), err)
		}
		return jobj, nil
	})
}

// redact keeps host and path only.
func redact(addr string) string {
	if i := strings.IndexByte(addr, '?'); i >= 0 {
		return addr[:i]
	}
	return addr
}

// pick evaluates a jsonpath expression.
func pick(path string, jobj any) (any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("cannot read %q: %w", path, err)
	}
	return jval, nil
}

// number reads a JSON number, or a string holding one with thousands separators.
func number(jval any) (float64, error) {
	switch v := jval.(type) {
	case float64:
		return v, nil
	case string:
		s := strings.ReplaceAll(v, ",", "")
		s = strings.TrimSpace(s)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), fmt.Errorf("invalid number %q", v)
		}
		return f, nil
	case nil:
		return math.NaN(), errors.New("missing number")
	}
	return math.NaN(), fmt.Errorf("not a number: %v", jval)
}

// positive rejects prices that cannot be a quote.
func positive(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return fmt.Errorf("invalid price %v", p)
	}
	return nil
}

// lastRow returns the last row of the array at path.
func lastRow(jobj any, path string) ([]any, error) {
	jval, err := pick(path, jobj)
	if err != nil {
		return nil, err
	}
	rows, ok := jval.([]any)
	if !ok || len(rows) == 0 {
		return nil, errors.New("no data")
	}
	row, ok := rows[len(rows)-1].([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected row %v", rows[len(rows)-1])
	}
	return row, nil
}
