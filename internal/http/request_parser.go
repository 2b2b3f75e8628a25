// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Form posts from the HTMX page and JSON bodies share one parser so both
// surfaces apply the same amount rules.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"budgetadvisor/internal/answer"
	"budgetadvisor/internal/core"
)

// MaxQueryLength bounds the free-text question in characters.
const MaxQueryLength = answer.MaxQueryLength

// maxBodyBytes bounds request bodies read by the parser.
const maxBodyBytes = 64 << 10

// expenseFields maps form field names to record categories, in display order.
var expenseFields = []struct {
	Field    string
	Category string
}{
	{"rent", core.CategoryRent},
	{"groceries", core.CategoryGroceries},
	{"credit_card", core.CategoryCreditCard},
	{"entertainment", core.CategoryEntertainment},
}

var ErrQueryTooLong = fmt.Errorf("question must be at most %d characters", MaxQueryLength)

// FieldError reports an invalid input field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// ValidationErrors collects every invalid field of a request.
type ValidationErrors []*FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// AnalysisRequest is a validated budget submission.
type AnalysisRequest struct {
	Record core.Record
	Query  string
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads at most maxBodyBytes of the body once.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			s, _ := stringValue(val)
			return strings.TrimSpace(sanitizeInput(s))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// Scalar is Get for fields that must hold a single value. It reports false
// when a JSON body carries null, an object or an array under key.
func (p *RequestBodyParser) Scalar(key string) (string, bool) {
	if p.jsonData != nil {
		val, ok := p.jsonData[key]
		if !ok {
			return "", true
		}
		s, ok := stringValue(val)
		return strings.TrimSpace(sanitizeInput(s)), ok
	}
	return p.Get(key), true
}

// Object returns a nested JSON object as strings, for bodies such as
// {"expenses": {"Rent": 1000}}, along with the keys whose values are not
// scalars. Form bodies have no nested objects.
func (p *RequestBodyParser) Object(key string) (values map[string]string, nonScalar []string, ok bool) {
	if p.jsonData == nil {
		return nil, nil, false
	}
	raw, ok := p.jsonData[key].(map[string]any)
	if !ok {
		return nil, nil, false
	}
	values = make(map[string]string, len(raw))
	for k, v := range raw {
		k = sanitizeInput(k)
		s, scalar := stringValue(v)
		if !scalar {
			nonScalar = append(nonScalar, k)
			continue
		}
		values[k] = strings.TrimSpace(s)
	}
	sort.Strings(nonScalar)
	return values, nonScalar, true
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// ParseAnalysisRequest builds a record from the flat form fields (income,
// rent, groceries, credit_card, entertainment) or, for JSON, optionally from
// an "expenses" object keyed by category name. Every invalid field is reported.
func ParseAnalysisRequest(p *RequestBodyParser) (AnalysisRequest, error) {
	if err := p.Parse(); err != nil {
		return AnalysisRequest{}, err
	}

	var errs ValidationErrors
	amount := func(field, raw string) decimal.Decimal {
		d, err := core.ParseAmount(raw)
		if err != nil {
			errs = append(errs, &FieldError{Field: field, Err: err})
		}
		return d
	}

	scalarAmount := func(field string) decimal.Decimal {
		raw, ok := p.Scalar(field)
		if !ok {
			errs = append(errs, &FieldError{Field: field, Err: core.ErrInvalidAmount})
			return decimal.Zero
		}
		return amount(field, raw)
	}

	income := scalarAmount("income")

	expenses := make(map[string]decimal.Decimal)
	if nested, nonScalar, ok := p.Object("expenses"); ok {
		for _, name := range nonScalar {
			errs = append(errs, &FieldError{Field: name, Err: core.ErrInvalidAmount})
		}
		for name, raw := range nested {
			name = strings.TrimSpace(name)
			if name == "" {
				errs = append(errs, &FieldError{Field: "expenses", Err: core.ErrEmptyCategory})
				continue
			}
			expenses[name] = amount(name, raw)
		}
	} else {
		for _, f := range expenseFields {
			expenses[f.Category] = scalarAmount(f.Field)
		}
	}

	query := p.Get("query")
	if utf8.RuneCountInString(query) > MaxQueryLength {
		errs = append(errs, &FieldError{Field: "query", Err: ErrQueryTooLong})
	}

	if len(errs) > 0 {
		return AnalysisRequest{}, errs
	}
	return AnalysisRequest{Record: core.NewRecord(income, expenses), Query: query}, nil
}

// IsValidationError reports whether err came from input validation.
func IsValidationError(err error) bool {
	var v ValidationErrors
	return errors.As(err, &v)
}

// stringValue converts a decoded JSON value to string. Numbers keep their
// literal form so amounts stay exact. It reports false for null, objects
// and arrays.
func stringValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}
