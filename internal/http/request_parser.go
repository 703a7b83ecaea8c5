// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data
// sent either as HTMX form posts or as JSON.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"allocation-tracker/internal/core"
)

// maxBodyBytes bounds request bodies; payments are a few fields.
const maxBodyBytes = 64 << 10

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

// NewRequestBodyParser reads the body once and stores it for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if p.err == nil && len(p.body) > maxBodyBytes {
			p.err = errBodyTooLarge
		}
	}
	return p
}

var (
	errBodyTooLarge  = errors.New("request body too large")
	errMalformedBody = errors.New("malformed request body")
)

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = fmt.Errorf("%w: %v", errMalformedBody, err)
		}
		return p.err
	}

	form, err := url.ParseQuery(body)
	if err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, err)
		return p.err
	}
	p.formData = form
	return nil
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// PaymentRequest is the validated shape of POST /payments.
type PaymentRequest struct {
	Type   core.AllocationType
	Amount core.Money
	Notes  string
}

// ParsePaymentRequest extracts type, amount and notes. Amount syntax errors
// are reported as the same validation error the ledger uses for range errors.
func ParsePaymentRequest(p *RequestBodyParser, policy core.ZeroPolicy) (PaymentRequest, error) {
	if err := p.Parse(); err != nil {
		return PaymentRequest{}, err
	}
	req := PaymentRequest{
		Type:  core.AllocationType(p.Get("type")),
		Notes: p.Get("notes"),
	}
	amount, err := core.ParseMoney(p.Get("amount"))
	if err != nil {
		return PaymentRequest{}, core.InvalidAmount(policy)
	}
	req.Amount = amount
	return req, nil
}

// wantsJSON reports whether the caller is an API client rather than htmx.
func wantsJSON(r *http.Request, p *RequestBodyParser) bool {
	if r.Header.Get("HX-Request") == "true" {
		return false
	}
	return p.IsJSON() || strings.Contains(r.Header.Get("Accept"), "application/json")
}
