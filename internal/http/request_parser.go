// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// month edits, the settings form and shared method/form guards.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budget/internal/core"
)

// maxBodyBytes bounds month edit bodies; they carry two short fields.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
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

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
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

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseMonthEdit reads the field name and the new value of a month edit.
// Errors wrap core.ErrFieldNotEditable or core.ErrInvalidAmount.
func ParseMonthEdit(p *RequestBodyParser) (core.MonthEdit, error) {
	if err := p.Parse(); err != nil {
		return core.MonthEdit{}, fmt.Errorf("%w: unreadable body", core.ErrInvalidAmount)
	}
	field, err := core.ParseEditableField(p.Get("field"))
	if err != nil {
		return core.MonthEdit{}, err
	}
	raw := p.Get("value")
	if raw == "" {
		// the field name doubles as the input name on month cards
		raw = p.Get(string(field))
	}
	value, err := core.ParseAmount(raw)
	if err != nil {
		return core.MonthEdit{}, fmt.Errorf("%w: %q", err, raw)
	}
	return core.MonthEdit{Field: field, Value: value}, nil
}

// ParseSettingsForm overlays submitted settings fields onto base. Fields that
// are absent keep their base value; present but malformed numbers are errors.
func ParseSettingsForm(form url.Values, base core.Settings) (core.Settings, error) {
	s := base
	var problems []string

	text := func(key string, dst *string) {
		if _, ok := form[key]; ok {
			*dst = sanitizeInput(form.Get(key))
		}
	}
	number := func(key string, dst *int) {
		if _, ok := form[key]; !ok {
			return
		}
		v, err := strconv.Atoi(strings.TrimSpace(form.Get(key)))
		if err != nil {
			problems = append(problems, key+" must be a number")
			return
		}
		*dst = v
	}
	amount := func(key string, dst *core.Amount) {
		if _, ok := form[key]; !ok {
			return
		}
		v, err := core.ParseAmount(form.Get(key))
		if err != nil {
			problems = append(problems, key+" must be a whole non-negative amount")
			return
		}
		*dst = v
	}

	text("period1Name", &s.Period1Name)
	text("period2Name", &s.Period2Name)
	text("goalName", &s.GoalName)
	number("monthsPerPeriod", &s.MonthsPerPeriod)
	number("startMonth", &s.StartMonth)
	number("startYear", &s.StartYear)
	amount("period1Salary", &s.Period1Salary)
	amount("period2Salary", &s.Period2Salary)
	amount("longTermSavingsTarget", &s.LongTermSavingsTarget)
	amount("shortTermSavingsTarget", &s.ShortTermSavingsTarget)
	amount("fixedExpenses", &s.FixedExpenses)
	amount("goalTarget", &s.GoalTarget)

	if code := strings.TrimSpace(form.Get("currencyCode")); code != "" {
		c, ok := core.LookupCurrency(code)
		if !ok {
			problems = append(problems, fmt.Sprintf("%v %q", core.ErrUnsupportedCurrency, code))
		} else {
			s.CurrencyCode, s.CurrencySymbol = c.Code, c.Symbol
		}
	}

	if len(problems) > 0 {
		return base, fmt.Errorf("%w:\n- %s", core.ErrInvalidSettings, strings.Join(problems, "\n- "))
	}
	return s, nil
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

// RequireGET is a convenience function for read-only handlers.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
