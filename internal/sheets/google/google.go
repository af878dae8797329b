package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "budget/internal/sheets"
)

// Options selects the spreadsheet and the credentials used to reach it.
// Service account credentials win over an OAuth client/token pair.
type Options struct {
	SpreadsheetID string
	// TabBase is the tab name without year, e.g. "Budget".
	TabBase string

	ServiceAccountJSON string
	ServiceAccountFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string

	// Extra client options, used by tests to point at a fake endpoint.
	ClientOptions []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabBase       string
}

var (
	_ ports.ReportWriter = (*Client)(nil)
	_ ports.ReportReader = (*Client)(nil)
)

// New creates a Sheets client from opts.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	tabBase := strings.TrimSpace(opts.TabBase)
	if tabBase == "" {
		tabBase = "Budget"
	}

	clientOpts := opts.ClientOptions
	if len(clientOpts) == 0 {
		auth, err := credentialOption(ctx, opts)
		if err != nil {
			return nil, err
		}
		clientOpts = []goption.ClientOption{auth}
	}

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", opts.SpreadsheetID)

	return &Client{svc: svc, spreadsheetID: opts.SpreadsheetID, tabBase: tabBase}, nil
}

// credentialOption builds the auth option: service account first, then an
// OAuth client plus a stored token from the oauth-init tool.
func credentialOption(ctx context.Context, opts Options) (goption.ClientOption, error) {
	saJSON, err := readInlineOrFile(opts.ServiceAccountJSON, opts.ServiceAccountFile, "service account")
	if err != nil {
		return nil, err
	}
	if saJSON != nil {
		slog.InfoContext(ctx, "Using service account credentials", "credentials_size", len(saJSON))
		return goption.WithCredentialsJSON(saJSON), nil
	}

	clientJSON, err := readInlineOrFile(opts.OAuthClientJSON, opts.OAuthClientFile, "oauth client")
	if err != nil {
		return nil, err
	}
	tokenJSON, err := readInlineOrFile(opts.OAuthTokenJSON, opts.OAuthTokenFile, "oauth token")
	if err != nil {
		return nil, err
	}
	if clientJSON == nil || tokenJSON == nil {
		return nil, errors.New("missing credentials (set a service account or an OAuth client and token)")
	}

	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	slog.InfoContext(ctx, "Using OAuth token credentials", "token_expiry", tok.Expiry)
	httpCtx := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return goption.WithTokenSource(cfg.TokenSource(httpCtx, &tok)), nil
}

func readInlineOrFile(inline, path, what string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", what, err)
		}
		return b, nil
	}
	return nil, nil
}

// newHTTPClientWithPooling keeps connections to the Google APIs warm between syncs.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// TabName returns the per-user tab for a plan year: "<year> <base> <label>".
func (c *Client) TabName(year int, label string) string {
	return strings.TrimSpace(yearPrefixedName(c.tabBase, year) + " " + label)
}

// WriteReport creates the tab when missing, clears it and writes table from A1.
func (c *Client) WriteReport(ctx context.Context, tab string, table [][]string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	rng := quoteTab(tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}

	values := make([][]any, len(table))
	for i, row := range table {
		values[i] = toCells(row)
	}
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Report written to Google Sheets", "tab", tab, "rows", len(table))
	return nil
}

func (c *Client) ReadReport(ctx context.Context, tab string) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteTab(tab)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tab, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = toStrings(row)
	}
	return out, nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Created Google Sheets tab", "tab", tab)
	return nil
}

// toCells keeps text as text and turns integers into numbers so sums work in the sheet.
func toCells(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out[i] = n
			continue
		}
		out[i] = v
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
