// Package sheets loads Google Sheets values over the Sheets v4 REST API and
// converts them into CSV text.
//
// Loading is a two step exchange: when no range is given, a metadata request
// resolves the title of the first sheet, then a values request fetches that
// range. Failures surface immediately; nothing is retried.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/sheetchat/internal/logging"
)

// DefaultBaseURL is the public Sheets API host.
const DefaultBaseURL = "https://sheets.googleapis.com"

// metadataFields limits the metadata response to what the fetcher needs.
const metadataFields = "properties.title,sheets.properties.title"

// Fallback titles when neither the response nor the request names a sheet.
const (
	emptySheetTitle  = "Sheet"
	loadedSheetTitle = "Loaded Sheet"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// FetchedSheet is the CSV rendering of one loaded range.
type FetchedSheet struct {
	CSV      string `json:"-"`
	Title    string `json:"title"`
	RowCount int    `json:"rows"`
	ColCount int    `json:"cols"`
}

// spreadsheet is the metadata response shape.
type spreadsheet struct {
	Properties struct {
		Title string `json:"title"`
	} `json:"properties"`
	Sheets []struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
	} `json:"sheets"`
}

// valueRange is the values response shape.
type valueRange struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
}

// apiErrorBody is the error envelope returned by Google APIs.
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Fetcher performs sheet loads against a Sheets API host.
type Fetcher struct {
	baseURL string
	client  *http.Client
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBaseURL points the fetcher at a different API host.
func WithBaseURL(baseURL string) Option {
	return func(f *Fetcher) {
		if baseURL != "" {
			f.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// NewFetcher creates a Fetcher using DefaultBaseURL unless overridden.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL: DefaultBaseURL,
		client:  NewHTTPClient(DefaultTimeout),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// LoadSheet fetches the given range of the spreadsheet named by sheetURL and
// returns it as CSV. When rangeSpec is empty, the first sheet is loaded.
//
// An empty result is not an error: it yields empty CSV with zero counts.
func (f *Fetcher) LoadSheet(ctx context.Context, sheetURL, apiKey, rangeSpec string) (*FetchedSheet, error) {
	ref, err := ParseURL(sheetURL, rangeSpec)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	logger := logging.WithFields(ctx, "spreadsheet_id", ref.SpreadsheetID)

	effectiveRange := ref.Range
	if effectiveRange == "" {
		effectiveRange, err = f.firstSheetTitle(ctx, ref.SpreadsheetID, apiKey)
		if err != nil {
			return nil, err
		}
		logger.Debug("resolved first sheet", "range", effectiveRange)
	}

	vr, err := f.fetchValues(ctx, ref.SpreadsheetID, effectiveRange, apiKey)
	if err != nil {
		return nil, err
	}

	if len(vr.Values) == 0 {
		title := Title(effectiveRange)
		if title == "" {
			title = emptySheetTitle
		}
		logger.Info("sheet loaded", "range", effectiveRange, "rows", 0, "cols", 0)
		return &FetchedSheet{Title: title}, nil
	}

	title := Title(vr.Range)
	if title == "" {
		title = Title(effectiveRange)
	}
	if title == "" {
		title = loadedSheetTitle
	}

	sheet := &FetchedSheet{
		CSV:      EncodeCSV(vr.Values),
		Title:    title,
		RowCount: len(vr.Values),
		ColCount: len(vr.Values[0]),
	}
	logger.Info("sheet loaded",
		"range", effectiveRange,
		"rows", sheet.RowCount,
		"cols", sheet.ColCount,
	)
	return sheet, nil
}

// firstSheetTitle requests spreadsheet metadata and returns the title of the
// first listed sheet. A bare title makes the values endpoint return the whole
// sheet.
func (f *Fetcher) firstSheetTitle(ctx context.Context, spreadsheetID, apiKey string) (string, error) {
	q := url.Values{}
	q.Set("fields", metadataFields)
	q.Set("key", apiKey)
	endpoint := f.baseURL + "/v4/spreadsheets/" + url.PathEscape(spreadsheetID) + "?" + q.Encode()

	var meta spreadsheet
	if err := f.getJSON(ctx, endpoint, &meta, MetadataFetch, ""); err != nil {
		return "", err
	}
	if len(meta.Sheets) == 0 {
		return "", &FetchError{Kind: MetadataFetch, Message: "no sheets found in the spreadsheet"}
	}
	return meta.Sheets[0].Properties.Title, nil
}

// fetchValues requests the cell values of rangeSpec.
func (f *Fetcher) fetchValues(ctx context.Context, spreadsheetID, rangeSpec, apiKey string) (*valueRange, error) {
	q := url.Values{}
	q.Set("key", apiKey)
	endpoint := f.baseURL + "/v4/spreadsheets/" + url.PathEscape(spreadsheetID) +
		"/values/" + url.PathEscape(rangeSpec) + "?" + q.Encode()

	var vr valueRange
	if err := f.getJSON(ctx, endpoint, &vr, ValueFetch, rangeSpec); err != nil {
		return nil, err
	}
	return &vr, nil
}

// getJSON issues a GET and decodes a successful body into out. Numbers are
// kept as json.Number so cell text matches the upstream representation.
func (f *Fetcher) getJSON(ctx context.Context, endpoint string, out any, kind FetchKind, rangeSpec string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &FetchError{Kind: kind, Range: rangeSpec, Err: fmt.Errorf("build request: %w", transportError(err))}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return &FetchError{Kind: kind, Range: rangeSpec, Err: transportError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fe := &FetchError{
			Kind:       kind,
			Range:      rangeSpec,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var apiErr apiErrorBody
		if json.Unmarshal(body, &apiErr) == nil {
			fe.Message = apiErr.Error.Message
		}
		logging.FromContext(ctx).Warn("sheets request failed",
			"status", resp.StatusCode,
			"range", rangeSpec,
			"message", fe.Message,
		)
		return fe
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &FetchError{Kind: kind, Range: rangeSpec, StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
