package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const testSheetURL = "https://docs.google.com/spreadsheets/d/ABC123/edit#gid=0"

// fakeSheetsAPI records requests and serves canned metadata/values bodies.
type fakeSheetsAPI struct {
	mu         sync.Mutex
	requests   []*http.Request
	valueRange []string

	metaStatus   int
	metaBody     string
	valuesStatus int
	valuesBody   string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	const valuesPrefix = "/v4/spreadsheets/ABC123/values/"
	switch {
	case r.URL.Path == "/v4/spreadsheets/ABC123":
		if f.metaStatus != 0 {
			w.WriteHeader(f.metaStatus)
		}
		w.Write([]byte(f.metaBody))
	case strings.HasPrefix(r.URL.Path, valuesPrefix):
		f.mu.Lock()
		f.valueRange = append(f.valueRange, strings.TrimPrefix(r.URL.Path, valuesPrefix))
		f.mu.Unlock()
		if f.valuesStatus != 0 {
			w.WriteHeader(f.valuesStatus)
		}
		w.Write([]byte(f.valuesBody))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSheetsAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestFetcher(t *testing.T, api *fakeSheetsAPI) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewFetcher(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestLoadSheet_DefaultsToFirstSheet(t *testing.T) {
	api := &fakeSheetsAPI{
		metaBody:   `{"properties":{"title":"Book"},"sheets":[{"properties":{"title":"Sales"}},{"properties":{"title":"Costs"}}]}`,
		valuesBody: `{"range":"Sales!A1:B2","values":[["Name","Qty"],["Pens","10"]]}`,
	}
	f := newTestFetcher(t, api)

	sheet, err := f.LoadSheet(context.Background(), testSheetURL, "key-1", "")
	if err != nil {
		t.Fatalf("LoadSheet() error = %v", err)
	}

	if len(api.valueRange) != 1 || api.valueRange[0] != "Sales" {
		t.Errorf("values range requested = %v, want [Sales]", api.valueRange)
	}
	if api.requestCount() != 2 {
		t.Errorf("request count = %d, want 2", api.requestCount())
	}

	meta := api.requests[0].URL.Query()
	if got := meta.Get("fields"); got != "properties.title,sheets.properties.title" {
		t.Errorf("fields = %q", got)
	}
	if got := meta.Get("key"); got != "key-1" {
		t.Errorf("metadata key = %q, want key-1", got)
	}
	if got := api.requests[1].URL.Query().Get("key"); got != "key-1" {
		t.Errorf("values key = %q, want key-1", got)
	}

	if sheet.CSV != "Name,Qty\nPens,10" {
		t.Errorf("CSV = %q", sheet.CSV)
	}
	if sheet.RowCount != 2 || sheet.ColCount != 2 {
		t.Errorf("counts = %d x %d, want 2 x 2", sheet.RowCount, sheet.ColCount)
	}
	if sheet.Title != "Sales" {
		t.Errorf("Title = %q, want Sales", sheet.Title)
	}
}

func TestLoadSheet_ExplicitRangeSkipsMetadata(t *testing.T) {
	api := &fakeSheetsAPI{
		valuesBody: `{"range":"'My Data'!A1:C3","values":[["a","b","c"],["d"]]}`,
	}
	f := newTestFetcher(t, api)

	sheet, err := f.LoadSheet(context.Background(), testSheetURL, "k", "My Data!A1:C3")
	if err != nil {
		t.Fatalf("LoadSheet() error = %v", err)
	}

	if api.requestCount() != 1 {
		t.Errorf("request count = %d, want 1 (no metadata call)", api.requestCount())
	}
	if api.valueRange[0] != "My Data!A1:C3" {
		t.Errorf("decoded range = %q", api.valueRange[0])
	}
	if raw := api.requests[0].URL.RawPath; raw != "" && !strings.Contains(raw, "My%20Data") {
		t.Errorf("range not percent-encoded in path: %q", raw)
	}
	// colCount comes from the first row even when later rows are shorter.
	if sheet.RowCount != 2 || sheet.ColCount != 3 {
		t.Errorf("counts = %d x %d, want 2 x 3", sheet.RowCount, sheet.ColCount)
	}
	if sheet.Title != "'My Data'" {
		t.Errorf("Title = %q, want response range prefix", sheet.Title)
	}
}

func TestLoadSheet_TitleFallbacks(t *testing.T) {
	tests := []struct {
		name       string
		rangeSpec  string
		valuesBody string
		wantTitle  string
	}{
		{
			name:       "response range missing uses requested range",
			rangeSpec:  "Inventory!A1:B2",
			valuesBody: `{"values":[["x"]]}`,
			wantTitle:  "Inventory",
		},
		{
			name:       "nothing named uses generic title",
			rangeSpec:  "!A1:B2",
			valuesBody: `{"values":[["x"]]}`,
			wantTitle:  "Loaded Sheet",
		},
		{
			name:       "empty values uses requested prefix",
			rangeSpec:  "Q3!A1:Z9",
			valuesBody: `{"range":"Q3!A1:Z9","values":[]}`,
			wantTitle:  "Q3",
		},
		{
			name:       "empty values with no name",
			rangeSpec:  "!A1",
			valuesBody: `{"range":"Other!A1"}`,
			wantTitle:  "Sheet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(t, &fakeSheetsAPI{valuesBody: tt.valuesBody})
			sheet, err := f.LoadSheet(context.Background(), testSheetURL, "k", tt.rangeSpec)
			if err != nil {
				t.Fatalf("LoadSheet() error = %v", err)
			}
			if sheet.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", sheet.Title, tt.wantTitle)
			}
		})
	}
}

func TestLoadSheet_EmptyValues(t *testing.T) {
	for _, body := range []string{`{"values":[]}`, `{"range":"Sales!A1:Z1000"}`} {
		f := newTestFetcher(t, &fakeSheetsAPI{valuesBody: body})
		sheet, err := f.LoadSheet(context.Background(), testSheetURL, "k", "Sales")
		if err != nil {
			t.Fatalf("LoadSheet(%s) error = %v", body, err)
		}
		if sheet.CSV != "" || sheet.RowCount != 0 || sheet.ColCount != 0 {
			t.Errorf("LoadSheet(%s) = %+v, want empty sheet", body, sheet)
		}
		if sheet.Title != "Sales" {
			t.Errorf("Title = %q, want Sales", sheet.Title)
		}
	}
}

func TestLoadSheet_NumbersKeepUpstreamText(t *testing.T) {
	f := newTestFetcher(t, &fakeSheetsAPI{
		valuesBody: `{"values":[["Price","InStock"],[12.50,true],[null,false]]}`,
	})
	sheet, err := f.LoadSheet(context.Background(), testSheetURL, "k", "S")
	if err != nil {
		t.Fatalf("LoadSheet() error = %v", err)
	}
	if want := "Price,InStock\n12.50,true\n,false"; sheet.CSV != want {
		t.Errorf("CSV = %q, want %q", sheet.CSV, want)
	}
}

func TestLoadSheet_InvalidReferenceMakesNoRequest(t *testing.T) {
	api := &fakeSheetsAPI{}
	f := newTestFetcher(t, api)

	_, err := f.LoadSheet(context.Background(), "https://example.com/not-a-sheet", "k", "")
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("error = %v, want ErrInvalidReference", err)
	}
	if api.requestCount() != 0 {
		t.Errorf("request count = %d, want 0", api.requestCount())
	}
}

func TestLoadSheet_MissingKeyMakesNoRequest(t *testing.T) {
	api := &fakeSheetsAPI{}
	f := newTestFetcher(t, api)

	_, err := f.LoadSheet(context.Background(), testSheetURL, "", "")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("error = %v, want ErrMissingCredential", err)
	}
	if api.requestCount() != 0 {
		t.Errorf("request count = %d, want 0", api.requestCount())
	}
}

func TestLoadSheet_MetadataError(t *testing.T) {
	api := &fakeSheetsAPI{
		metaStatus: http.StatusForbidden,
		metaBody:   `{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`,
	}
	f := newTestFetcher(t, api)

	_, err := f.LoadSheet(context.Background(), testSheetURL, "k", "")
	if !errors.Is(err, ErrMetadataFetch) {
		t.Fatalf("error = %v, want ErrMetadataFetch", err)
	}
	if errors.Is(err, ErrValueFetch) {
		t.Error("metadata error should not match ErrValueFetch")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error %T is not *FetchError", err)
	}
	if fe.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", fe.StatusCode)
	}
	if !strings.Contains(err.Error(), "The caller does not have permission") {
		t.Errorf("error should carry upstream message: %v", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error should carry status: %v", err)
	}
	if api.requestCount() != 1 {
		t.Errorf("request count = %d, want 1 (no values call)", api.requestCount())
	}
}

func TestLoadSheet_NoSheets(t *testing.T) {
	f := newTestFetcher(t, &fakeSheetsAPI{metaBody: `{"properties":{"title":"Empty"},"sheets":[]}`})

	_, err := f.LoadSheet(context.Background(), testSheetURL, "k", "")
	if !errors.Is(err, ErrMetadataFetch) {
		t.Fatalf("error = %v, want ErrMetadataFetch", err)
	}
	if !strings.Contains(err.Error(), "no sheets found") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadSheet_ValuesError(t *testing.T) {
	api := &fakeSheetsAPI{
		valuesStatus: http.StatusBadRequest,
		valuesBody:   `{"error":{"code":400,"message":"Unable to parse range: Nope","status":"INVALID_ARGUMENT"}}`,
	}
	f := newTestFetcher(t, api)

	_, err := f.LoadSheet(context.Background(), testSheetURL, "k", "Nope")
	if !errors.Is(err, ErrValueFetch) {
		t.Fatalf("error = %v, want ErrValueFetch", err)
	}
	if !strings.Contains(err.Error(), `"Nope"`) {
		t.Errorf("error should name the range: %v", err)
	}
	if !strings.Contains(err.Error(), "Unable to parse range") {
		t.Errorf("error should carry upstream message: %v", err)
	}
}

func TestLoadSheet_ErrorWithoutJSONBody(t *testing.T) {
	f := newTestFetcher(t, &fakeSheetsAPI{valuesStatus: http.StatusBadGateway, valuesBody: "upstream down"})

	_, err := f.LoadSheet(context.Background(), testSheetURL, "k", "S")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.Message != "" {
		t.Errorf("Message = %q, want empty", fe.Message)
	}
	if fe.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d", fe.StatusCode)
	}
}

func TestLoadSheet_TransportErrorIsValueFetch(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	f := NewFetcher(WithBaseURL(baseURL))
	_, err := f.LoadSheet(context.Background(), testSheetURL, "k", "S")
	if !errors.Is(err, ErrValueFetch) {
		t.Fatalf("error = %v, want ErrValueFetch", err)
	}
}

func TestLoadSheet_TransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	const key = "SECRET-SHEETS-KEY"
	for _, rangeSpec := range []string{"", "Sheet1"} {
		f := NewFetcher(WithBaseURL(baseURL))
		_, err := f.LoadSheet(context.Background(), testSheetURL, key, rangeSpec)
		if err == nil {
			t.Fatalf("range %q: expected error", rangeSpec)
		}
		if strings.Contains(err.Error(), key) {
			t.Errorf("range %q: error exposes the API key: %v", rangeSpec, err)
		}
		if strings.Contains(err.Error(), "key=") {
			t.Errorf("range %q: error exposes the request URL: %v", rangeSpec, err)
		}
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		name   string
		err    error
		want   string
		wantIs error
	}{
		{
			name:   "url error is reduced to its cause",
			err:    &url.Error{Op: "Get", URL: "https://sheets.googleapis.com/v4/spreadsheets/ABC?key=SECRET", Err: cause},
			want:   "GET request: connection refused",
			wantIs: cause,
		},
		{
			name:   "deadline stays detectable",
			err:    &url.Error{Op: "Get", URL: "https://x/?key=SECRET", Err: context.DeadlineExceeded},
			want:   "GET request: context deadline exceeded",
			wantIs: context.DeadlineExceeded,
		},
		{
			name:   "key inside the cause is redacted",
			err:    fmt.Errorf("redirect to https://x/?alt=json&key=SECRET&b=1: %w", cause),
			want:   "redirect to https://x/?alt=json&key=REDACTED&b=1: connection refused",
			wantIs: cause,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transportError(tt.err)
			if got.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", got.Error(), tt.want)
			}
			if !errors.Is(got, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", got, tt.wantIs)
			}
		})
	}
}
