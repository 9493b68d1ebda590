package sheets

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrInvalidReference is returned when no spreadsheet id can be found in a URL.
	ErrInvalidReference = errors.New("invalid Google Sheet URL: could not extract spreadsheet ID")

	// ErrMissingCredential is returned when no Sheets API key is available.
	ErrMissingCredential = errors.New("google sheets API key is required")

	// ErrMetadataFetch matches any *FetchError from the metadata request.
	ErrMetadataFetch = errors.New("failed to fetch sheet metadata")

	// ErrValueFetch matches any *FetchError from the values request.
	ErrValueFetch = errors.New("failed to fetch sheet data")
)

// FetchKind identifies which upstream request failed.
type FetchKind int

const (
	MetadataFetch FetchKind = iota
	ValueFetch
)

// FetchError describes a failed request to the Sheets API. StatusCode is zero
// when the request never produced a response.
type FetchError struct {
	Kind       FetchKind
	Range      string
	StatusCode int
	Status     string
	Message    string // upstream error.message, when present
	Err        error  // transport or decode error, when present
}

func (e *FetchError) Error() string {
	var b strings.Builder
	if e.Kind == MetadataFetch {
		b.WriteString(ErrMetadataFetch.Error())
	} else {
		fmt.Fprintf(&b, "%s for range %q", ErrValueFetch.Error(), e.Range)
	}
	b.WriteString(":")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " %s.", e.Status)
	}
	if e.Message != "" {
		b.WriteString(" " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(" " + e.Err.Error())
	}
	return strings.TrimSuffix(b.String(), ":")
}

// Is reports whether target is the sentinel for this error's kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrMetadataFetch:
		return e.Kind == MetadataFetch
	case ErrValueFetch:
		return e.Kind == ValueFetch
	}
	return false
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// keyParam matches the API key query parameter of a request URL.
var keyParam = regexp.MustCompile(`([?&]key=)[^&\s"]+`)

// transportError strips the request URL from a client failure. The URL
// carries the API key, and the error text ends up in logs and in front of
// the user. errors.Is still sees the underlying cause.
func transportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = fmt.Errorf("%s request: %w", strings.ToUpper(uerr.Op), uerr.Err)
	}
	if msg := err.Error(); keyParam.MatchString(msg) {
		return &redactedError{msg: keyParam.ReplaceAllString(msg, "${1}REDACTED"), err: err}
	}
	return err
}

// redactedError replaces the text of err while keeping it unwrappable.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
