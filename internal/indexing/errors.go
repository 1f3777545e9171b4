package indexing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ResponseError is an error response from the engine.
type ResponseError struct {
	Operation string
	Index     string
	DocID     string
	Status    int
	Type      string
	Reason    string
}

func (e *ResponseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s", e.Operation, e.Index)
	if e.DocID != "" {
		fmt.Fprintf(&b, " (doc %s)", e.DocID)
	}
	fmt.Fprintf(&b, ": status %d", e.Status)
	if e.Type != "" {
		fmt.Fprintf(&b, " %s", e.Type)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

// ConflictError is a version conflict on a single document.
type ConflictError struct {
	*ResponseError
}

func (e *ConflictError) Unwrap() error { return e.ResponseError }

// NotFoundError reports a missing document or index.
type NotFoundError struct {
	*ResponseError
}

func (e *NotFoundError) Unwrap() error { return e.ResponseError }

// BulkItemFailure is one rejected item of a bulk request.
type BulkItemFailure struct {
	DocID  string `json:"_id"`
	Status int    `json:"status"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// BulkPartialFailure reports the rejected items of bulk requests against one
// alias. The accepted items stay committed.
type BulkPartialFailure struct {
	Index    string
	Failures []BulkItemFailure
}

func (e *BulkPartialFailure) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.DocID)
	}
	return fmt.Sprintf("bulk load into %s: %d items failed: %s",
		e.Index, len(e.Failures), strings.Join(ids, ", "))
}

// IsConflict reports whether err is a version conflict.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// IsNotFound reports whether err is a missing document or index.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// responseError turns an error response into a typed error. It returns nil
// for successful responses.
func responseError(res *esapi.Response, operation, index, docID string) error {
	if !res.IsError() {
		return nil
	}

	base := &ResponseError{
		Operation: operation,
		Index:     index,
		DocID:     docID,
		Status:    res.StatusCode,
	}
	base.Type, base.Reason = decodeError(res.Body)

	switch res.StatusCode {
	case http.StatusConflict:
		return &ConflictError{ResponseError: base}
	case http.StatusNotFound:
		return &NotFoundError{ResponseError: base}
	default:
		return base
	}
}

func decodeError(body io.Reader) (errType, reason string) {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil || len(payload.Error) == 0 {
		return "", ""
	}

	var detailed struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(payload.Error, &detailed); err == nil {
		return detailed.Type, detailed.Reason
	}

	var plain string
	if err := json.Unmarshal(payload.Error, &plain); err == nil {
		return "", plain
	}
	return "", string(payload.Error)
}
