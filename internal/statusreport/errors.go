package statusreport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/groblegark/agentstatus/internal/agent"
	"github.com/groblegark/agentstatus/internal/locator"
	"github.com/groblegark/agentstatus/internal/snapshot"
	"github.com/groblegark/agentstatus/internal/view"
)

// ErrorKind classifies why a status report could not be generated.
type ErrorKind string

const (
	KindLookupNotFound     ErrorKind = "LookupNotFound"
	KindSnapshotGeneration ErrorKind = "SnapshotGenerationError"
	KindUnclassified       ErrorKind = "UnclassifiedError"
)

// ClassifiedError is the user-presentable form of a failed report.
type ClassifiedError struct {
	Kind        ErrorKind
	Message     string
	Description string
}

// Classify maps err to its kind. Lookup failures and snapshot generation
// errors keep their own message; anything else is reported as-is.
func Classify(err error) ClassifiedError {
	var (
		lookup *locator.LookupFailure
		gen    *snapshot.GenerationError
	)
	switch {
	case errors.As(err, &lookup):
		return ClassifiedError{Kind: KindLookupNotFound, Message: lookup.Message, Description: describe(err)}
	case errors.As(err, &gen):
		return ClassifiedError{Kind: KindSnapshotGeneration, Message: gen.Error(), Description: describe(err)}
	case errors.Is(err, agent.ErrNoLookupKey):
		return ClassifiedError{Kind: KindSnapshotGeneration, Message: agent.ErrNoLookupKey.Error(), Description: describe(err)}
	default:
		return ClassifiedError{Kind: KindUnclassified, Message: err.Error(), Description: describe(err)}
	}
}

// describe lists every error in err's chain, outermost first.
func describe(err error) string {
	var desc string
	for e := err; e != nil; e = errors.Unwrap(e) {
		if desc != "" {
			desc += "\ncaused by: "
		}
		desc += fmt.Sprintf("%T: %v", e, e)
	}
	return desc
}

// ErrorHandler turns any failure into the response sent to the caller.
type ErrorHandler struct {
	views  Views
	logger *slog.Logger
}

// NewErrorHandler creates a handler that renders failures with views.
func NewErrorHandler(views Views, logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{views: views, logger: logger}
}

// Handle renders err through the error template. The result is a success
// envelope carrying the error view; only when the error view itself cannot
// be rendered does Handle return an error response.
func (h *ErrorHandler) Handle(err error) Response {
	classified := Classify(err)
	h.logger.Error("status report generation failed",
		"kind", classified.Kind, "error", err)

	tmpl, terr := h.views.Template(view.ErrorReport)
	if terr != nil {
		h.logger.Error("error view unavailable", "error", terr)
		return ErrorResponse(classified.Message)
	}
	out, rerr := h.views.Render(tmpl, classified)
	if rerr != nil {
		h.logger.Error("rendering error view", "error", rerr)
		return ErrorResponse(classified.Message)
	}
	return Success(out)
}

// Response is the outgoing status report envelope.
type Response struct {
	Code int    `json:"code"`
	Body string `json:"body"`
}

type viewBody struct {
	View string `json:"view"`
}

// Success wraps a rendered view in a success response.
func Success(rendered string) Response {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(viewBody{View: rendered}); err != nil {
		return ErrorResponse(err.Error())
	}
	return Response{Code: http.StatusOK, Body: strings.TrimSuffix(buf.String(), "\n")}
}

// ErrorResponse is the response for failures that cannot be rendered.
func ErrorResponse(message string) Response {
	return Response{Code: http.StatusInternalServerError, Body: message}
}

// View decodes the rendered view from a success response.
func (r Response) View() (string, error) {
	if r.Code != http.StatusOK {
		return "", fmt.Errorf("status report failed (%d): %s", r.Code, r.Body)
	}
	var body viewBody
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		return "", fmt.Errorf("decoding status report body: %w", err)
	}
	return body.View, nil
}
