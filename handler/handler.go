package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"culinary-assistant/internal/usecase"
)

const (
	headerContentType   = "Content-Type"
	headerCorrelationID = "X-Correlation-Id"
	headerAllowOrigin   = "Access-Control-Allow-Origin"
	headerAllowMethods  = "Access-Control-Allow-Methods"
	headerAllowHeaders  = "Access-Control-Allow-Headers"
	headerMaxAge        = "Access-Control-Max-Age"

	msgMethodNotAllowed = "Method not allowed"
)

type UseCase interface {
	Reply(ctx context.Context, in usecase.ReplyInput) (usecase.ReplyOutput, error)
}

var errBodyNotObject = errors.New("request body must be a JSON object")

// Response is the proxy integration response. Unlike
// events.APIGatewayProxyResponse it always serializes isBase64Encoded.
type Response struct {
	StatusCode      int               `json:"statusCode"`
	Headers         map[string]string `json:"headers"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
	Body            string            `json:"body"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler is the API Gateway proxy entry point. It never returns a non-nil
// error: every failure is mapped to a response.
type Handler struct {
	uc  UseCase
	log logrus.FieldLogger
}

func NewHandler(uc UseCase, logger logrus.FieldLogger) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	if logger == nil {
		return nil, errors.New("handler: logger must not be nil")
	}
	return &Handler{uc: uc, log: logger}, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (Response, error) {
	start := time.Now()
	correlationID := correlationIDFrom(event.Headers)

	resp, err := h.route(ctx, event)
	resp.Headers[headerCorrelationID] = correlationID

	h.logOutcome(ctx, event, resp, err, correlationID, time.Since(start))
	return resp, nil
}

func (h *Handler) route(ctx context.Context, event events.APIGatewayProxyRequest) (Response, error) {
	switch event.HTTPMethod {
	case http.MethodOptions:
		return preflightResponse(), nil
	case http.MethodPost:
	default:
		return jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: msgMethodNotAllowed}), nil
	}

	message, err := decodeMessage(event)
	if err != nil {
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: err.Error()}),
			fmt.Errorf("handler: decode body: %w", err)
	}

	out, err := h.uc.Reply(ctx, usecase.ReplyInput{Message: message})
	if err != nil {
		return errorToResponse(err), err
	}
	return jsonResponse(http.StatusOK, replyResponse{Reply: out.Reply}), nil
}

// decodeMessage extracts the message field. A missing body, a missing field
// or a falsy value (null, false, 0, empty array or object) yields an empty
// message. Malformed JSON, a non-object body and any other non-string value
// are returned as errors.
func decodeMessage(event events.APIGatewayProxyRequest) (string, error) {
	body := event.Body
	if event.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return "", err
		}
		body = string(raw)
	}
	if body == "" {
		return "", nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return "", err
	}
	if fields == nil {
		return "", errBodyNotObject
	}
	raw, ok := fields["message"]
	if !ok {
		return "", nil
	}

	var message any
	if err := json.Unmarshal(raw, &message); err != nil {
		return "", err
	}
	switch v := message.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	case bool:
		if !v {
			return "", nil
		}
	case float64:
		if v == 0 {
			return "", nil
		}
	case []any:
		if len(v) == 0 {
			return "", nil
		}
	case map[string]any:
		if len(v) == 0 {
			return "", nil
		}
	}
	return "", fmt.Errorf("message must be a string, got %s", raw)
}

func errorToResponse(err error) Response {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	message := ucErr.Message
	if message == "" {
		message = err.Error()
	}
	return jsonResponse(statusFor(ucErr), errorResponse{Error: message})
}

func statusFor(e *usecase.Error) int {
	switch e.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorUpstream:
		if e.Status > 0 {
			return e.Status
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func preflightResponse() Response {
	return Response{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			headerAllowOrigin:  "*",
			headerAllowMethods: "POST, OPTIONS",
			headerAllowHeaders: "Content-Type",
			headerMaxAge:       "86400",
		},
		Body: "",
	}
}

func jsonResponse(status int, payload any) Response {
	return Response{
		StatusCode: status,
		Headers: map[string]string{
			headerContentType: "application/json",
			headerAllowOrigin: "*",
		},
		Body:            encodeJSON(payload),
		IsBase64Encoded: false,
	}
}

// encodeJSON renders payload the way the browser client has always received
// it: ", " and ": " separators, non-ASCII escaped as \uXXXX, <, > and & as is.
func encodeJSON(payload any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return `{"error": "internal error"}`
	}
	return spaced(strings.TrimRight(buf.String(), "\n"))
}

// spaced rewrites compact JSON with separators outside strings followed by a
// space and every non-ASCII rune as UTF-16 escapes.
func spaced(compact string) string {
	var b strings.Builder
	b.Grow(len(compact) + 8)

	inString, escaped := false, false
	for _, r := range compact {
		switch {
		case !inString:
			inString = r == '"'
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inString = false
		}

		if r >= utf8.RuneSelf {
			for _, u := range utf16.Encode([]rune{r}) {
				fmt.Fprintf(&b, `\u%04x`, u)
			}
			continue
		}
		b.WriteRune(r)
		if !inString && (r == ',' || r == ':') {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func correlationIDFrom(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, headerCorrelationID) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return newCorrelationID()
}

func (h *Handler) logOutcome(ctx context.Context, event events.APIGatewayProxyRequest, resp Response, err error, correlationID string, latency time.Duration) {
	fields := logrus.Fields{
		"correlation_id": correlationID,
		"method":         event.HTTPMethod,
		"status_code":    resp.StatusCode,
		"latency_ms":     float64(latency.Nanoseconds()) / 1e6,
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		fields["aws_request_id"] = lc.AwsRequestID
	}
	if err != nil {
		fields["error"] = err.Error()
		var ucErr *usecase.Error
		if errors.As(err, &ucErr) {
			fields["error_code"] = string(ucErr.Code)
			fields["reason"] = ucErr.Reason
		}
	}

	entry := h.log.WithFields(fields)
	switch {
	case resp.StatusCode >= 500:
		entry.Error("request failed")
	case resp.StatusCode >= 400:
		entry.Warn("request rejected")
	default:
		entry.Info("request completed")
	}
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
