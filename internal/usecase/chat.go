package usecase

import (
	"context"
	"errors"

	"culinary-assistant/internal/domain"
)

type LLMClient interface {
	Chat(ctx context.Context, apiKey string, req domain.ChatRequest) (string, error)
}

// KeySource yields the upstream API key. An empty key with a nil error means
// no key is configured.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a KeySource backed by a value known at startup.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	return string(k), nil
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type upstreamBodyReader interface {
	UpstreamBody() string
}

type malformedResponder interface {
	MalformedResponse() bool
}

type timeoutReporter interface {
	Timeout() bool
}

type ChatService struct {
	llm  LLMClient
	keys KeySource
}

type ReplyInput struct {
	Message string
}

type ReplyOutput struct {
	Reply string
}

func NewChatService(llm LLMClient, keys KeySource) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if keys == nil {
		return nil, errors.New("usecase: key source must not be nil")
	}
	return &ChatService{llm: llm, keys: keys}, nil
}

// Reply forwards one user message upstream. Whitespace is not trimmed: only
// an empty message is rejected.
func (s *ChatService) Reply(ctx context.Context, in ReplyInput) (ReplyOutput, error) {
	if in.Message == "" {
		return ReplyOutput{}, newError(ErrorInvalidInput, "empty_message", msgMessageRequired, nil)
	}

	apiKey, err := s.keys.APIKey(ctx)
	if err != nil {
		return ReplyOutput{}, newError(ErrorNotConfigured, "api_key_lookup_error", msgKeyNotConfigured, err)
	}
	if apiKey == "" {
		return ReplyOutput{}, newError(ErrorNotConfigured, "api_key_missing", msgKeyNotConfigured, nil)
	}

	reply, err := s.llm.Chat(ctx, apiKey, buildChatRequest(in.Message))
	if err != nil {
		return ReplyOutput{}, classifyUpstreamError(err)
	}
	return ReplyOutput{Reply: reply}, nil
}

func classifyUpstreamError(err error) *Error {
	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) {
		var body string
		var bodyErr upstreamBodyReader
		if errors.As(err, &bodyErr) {
			body = bodyErr.UpstreamBody()
		}
		e := newError(ErrorUpstream, "openai_status", upstreamErrorPrefix+body, err)
		e.Status = statusErr.HTTPStatusCode()
		return e
	}

	var shapeErr malformedResponder
	if errors.As(err, &shapeErr) && shapeErr.MalformedResponse() {
		return newError(ErrorMalformedResponse, "openai_malformed_response", err.Error(), err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrorUpstreamTimeout, "openai_timeout", err.Error(), err)
	}
	var netErr timeoutReporter
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return newError(ErrorUpstreamTimeout, "openai_timeout", err.Error(), err)
		}
		return newError(ErrorUpstreamUnreachable, "openai_unreachable", err.Error(), err)
	}

	return newError(ErrorInternal, "openai_error", err.Error(), err)
}
