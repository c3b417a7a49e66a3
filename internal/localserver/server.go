// Package localserver serves the Lambda handler over plain HTTP so the relay
// can be exercised from a browser or curl without API Gateway.
package localserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"culinary-assistant/handler"
)

// ProxyHandler is satisfied by handler.Handler.
type ProxyHandler interface {
	Handle(ctx context.Context, event events.APIGatewayProxyRequest) (handler.Response, error)
}

func NewRouter(h ProxyHandler, path string, logger logrus.FieldLogger) (*gin.Engine, error) {
	if h == nil {
		return nil, errors.New("localserver: handler must not be nil")
	}
	if logger == nil {
		return nil, errors.New("localserver: logger must not be nil")
	}
	if !strings.HasPrefix(path, "/") {
		return nil, errors.New("localserver: path must start with /")
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.Any(path, func(c *gin.Context) {
		event, err := toEvent(c.Request)
		if err != nil {
			logger.WithError(err).Warn("failed to read request body")
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}

		resp, err := h.Handle(c.Request.Context(), event)
		if err != nil {
			logger.WithError(err).Error("handler returned an error")
			c.JSON(http.StatusBadGateway, gin.H{"error": "handler failed"})
			return
		}
		writeResponse(c, resp)
	})
	return router, nil
}

func toEvent(r *http.Request) (events.APIGatewayProxyRequest, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return events.APIGatewayProxyRequest{}, err
		}
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[k] = strings.Join(v, ",")
	}
	query := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	return events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  string(body),
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID:  uuid.NewString(),
			HTTPMethod: r.Method,
			Path:       r.URL.Path,
		},
	}, nil
}

func writeResponse(c *gin.Context, resp handler.Response) {
	for k, v := range resp.Headers {
		c.Header(k, v)
	}
	c.Status(resp.StatusCode)
	if resp.Body != "" {
		_, _ = c.Writer.WriteString(resp.Body)
	}
}
