package app

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/sirupsen/logrus"

	"culinary-assistant/handler"
	"culinary-assistant/internal/config"
	"culinary-assistant/internal/integrations/openai"
	"culinary-assistant/internal/integrations/paramstore"
	"culinary-assistant/internal/usecase"
)

// NewHandler wires the relay from configuration. It is shared by the Lambda
// entry point and the local server.
func NewHandler(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*handler.Handler, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if logger == nil {
		return nil, errors.New("app: logger must not be nil")
	}

	keys, err := keySource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.UsesParamStore() && cfg.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; chat requests will fail until it is configured")
	}

	client := openai.NewClient(
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithTimeout(cfg.OpenAI.Timeout),
	)

	svc, err := usecase.NewChatService(client, keys)
	if err != nil {
		return nil, fmt.Errorf("app: create chat service: %w", err)
	}
	h, err := handler.NewHandler(svc, logger)
	if err != nil {
		return nil, fmt.Errorf("app: create handler: %w", err)
	}
	return h, nil
}

func keySource(ctx context.Context, cfg *config.Config) (usecase.KeySource, error) {
	if !cfg.UsesParamStore() {
		return usecase.StaticKey(cfg.OpenAI.APIKey), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create SSM client: %w", err)
	}
	keys, err := paramstore.NewKeySource(ssmClient, cfg.OpenAI.APIKeyParam)
	if err != nil {
		return nil, fmt.Errorf("app: create key source: %w", err)
	}
	return keys, nil
}
