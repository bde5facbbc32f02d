package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// secretKeys are the API keys that may be stored in Secrets Manager.
var secretKeys = []string{
	"OPENAI_API_KEY",
	"ANTHROPIC_API_KEY",
	"GEMINI_API_KEY",
	"ELEVENLABS_API_KEY",
}

// SecretGetter is the subset of the Secrets Manager client used here.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSConfig loads the default AWS config with OpenTelemetry instrumentation.
func AWSConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions)
	return cfg, nil
}

// LoadSecrets fills API keys that are still empty from Secrets Manager,
// looking up "<prefix><ENV_NAME>". Keys already set are never overridden.
func (c *Config) LoadSecrets(ctx context.Context, logger *slog.Logger) error {
	if c.SecretPrefix == "" {
		return nil
	}
	awsCfg, err := AWSConfig(ctx)
	if err != nil {
		return err
	}
	return c.loadSecretsFrom(ctx, secretsmanager.NewFromConfig(awsCfg), logger)
}

func (c *Config) loadSecretsFrom(ctx context.Context, client SecretGetter, logger *slog.Logger) error {
	for _, env := range secretKeys {
		if c.keyByEnv(env) != "" {
			continue
		}
		secretID := c.SecretPrefix + env
		out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretID),
		})
		if err != nil {
			logger.Debug("secret not found", "secret_id", secretID, "error", err)
			continue
		}
		if out.SecretString != nil {
			c.setKey(env, *out.SecretString)
			logger.Info("loaded secret", "secret_id", secretID)
		}
	}
	return nil
}

func (c Config) keyByEnv(env string) string {
	for backend, e := range keyEnv {
		if e == env {
			return c.KeyFor(backend)
		}
	}
	return ""
}
