// common/config/env.go

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/joho/godotenv"
)

// ENV переменные, управляющие загрузкой секретов.
const (
	EnvSecretID     = "AWS_SECRETS_MANAGER_SECRET_ID"
	EnvSecretRegion = "AWS_SECRETS_MANAGER_REGION"
	EnvSecretStage  = "AWS_SECRETS_MANAGER_VERSION_STAGE"
	EnvSecretForce  = "AWS_SECRETS_MANAGER_OVERWRITE"
	EnvDotEnvPath   = "ENV_FILE_PATH"
)

// SecretsAPI — подмножество клиента Secrets Manager, которое нам нужно.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadEnv наполняет окружение процесса до вызова Load:
// сначала JSON-секрет из AWS Secrets Manager (если задан EnvSecretID),
// затем .env файл. Уже выставленные переменные не перезаписываются.
// Возвращает число переменных, взятых из секрета.
func LoadEnv(ctx context.Context, dotenvPath string) (int, error) {
	applied := 0
	if secretID := os.Getenv(EnvSecretID); secretID != "" {
		awsCfg, err := loadAWSConfig(ctx, os.Getenv(EnvSecretRegion))
		if err != nil {
			return 0, fmt.Errorf("config: aws config: %w", err)
		}
		applied, err = ApplySecret(ctx, secretsmanager.NewFromConfig(awsCfg), secretID,
			os.Getenv(EnvSecretStage), strings.EqualFold(os.Getenv(EnvSecretForce), "true"))
		if err != nil {
			return 0, err
		}
	}

	if err := loadDotEnv(dotenvPath); err != nil {
		return applied, err
	}
	return applied, nil
}

// ApplySecret читает секрет (JSON-объект) и выставляет его ключи как ENV.
func ApplySecret(ctx context.Context, api SecretsAPI, secretID, stage string, overwrite bool) (int, error) {
	if stage == "" {
		stage = "AWSCURRENT"
	}
	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretID),
		VersionStage: aws.String(stage),
	})
	if err != nil {
		return 0, fmt.Errorf("config: fetch secret %s: %w", secretID, err)
	}

	var payload string
	switch {
	case out.SecretString != nil:
		payload = *out.SecretString
	case len(out.SecretBinary) > 0:
		payload = string(out.SecretBinary)
	default:
		return 0, fmt.Errorf("config: secret %s has no payload", secretID)
	}

	var kv map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &kv); err != nil {
		return 0, fmt.Errorf("config: secret %s is not a JSON object: %w", secretID, err)
	}

	applied := 0
	for key, val := range kv {
		if !overwrite && os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return applied, fmt.Errorf("config: set env %s: %w", key, err)
		}
		applied++
	}
	return applied, nil
}

func loadDotEnv(path string) error {
	if p := os.Getenv(EnvDotEnvPath); p != "" {
		path = p
	}
	if path == "" {
		path = ".env"
	}
	// godotenv.Load не перезаписывает уже выставленные переменные
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	if region != "" {
		return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
	return awsconfig.LoadDefaultConfig(ctx)
}
