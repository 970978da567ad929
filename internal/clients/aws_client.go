package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/translate"
)

type AWSConfig struct {
	Region string
	// Endpoint overrides the service endpoint, e.g. a local DynamoDB.
	Endpoint string
}

func LoadAWSConfig(ctx context.Context, cfg AWSConfig) (aws.Config, error) {
	slog.Info("[AWSClient] Initializing AWS Config...", slog.String("region", cfg.Region))

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		slog.Error("[AWSClient] Failed to load AWS config", slog.String("error", err.Error()))
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}

	slog.Info("[AWSClient] AWS Config Initialized")
	return awsCfg, nil
}

func NewDynamoDBClient(awsCfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// TranslateTextAPI is the slice of the Amazon Translate client used here.
type TranslateTextAPI interface {
	TranslateText(ctx context.Context, in *translate.TranslateTextInput, optFns ...func(*translate.Options)) (*translate.TranslateTextOutput, error)
}

// AWSTranslator implements translation.Translator with Amazon Translate.
type AWSTranslator struct {
	api TranslateTextAPI
}

func NewAWSTranslator(awsCfg aws.Config) *AWSTranslator {
	return &AWSTranslator{api: translate.NewFromConfig(awsCfg)}
}

func NewAWSTranslatorWithAPI(api TranslateTextAPI) *AWSTranslator {
	return &AWSTranslator{api: api}
}

func (t *AWSTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	out, err := t.api.TranslateText(ctx, &translate.TranslateTextInput{
		Text:               aws.String(text),
		SourceLanguageCode: aws.String(sourceLang),
		TargetLanguageCode: aws.String(targetLang),
	})
	if err != nil {
		return "", fmt.Errorf("amazon translate: %w", err)
	}
	translated := aws.ToString(out.TranslatedText)
	if translated == "" {
		return "", errors.New("amazon translate returned empty text")
	}
	return translated, nil
}
