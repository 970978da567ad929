// Package db holds the DynamoDB-backed label count store.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spacesedan/emosupport/internal/models"
)

const LABEL_COUNTS_TABLE_NAME = "EmotionLabelCounts"

// DynamoDBAPI is the slice of *dynamodb.Client the store needs.
type DynamoDBAPI interface {
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	dynamodb.ScanAPIClient
}

// LabelCountStore keeps one item per label with an atomic counter.
type LabelCountStore struct {
	client DynamoDBAPI
	table  string
}

func NewLabelCountStore(client DynamoDBAPI, table string) *LabelCountStore {
	if table == "" {
		table = LABEL_COUNTS_TABLE_NAME
	}
	return &LabelCountStore{client: client, table: table}
}

func (s *LabelCountStore) Increment(ctx context.Context, label string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"label": &types.AttributeValueMemberS{Value: label},
		},
		UpdateExpression:         aws.String("ADD #c :one"),
		ExpressionAttributeNames: map[string]string{"#c": "count"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to increment label %s: %w", label, err)
	}
	return nil
}

func (s *LabelCountStore) Counts(ctx context.Context) ([]models.LabelCount, error) {
	var counts []models.LabelCount
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})

	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Scan for label counts failed: %w", err)
		}
		var page []models.LabelCount
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			slog.Error("[DynamoDB] Unable to unmarshal label count page", slog.String("error", err.Error()))
			return nil, err
		}
		counts = append(counts, page...)
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Label < counts[j].Label
	})
	return counts, nil
}
