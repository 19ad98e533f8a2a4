package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/learning"
)

// DynamoAPI is the slice of the DynamoDB client used for models.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// modelItem is the table layout: PK MODEL#<user>, SK <metric>.
type modelItem struct {
	PK    string                 `dynamodbav:"PK"`
	SK    string                 `dynamodbav:"SK"`
	Model domain.PredictionModel `dynamodbav:"Model"`
}

// DynamoModelStore keeps prediction models in a single-table design.
type DynamoModelStore struct {
	client    DynamoAPI
	tableName string
}

func NewDynamoModelStore(client DynamoAPI, tableName string) *DynamoModelStore {
	return &DynamoModelStore{client: client, tableName: tableName}
}

func modelPK(userID string) string { return "MODEL#" + userID }

func (s *DynamoModelStore) LoadModel(ctx context.Context, userID, modelType string) (*domain.PredictionModel, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: modelPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: modelType},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting model %s/%s from DynamoDB: %w", userID, modelType, err)
	}
	if out.Item == nil {
		return nil, learning.ErrModelNotFound
	}

	var item modelItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, learning.NewStateError(userID, "model:"+modelType, err)
	}
	m := item.Model
	if m.FeatureWeights == nil {
		m.FeatureWeights = make(map[string]float64)
	}
	if m.ValueEffects == nil {
		m.ValueEffects = make(map[string]float64)
	}
	if m.BaselineMetrics == nil {
		m.BaselineMetrics = make(map[string]float64)
	}
	return &m, nil
}

func (s *DynamoModelStore) SaveModel(ctx context.Context, m *domain.PredictionModel) error {
	av, err := attributevalue.MarshalMap(modelItem{
		PK:    modelPK(m.UserID),
		SK:    m.ModelType,
		Model: *m,
	})
	if err != nil {
		return fmt.Errorf("marshaling model: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting model %s/%s to DynamoDB: %w", m.UserID, m.ModelType, err)
	}
	return nil
}
