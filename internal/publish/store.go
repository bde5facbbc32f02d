package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	itemPrefix = "INTERVIEW#"
	metadataSK = "METADATA"
	listPK     = "INTERVIEWS"
)

// InterviewItem is the DynamoDB record for a published interview.
type InterviewItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	GSI1PK      string `dynamodbav:"GSI1PK"`
	GSI1SK      string `dynamodbav:"GSI1SK"`
	InterviewID string `dynamodbav:"interviewId"`
	Title       string `dynamodbav:"title,omitempty"`

	ScriptKey   string `dynamodbav:"scriptKey,omitempty"`
	ScriptURL   string `dynamodbav:"scriptUrl,omitempty"`
	AudioKey    string `dynamodbav:"audioKey"`
	AudioURL    string `dynamodbav:"audioUrl"`
	VideoKey    string `dynamodbav:"videoKey,omitempty"`
	VideoURL    string `dynamodbav:"videoUrl,omitempty"`
	SubtitleKey string `dynamodbav:"subtitleKey,omitempty"`
	SubtitleURL string `dynamodbav:"subtitleUrl,omitempty"`

	Duration         string  `dynamodbav:"duration,omitempty"`
	FileSizeMB       float64 `dynamodbav:"fileSizeMB,omitempty"`
	Lines            int     `dynamodbav:"lines"`
	InterviewerLines int     `dynamodbav:"interviewerLines"`
	ExpertLines      int     `dynamodbav:"expertLines"`
	ScriptBackend    string  `dynamodbav:"scriptBackend,omitempty"`
	TTSProvider      string  `dynamodbav:"ttsProvider,omitempty"`
	CreatedAt        string  `dynamodbav:"createdAt"`
}

// dynamoAPI is the subset of the DynamoDB client used here.
type dynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store handles DynamoDB operations for published interviews.
type Store struct {
	client    dynamoAPI
	tableName string
}

// NewStore creates a DynamoDB store.
func NewStore(client dynamoAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

func itemKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: itemPrefix + id},
		"SK": &types.AttributeValueMemberS{Value: metadataSK},
	}
}

// Put inserts a new record. Existing IDs are never overwritten.
func (s *Store) Put(ctx context.Context, item InterviewItem) error {
	item.PK = itemPrefix + item.InterviewID
	item.SK = metadataSK
	item.GSI1PK = listPK
	item.GSI1SK = item.CreatedAt + "#" + item.InterviewID

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal interview item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("put interview item: %w", err)
	}
	return nil
}

// Get retrieves a single interview by ID. It returns nil, nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*InterviewItem, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       itemKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get interview: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item InterviewItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal interview: %w", err)
	}
	return &item, nil
}

// List returns interviews newest first via GSI1. cursor is the GSI1SK of the
// last item from the previous page.
func (s *Store) List(ctx context.Context, limit int, cursor string) ([]InterviewItem, string, error) {
	if limit <= 0 {
		limit = 20
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: listPK},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	if cursor != "" {
		_, id, ok := strings.Cut(cursor, "#")
		if !ok || id == "" {
			return nil, "", fmt.Errorf("invalid cursor format")
		}
		start := itemKey(id)
		start["GSI1PK"] = &types.AttributeValueMemberS{Value: listPK}
		start["GSI1SK"] = &types.AttributeValueMemberS{Value: cursor}
		input.ExclusiveStartKey = start
	}

	result, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("list interviews: %w", err)
	}

	var items []InterviewItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, "", fmt.Errorf("unmarshal interview list: %w", err)
	}

	var next string
	if gsi1sk, ok := result.LastEvaluatedKey["GSI1SK"].(*types.AttributeValueMemberS); ok {
		next = gsi1sk.Value
	}
	return items, next, nil
}
