package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/election-trust-api/internal/domain"
)

// VoteRepo stores anonymized ballots. PK: transaction_id. The table carries
// no account attribute at all, keeping the vote-secrecy invariant at the
// schema level.
type VoteRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVoteRepo(client *dynamodb.Client, tableName string) *VoteRepo {
	return &VoteRepo{client: client, tableName: tableName}
}

func (r *VoteRepo) Put(ctx context.Context, v *domain.Vote) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal vote: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(transaction_id)"),
	})
	return err
}

func (r *VoteRepo) Get(ctx context.Context, transactionID string) (*domain.Vote, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("transaction_id", transactionID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("vote not found: %w", domain.ErrNotFound)
	}
	var v domain.Vote
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Scan returns all committed votes. The aggregator runs this at best-effort
// cadence; vote volume for a single election fits a paged scan.
func (r *VoteRepo) Scan(ctx context.Context) ([]domain.Vote, error) {
	var votes []domain.Vote
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Vote
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		votes = append(votes, page...)
		if out.LastEvaluatedKey == nil {
			return votes, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// CountByPrecinct returns the number of committed votes in one precinct.
func (r *VoteRepo) CountByPrecinct(ctx context.Context, precinct string) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("precinct-index"),
		KeyConditionExpression: aws.String("precinct = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: precinct},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}

// CountByPrecinctSince counts votes committed in one precinct at or after the
// given time, used as a velocity signal by the fraud scorer.
func (r *VoteRepo) CountByPrecinctSince(ctx context.Context, precinct string, since time.Time) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("precinct-index"),
		KeyConditionExpression: aws.String("precinct = :p AND cast_at >= :since"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p":     &types.AttributeValueMemberS{Value: precinct},
			":since": &types.AttributeValueMemberS{Value: since.UTC().Format(time.RFC3339Nano)},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}
