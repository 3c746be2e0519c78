package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/election-trust-api/internal/domain"
)

// TallyRepo stores reported per-precinct tallies. PK: precinct.
type TallyRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTallyRepo(client *dynamodb.Client, tableName string) *TallyRepo {
	return &TallyRepo{client: client, tableName: tableName}
}

func (r *TallyRepo) Put(ctx context.Context, t *domain.PrecinctTally) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal tally: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *TallyRepo) Get(ctx context.Context, precinct string) (*domain.PrecinctTally, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("precinct", precinct),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("tally not found: %w", domain.ErrNotFound)
	}
	var t domain.PrecinctTally
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TallyRepo) Scan(ctx context.Context) ([]domain.PrecinctTally, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return nil, err
	}
	var tallies []domain.PrecinctTally
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &tallies); err != nil {
		return nil, err
	}
	return tallies, nil
}

// UpdateDerived writes the recomputed turnout and suspicion flag. Only the
// derived fields change; the underlying counts are owner data-entry truth.
func (r *TallyRepo) UpdateDerived(ctx context.Context, precinct string, turnout float64, suspicious bool) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldTurnout:    turnout,
		fieldSuspicious: suspicious,
		"updated_at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("precinct", precinct),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
