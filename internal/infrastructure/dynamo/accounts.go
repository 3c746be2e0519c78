package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/election-trust-api/internal/domain"
)

// AccountRepo provides typed DynamoDB operations for the accounts table.
type AccountRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAccountRepo(client *dynamodb.Client, tableName string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName}
}

func (r *AccountRepo) Put(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("account_id", accountID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("username-index"),
		KeyConditionExpression: aws.String("username = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: username},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Update(ctx context.Context, accountID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("account_id", accountID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// MarkVoted flips voted=false to true as a single conditional write. Exactly
// one of N concurrent callers succeeds; the rest get ErrAlreadyVoted.
func (r *AccountRepo) MarkVoted(ctx context.Context, accountID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("account_id", accountID),
		UpdateExpression:    aws.String("SET #v = :t, updated_at = :now"),
		ConditionExpression: aws.String("#v = :f"),
		ExpressionAttributeNames: map[string]string{
			"#v": fieldVoted,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":   &types.AttributeValueMemberBOOL{Value: true},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return domain.ErrAlreadyVoted
		}
		return err
	}
	return nil
}

// RecordFailedLogin atomically increments the consecutive-failure counter and
// returns the new count so the caller can decide whether to lock.
func (r *AccountRepo) RecordFailedLogin(ctx context.Context, accountID string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey("account_id", accountID),
		UpdateExpression: aws.String("SET #fl = if_not_exists(#fl, :zero) + :one"),
		ExpressionAttributeNames: map[string]string{
			"#fl": fieldFailedLogins,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":one":  &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, err
	}
	var updated struct {
		FailedLogins int `dynamodbav:"failed_logins"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return 0, err
	}
	return updated.FailedLogins, nil
}

// Lock sets the lockout expiry and resets nothing else; the failure counter
// clears on the next successful login.
func (r *AccountRepo) Lock(ctx context.Context, accountID string, until time.Time) error {
	return r.Update(ctx, accountID, map[string]interface{}{
		fieldLockedUntil: until.UTC().Format(time.RFC3339),
	})
}

// ClearLockout resets the failure counter and lock expiry after a successful login.
func (r *AccountRepo) ClearLockout(ctx context.Context, accountID string) error {
	return r.Update(ctx, accountID, map[string]interface{}{
		fieldFailedLogins: 0,
		fieldLockedUntil:  nil,
	})
}

// SetVerified records the outcome of identity proofing on the account.
func (r *AccountRepo) SetVerified(ctx context.Context, accountID string, verified bool) error {
	return r.Update(ctx, accountID, map[string]interface{}{fieldVerified: verified})
}

// Deactivate disables an account. Accounts are retained for audit, never deleted.
func (r *AccountRepo) Deactivate(ctx context.Context, accountID string) error {
	return r.Update(ctx, accountID, map[string]interface{}{fieldEnable: false})
}

// CountByRole returns the number of accounts per role and how many voters
// have a genuine identity verification, for the admin stats endpoint.
func (r *AccountRepo) CountByRole(ctx context.Context, role string) (total, verified int, err error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("role-index"),
		KeyConditionExpression: aws.String("#r = :role"),
		ExpressionAttributeNames: map[string]string{
			"#r": "role",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":role": &types.AttributeValueMemberS{Value: role},
		},
	})
	if err != nil {
		return 0, 0, err
	}
	var accounts []domain.Account
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &accounts); err != nil {
		return 0, 0, err
	}
	for _, a := range accounts {
		total++
		if a.Verified {
			verified++
		}
	}
	return total, verified, nil
}

// RollRepo reads the master voter roll used to gate voter registration.
type RollRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRollRepo(client *dynamodb.Client, tableName string) *RollRepo {
	return &RollRepo{client: client, tableName: tableName}
}

func (r *RollRepo) Get(ctx context.Context, voterID string) (*domain.RollEntry, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("voter_id", voterID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("voter roll entry not found: %w", domain.ErrNotFound)
	}
	var e domain.RollEntry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *RollRepo) Put(ctx context.Context, e *domain.RollEntry) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal roll entry: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}
