package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/seller-onboarding/internal/domain"
)

// SellerRepo provides typed DynamoDB operations for the sellers table.
type SellerRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSellerRepo(client *dynamodb.Client, tableName string) *SellerRepo {
	return &SellerRepo{client: client, tableName: tableName}
}

// Create writes a new seller together with a guard item that claims its email.
// Both puts are conditional and share one transaction, so a second seller for
// the same address, or a reused seller_id, yields domain.ErrConflict.
func (r *SellerRepo) Create(ctx context.Context, s *domain.Seller) error {
	items, err := sellerCreateItems(r.tableName, s)
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if isConditionalCancel(err) {
		return fmt.Errorf("seller %s or email %s exists: %w", s.SellerID, s.Email, domain.ErrConflict)
	}
	return err
}

// emailGuardID is the seller_id of the item that reserves an address. It never
// collides with a ULID and carries no email attribute, so email-index skips it.
func emailGuardID(email string) string {
	return emailGuardPrefix + domain.NormalizeEmail(email)
}

func sellerCreateItems(tableName string, s *domain.Seller) ([]types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return nil, fmt.Errorf("marshal seller: %w", err)
	}
	guard := map[string]types.AttributeValue{
		fieldSellerID: &types.AttributeValueMemberS{Value: emailGuardID(s.Email)},
		fieldOwnerID:  &types.AttributeValueMemberS{Value: s.SellerID},
	}
	notExists := aws.String("attribute_not_exists(#id)")
	names := map[string]string{"#id": fieldSellerID}
	return []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:                aws.String(tableName),
			Item:                     item,
			ConditionExpression:      notExists,
			ExpressionAttributeNames: names,
		}},
		{Put: &types.Put{
			TableName:                aws.String(tableName),
			Item:                     guard,
			ConditionExpression:      notExists,
			ExpressionAttributeNames: names,
		}},
	}, nil
}

// isConditionalCancel reports whether a transaction was cancelled by a failed condition.
func isConditionalCancel(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func (r *SellerRepo) Get(ctx context.Context, sellerID string) (*domain.Seller, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldSellerID, sellerID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("seller not found: %w", domain.ErrNotFound)
	}
	var s domain.Seller
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SellerRepo) GetByEmail(ctx context.Context, email string) (*domain.Seller, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexSellerEmail),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": fieldEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: email}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("seller not found: %w", domain.ErrNotFound)
	}
	var s domain.Seller
	if err := attributevalue.UnmarshalMap(out.Items[0], &s); err != nil {
		return nil, err
	}
	return &s, nil
}
