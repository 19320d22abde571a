/*
Copyright 2021 U. Cirello (cirello.io and github.com/cirello-io)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package distlock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBClient is the subset of *dynamodb.Client this package depends
// on, narrowed so testing doubles can satisfy it without pulling in the
// full SDK surface.
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// DynamoDBStore is the production Store adapter, backed by a single
// DynamoDB table.
type DynamoDBStore struct {
	client           DynamoDBClient
	tableName        string
	partitionKeyName string
}

// NewDynamoDBStore builds a Store over the given table and partition key
// name. The table must already exist; use CreateTable to provision one
// with the schema this library requires.
func NewDynamoDBStore(client DynamoDBClient, tableName, partitionKeyName string) *DynamoDBStore {
	return &DynamoDBStore{
		client:           client,
		tableName:        tableName,
		partitionKeyName: partitionKeyName,
	}
}

func (s *DynamoDBStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		s.partitionKeyName: &types.AttributeValueMemberS{Value: id},
	}
}

func (s *DynamoDBStore) buildCondition(cond Condition) expression.ConditionBuilder {
	partitionKeyAttr := expression.Name(s.partitionKeyName)
	switch cond.Kind {
	case CondGUIDEquals:
		return expression.And(
			expression.AttributeExists(partitionKeyAttr),
			expression.Equal(expression.Name("guid"), expression.Value(cond.GUID)),
		)
	case CondAbsentOrGUIDAndTokenEqual:
		return expression.Or(
			expression.AttributeNotExists(partitionKeyAttr),
			expression.And(
				expression.AttributeExists(partitionKeyAttr),
				expression.Equal(expression.Name("guid"), expression.Value(cond.GUID)),
				expression.Equal(expression.Name("fencingToken"), expression.Value(cond.FencingToken)),
			),
		)
	default: // CondAbsent
		return expression.AttributeNotExists(partitionKeyAttr)
	}
}

// Put implements Store.
func (s *DynamoDBStore) Put(ctx context.Context, item Record, cond Condition) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return &BackendError{Err: fmt.Errorf("cannot marshal lock record: %w", err)}
	}
	av[s.partitionKeyName] = &types.AttributeValueMemberS{Value: item.ID}

	builder, err := expression.NewBuilder().WithCondition(s.buildCondition(cond)).Build()
	if err != nil {
		return &BackendError{Err: fmt.Errorf("cannot build condition expression: %w", err)}
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      av,
		ConditionExpression:       builder.Condition(),
		ExpressionAttributeNames:  builder.Names(),
		ExpressionAttributeValues: builder.Values(),
	})
	return s.translateError(err)
}

// Get implements Store. It always issues a strongly consistent read, per
// spec §4.1.
func (s *DynamoDBStore) Get(ctx context.Context, id string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, &BackendError{Err: err}
	}
	if out.Item == nil {
		return nil, nil
	}

	var record Record
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, &BackendError{Err: fmt.Errorf("cannot unmarshal lock record: %w", err)}
	}
	record.ID = id
	return &record, nil
}

// Delete implements Store.
func (s *DynamoDBStore) Delete(ctx context.Context, id string, cond Condition) error {
	builder, err := expression.NewBuilder().WithCondition(s.buildCondition(cond)).Build()
	if err != nil {
		return &BackendError{Err: fmt.Errorf("cannot build condition expression: %w", err)}
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       s.key(id),
		ConditionExpression:       builder.Condition(),
		ExpressionAttributeNames:  builder.Names(),
		ExpressionAttributeValues: builder.Values(),
	})
	return s.translateError(err)
}

func (s *DynamoDBStore) translateError(err error) error {
	if err == nil {
		return nil
	}
	var ccfe *types.ConditionalCheckFailedException
	if errors.As(err, &ccfe) {
		return fmt.Errorf("%w: %s", ErrConditionFailed, ccfe.Error())
	}
	return &BackendError{Err: err}
}

// CreateTableOption reconfigures CreateTable's request.
type CreateTableOption func(*dynamodb.CreateTableInput)

// WithProvisionedThroughput switches the table to provisioned billing
// mode with the given throughput, instead of the default pay-per-request
// mode.
func WithProvisionedThroughput(t *types.ProvisionedThroughput) CreateTableOption {
	return func(in *dynamodb.CreateTableInput) {
		in.BillingMode = types.BillingModeProvisioned
		in.ProvisionedThroughput = t
	}
}

// WithTableTags attaches tags to the table created by CreateTable.
func WithTableTags(tags []types.Tag) CreateTableOption {
	return func(in *dynamodb.CreateTableInput) {
		in.Tags = tags
	}
}

// CreateTable provisions a DynamoDB table with the partition-key-only
// schema this library requires. It is an operational convenience, not
// part of the locking protocol; the table must exist before any Acquire
// call. If the table already exists, DynamoDB returns an error.
func (s *DynamoDBStore) CreateTable(ctx context.Context, opts ...CreateTableOption) (*dynamodb.CreateTableOutput, error) {
	input := &dynamodb.CreateTableInput{
		TableName:   aws.String(s.tableName),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(s.partitionKeyName), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(s.partitionKeyName), AttributeType: types.ScalarAttributeTypeS},
		},
	}
	for _, opt := range opts {
		opt(input)
	}
	return s.client.CreateTable(ctx, input)
}

// EnsureTTL registers this library's expiresAt attribute as the table's
// TTL attribute, so DynamoDB's background reaper can clean up abandoned
// Fail-Closed records. It is optional and has no bearing on the
// correctness of the locking protocol itself.
func (s *DynamoDBStore) EnsureTTL(ctx context.Context) error {
	_, err := s.client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(s.tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String("expiresAt"),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		return &BackendError{Err: err}
	}
	return nil
}
