/**
 * Copyright 2020 Comcast Cable Communications Management, LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/xmidt-org/httpaux/erraux"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/store"
)

// maxBatchWriteItems is the most put requests a single BatchWriteItem call accepts.
const maxBatchWriteItems = 25

// client captures the methods of interest from the dynamoDB API. This
// should help mock API calls as well.
type client interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(context.Context, *dynamodb.BatchWriteItemInput, ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// service defines the dynamodb specific DAO interface. It helps keeping middleware
// such as logging and instrumentation orthogonal to business logic.
type service interface {
	Push(ctx context.Context, destination string, records []model.Record, expires *time.Time, upsert bool) (*types.ConsumedCapacity, error)
	GetAll(ctx context.Context, destination, bucket string) ([]model.Record, *types.ConsumedCapacity, error)
}

// executor satisfies the service interface so dao can then adapt the outputs to match
// the abstract store.
type executor struct {
	// c is the dynamodb client
	c client

	// tableName is the name of the dynamodb table
	tableName string

	// maxRetries bounds the resubmissions of unprocessed batch items.
	maxRetries int

	now func() time.Time
}

type storableRecord struct {
	Bucket    string            `dynamodbav:"bucket"`
	ID        string            `dynamodbav:"id"`
	Timestamp time.Time         `dynamodbav:"ts"`
	Fields    map[string]string `dynamodbav:"fields,omitempty"`
	Expires   *int64            `dynamodbav:"expires,omitempty"`
}

// Dynamo DB attribute keys
const (
	bucketAttributeKey     = "bucket"
	idAttributeKey         = "id"
	expirationAttributeKey = "expires"
)

var (
	errDefaultDynamoDBFailure = &erraux.Error{
		Err:  errors.New("dynamodb operation failed"),
		Code: http.StatusInternalServerError,
	}
	errBadRequest = &erraux.Error{
		Err:  errors.New("bad request to dynamodb"),
		Code: http.StatusBadRequest,
	}
	errUnprocessedItems = errors.New("dynamodb left items unprocessed")
)

// partitionKey places every destination in the same table by prefixing the
// bucket with the destination name.
func partitionKey(destination, bucket string) string {
	return destination + "#" + bucket
}

func handleClientError(err error) error {
	var conditionErr *types.ConditionalCheckFailedException
	if errors.As(err, &conditionErr) {
		return store.SanitizedError{Err: fmt.Errorf("%w: %v", store.ErrRecordExists, err), ErrHTTP: store.ErrHTTPRecordExists}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
		return store.SanitizedError{Err: err, ErrHTTP: errBadRequest}
	}
	return store.SanitizedError{Err: err, ErrHTTP: errDefaultDynamoDBFailure}
}

func addCapacity(total *types.ConsumedCapacity, cc *types.ConsumedCapacity) *types.ConsumedCapacity {
	if cc == nil {
		return total
	}
	if total == nil {
		total = new(types.ConsumedCapacity)
	}
	add := func(sum **float64, v *float64) {
		if v == nil {
			return
		}
		if *sum == nil {
			*sum = aws.Float64(0)
		}
		**sum += *v
	}
	add(&total.CapacityUnits, cc.CapacityUnits)
	add(&total.ReadCapacityUnits, cc.ReadCapacityUnits)
	add(&total.WriteCapacityUnits, cc.WriteCapacityUnits)
	return total
}

func (d *executor) marshal(destination string, r model.Record, expires *time.Time) (map[string]types.AttributeValue, error) {
	item := storableRecord{
		Bucket:    partitionKey(destination, r.Bucket),
		ID:        r.ID,
		Timestamp: r.Timestamp,
		Fields:    r.Fields,
	}
	if expires != nil {
		unixExpSeconds := expires.Unix()
		item.Expires = &unixExpSeconds
	}
	return attributevalue.MarshalMap(item)
}

func (d *executor) Push(ctx context.Context, destination string, records []model.Record, expires *time.Time, upsert bool) (*types.ConsumedCapacity, error) {
	if upsert {
		return d.batchPut(ctx, destination, records, expires)
	}
	var consumedCapacity *types.ConsumedCapacity
	for _, r := range records {
		cc, err := d.conditionalPut(ctx, destination, r, expires)
		consumedCapacity = addCapacity(consumedCapacity, cc)
		if err != nil {
			return consumedCapacity, err
		}
	}
	return consumedCapacity, nil
}

func (d *executor) conditionalPut(ctx context.Context, destination string, r model.Record, expires *time.Time) (*types.ConsumedCapacity, error) {
	av, err := d.marshal(destination, r, expires)
	if err != nil {
		return nil, err
	}
	result, err := d.c.PutItem(ctx, &dynamodb.PutItemInput{
		Item:                     av,
		TableName:                aws.String(d.tableName),
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": idAttributeKey},
		ReturnConsumedCapacity:   types.ReturnConsumedCapacityTotal,
	})
	var consumedCapacity *types.ConsumedCapacity
	if result != nil {
		consumedCapacity = result.ConsumedCapacity
	}
	if err != nil {
		return consumedCapacity, handleClientError(err)
	}
	return consumedCapacity, nil
}

func (d *executor) batchPut(ctx context.Context, destination string, records []model.Record, expires *time.Time) (*types.ConsumedCapacity, error) {
	requests := make([]types.WriteRequest, 0, len(records))
	for _, r := range records {
		av, err := d.marshal(destination, r, expires)
		if err != nil {
			return nil, err
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	var consumedCapacity *types.ConsumedCapacity
	for start := 0; start < len(requests); start += maxBatchWriteItems {
		end := min(start+maxBatchWriteItems, len(requests))
		pending := requests[start:end]
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt > d.maxRetries {
				return consumedCapacity, store.SanitizedError{
					Err:     fmt.Errorf("%w: %d of %d", errUnprocessedItems, len(pending), end-start),
					ErrHTTP: errDefaultDynamoDBFailure,
				}
			}
			result, err := d.c.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems:           map[string][]types.WriteRequest{d.tableName: pending},
				ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
			})
			if result != nil {
				for i := range result.ConsumedCapacity {
					consumedCapacity = addCapacity(consumedCapacity, &result.ConsumedCapacity[i])
				}
			}
			if err != nil {
				return consumedCapacity, handleClientError(err)
			}
			pending = result.UnprocessedItems[d.tableName]
		}
	}
	return consumedCapacity, nil
}

// GetAll pages through the bucket in sort key order. Records past their
// expiration are skipped since DynamoDB deletes expired items lazily.
func (d *executor) GetAll(ctx context.Context, destination, bucket string) ([]model.Record, *types.ConsumedCapacity, error) {
	var (
		consumedCapacity *types.ConsumedCapacity
		result           = []model.Record{}
		now              = d.now().Unix()
	)
	p := dynamodb.NewQueryPaginator(d.c, &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("#bucket = :bucket"),
		ExpressionAttributeNames: map[string]string{
			"#bucket": bucketAttributeKey,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":bucket": &types.AttributeValueMemberS{Value: partitionKey(destination, bucket)},
		},
		ScanIndexForward:       aws.Bool(true),
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if page != nil {
			consumedCapacity = addCapacity(consumedCapacity, page.ConsumedCapacity)
		}
		if err != nil {
			return []model.Record{}, consumedCapacity, handleClientError(err)
		}
		for _, i := range page.Items {
			item := new(storableRecord)
			if err := attributevalue.UnmarshalMap(i, item); err != nil {
				continue
			}
			if item.Expires != nil && *item.Expires <= now {
				continue
			}
			result = append(result, model.Record{
				Key:       model.Key{Bucket: bucket, ID: item.ID},
				Timestamp: item.Timestamp,
				Fields:    item.Fields,
			})
		}
	}
	return result, consumedCapacity, nil
}

func newService(c client, tableName string, maxRetries int) service {
	return &executor{
		c:          c,
		tableName:  tableName,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}
