package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/store"
)

const (
	testTableName   = "table01"
	testDestination = "Logs"
	testBucket      = "20261019"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func testRecords(n int) []model.Record {
	records := make([]model.Record, n)
	for i := range records {
		records[i] = model.Record{
			Key:       model.Key{Bucket: testBucket, ID: fmt.Sprintf("%04d", i)},
			Timestamp: testNow.Add(time.Duration(i) * time.Second),
			Fields:    map[string]string{"Message": fmt.Sprintf("m%d", i)},
		}
	}
	return records
}

func newTestExecutor(c client) *executor {
	return &executor{
		c:          c,
		tableName:  testTableName,
		maxRetries: 2,
		now:        func() time.Time { return testNow },
	}
}

func batchOf(n int) interface{} {
	return mock.MatchedBy(func(in *dynamodb.BatchWriteItemInput) bool {
		return len(in.RequestItems[testTableName]) == n
	})
}

func TestBatchPut(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	m := new(mockClient)
	expires := testNow.Add(time.Hour)

	var written []map[string]types.AttributeValue
	capture := func(args mock.Arguments) {
		for _, wr := range args.Get(0).(*dynamodb.BatchWriteItemInput).RequestItems[testTableName] {
			written = append(written, wr.PutRequest.Item)
		}
	}
	out := &dynamodb.BatchWriteItemOutput{
		ConsumedCapacity: []types.ConsumedCapacity{{CapacityUnits: aws.Float64(25), WriteCapacityUnits: aws.Float64(25)}},
	}
	m.On("BatchWriteItem", batchOf(25)).Run(capture).Return(out, nil).Twice()
	m.On("BatchWriteItem", batchOf(10)).Run(capture).Return(out, nil).Once()

	cc, err := newTestExecutor(m).Push(context.Background(), testDestination, testRecords(60), &expires, true)
	require.NoError(err)
	m.AssertExpectations(t)

	require.NotNil(cc)
	assert.Equal(75.0, *cc.CapacityUnits)
	assert.Equal(75.0, *cc.WriteCapacityUnits)
	assert.Nil(cc.ReadCapacityUnits)

	require.Len(written, 60)
	var first storableRecord
	require.NoError(attributevalue.UnmarshalMap(written[0], &first))
	assert.Equal("Logs#20261019", first.Bucket)
	assert.Equal("0000", first.ID)
	assert.Equal(map[string]string{"Message": "m0"}, first.Fields)
	require.NotNil(first.Expires)
	assert.Equal(expires.Unix(), *first.Expires)
}

func TestBatchPutUnprocessed(t *testing.T) {
	tcs := []struct {
		Description  string
		Unprocessed  int
		ExpectedErr  error
		ExpectedCall int
	}{
		{
			Description:  "Resubmitted",
			Unprocessed:  1,
			ExpectedCall: 2,
		},
		{
			Description:  "Retries exhausted",
			Unprocessed:  10,
			ExpectedErr:  errUnprocessedItems,
			ExpectedCall: 3,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			m := new(mockClient)
			calls := 0
			m.On("BatchWriteItem", mock.Anything).Return(func(in *dynamodb.BatchWriteItemInput) *dynamodb.BatchWriteItemOutput {
				calls++
				pending := in.RequestItems[testTableName]
				out := &dynamodb.BatchWriteItemOutput{}
				if calls <= tc.Unprocessed {
					out.UnprocessedItems = map[string][]types.WriteRequest{testTableName: pending[:1]}
				}
				return out
			}, nil)

			_, err := newTestExecutor(m).Push(context.Background(), testDestination, testRecords(3), nil, true)
			if tc.ExpectedErr != nil {
				assert.ErrorIs(err, tc.ExpectedErr)
				var sanitized store.SanitizedError
				assert.ErrorAs(err, &sanitized)
			} else {
				assert.NoError(err)
			}
			assert.Equal(tc.ExpectedCall, calls)
		})
	}
}

func TestConditionalPut(t *testing.T) {
	tcs := []struct {
		Description  string
		ClientErr    error
		ExpectedErr  error
		ExpectedCode int
	}{
		{
			Description: "Success",
		},
		{
			Description:  "Exists",
			ClientErr:    &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")},
			ExpectedErr:  store.ErrRecordExists,
			ExpectedCode: 409,
		},
		{
			Description:  "Validation",
			ClientErr:    &smithy.GenericAPIError{Code: "ValidationException", Message: "bad key"},
			ExpectedCode: 400,
		},
		{
			Description:  "Other",
			ClientErr:    errors.New("connection reset"),
			ExpectedCode: 500,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			m := new(mockClient)
			m.On("PutItem", mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
				return aws.ToString(in.ConditionExpression) == "attribute_not_exists(#id)" &&
					in.ExpressionAttributeNames["#id"] == idAttributeKey &&
					aws.ToString(in.TableName) == testTableName
			})).Return(&dynamodb.PutItemOutput{
				ConsumedCapacity: &types.ConsumedCapacity{CapacityUnits: aws.Float64(1)},
			}, tc.ClientErr).Once()

			cc, err := newTestExecutor(m).Push(context.Background(), testDestination, testRecords(1), nil, false)
			m.AssertExpectations(t)
			assert.Equal(1.0, *cc.CapacityUnits)
			if tc.ClientErr == nil {
				assert.NoError(err)
				return
			}
			if tc.ExpectedErr != nil {
				assert.ErrorIs(err, tc.ExpectedErr)
			}
			var sanitized store.SanitizedError
			if assert.ErrorAs(err, &sanitized) {
				assert.Equal(tc.ExpectedCode, sanitized.StatusCode())
			}
		})
	}
}

func TestConditionalPutStopsOnFailure(t *testing.T) {
	m := new(mockClient)
	m.On("PutItem", mock.Anything).Return(&dynamodb.PutItemOutput{}, nil).Once()
	m.On("PutItem", mock.Anything).Return(nil, &types.ConditionalCheckFailedException{}).Once()

	_, err := newTestExecutor(m).Push(context.Background(), testDestination, testRecords(5), nil, false)
	assert.ErrorIs(t, err, store.ErrRecordExists)
	m.AssertNumberOfCalls(t, "PutItem", 2)
}

func marshalItem(t *testing.T, r storableRecord) map[string]types.AttributeValue {
	av, err := attributevalue.MarshalMap(r)
	require.NoError(t, err)
	return av
}

func TestGetAll(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	m := new(mockClient)

	expired := testNow.Add(-time.Second).Unix()
	later := testNow.Add(time.Hour).Unix()
	partition := partitionKey(testDestination, testBucket)

	firstPage := &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{
			marshalItem(t, storableRecord{Bucket: partition, ID: "0001", Timestamp: testNow, Fields: map[string]string{"a": "1"}}),
		},
		LastEvaluatedKey: map[string]types.AttributeValue{
			idAttributeKey: &types.AttributeValueMemberS{Value: "0001"},
		},
		ConsumedCapacity: &types.ConsumedCapacity{ReadCapacityUnits: aws.Float64(0.5)},
	}
	secondPage := &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{
			marshalItem(t, storableRecord{Bucket: partition, ID: "0002", Timestamp: testNow, Expires: &expired}),
			marshalItem(t, storableRecord{Bucket: partition, ID: "0003", Timestamp: testNow, Expires: &later}),
		},
		ConsumedCapacity: &types.ConsumedCapacity{ReadCapacityUnits: aws.Float64(0.5)},
	}

	isQuery := func(in *dynamodb.QueryInput) bool {
		v, ok := in.ExpressionAttributeValues[":bucket"].(*types.AttributeValueMemberS)
		return ok && v.Value == partition &&
			aws.ToString(in.TableName) == testTableName &&
			aws.ToBool(in.ScanIndexForward)
	}
	m.On("Query", mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return isQuery(in) && in.ExclusiveStartKey == nil
	})).Return(firstPage, nil).Once()
	m.On("Query", mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return isQuery(in) && in.ExclusiveStartKey != nil
	})).Return(secondPage, nil).Once()

	records, cc, err := newTestExecutor(m).GetAll(context.Background(), testDestination, testBucket)
	require.NoError(err)
	m.AssertExpectations(t)

	assert.Equal(1.0, *cc.ReadCapacityUnits)
	require.Len(records, 2)
	assert.Equal(model.Key{Bucket: testBucket, ID: "0001"}, records[0].Key)
	assert.Equal(map[string]string{"a": "1"}, records[0].Fields)
	assert.True(testNow.Equal(records[0].Timestamp))
	assert.Equal("0003", records[1].ID)
}

func TestGetAllError(t *testing.T) {
	assert := assert.New(t)
	m := new(mockClient)
	m.On("Query", mock.Anything).Return(nil, &types.ResourceNotFoundException{Message: aws.String("no table")})

	records, _, err := newTestExecutor(m).GetAll(context.Background(), testDestination, testBucket)
	assert.Empty(records)
	var sanitized store.SanitizedError
	if assert.ErrorAs(err, &sanitized) {
		assert.Equal(500, sanitized.StatusCode())
	}
}
