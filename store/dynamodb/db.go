package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/store"
	"github.com/xmidt-org/tablog/store/db/metric"
	"go.uber.org/zap"
)

const (
	DynamoDB = "dynamo"

	defaultTable      = "tablog"
	defaultMaxRetries = 3
)

// Config holds the DynamoDB connection settings. All destinations share
// Table; its partition key must be the string attribute "bucket" and its sort
// key the string attribute "id". Enable TTL on "expires" to have records
// removed after their retention.
type Config struct {
	Table      string
	Endpoint   string
	Region     string `validate:"required"`
	MaxRetries int    `validate:"gte=0"`
	AccessKey  string
	SecretKey  string
}

type dao struct {
	s   service
	now func() time.Time
}

// NewDynamoDB returns a DynamoDB backed store.
func NewDynamoDB(config Config, measures metric.Measures, logger *zap.Logger) (store.S, error) {
	validateConfig(&config)

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
		awsconfig.WithRetryMaxAttempts(config.MaxRetries + 1),
	}
	if config.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, ""),
		))
	}
	awsConfig, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	client := dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})

	svc := newService(client, config.Table, config.MaxRetries)
	svc = newInstrumentingService(measures, svc)
	svc = newLoggingService(logger, svc)
	return newDAO(svc), nil
}

func newDAO(s service) *dao {
	return &dao{s: s, now: time.Now}
}

func (d *dao) GetDestination(name string, setting model.Setting) (store.Destination, error) {
	if name == "" {
		return nil, store.BadRequestErr{Message: "destination name is required"}
	}
	return &destination{dao: d, name: name, setting: setting}, nil
}

type destination struct {
	dao     *dao
	name    string
	setting model.Setting
}

func (d *destination) BulkWrite(ctx context.Context, records []model.Record, upsert bool) error {
	if len(records) == 0 {
		return nil
	}
	_, err := d.dao.s.Push(ctx, d.name, records, d.setting.Expiry(d.dao.now()), upsert)
	return err
}

func (d *destination) Write(ctx context.Context, r model.Record, upsert bool) error {
	return d.BulkWrite(ctx, []model.Record{r}, upsert)
}

func (d *destination) GetAll(ctx context.Context, bucket string) ([]model.Record, error) {
	records, _, err := d.dao.s.GetAll(ctx, d.name, bucket)
	return records, err
}

func validateConfig(config *Config) {
	if config.Table == "" {
		config.Table = defaultTable
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaultMaxRetries
	}
}
