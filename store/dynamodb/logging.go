package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/xmidt-org/tablog/model"
	"go.uber.org/zap"
)

type loggingService struct {
	service
	logger *zap.Logger
}

func newLoggingService(logger *zap.Logger, s service) service {
	return &loggingService{service: s, logger: logger}
}

func (s *loggingService) Push(ctx context.Context, destination string, records []model.Record, expires *time.Time, upsert bool) (consumedCapacity *types.ConsumedCapacity, err error) {
	defer func() {
		s.logger.Debug("push", zap.String("destination", destination), zap.Int("itemsSize", len(records)), zap.Bool("upsert", upsert), zap.Error(err))
	}()
	consumedCapacity, err = s.service.Push(ctx, destination, records, expires, upsert)
	return
}

func (s *loggingService) GetAll(ctx context.Context, destination, bucket string) (records []model.Record, consumedCapacity *types.ConsumedCapacity, err error) {
	defer func() {
		s.logger.Debug("get all", zap.String("destination", destination), zap.String("bucket", bucket), zap.Int("itemsSize", len(records)), zap.Error(err))
	}()
	records, consumedCapacity, err = s.service.GetAll(ctx, destination, bucket)
	return
}
