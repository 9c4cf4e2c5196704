package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/store"
	"github.com/xmidt-org/tablog/store/db/metric"
)

type instrumentingService struct {
	service
	measures metric.Measures
}

func newInstrumentingService(measures metric.Measures, s service) service {
	return &instrumentingService{measures: measures, service: s}
}

func (s *instrumentingService) Push(ctx context.Context, destination string, records []model.Record, expires *time.Time, upsert bool) (*types.ConsumedCapacity, error) {
	consumedCapacity, err := s.service.Push(ctx, destination, records, expires, upsert)
	s.update(store.InsertType, consumedCapacity, err)
	if err == nil {
		s.measures.Records(store.InsertType, DynamoDB, len(records))
	}
	return consumedCapacity, err
}

func (s *instrumentingService) GetAll(ctx context.Context, destination, bucket string) ([]model.Record, *types.ConsumedCapacity, error) {
	records, consumedCapacity, err := s.service.GetAll(ctx, destination, bucket)
	s.update(store.ReadType, consumedCapacity, err)
	s.measures.Records(store.ReadType, DynamoDB, len(records))
	return records, consumedCapacity, err
}

func (s *instrumentingService) update(queryType string, consumedCapacity *types.ConsumedCapacity, err error) {
	s.measures.Query(queryType, err)
	if consumedCapacity == nil {
		return
	}
	labels := prometheus.Labels{store.TypeLabel: queryType}
	add := func(c *prometheus.CounterVec, v *float64) {
		if c != nil && v != nil {
			c.With(labels).Add(*v)
		}
	}
	add(s.measures.CapacityUnitConsumedCount, consumedCapacity.CapacityUnits)
	add(s.measures.ReadCapacityUnitConsumedCount, consumedCapacity.ReadCapacityUnits)
	add(s.measures.WriteCapacityUnitConsumedCount, consumedCapacity.WriteCapacityUnits)
}
