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

package cassandra

import (
	"context"
	"errors"
	"sync"
	"time"

	"emperror.dev/emperror"
	"github.com/gocql/gocql"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/store"
	"github.com/xmidt-org/tablog/store/db/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	Yugabyte = "yugabyte"

	defaultOpTimeout             = time.Duration(10) * time.Second
	defaultDatabase              = "tablog"
	defaultNumRetries            = 0
	defaultWaitTimeMult          = 1
	defaultMaxNumberConnsPerHost = 2
	defaultPingInterval          = 5 * time.Second
)

// CassandraConfig holds the Cassandra/Yugabyte connection settings. The keyspace
// must already contain:
//
//	CREATE TABLE records (
//	    destination text, bucket text, id text, ts timestamp, fields map<text, text>,
//	    PRIMARY KEY ((destination, bucket), id));
type CassandraConfig struct {
	// Hosts to  connect to. Must have at least one
	Hosts []string `validate:"min=1"`

	// Database aka Keyspace for cassandra
	Database string

	// OpTimeout
	OpTimeout time.Duration

	// SSLRootCert used for enabling tls to the cluster. SSLKey, and SSLCert must also be set.
	SSLRootCert string
	// SSLKey used for enabling tls to the cluster. SSLRootCert, and SSLCert must also be set.
	SSLKey string
	// SSLCert used for enabling tls to the cluster. SSLRootCert, and SSLRootCert must also be set.
	SSLCert string
	// If you want to verify the hostname and server cert (like a wildcard for cass cluster) then you should turn this on
	// This option is basically the inverse of InSecureSkipVerify
	// See InSecureSkipVerify in http://golang.org/pkg/crypto/tls/ for more info
	EnableHostVerification bool

	// Username to authenticate into the cluster. Password must also be provided.
	Username string
	// Password to authenticate into the cluster. Username must also be provided.
	Password string

	// NumRetries for connecting to the db
	NumRetries int

	// WaitTimeMult the amount of time to wait before retrying to connect to the db
	WaitTimeMult time.Duration

	// MaxConnsPerHost max number of connections per host
	MaxConnsPerHost int

	// PingInterval is how often the session is checked.
	PingInterval time.Duration
}

type CassandraClient struct {
	client   dbStore
	config   CassandraConfig
	logger   *zap.Logger
	measures metric.Measures
	now      func() time.Time
}

func NewCassandra(config CassandraConfig, measures metric.Measures, lc fx.Lifecycle, logger *zap.Logger) (store.S, error) {
	client, err := CreateCassandraClient(config, measures, logger)
	if err != nil {
		return nil, err
	}
	stop := doEvery(client.config.PingInterval, func(_ time.Time) {
		err := client.Ping()
		if err != nil {
			logger.Error("ping failed", zap.Error(err))
		}
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			stop()
			client.Close()
			return nil
		},
	})
	return client, nil
}

// doEvery runs f on every tick until stop is called. stop waits for the
// goroutine to exit and is safe to call more than once.
func doEvery(d time.Duration, f func(time.Time)) (stop func()) {
	var (
		ticker = time.NewTicker(d)
		quit   = make(chan struct{})
		exited = make(chan struct{})
		once   sync.Once
	)
	go func() {
		defer close(exited)
		for {
			select {
			case x := <-ticker.C:
				f(x)
			case <-quit:
				return
			}
		}
	}()
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(quit)
		})
		<-exited
	}
}

func CreateCassandraClient(config CassandraConfig, measures metric.Measures, logger *zap.Logger) (*CassandraClient, error) {
	if len(config.Hosts) == 0 {
		return nil, errors.New("number of hosts must be > 0")
	}

	validateConfig(&config)

	clusterConfig := gocql.NewCluster(config.Hosts...)
	clusterConfig.Consistency = gocql.LocalQuorum
	clusterConfig.Keyspace = config.Database
	clusterConfig.Timeout = config.OpTimeout
	clusterConfig.NumConns = config.MaxConnsPerHost
	// let retry package handle it
	clusterConfig.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: 1}
	// setup ssl
	if config.SSLRootCert != "" && config.SSLCert != "" && config.SSLKey != "" {
		clusterConfig.SslOpts = &gocql.SslOptions{
			CertPath:               config.SSLCert,
			KeyPath:                config.SSLKey,
			CaPath:                 config.SSLRootCert,
			EnableHostVerification: config.EnableHostVerification,
		}
	}
	// setup authentication
	if config.Username != "" && config.Password != "" {
		clusterConfig.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}

	session, err := connect(clusterConfig, logger)

	// retry if it fails
	waitTime := 1 * time.Second
	for attempt := 0; attempt < config.NumRetries && err != nil; attempt++ {
		time.Sleep(waitTime)
		session, err = connect(clusterConfig, logger)
		waitTime = waitTime * config.WaitTimeMult
	}
	if err != nil {
		return nil, emperror.WrapWith(err, "Connecting to database failed", "hosts", config.Hosts)
	}

	return newCassandraClient(session, config, measures, logger), nil
}

func newCassandraClient(client dbStore, config CassandraConfig, measures metric.Measures, logger *zap.Logger) *CassandraClient {
	return &CassandraClient{
		client:   client,
		config:   config,
		logger:   logger,
		measures: measures,
		now:      time.Now,
	}
}

func (s *CassandraClient) GetDestination(name string, setting model.Setting) (store.Destination, error) {
	if name == "" {
		return nil, store.BadRequestErr{Message: "destination name is required"}
	}
	return &destination{client: s, name: name, setting: setting}, nil
}

type destination struct {
	client  *CassandraClient
	name    string
	setting model.Setting
}

// ttl converts the retention of the destination into a Cassandra TTL in
// seconds. Zero disables expiry.
func (d *destination) ttl() int {
	now := d.client.now()
	expires := d.setting.Expiry(now)
	if expires == nil {
		return 0
	}
	return int(expires.Sub(now).Seconds())
}

func (d *destination) BulkWrite(ctx context.Context, records []model.Record, upsert bool) error {
	if len(records) == 0 {
		return nil
	}
	s := d.client
	err := s.client.Push(ctx, d.name, records, d.ttl(), upsert)
	s.measures.Query(store.InsertType, err)
	if err != nil {
		return store.Sanitize(err)
	}
	s.measures.Records(store.InsertType, Yugabyte, len(records))
	return nil
}

func (d *destination) Write(ctx context.Context, r model.Record, upsert bool) error {
	return d.BulkWrite(ctx, []model.Record{r}, upsert)
}

func (d *destination) GetAll(ctx context.Context, bucket string) ([]model.Record, error) {
	s := d.client
	records, err := s.client.GetAll(ctx, d.name, bucket)
	s.measures.Query(store.ReadType, err)
	if err != nil {
		return []model.Record{}, store.Sanitize(err)
	}
	s.measures.Records(store.ReadType, Yugabyte, len(records))
	return records, nil
}

func (s *CassandraClient) Close() {
	s.client.Close()
}

// Ping is for pinging the database to verify that the connection is still good.
func (s *CassandraClient) Ping() error {
	err := s.client.Ping()
	s.measures.Query(store.PingType, err)
	if err != nil {
		return emperror.WrapWith(err, "Pinging connection failed")
	}
	return nil
}

func validateConfig(config *CassandraConfig) {
	zeroDuration := time.Duration(0) * time.Second

	if config.OpTimeout == zeroDuration {
		config.OpTimeout = defaultOpTimeout
	}

	if config.Database == "" {
		config.Database = defaultDatabase
	}
	if config.NumRetries < 0 {
		config.NumRetries = defaultNumRetries
	}
	if config.WaitTimeMult < 1 {
		config.WaitTimeMult = defaultWaitTimeMult
	}
	if config.MaxConnsPerHost <= 0 {
		config.MaxConnsPerHost = defaultMaxNumberConnsPerHost
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaultPingInterval
	}
}
