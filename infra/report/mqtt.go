package report

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	corereport "github.com/kilianp07/evrptw/core/report"
	"github.com/kilianp07/evrptw/infra/logger"
)

// MQTTConfig defines the broker connection and publishing parameters.
type MQTTConfig struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	Retain      bool   `json:"retain"`
	UseTLS      bool   `json:"use_tls"`
	ClientCert  string `json:"client_cert"`
	ClientKey   string `json:"client_key"`
	CABundle    string `json:"ca_bundle"`
	MaxRetries  int    `json:"max_retries"`
	BackoffMS   int    `json:"backoff_ms"`
}

// SetDefaults applies default values.
func (c *MQTTConfig) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "evrptw-" + uuid.NewString()[:8]
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "evrptw/results"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTSink publishes each record as JSON to <topic_prefix>/<instance>.
type MQTTSink struct {
	mu      sync.Mutex
	cli     pahoClient
	cfg     MQTTConfig
	backoff time.Duration
	log     logger.Logger
}

// NewMQTTSink connects to the broker.
func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	cfg.SetDefaults()
	opts, err := newClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt-sink")
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return &MQTTSink{cli: c, cfg: cfg, backoff: time.Duration(cfg.BackoffMS) * time.Millisecond, log: log}, nil
}

func newClientOptions(cfg MQTTConfig) (*paho.ClientOptions, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt sink requires a broker")
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := loadTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

func loadTLSConfig(c MQTTConfig) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.CABundle != "" {
		caBytes, err := os.ReadFile(c.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca: %w", err)
		}
		pool := x509.NewCertPool()
		pool.AppendCertsFromPEM(caBytes)
		cfg.RootCAs = pool
	}
	if c.ClientCert != "" || c.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// Topic returns the topic a record for instance is published on.
func (s *MQTTSink) Topic(instance string) string {
	return strings.TrimSuffix(s.cfg.TopicPrefix, "/") + "/" + instance
}

// Write publishes rec, retrying with exponential backoff.
func (s *MQTTSink) Write(ctx context.Context, rec corereport.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	topic := s.Topic(rec.Instance)
	var publishErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		token := s.cli.Publish(topic, s.cfg.QoS, s.cfg.Retain, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			s.log.Debugf("published %s", topic)
			return nil
		}
		s.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(1<<attempt)):
		}
	}
	return fmt.Errorf("mqtt publish %s: %w", topic, publishErr)
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cli.IsConnected() {
		s.cli.Disconnect(250)
	}
	return nil
}
