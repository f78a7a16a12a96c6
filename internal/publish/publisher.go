// Package publish fans committed reflow runs and their history events out to
// the external history store over MQTT.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	Retain      bool   `json:"retain"`
	MaxRetries  int    `json:"max_retries"`
	BackoffMS   int    `json:"backoff_ms"`
	TimeoutMS   int    `json:"timeout_ms"`
}

func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "trflow"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "trflow"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 5000
	}
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	return nil
}

// Publisher delivers committed runs to the external history store.
type Publisher interface {
	PublishRun(ctx context.Context, run *domain.ReflowRun, events []domain.HistoryEvent) error
	Close()
}

// NopPublisher drops everything.
type NopPublisher struct{}

func (NopPublisher) PublishRun(context.Context, *domain.ReflowRun, []domain.HistoryEvent) error {
	return nil
}

func (NopPublisher) Close() {}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTPublisher implements Publisher using Eclipse Paho.
type MQTTPublisher struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
	log        logger.Logger
}

// NewMQTTPublisher connects to the broker named in cfg.
func NewMQTTPublisher(cfg Config, log logger.Logger) (*MQTTPublisher, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	p := &MQTTPublisher{
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		timeout:    time.Duration(cfg.TimeoutMS) * time.Millisecond,
		log:        log,
	}
	c := newMQTTClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(p.timeout) {
		return nil, fmt.Errorf("connecting to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Broker, err)
	}
	log.Infof("MQTT connected to %s", cfg.Broker)
	p.cli = c
	return p, nil
}

type runMessage struct {
	RunID            string         `json:"run_id"`
	Trigger          string         `json:"trigger"`
	Actor            string         `json:"actor"`
	RequestedAt      time.Time      `json:"requested_at"`
	State            string         `json:"state"`
	BaseVersion      int64          `json:"base_version"`
	CommittedVersion int64          `json:"committed_version"`
	Changes          int            `json:"changes"`
	Collisions       map[string]int `json:"collisions"`
	Warnings         []string       `json:"warnings,omitempty"`
	Error            string         `json:"error,omitempty"`
}

type historyMessage struct {
	EventID    string    `json:"event_id"`
	RunID      string    `json:"run_id"`
	Seq        int       `json:"seq"`
	Timestamp  time.Time `json:"ts"`
	Actor      string    `json:"actor"`
	ActivityID string    `json:"activity_id"`
	Field      string    `json:"field"`
	Old        string    `json:"old"`
	New        string    `json:"new"`
}

// RunTopic is where the run summary goes.
func (p *MQTTPublisher) RunTopic(runID string) string {
	return fmt.Sprintf("%s/runs/%s", p.prefix, runID)
}

// HistoryTopic is where field changes of one activity go.
func (p *MQTTPublisher) HistoryTopic(activityID string) string {
	return fmt.Sprintf("%s/history/%s", p.prefix, activityID)
}

// PublishRun sends one run summary followed by its history events in sequence order.
func (p *MQTTPublisher) PublishRun(ctx context.Context, run *domain.ReflowRun, events []domain.HistoryEvent) error {
	bySeverity := make(map[string]int)
	for _, c := range run.Collisions {
		bySeverity[string(c.Severity)]++
	}
	summary := runMessage{
		RunID:            run.ID,
		Trigger:          string(run.Trigger.Kind),
		Actor:            run.Trigger.Actor,
		RequestedAt:      run.RequestedAt.UTC(),
		State:            string(run.State),
		BaseVersion:      run.BaseVersion,
		CommittedVersion: run.CommittedVersion,
		Changes:          len(run.Changes),
		Collisions:       bySeverity,
		Warnings:         run.Warnings,
		Error:            run.Error,
	}
	if err := p.publishJSON(ctx, p.RunTopic(run.ID), summary); err != nil {
		return err
	}
	for _, e := range events {
		msg := historyMessage{
			EventID:    e.ID,
			RunID:      e.RunID,
			Seq:        e.Seq,
			Timestamp:  e.At.UTC(),
			Actor:      e.Actor,
			ActivityID: e.ActivityID,
			Field:      e.Field,
			Old:        e.Old,
			New:        e.New,
		}
		if err := p.publishJSON(ctx, p.HistoryTopic(e.ActivityID), msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *MQTTPublisher) publishJSON(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", topic, err)
	}

	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		if !token.WaitTimeout(p.timeout) {
			publishErr = fmt.Errorf("publish to %s timed out", topic)
		} else {
			publishErr = token.Error()
		}
		if publishErr == nil {
			p.log.Debugf("published %s", topic)
			return nil
		}
		p.log.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	return fmt.Errorf("publishing %s: %w", topic, publishErr)
}

// Close gracefully closes the MQTT connection.
func (p *MQTTPublisher) Close() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*MQTTPublisher)(nil)
)
