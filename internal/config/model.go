package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultNamePrefix     = "Canvas3D"
	DefaultExecuteTimeout = 2 * time.Minute
	DefaultEventBuffer    = 256
	DefaultTopicPrefix    = "scenegrid/executions"
	DefaultLockTTL        = 30 * time.Second
)

// Model is the unified, format-agnostic representation of the application
// configuration.
type Model struct {
	Executor   Executor
	Validator  Validator
	Host       Host
	Events     Events
	Journal    Journal
	CommitLock CommitLock
	S3         S3
}

// Executor tunes the deterministic executor.
type Executor struct {
	NamePrefix           string
	DefaultMinPathLength int
	Timeout              time.Duration
}

// Validator restricts which spec versions are accepted.
type Validator struct {
	ExpectVersion     string
	VersionConstraint string
}

// Host locates the remote scene host. An empty URL selects the in-memory
// host.
type Host struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
	CallTimeout        time.Duration
}

// Events configures lifecycle event publishing. An empty broker keeps events
// in the in-process ring buffer only.
type Events struct {
	MQTTBroker  string
	ClientID    string
	TopicPrefix string
	BufferSize  int
}

// Journal selects where execution results are recorded. An empty DSN keeps
// them in memory.
type Journal struct {
	PostgresDSN string
}

// CommitLock selects the commit critical section. An empty address uses an
// in-process lock.
type CommitLock struct {
	RedisAddr string
	TTL       time.Duration
}

// S3 configures loading specs from s3:// locations.
type S3 struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Default returns the model used when no configuration file is given.
func Default() *Model {
	return &Model{
		Executor: Executor{
			NamePrefix: DefaultNamePrefix,
			Timeout:    DefaultExecuteTimeout,
		},
		Host: Host{Namespace: "/"},
		Events: Events{
			ClientID:    "scenegrid",
			TopicPrefix: DefaultTopicPrefix,
			BufferSize:  DefaultEventBuffer,
		},
		CommitLock: CommitLock{TTL: DefaultLockTTL},
	}
}

// Validate reports every invalid setting at once.
func (m *Model) Validate() error {
	var errs []error
	if m.Executor.NamePrefix == "" {
		errs = append(errs, errors.New("executor.name_prefix must not be empty"))
	}
	if m.Executor.DefaultMinPathLength < 0 {
		errs = append(errs, fmt.Errorf("executor.default_min_path_length must be >= 0, got %d", m.Executor.DefaultMinPathLength))
	}
	if m.Executor.Timeout < 0 {
		errs = append(errs, fmt.Errorf("executor.timeout must be >= 0, got %v", m.Executor.Timeout))
	}
	if m.Validator.ExpectVersion != "" && m.Validator.VersionConstraint != "" {
		errs = append(errs, errors.New("validator.expect_version and validator.version_constraint are mutually exclusive"))
	}
	if m.Events.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("events.buffer_size must be > 0, got %d", m.Events.BufferSize))
	}
	if m.CommitLock.TTL <= 0 {
		errs = append(errs, fmt.Errorf("commit_lock.ttl must be > 0, got %v", m.CommitLock.TTL))
	}
	return errors.Join(errs...)
}
