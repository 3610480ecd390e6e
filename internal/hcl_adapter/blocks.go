// This file contains the HCL schema of a scenegrid configuration file and
// its translation into the format-agnostic config model. Every attribute is
// optional; only attributes present in a file override the model.

package hcl_adapter

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/scenegrid/internal/config"
)

// fileRoot is the set of top-level blocks a configuration file may hold.
type fileRoot struct {
	Executor   *executorBlock   `hcl:"executor,block"`
	Validator  *validatorBlock  `hcl:"validator,block"`
	Host       *hostBlock       `hcl:"host,block"`
	Events     *eventsBlock     `hcl:"events,block"`
	Journal    *journalBlock    `hcl:"journal,block"`
	CommitLock *commitLockBlock `hcl:"commit_lock,block"`
	S3         *s3Block         `hcl:"s3,block"`
}

type executorBlock struct {
	NamePrefix           *string `hcl:"name_prefix,optional"`
	DefaultMinPathLength *int    `hcl:"default_min_path_length,optional"`
	Timeout              *string `hcl:"timeout,optional"`
}

type validatorBlock struct {
	ExpectVersion     *string `hcl:"expect_version,optional"`
	VersionConstraint *string `hcl:"version_constraint,optional"`
}

type hostBlock struct {
	URL                *string `hcl:"url,optional"`
	Namespace          *string `hcl:"namespace,optional"`
	InsecureSkipVerify *bool   `hcl:"insecure_skip_verify,optional"`
	ConnectTimeout     *string `hcl:"connect_timeout,optional"`
	CallTimeout        *string `hcl:"call_timeout,optional"`
}

type eventsBlock struct {
	MQTTBroker  *string `hcl:"mqtt_broker,optional"`
	ClientID    *string `hcl:"client_id,optional"`
	TopicPrefix *string `hcl:"topic_prefix,optional"`
	BufferSize  *int    `hcl:"buffer_size,optional"`
}

type journalBlock struct {
	PostgresDSN *string `hcl:"postgres_dsn,optional"`
}

type commitLockBlock struct {
	RedisAddr *string `hcl:"redis_addr,optional"`
	TTL       *string `hcl:"ttl,optional"`
}

type s3Block struct {
	Region          *string `hcl:"region,optional"`
	Endpoint        *string `hcl:"endpoint,optional"`
	AccessKeyID     *string `hcl:"access_key_id,optional"`
	SecretAccessKey *string `hcl:"secret_access_key,optional"`
	UsePathStyle    *bool   `hcl:"use_path_style,optional"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// setDuration parses a duration attribute such as "30s" or "2m".
func setDuration(dst *time.Duration, src *string, name string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("attribute %s: %w", name, err)
	}
	*dst = d
	return nil
}

// applyTo merges the blocks present in the file into m.
func (r *fileRoot) applyTo(m *config.Model) error {
	var errs []error
	if b := r.Executor; b != nil {
		set(&m.Executor.NamePrefix, b.NamePrefix)
		set(&m.Executor.DefaultMinPathLength, b.DefaultMinPathLength)
		errs = append(errs, setDuration(&m.Executor.Timeout, b.Timeout, "executor.timeout"))
	}
	if b := r.Validator; b != nil {
		set(&m.Validator.ExpectVersion, b.ExpectVersion)
		set(&m.Validator.VersionConstraint, b.VersionConstraint)
	}
	if b := r.Host; b != nil {
		set(&m.Host.URL, b.URL)
		set(&m.Host.Namespace, b.Namespace)
		set(&m.Host.InsecureSkipVerify, b.InsecureSkipVerify)
		errs = append(errs,
			setDuration(&m.Host.ConnectTimeout, b.ConnectTimeout, "host.connect_timeout"),
			setDuration(&m.Host.CallTimeout, b.CallTimeout, "host.call_timeout"),
		)
	}
	if b := r.Events; b != nil {
		set(&m.Events.MQTTBroker, b.MQTTBroker)
		set(&m.Events.ClientID, b.ClientID)
		set(&m.Events.TopicPrefix, b.TopicPrefix)
		set(&m.Events.BufferSize, b.BufferSize)
	}
	if b := r.Journal; b != nil {
		set(&m.Journal.PostgresDSN, b.PostgresDSN)
	}
	if b := r.CommitLock; b != nil {
		set(&m.CommitLock.RedisAddr, b.RedisAddr)
		errs = append(errs, setDuration(&m.CommitLock.TTL, b.TTL, "commit_lock.ttl"))
	}
	if b := r.S3; b != nil {
		set(&m.S3.Region, b.Region)
		set(&m.S3.Endpoint, b.Endpoint)
		set(&m.S3.AccessKeyID, b.AccessKeyID)
		set(&m.S3.SecretAccessKey, b.SecretAccessKey)
		set(&m.S3.UsePathStyle, b.UsePathStyle)
	}
	return errors.Join(errs...)
}
