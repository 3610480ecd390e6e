package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/specialistvlad/scenegrid/internal/bridge"
	"github.com/specialistvlad/scenegrid/internal/commitlock"
	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/events"
	"github.com/specialistvlad/scenegrid/internal/executor"
	"github.com/specialistvlad/scenegrid/internal/journal"
	"github.com/specialistvlad/scenegrid/internal/memscene"
	"github.com/specialistvlad/scenegrid/internal/scenebuilder"
	"github.com/specialistvlad/scenegrid/internal/schema"
	"github.com/specialistvlad/scenegrid/internal/traverse"
	"go.opentelemetry.io/otel"
)

const commitLockPrefix = "scenegrid:commit:"

// validatorOptions turns the validator block into schema options.
func (a *App) validatorOptions() ([]schema.Option, error) {
	var opts []schema.Option
	if v := a.model.Validator.ExpectVersion; v != "" {
		opts = append(opts, schema.WithExpectVersion(v))
	}
	if expr := a.model.Validator.VersionConstraint; expr != "" {
		c, err := schema.ParseVersionConstraint(expr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, schema.WithVersionConstraint(c))
	}
	return opts, nil
}

func (a *App) traversalOptions() []traverse.Option {
	return []traverse.Option{traverse.WithDefaultMinLength(a.model.Executor.DefaultMinPathLength)}
}

// newExecutor wires the executor and the services named in the model.
// Connections it opens are released by Close.
func (a *App) newExecutor(ctx context.Context, b scenebuilder.Builder) (*executor.Executor, error) {
	logger := ctxlog.FromContext(ctx)

	schemaOpts, err := a.validatorOptions()
	if err != nil {
		return nil, err
	}
	opts := []executor.Option{
		executor.WithNamePrefix(a.model.Executor.NamePrefix),
		executor.WithValidatorOptions(schemaOpts...),
		executor.WithTraversalOptions(a.traversalOptions()...),
		executor.WithMetrics(a.metrics),
		executor.WithTracerProvider(otel.GetTracerProvider()),
	}

	publishers := events.Multi{a.events}
	if broker := a.model.Events.MQTTBroker; broker != "" {
		mqtt, closeMQTT, err := events.ConnectMQTT(broker, a.model.Events.ClientID, a.model.Events.TopicPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeMQTT)
		publishers = append(publishers, mqtt)
		logger.Info("Publishing lifecycle events over MQTT.", "broker", broker)
	}
	opts = append(opts, executor.WithPublisher(publishers))

	if dsn := a.model.Journal.PostgresDSN; dsn != "" {
		pg, err := journal.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := pg.Close(); err != nil {
				logger.Warn("Failed to close journal.", "error", err)
			}
		})
		opts = append(opts, executor.WithJournal(pg))
		logger.Info("Recording executions in Postgres journal.")
	} else {
		opts = append(opts, executor.WithJournal(journal.NewMemory()))
	}

	if addr := a.model.CommitLock.RedisAddr; addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		opts = append(opts, executor.WithCommitLocker(
			commitlock.NewRedis(client, commitLockPrefix, commitlock.WithTTL(a.model.CommitLock.TTL)),
		))
		logger.Info("Using Redis commit lock.", "addr", addr)
	}

	return executor.New(b, opts...), nil
}

// newBuilder returns the injected builder, a socket.io bridge to the
// configured host, or a fresh in-memory scene.
func (a *App) newBuilder(ctx context.Context) (scenebuilder.Builder, error) {
	if a.builder != nil {
		return a.builder, nil
	}
	h := a.model.Host
	if h.URL == "" {
		ctxlog.FromContext(ctx).Info("No scene host configured, building into an in-memory scene.")
		return memscene.New(), nil
	}
	remote, closeRemote, err := bridge.Dial(ctx, bridge.DialOptions{
		URL:                h.URL,
		Namespace:          h.Namespace,
		InsecureSkipVerify: h.InsecureSkipVerify,
		ConnectTimeout:     h.ConnectTimeout,
		CallTimeout:        h.CallTimeout,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeRemote)
	return remote, nil
}
