package integration

import (
	"context"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Env holds the containers shared by an integration suite.
type Env struct {
	PG    *postgres.PostgresContainer
	Kafka *kafka.KafkaContainer
	PGURL string
	KAddr []string
}

// StartPostgres brings up a throwaway postgres and returns its connection
// string.
func StartPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("saga"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", err
	}

	connStr, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgC.Terminate(ctx)
		return nil, "", err
	}
	return pgC, connStr, nil
}

// Setup brings up postgres and kafka together for end-to-end flows.
func Setup(ctx context.Context) (*Env, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	pgC, pgURL, err := StartPostgres(ctx)
	if err != nil {
		return nil, err
	}

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("test-cluster"),
	)
	if err != nil {
		_ = pgC.Terminate(ctx)
		return nil, err
	}

	brokers, err := kafkaC.Brokers(ctx)
	if err != nil {
		_ = kafkaC.Terminate(ctx)
		_ = pgC.Terminate(ctx)
		return nil, err
	}

	return &Env{PG: pgC, Kafka: kafkaC, PGURL: pgURL, KAddr: brokers}, nil
}

func (e *Env) Teardown(ctx context.Context) {
	if e.Kafka != nil {
		_ = e.Kafka.Terminate(ctx)
	}
	if e.PG != nil {
		_ = e.PG.Terminate(ctx)
	}
}
