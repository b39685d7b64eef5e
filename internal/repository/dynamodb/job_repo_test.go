package dynamodb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cronkeeper/internal/domain"
	"cronkeeper/internal/logger"
	"cronkeeper/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dynamoDBEndpoint = "http://localhost:9000" // DynamoDB Local

func setupJobRepository(t *testing.T) (*jobRepository, context.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithBaseEndpoint(dynamoDBEndpoint),
	)
	require.NoError(t, err, "failed to load AWS config")
	client := dynamodb.NewFromConfig(cfg)

	tables := TableConfig{
		JobsTable:     fmt.Sprintf("cron_jobs_test_%d", time.Now().UnixNano()),
		CountersTable: fmt.Sprintf("cron_job_counters_test_%d", time.Now().UnixNano()),
	}
	log := logger.NewNop()
	require.NoError(t, EnsureTables(ctx, client, tables, log))

	t.Cleanup(func() {
		client.DeleteTable(context.Background(), &dynamodb.DeleteTableInput{TableName: aws.String(tables.JobsTable)})
		client.DeleteTable(context.Background(), &dynamodb.DeleteTableInput{TableName: aws.String(tables.CountersTable)})
	})

	return NewJobRepository(client, tables, log).(*jobRepository), ctx
}

func TestJobRepositoryRunState(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	repo, ctx := setupJobRepository(t)

	running := domain.NewJobDefinition("running", "*/5 * * * *", "https://example.com/a", true)
	stopped := domain.NewJobDefinition("stopped", "0 * * * *", "https://example.com/b", false)
	conflict := domain.NewJobDefinition("conflict", "0 0 * * *", "https://example.com/c", false)
	conflict.Status = domain.JobStatusActive

	for _, job := range []*domain.JobDefinition{running, stopped, conflict} {
		require.NoError(t, repo.Create(ctx, job))
	}
	assert.Less(t, running.ID, stopped.ID)

	schedulable, err := repo.FindSchedulableJobs(ctx)
	require.NoError(t, err)
	require.Len(t, schedulable, 1)
	assert.Equal(t, running.ID, schedulable[0].ID)

	conflicts, err := repo.FindRunStateConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, conflict.ID, conflicts[0].ID)

	require.NoError(t, repo.WriteRunState(ctx, stopped.ID, domain.JobStatusActive, true))
	got, err := repo.FindJob(ctx, stopped.ID)
	require.NoError(t, err)
	assert.True(t, got.ShouldRun())

	err = repo.WriteRunState(ctx, 999999, domain.JobStatusActive, true)
	assert.True(t, repository.IsNotFoundError(err))

	require.NoError(t, repo.Delete(ctx, running.ID))
	_, err = repo.FindJob(ctx, running.ID)
	assert.True(t, repository.IsNotFoundError(err))
}
