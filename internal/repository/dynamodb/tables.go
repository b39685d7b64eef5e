package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"cronkeeper/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EnsureTables creates the job and counter tables when they are missing.
// Meant for local development against DynamoDB Local.
func EnsureTables(ctx context.Context, client *dynamodb.Client, tables TableConfig, log logger.Logger) error {
	if err := ensureTable(ctx, client, tables.JobsTable, "job_id", types.ScalarAttributeTypeN); err != nil {
		return err
	}
	if err := ensureTable(ctx, client, tables.CountersTable, "name", types.ScalarAttributeTypeS); err != nil {
		return err
	}
	log.Info("dynamodb tables ready",
		logger.String("jobs_table", tables.JobsTable),
		logger.String("counters_table", tables.CountersTable))
	return nil
}

func ensureTable(ctx context.Context, client *dynamodb.Client, name, hashKey string, keyType types.ScalarAttributeType) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String(hashKey),
				KeyType:       types.KeyTypeHash,
			},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String(hashKey),
				AttributeType: keyType,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}
