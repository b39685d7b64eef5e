package dynamodb

import (
	"testing"

	"cronkeeper/internal/domain"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStateFromItem(t *testing.T) {
	job := domain.NewJobDefinition("report", "0 2 * * *", "https://example.com", true)
	job.ID = 12
	item, err := attributevalue.MarshalMap(job)
	require.NoError(t, err)

	got, err := runStateFromItem(item)
	require.NoError(t, err)
	assert.Equal(t, int64(12), got.ID)
	assert.Equal(t, "report", got.Name)
	assert.Equal(t, "0 2 * * *", got.CronExpression)
	assert.True(t, got.ShouldRun())
}

func TestUndecodableItemKeepsIdentity(t *testing.T) {
	item := map[string]types.AttributeValue{
		"job_id":          &types.AttributeValueMemberN{Value: "7"},
		"name":            &types.AttributeValueMemberS{Value: "broken"},
		"cron_expression": &types.AttributeValueMemberS{Value: "*/5 * * * *"},
		"status":          &types.AttributeValueMemberS{Value: "active"},
		"enabled": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"value": &types.AttributeValueMemberS{Value: "yes"},
		}},
	}

	for name, decode := range map[string]itemDecoder{"run state": runStateFromItem, "full job": jobFromItem} {
		t.Run(name, func(t *testing.T) {
			got, err := decode(item)
			require.Error(t, err)
			require.NotNil(t, got)
			assert.Equal(t, int64(7), got.ID)
			assert.Equal(t, "broken", got.Name)
		})
	}
}

func TestIdentityFromItemWithoutID(t *testing.T) {
	got := identityFromItem(map[string]types.AttributeValue{
		"job_id": &types.AttributeValueMemberS{Value: "not-a-number"},
	})
	assert.Zero(t, got.ID)
	assert.Empty(t, got.Name)
}
