package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cronkeeper/internal/domain"
	"cronkeeper/internal/logger"
	"cronkeeper/internal/repository"
	repositoryIface "cronkeeper/internal/repository/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const jobSequenceName = "cron_jobs"

// TableConfig names the tables the job repository uses
type TableConfig struct {
	JobsTable     string
	CountersTable string
}

type jobRepository struct {
	client        *dynamodb.Client
	tableName     string
	countersTable string
	logger        logger.Logger
}

// NewJobRepository creates a new DynamoDB job repository
func NewJobRepository(client *dynamodb.Client, tables TableConfig, log logger.Logger) repositoryIface.JobRepository {
	if tables.JobsTable == "" {
		tables.JobsTable = "cron_jobs"
	}
	if tables.CountersTable == "" {
		tables.CountersTable = "cron_job_counters"
	}
	return &jobRepository{
		client:        client,
		tableName:     tables.JobsTable,
		countersTable: tables.CountersTable,
		logger:        log.With(logger.String("component", "job_repository")),
	}
}

func (r *jobRepository) Create(ctx context.Context, job *domain.JobDefinition) error {
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	job.ID = id

	r.logger.Debug("creating job", logger.Int64("job_id", job.ID))

	item, err := attributevalue.MarshalMap(job)
	if err != nil {
		r.logger.Error("failed to marshal job", logger.Error(err))
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(job_id)"),
	})
	if err != nil {
		r.logger.Error("failed to create job", logger.Error(err))
		return fmt.Errorf("failed to create job: %w", err)
	}

	r.logger.Info("job created", logger.Int64("job_id", job.ID))
	return nil
}

// Update writes the definition fields of job. Status and enabled are left
// untouched; they change only through WriteRunState.
func (r *jobRepository) Update(ctx context.Context, job *domain.JobDefinition) error {
	r.logger.Debug("updating job", logger.Int64("job_id", job.ID))

	job.UpdatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	update := buildDefinitionUpdate(item)
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       jobKey(job.ID),
		UpdateExpression:          aws.String(update.expression),
		ConditionExpression:       aws.String("attribute_exists(job_id)"),
		ExpressionAttributeNames:  update.names,
		ExpressionAttributeValues: update.values,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("%w: %d", repository.ErrNotFound, job.ID)
		}
		r.logger.Error("failed to update job", logger.Error(err))
		return fmt.Errorf("failed to update job: %w", err)
	}

	return nil
}

// definitionAttributes are the attributes Update may write
var definitionAttributes = []string{
	"name", "description", "cron_expression", "url", "method", "headers", "body",
	"timeout_seconds", "retry_count", "retry_delay_ms", "last_execution", "updated_at",
}

type itemUpdate struct {
	expression string
	names      map[string]string
	values     map[string]types.AttributeValue
}

// buildDefinitionUpdate sets every present definition attribute and removes
// the optional ones the marshalled item omitted
func buildDefinitionUpdate(item map[string]types.AttributeValue) itemUpdate {
	update := itemUpdate{
		names:  make(map[string]string, len(definitionAttributes)),
		values: make(map[string]types.AttributeValue, len(definitionAttributes)),
	}
	var sets, removes []string
	for i, attr := range definitionAttributes {
		name := "#a" + strconv.Itoa(i)
		update.names[name] = attr
		if v, ok := item[attr]; ok {
			value := ":v" + strconv.Itoa(i)
			update.values[value] = v
			sets = append(sets, name+" = "+value)
		} else {
			removes = append(removes, name)
		}
	}
	update.expression = "SET " + strings.Join(sets, ", ")
	if len(removes) > 0 {
		update.expression += " REMOVE " + strings.Join(removes, ", ")
	}
	return update
}

func (r *jobRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 jobKey(id),
		ConditionExpression: aws.String("attribute_exists(job_id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("%w: %d", repository.ErrNotFound, id)
		}
		r.logger.Error("failed to delete job", logger.Int64("job_id", id), logger.Error(err))
		return fmt.Errorf("failed to delete job: %w", err)
	}

	r.logger.Info("job deleted", logger.Int64("job_id", id))
	return nil
}

func (r *jobRepository) FindJob(ctx context.Context, id int64) (*domain.JobDefinition, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            jobKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.Error("failed to get job", logger.Error(err))
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("%w: %d", repository.ErrNotFound, id)
	}

	var job domain.JobDefinition
	if err := attributevalue.UnmarshalMap(result.Item, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %d: %w", id, err)
	}

	return &job, nil
}

// WriteRunState updates status and enabled in a single conditional write
func (r *jobRepository) WriteRunState(ctx context.Context, id int64, status domain.JobStatus, enabled bool) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 jobKey(id),
		UpdateExpression:    aws.String("SET #status = :status, enabled = :enabled, updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(job_id)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: string(status)},
			":enabled":    &types.AttributeValueMemberBOOL{Value: enabled},
			":updated_at": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("%w: %d", repository.ErrNotFound, id)
		}
		r.logger.Error("failed to write run state",
			logger.Int64("job_id", id),
			logger.Error(err))
		return fmt.Errorf("failed to write run state: %w", err)
	}

	r.logger.Debug("run state written",
		logger.Int64("job_id", id),
		logger.String("status", string(status)),
		logger.Bool("enabled", enabled))
	return nil
}

const runStateProjection = "job_id, #name, cron_expression, #status, enabled"

func (r *jobRepository) FindSchedulableJobs(ctx context.Context) ([]*domain.JobDefinition, error) {
	// undecodable items keep their identity so the caller counts them when FindJob fails
	return r.scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		ProjectionExpression: aws.String(runStateProjection),
		FilterExpression:     aws.String("#status = :active AND enabled = :true"),
		ExpressionAttributeNames: map[string]string{
			"#name":   "name",
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberS{Value: string(domain.JobStatusActive)},
			":true":   &types.AttributeValueMemberBOOL{Value: true},
		},
		ConsistentRead: aws.Bool(true),
	}, runStateFromItem, true)
}

func (r *jobRepository) FindRunStateConflicts(ctx context.Context) ([]*domain.JobDefinition, error) {
	return r.scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		ProjectionExpression: aws.String(runStateProjection),
		FilterExpression:     aws.String("(#status = :active AND enabled = :false) OR (#status <> :active AND enabled = :true)"),
		ExpressionAttributeNames: map[string]string{
			"#name":   "name",
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberS{Value: string(domain.JobStatusActive)},
			":true":   &types.AttributeValueMemberBOOL{Value: true},
			":false":  &types.AttributeValueMemberBOOL{Value: false},
		},
		ConsistentRead: aws.Bool(true),
	}, runStateFromItem, false)
}

func (r *jobRepository) List(ctx context.Context) ([]*domain.JobDefinition, error) {
	return r.scan(ctx, &dynamodb.ScanInput{
		TableName:      aws.String(r.tableName),
		ConsistentRead: aws.Bool(true),
	}, jobFromItem, false)
}

// itemDecoder turns a scanned item into a job. On failure it returns the
// item's identity (ID and Name when readable) with the error.
type itemDecoder func(map[string]types.AttributeValue) (*domain.JobDefinition, error)

// scan walks every page of input. Items that fail to decode are logged, and
// kept as identity-only jobs when keepUndecodable is set.
func (r *jobRepository) scan(ctx context.Context, input *dynamodb.ScanInput, decode itemDecoder, keepUndecodable bool) ([]*domain.JobDefinition, error) {
	jobs := make([]*domain.JobDefinition, 0)

	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("failed to scan jobs", logger.Error(err))
			return nil, fmt.Errorf("failed to scan jobs: %w", err)
		}

		for _, item := range page.Items {
			job, err := decode(item)
			if err != nil {
				r.logger.Warn("failed to unmarshal job",
					logger.Int64("job_id", job.ID),
					logger.String("job_name", job.Name),
					logger.Error(err))
				if !keepUndecodable {
					continue
				}
			}
			jobs = append(jobs, job)
		}
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })

	r.logger.Debug("jobs scanned", logger.Int("count", len(jobs)))
	return jobs, nil
}

func jobFromItem(item map[string]types.AttributeValue) (*domain.JobDefinition, error) {
	var job domain.JobDefinition
	if err := attributevalue.UnmarshalMap(item, &job); err != nil {
		return identityFromItem(item), err
	}
	return &job, nil
}

type runStateItem struct {
	ID             int64            `dynamodbav:"job_id"`
	Name           string           `dynamodbav:"name"`
	CronExpression string           `dynamodbav:"cron_expression"`
	Status         domain.JobStatus `dynamodbav:"status"`
	Enabled        bool             `dynamodbav:"enabled"`
}

func runStateFromItem(item map[string]types.AttributeValue) (*domain.JobDefinition, error) {
	var rs runStateItem
	if err := attributevalue.UnmarshalMap(item, &rs); err != nil {
		return identityFromItem(item), err
	}
	return &domain.JobDefinition{
		ID:             rs.ID,
		Name:           rs.Name,
		CronExpression: rs.CronExpression,
		Status:         rs.Status,
		Enabled:        rs.Enabled,
	}, nil
}

// identityFromItem reads job_id and name straight off the raw attributes
func identityFromItem(item map[string]types.AttributeValue) *domain.JobDefinition {
	job := &domain.JobDefinition{}
	if n, ok := item["job_id"].(*types.AttributeValueMemberN); ok {
		job.ID, _ = strconv.ParseInt(n.Value, 10, 64)
	}
	if name, ok := item["name"].(*types.AttributeValueMemberS); ok {
		job.Name = name.Value
	}
	return job
}

// nextID allocates a job id from an atomic counter item
func (r *jobRepository) nextID(ctx context.Context) (int64, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.countersTable),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: jobSequenceName},
		},
		UpdateExpression: aws.String("ADD seq :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		r.logger.Error("failed to allocate job id", logger.Error(err))
		return 0, fmt.Errorf("failed to allocate job id: %w", err)
	}

	seq, ok := out.Attributes["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("failed to allocate job id: counter returned no sequence")
	}
	id, err := strconv.ParseInt(seq.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse job id %q: %w", seq.Value, err)
	}
	return id, nil
}

func jobKey(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"job_id": &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)},
	}
}

func isConditionalCheckFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}
