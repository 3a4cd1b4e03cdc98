// Package dynamodb implements the store contract against DynamoDB using
// a single table with three global secondary indexes.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"gatherly-backend/internal/repository"
	appErrors "gatherly-backend/pkg/errors"
)

const (
	pkAttr      = "PK"
	skAttr      = "SK"
	versionAttr = "Version"
)

// Index key attribute names, by index.
var indexKeyAttrs = map[string][2]string{
	repository.IndexGSI1: {"GSI1PK", "GSI1SK"},
	repository.IndexGSI2: {"GSI2PK", "GSI2SK"},
	repository.IndexGSI3: {"GSI3PK", "GSI3SK"},
}

// Config holds the store's table binding and call behavior.
type Config struct {
	TableName string

	// RequestTimeout bounds each individual call; zero disables the
	// per-call deadline.
	RequestTimeout time.Duration

	// EnableTracing emits one span per store call when set.
	EnableTracing bool
}

// Store is the DynamoDB-backed store. All calls run through a circuit
// breaker so a struggling table sheds load instead of piling up retries.
type Store struct {
	client  *awsdynamodb.Client
	table   string
	timeout time.Duration
	tracing bool
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewStore creates a store bound to one table.
func NewStore(client *awsdynamodb.Client, cfg Config, logger *zap.Logger) *Store {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dynamodb",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// Conditional failures are contention, not table trouble.
			return err == nil || appErrors.IsVersionConflict(err) || appErrors.IsNotFound(err)
		},
	})
	return &Store{
		client:  client,
		table:   cfg.TableName,
		timeout: cfg.RequestTimeout,
		tracing: cfg.EnableTracing,
		breaker: breaker,
		tracer:  otel.Tracer("gatherly-backend/infrastructure/dynamodb"),
		logger:  logger,
	}
}

func (s *Store) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var span trace.Span
	if s.tracing {
		ctx, span = s.tracer.Start(ctx, "dynamodb."+op,
			trace.WithAttributes(attribute.String("db.table", s.table)))
		defer span.End()
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	_, err := s.breaker.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return appErrors.NewRepositoryFailure("store unavailable", err)
	}
	if err != nil && span != nil {
		span.RecordError(err)
	}
	return err
}

func keyItem(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		pkAttr: &types.AttributeValueMemberS{Value: pk},
		skAttr: &types.AttributeValueMemberS{Value: sk},
	}
}

// PutItem writes one item, optionally condition-guarded.
func (s *Store) PutItem(ctx context.Context, item repository.Item, opts repository.PutOptions) error {
	input := &awsdynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}
	switch {
	case opts.IfNotExists:
		cond := expression.AttributeNotExists(expression.Name(pkAttr))
		expr, err := expression.NewBuilder().WithCondition(cond).Build()
		if err != nil {
			return appErrors.NewInternal("failed to build condition expression", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
	case opts.ExpectedVersion != nil:
		cond := expression.Name(versionAttr).Equal(expression.Value(*opts.ExpectedVersion))
		expr, err := expression.NewBuilder().WithCondition(cond).Build()
		if err != nil {
			return appErrors.NewInternal("failed to build condition expression", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	return s.call(ctx, "PutItem", func(ctx context.Context) error {
		_, err := s.client.PutItem(ctx, input)
		return mapWriteError(err, opts)
	})
}

// GetItem reads one item by primary key.
func (s *Store) GetItem(ctx context.Context, pk, sk string) (repository.Item, error) {
	var item repository.Item
	err := s.call(ctx, "GetItem", func(ctx context.Context) error {
		out, err := s.client.GetItem(ctx, &awsdynamodb.GetItemInput{
			TableName: aws.String(s.table),
			Key:       keyItem(pk, sk),
		})
		if err != nil {
			return appErrors.NewRepositoryFailure("GetItem failed", err)
		}
		if out.Item == nil {
			return appErrors.NewNotFound(fmt.Sprintf("item %s / %s not found", pk, sk))
		}
		item = out.Item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem applies a field-level patch and returns the new item state.
// With an expected version the patch also bumps Version by one in the
// same write.
func (s *Store) UpdateItem(ctx context.Context, pk, sk string, patch repository.Patch) (repository.Item, error) {
	update := expression.UpdateBuilder{}
	hasUpdate := false
	for name, value := range patch.Set {
		update = update.Set(expression.Name(name), expression.Value(value))
		hasUpdate = true
	}
	for _, name := range patch.Remove {
		update = update.Remove(expression.Name(name))
		hasUpdate = true
	}

	builder := expression.NewBuilder()
	if patch.ExpectedVersion != nil {
		update = update.Set(expression.Name(versionAttr), expression.Value(*patch.ExpectedVersion+1))
		hasUpdate = true
		builder = builder.WithCondition(
			expression.Name(versionAttr).Equal(expression.Value(*patch.ExpectedVersion)))
	}
	if !hasUpdate {
		return nil, appErrors.NewValidation("empty patch")
	}
	expr, err := builder.WithUpdate(update).Build()
	if err != nil {
		return nil, appErrors.NewInternal("failed to build update expression", err)
	}

	var item repository.Item
	err = s.call(ctx, "UpdateItem", func(ctx context.Context) error {
		out, err := s.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
			TableName:                 aws.String(s.table),
			Key:                       keyItem(pk, sk),
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ReturnValues:              types.ReturnValueAllNew,
			// On conditional failure the old item comes back, telling a
			// missing item apart from a stale version.
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if errors.As(err, &ccf) {
				return updateConditionFailure(ccf, pk, sk)
			}
			return appErrors.NewRepositoryFailure("UpdateItem failed", err)
		}
		item = out.Attributes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes one item; deleting a missing item is a no-op.
func (s *Store) DeleteItem(ctx context.Context, pk, sk string) error {
	return s.call(ctx, "DeleteItem", func(ctx context.Context) error {
		_, err := s.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
			TableName: aws.String(s.table),
			Key:       keyItem(pk, sk),
		})
		if err != nil {
			return appErrors.NewRepositoryFailure("DeleteItem failed", err)
		}
		return nil
	})
}

// Query returns the ordered items of one partition, following pagination
// until the range (or the caller's limit) is exhausted.
func (s *Store) Query(ctx context.Context, spec repository.QuerySpec) ([]repository.Item, error) {
	partitionAttr, sortAttr := pkAttr, skAttr
	if spec.IndexName != "" {
		attrs, ok := indexKeyAttrs[spec.IndexName]
		if !ok {
			return nil, appErrors.NewValidation(fmt.Sprintf("unknown index %q", spec.IndexName))
		}
		partitionAttr, sortAttr = attrs[0], attrs[1]
	}

	keyCond := expression.Key(partitionAttr).Equal(expression.Value(spec.PartitionKey))
	if spec.SortKeyPrefix != "" {
		keyCond = keyCond.And(expression.Key(sortAttr).BeginsWith(spec.SortKeyPrefix))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, appErrors.NewInternal("failed to build key condition", err)
	}

	input := &awsdynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          spec.ScanIndexForward,
	}
	if spec.IndexName != "" {
		input.IndexName = aws.String(spec.IndexName)
	}
	if spec.Limit > 0 {
		input.Limit = aws.Int32(spec.Limit)
	}

	var items []repository.Item
	err = s.call(ctx, "Query", func(ctx context.Context) error {
		items = items[:0]
		paginator := awsdynamodb.NewQueryPaginator(s.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return appErrors.NewRepositoryFailure("Query failed", err)
			}
			for _, item := range page.Items {
				items = append(items, item)
				if spec.Limit > 0 && int32(len(items)) >= spec.Limit {
					return nil
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// BatchWrite executes up to the engine's batch limit of puts/deletes and
// returns whatever the table left unprocessed.
func (s *Store) BatchWrite(ctx context.Context, reqs []repository.WriteRequest) ([]repository.WriteRequest, error) {
	if len(reqs) > repository.MaxBatchWriteItems {
		return nil, appErrors.NewValidation(fmt.Sprintf("batch of %d exceeds limit of %d", len(reqs), repository.MaxBatchWriteItems))
	}
	writes := make([]types.WriteRequest, 0, len(reqs))
	for _, req := range reqs {
		switch {
		case req.Put != nil:
			writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: req.Put}})
		case req.Delete != nil:
			writes = append(writes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: keyItem(req.Delete.PK, req.Delete.SK)}})
		default:
			return nil, appErrors.NewValidation("write request with neither put nor delete")
		}
	}

	var unprocessed []repository.WriteRequest
	err := s.call(ctx, "BatchWriteItem", func(ctx context.Context) error {
		out, err := s.client.BatchWriteItem(ctx, &awsdynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.table: writes},
		})
		if err != nil {
			return appErrors.NewRepositoryFailure("BatchWriteItem failed", err)
		}
		unprocessed = unprocessed[:0]
		for _, w := range out.UnprocessedItems[s.table] {
			switch {
			case w.PutRequest != nil:
				unprocessed = append(unprocessed, repository.WriteRequest{Put: w.PutRequest.Item})
			case w.DeleteRequest != nil:
				key := repository.Key{
					PK: stringAttr(w.DeleteRequest.Key, pkAttr),
					SK: stringAttr(w.DeleteRequest.Key, skAttr),
				}
				unprocessed = append(unprocessed, repository.WriteRequest{Delete: &key})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return unprocessed, nil
}

// TransactWrite executes up to the engine's transact limit atomically.
func (s *Store) TransactWrite(ctx context.Context, items []repository.TransactItem) error {
	if len(items) > repository.MaxTransactItems {
		return appErrors.NewValidation(fmt.Sprintf("transaction of %d exceeds limit of %d", len(items), repository.MaxTransactItems))
	}
	writes := make([]types.TransactWriteItem, 0, len(items))
	for _, item := range items {
		switch {
		case item.Put != nil:
			put := &types.Put{
				TableName: aws.String(s.table),
				Item:      item.Put,
			}
			if item.PutIfNotExists {
				cond := expression.AttributeNotExists(expression.Name(pkAttr))
				expr, err := expression.NewBuilder().WithCondition(cond).Build()
				if err != nil {
					return appErrors.NewInternal("failed to build condition expression", err)
				}
				put.ConditionExpression = expr.Condition()
				put.ExpressionAttributeNames = expr.Names()
			}
			writes = append(writes, types.TransactWriteItem{Put: put})
		case item.Delete != nil:
			writes = append(writes, types.TransactWriteItem{Delete: &types.Delete{
				TableName: aws.String(s.table),
				Key:       keyItem(item.Delete.PK, item.Delete.SK),
			}})
		default:
			return appErrors.NewValidation("transact item with neither put nor delete")
		}
	}

	return s.call(ctx, "TransactWriteItems", func(ctx context.Context) error {
		_, err := s.client.TransactWriteItems(ctx, &awsdynamodb.TransactWriteItemsInput{
			TransactItems: writes,
		})
		if err == nil {
			return nil
		}
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return appErrors.NewTransactionFailed("transaction canceled",
						appErrors.NewVersionConflict("conditional check failed in transaction"))
				}
			}
			return appErrors.NewTransactionFailed("transaction canceled", err)
		}
		return appErrors.NewRepositoryFailure("TransactWriteItems failed", err)
	})
}

// updateConditionFailure maps a failed version guard. The guard fails
// identically for a missing item and a stale one; the returned old
// values tell the two apart.
func updateConditionFailure(ccf *types.ConditionalCheckFailedException, pk, sk string) error {
	if len(ccf.Item) == 0 {
		return appErrors.NewNotFound(fmt.Sprintf("item %s / %s not found", pk, sk))
	}
	return appErrors.NewVersionConflict(fmt.Sprintf("version mismatch updating %s / %s", pk, sk))
}

func mapWriteError(err error, opts repository.PutOptions) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if opts.IfNotExists {
			return appErrors.NewVersionConflict("item already exists")
		}
		return appErrors.NewVersionConflict("stored version changed since read")
	}
	return appErrors.NewRepositoryFailure("PutItem failed", err)
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
