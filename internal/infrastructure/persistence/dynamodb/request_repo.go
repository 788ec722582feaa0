package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/entity"
)

const (
	maxUpdateAttempts = 3
	tableWaitTimeout  = 2 * time.Minute
)

// RequestRepository implements port.RequestRepository on a single DynamoDB table.
//
// Table requirements:
//   - PK: pk (string), "REQUEST#<id>" for requests
//   - one counter item "COUNTER#requests" hands out request ids
//
// Each write is a conditional put on the item's version attribute.
type RequestRepository struct {
	api    API
	table  string
	logger *zap.Logger
}

// NewRequestRepository creates a new DynamoDB request repository
func NewRequestRepository(api API, table string, logger *zap.Logger) *RequestRepository {
	return &RequestRepository{
		api:    api,
		table:  table,
		logger: logger,
	}
}

func (r *RequestRepository) Create(ctx context.Context, req *entity.ProcurementRequest) error {
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}

	req.ID = id
	for i := range req.StatusHistory {
		req.StatusHistory[i].ID = int64(i + 1)
	}

	av, err := attributevalue.MarshalMap(toRequestItem(req, 1))
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": attrPK},
	})
	if err != nil {
		r.logger.Error("Failed to create request", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.ProcurementRequest, error) {
	it, err := r.get(ctx, id)
	if err != nil || it == nil {
		return nil, err
	}
	return fromRequestItem(*it)
}

// List scans the table. Search runs client-side because DynamoDB's contains() is case-sensitive.
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.ProcurementRequest, error) {
	filterExpr := "#type = :type"
	names := map[string]string{"#type": "type"}
	values := map[string]types.AttributeValue{
		":type": &types.AttributeValueMemberS{Value: itemTypeRequest},
	}
	if filter.Status != "" {
		filterExpr += " AND #status = :status"
		names["#status"] = "status"
		values[":status"] = &types.AttributeValueMemberS{Value: string(filter.Status)}
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := []*entity.ProcurementRequest{}

	paginator := dynamodb.NewScanPaginator(r.api, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          aws.String(filterExpr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConsistentRead:            aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("Failed to scan requests", zap.Error(err))
			return nil, fmt.Errorf("failed to list requests: %w", err)
		}

		var items []requestItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal requests: %w", err)
		}
		for _, it := range items {
			if it.Type != itemTypeRequest {
				continue
			}
			if filter.Status != "" && it.Status != string(filter.Status) {
				continue
			}
			if search != "" && !matchesSearch(it, search) {
				continue
			}
			req, err := fromRequestItem(it)
			if err != nil {
				return nil, fmt.Errorf("failed to decode request %d: %w", it.ID, err)
			}
			result = append(result, req)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// Update retries when the version check fails, re-running fn on the fresh item
func (r *RequestRepository) Update(ctx context.Context, id int64, fn func(req *entity.ProcurementRequest) error) (*entity.ProcurementRequest, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		it, err := r.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if it == nil {
			return nil, entity.ErrNotFound
		}

		current, err := fromRequestItem(*it)
		if err != nil {
			return nil, err
		}

		working := current.Clone()
		if err := fn(working); err != nil {
			return nil, err
		}
		working.ID = id

		if err := entity.VerifyHistoryAppend(current.StatusHistory, working.StatusHistory); err != nil {
			return nil, err
		}
		for i := len(current.StatusHistory); i < len(working.StatusHistory); i++ {
			working.StatusHistory[i].ID = int64(i + 1)
		}

		av, err := attributevalue.MarshalMap(toRequestItem(working, it.Version+1))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                aws.String(r.table),
			Item:                     av,
			ConditionExpression:      aws.String("#version = :version"),
			ExpressionAttributeNames: map[string]string{"#version": attrVersion},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":version": &types.AttributeValueMemberN{Value: strconv.FormatInt(it.Version, 10)},
			},
		})
		if err == nil {
			return working, nil
		}

		var cfe *types.ConditionalCheckFailedException
		if !errors.As(err, &cfe) {
			r.logger.Error("Failed to update request", zap.Int64("id", id), zap.Error(err))
			return nil, fmt.Errorf("failed to update request: %w", err)
		}
		r.logger.Warn("Version conflict on request update, retrying",
			zap.Int64("id", id),
			zap.Int("attempt", attempt))
	}

	return nil, entity.ErrConcurrentModification
}

func (r *RequestRepository) Delete(ctx context.Context, id int64) (bool, error) {
	out, err := r.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: requestKey(id)},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		r.logger.Error("Failed to delete request", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to delete request: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

func (r *RequestRepository) get(ctx context.Context, id int64) (*requestItem, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: requestKey(id)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.Error("Failed to get request", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var it requestItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return &it, nil
}

// nextID atomically increments the request counter item
func (r *RequestRepository) nextID(ctx context.Context) (int64, error) {
	out, err := r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: counterKey},
		},
		UpdateExpression:         aws.String("ADD #seq :one"),
		ExpressionAttributeNames: map[string]string{"#seq": "seq"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to allocate request id: %w", err)
	}

	var counter struct {
		Seq int64 `dynamodbav:"seq"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &counter); err != nil {
		return 0, fmt.Errorf("failed to read request id: %w", err)
	}
	return counter.Seq, nil
}

var _ port.RequestRepository = (*RequestRepository)(nil)
