package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mapmystandards/a3e/modules/standards/domain/standard"
	"github.com/mapmystandards/a3e/pkg/composables"
	"github.com/mapmystandards/a3e/pkg/eventbus"
)

const (
	DefaultMaxDepth = 64
	DefaultMaxNodes = 10000
)

type StandardsRepository interface {
	// AcquireImportLock serializes imports for one business key within the
	// surrounding transaction (released on commit/rollback).
	AcquireImportLock(ctx context.Context, key string) error
	UpsertStandard(ctx context.Context, in UpsertStandardInput) (uuid.UUID, error)
	GetStandardByKey(ctx context.Context, key string) (StandardRow, error)
	ListStandards(ctx context.Context) ([]StandardRow, error)
	DeleteItems(ctx context.Context, standardID uuid.UUID) error
	InsertItem(ctx context.Context, in ItemInsert) (uuid.UUID, error)
	ListItemsByPath(ctx context.Context, standardID uuid.UUID) ([]ItemRow, error)
	CountItems(ctx context.Context, standardID uuid.UUID) (int, error)
}

type UpsertStandardInput struct {
	Key       string
	Name      string
	Version   *string
	Publisher *string
}

type StandardRow struct {
	ID        uuid.UUID
	Key       string
	Name      string
	Version   *string
	Publisher *string
}

type ItemInsert struct {
	StandardID  uuid.UUID
	Code        string
	Title       string
	Description *string
	ParentID    *uuid.UUID
	Level       int
	Path        string
}

type ItemRow struct {
	ID          uuid.UUID
	StandardID  uuid.UUID
	Code        string
	Title       string
	Description *string
	ParentID    *uuid.UUID
	Level       int
	Path        string
}

// ImportLimits bounds a single import batch. Zero values fall back to the
// package defaults.
type ImportLimits struct {
	MaxDepth int
	MaxNodes int
}

type StandardsService struct {
	repo      StandardsRepository
	publisher eventbus.EventBus
	maxDepth  int
	maxNodes  int
}

func NewStandardsService(repo StandardsRepository, limits ImportLimits) *StandardsService {
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = DefaultMaxDepth
	}
	if limits.MaxNodes <= 0 {
		limits.MaxNodes = DefaultMaxNodes
	}
	return &StandardsService{repo: repo, maxDepth: limits.MaxDepth, maxNodes: limits.MaxNodes}
}

// SetEventPublisher wires an optional bus; a committed import publishes a
// standard.ImportedEvent on it.
func (s *StandardsService) SetEventPublisher(publisher eventbus.EventBus) {
	s.publisher = publisher
}

type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

type ImportInput struct {
	Key       string
	Name      string
	Version   *string
	Publisher *string
	Nodes     []standard.ItemInput
}

type ImportResult struct {
	StandardID uuid.UUID
	Count      int
}

func (s *StandardsService) resolve(in *ImportInput) ([]resolvedNode, error) {
	in.Key = strings.TrimSpace(in.Key)
	in.Name = strings.TrimSpace(in.Name)
	if in.Key == "" || in.Name == "" {
		return nil, newServiceError(400, "STD_INVALID_BODY", "key/name are required", nil)
	}
	if len(in.Nodes) == 0 {
		return nil, newServiceError(400, "STD_INVALID_BODY", "nodes must be a non-empty list", nil)
	}
	if len(in.Nodes) > s.maxNodes {
		return nil, newServiceError(422, "STD_BATCH_TOO_LARGE",
			fmt.Sprintf("batch of %d nodes exceeds the limit of %d", len(in.Nodes), s.maxNodes), nil)
	}

	resolved, err := resolveHierarchy(in.Nodes, s.maxDepth)
	if err != nil {
		return nil, err
	}

	// Parents get strictly lower levels than their children, so insertion in
	// level order guarantees every parent id is known when its children are
	// written. The sort is stable to preserve batch order within one level.
	sort.SliceStable(resolved, func(i, j int) bool { return resolved[i].Level < resolved[j].Level })
	return resolved, nil
}

// PlanNode is one node of a resolved import batch as it would be persisted.
type PlanNode struct {
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	ParentCode  *string `json:"parentCode,omitempty"`
	Level       int     `json:"level"`
	Path        string  `json:"path"`
}

// Plan runs the same validation and path resolution as Import without
// touching the database. Nodes come back sorted by level.
func (s *StandardsService) Plan(in ImportInput) ([]PlanNode, error) {
	resolved, err := s.resolve(&in)
	if err != nil {
		return nil, err
	}
	out := make([]PlanNode, 0, len(resolved))
	for _, node := range resolved {
		out = append(out, PlanNode{
			Code:        node.Code,
			Title:       node.Title,
			Description: node.Description,
			ParentCode:  node.ParentCode,
			Level:       node.Level,
			Path:        node.Path,
		})
	}
	return out, nil
}

// Import validates and resolves the whole batch first, then replaces the
// standard's persisted hierarchy in a single transaction. Nothing is deleted
// or written until resolution has succeeded for every node.
func (s *StandardsService) Import(ctx context.Context, in ImportInput) (*ImportResult, error) {
	resolved, err := s.resolve(&in)
	if err != nil {
		return nil, err
	}

	out, err := composables.InTxResult(ctx, func(txCtx context.Context) (*ImportResult, error) {
		if err := s.repo.AcquireImportLock(txCtx, in.Key); err != nil {
			return nil, mapPgError(err)
		}

		standardID, err := s.repo.UpsertStandard(txCtx, UpsertStandardInput{
			Key:       in.Key,
			Name:      in.Name,
			Version:   in.Version,
			Publisher: in.Publisher,
		})
		if err != nil {
			return nil, mapPgError(err)
		}

		if err := s.repo.DeleteItems(txCtx, standardID); err != nil {
			return nil, mapPgError(err)
		}

		idsByCode := make(map[string]uuid.UUID, len(resolved))
		for _, node := range resolved {
			var parentID *uuid.UUID
			if node.ParentCode != nil {
				id, ok := idsByCode[*node.ParentCode]
				if !ok {
					return nil, newServiceError(500, "STD_INTERNAL",
						fmt.Sprintf("parent %q not inserted before child %q", *node.ParentCode, node.Code), nil)
				}
				parentID = &id
			}
			id, err := s.repo.InsertItem(txCtx, ItemInsert{
				StandardID:  standardID,
				Code:        node.Code,
				Title:       node.Title,
				Description: node.Description,
				ParentID:    parentID,
				Level:       node.Level,
				Path:        node.Path,
			})
			if err != nil {
				return nil, mapPgError(err)
			}
			idsByCode[node.Code] = id
		}

		return &ImportResult{StandardID: standardID, Count: len(resolved)}, nil
	})
	if err != nil {
		recordImport("error")
		return nil, err
	}
	recordImport("ok")
	if s.publisher != nil {
		s.publisher.Publish(&standard.ImportedEvent{
			StandardID: out.StandardID,
			Key:        in.Key,
			Count:      out.Count,
		})
	}
	return out, nil
}

type StandardView struct {
	ID        uuid.UUID
	Key       string
	Name      string
	Version   *string
	Publisher *string
	ItemCount int
}

func (s *StandardsService) GetStandard(ctx context.Context, key string) (*StandardView, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, newServiceError(400, "STD_INVALID_BODY", "key is required", nil)
	}
	row, err := s.repo.GetStandardByKey(ctx, key)
	if err != nil {
		return nil, mapPgError(err)
	}
	count, err := s.repo.CountItems(ctx, row.ID)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &StandardView{
		ID:        row.ID,
		Key:       row.Key,
		Name:      row.Name,
		Version:   row.Version,
		Publisher: row.Publisher,
		ItemCount: count,
	}, nil
}

func (s *StandardsService) ListStandards(ctx context.Context) ([]StandardRow, error) {
	rows, err := s.repo.ListStandards(ctx)
	if err != nil {
		return nil, mapPgError(err)
	}
	return rows, nil
}

// ListItems returns the persisted hierarchy ordered by path ascending, which
// reads as a stable pre-order listing since paths are prefix-structured.
func (s *StandardsService) ListItems(ctx context.Context, key string) ([]ItemRow, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, newServiceError(400, "STD_INVALID_BODY", "key is required", nil)
	}
	row, err := s.repo.GetStandardByKey(ctx, key)
	if err != nil {
		return nil, mapPgError(err)
	}
	items, err := s.repo.ListItemsByPath(ctx, row.ID)
	if err != nil {
		return nil, mapPgError(err)
	}
	return items, nil
}

func mapPgError(err error) error {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return mapPgErrorToServiceError(err)
}
