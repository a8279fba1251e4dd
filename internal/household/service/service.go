// Package service orchestrates household member operations: validation,
// enrichment, persistence and publishing.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hcm/internal/household/enrichment"
	"hcm/internal/household/models"
	"hcm/internal/household/validators"
	dErrors "hcm/pkg/domain-errors"
	"hcm/pkg/platform/sentinel"
	"hcm/pkg/platform/tx"
	"hcm/pkg/requestcontext"
	"hcm/pkg/validation"
)

const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationSearch = "search"
)

// DefaultSearchLimit applies when a search names no limit.
const DefaultSearchLimit = 100

// Store is the member datastore used by the service.
type Store interface {
	FindByIDs(ctx context.Context, tenantID string, ids []string, kind validation.IdentityKind, includeDeleted bool) ([]models.HouseholdMember, error)
	Search(ctx context.Context, req models.SearchRequest) ([]models.HouseholdMember, int, error)
	Create(ctx context.Context, members []models.HouseholdMember) error
	UpdateIfVersion(ctx context.Context, member models.HouseholdMember, expected int) error
}

// Publisher announces persisted members on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, members []models.HouseholdMember) error
}

// Topics names the topic per operation.
type Topics struct {
	Create string
	Update string
	Delete string
}

// Chains are the validation chains per operation.
type Chains struct {
	Create *validators.Chain
	Update *validators.Chain
	Delete *validators.Chain
}

// Service runs household member bulk operations.
type Service struct {
	store       Store
	chains      Chains
	tx          tx.Runner
	enricher    *enrichment.Enricher
	publisher   Publisher
	topics      Topics
	logger      *slog.Logger
	metrics     *Metrics
	searchLimit int
}

type Option func(*Service)

func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

func WithEnricher(e *enrichment.Enricher) Option {
	return func(s *Service) {
		s.enricher = e
	}
}

func WithPublisher(p Publisher, topics Topics) Option {
	return func(s *Service) {
		s.publisher = p
		s.topics = topics
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSearchLimit sets the page size used when a search names none.
func WithSearchLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.searchLimit = limit
		}
	}
}

func New(store Store, chains Chains, opts ...Option) *Service {
	s := &Service{
		store:       store,
		chains:      chains,
		tx:          &tx.LockRunner{},
		enricher:    enrichment.New(),
		logger:      slog.Default(),
		searchLimit: DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates, enriches and persists new members. With isBulk false the
// request fails on the first entity error.
func (s *Service) Create(ctx context.Context, req models.BulkRequest, isBulk bool) (_ *models.BulkResult, err error) {
	start := time.Now()
	defer s.observe(OperationCreate, &err, start)

	batch, found, err := s.validate(ctx, OperationCreate, s.chains.Create, req, isBulk)
	if err != nil {
		return nil, err
	}
	enriched := s.enricher.Create(batch, batch.Valid())
	members := membersOf(enriched)
	if len(members) > 0 {
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			return s.store.Create(ctx, members)
		})
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return nil, dErrors.Wrap(err, dErrors.CodeConflict, "household member already exists")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist household members")
		}
	}
	return s.finish(ctx, OperationCreate, s.topics.Create, batch, found, members, isBulk)
}

// Update validates members against their stored state and writes each one
// with an atomic row version check. A member that lost a race since
// validation is reported as ROW_VERSION_MISMATCH.
func (s *Service) Update(ctx context.Context, req models.BulkRequest, isBulk bool) (_ *models.BulkResult, err error) {
	start := time.Now()
	defer s.observe(OperationUpdate, &err, start)

	batch, found, err := s.validate(ctx, OperationUpdate, s.chains.Update, req, isBulk)
	if err != nil {
		return nil, err
	}
	members, err := s.writeVersioned(ctx, s.enricher.Update(batch, batch.Valid()), found)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, OperationUpdate, s.topics.Update, batch, found, members, isBulk)
}

// Delete tombstones members and their relationships.
func (s *Service) Delete(ctx context.Context, req models.BulkRequest, isBulk bool) (_ *models.BulkResult, err error) {
	start := time.Now()
	defer s.observe(OperationDelete, &err, start)

	batch, found, err := s.validate(ctx, OperationDelete, s.chains.Delete, req, isBulk)
	if err != nil {
		return nil, err
	}
	members, err := s.writeVersioned(ctx, s.enricher.Delete(batch, batch.Valid()), found)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, OperationDelete, s.topics.Delete, batch, found, members, isBulk)
}

func (s *Service) validate(ctx context.Context, operation string, chain *validators.Chain, req models.BulkRequest, isBulk bool) (*validators.Batch, validation.ErrorMap, error) {
	if len(req.HouseholdMembers) == 0 {
		return nil, nil, dErrors.New(dErrors.CodeBadRequest, "HouseholdMembers must not be empty")
	}
	rc := req.RequestInfo.Context(requestcontext.Now(ctx))
	if rc.UserID == "" {
		rc.UserID = requestcontext.UserID(ctx)
	}
	if rc.AuthToken == "" {
		rc.AuthToken = requestcontext.AuthToken(ctx)
	}
	batch := validation.NewBatch(rc, req.HouseholdMembers)
	found, err := chain.Run(ctx, batch)
	if err != nil {
		s.logger.ErrorContext(ctx, "household member validation failed",
			"operation", operation,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, nil, dErrors.Wrap(err, dErrors.CodeTimeout, "validate household members")
		case dErrors.CodeOf(err) != dErrors.CodeInternal:
			return nil, nil, err
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "validate household members")
	}
	if !isBulk {
		if err := firstEntityError(found); err != nil {
			return nil, nil, err
		}
	}
	return batch, found, nil
}

// writeVersioned writes every member in one transaction. Lost races become
// entity errors in found; any other failure aborts the request.
func (s *Service) writeVersioned(ctx context.Context, enriched []enrichment.Enriched, found validation.ErrorMap) ([]models.HouseholdMember, error) {
	if len(enriched) == 0 {
		return nil, nil
	}
	var written []models.HouseholdMember
	lost := make(validation.ErrorMap)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		written = written[:0]
		for k := range lost {
			delete(lost, k)
		}
		for _, e := range enriched {
			err := s.store.UpdateIfVersion(ctx, e.Member, e.ExpectedRowVersion)
			switch {
			case err == nil:
				written = append(written, e.Member)
			case errors.Is(err, sentinel.ErrConflict):
				validation.Populate(lost, e.Index, errConcurrentUpdate())
			case errors.Is(err, sentinel.ErrNotFound):
				validation.Populate(lost, e.Index, validation.NonExistentEntity())
			default:
				return fmt.Errorf("write member %s: %w", e.Member.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist household members")
	}
	found.Merge(lost)
	return written, nil
}

func (s *Service) finish(ctx context.Context, operation, topic string, batch *validators.Batch, found validation.ErrorMap, members []models.HouseholdMember, isBulk bool) (*models.BulkResult, error) {
	if !isBulk {
		if err := firstEntityError(found); err != nil {
			return nil, err
		}
	}
	if s.publisher != nil && topic != "" && len(members) > 0 {
		if err := s.publisher.Publish(ctx, topic, members); err != nil {
			s.logger.ErrorContext(ctx, "publish household members failed",
				"operation", operation,
				"topic", topic,
				"members", len(members),
				"error", err,
			)
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "publish household members")
		}
	}
	if s.metrics != nil {
		s.metrics.CountMembers(operation, len(members), len(found.Indexes()))
	}
	s.logger.InfoContext(ctx, "household members processed",
		"operation", operation,
		"request_id", requestcontext.RequestID(ctx),
		"submitted", batch.Len(),
		"persisted", len(members),
		"rejected", len(found.Indexes()),
	)
	if members == nil {
		members = []models.HouseholdMember{}
	}
	return &models.BulkResult{Members: members, Errors: entityErrors(batch, found)}, nil
}

func (s *Service) observe(operation string, err *error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveRequest(operation, *err, start)
	}
}

func membersOf(enriched []enrichment.Enriched) []models.HouseholdMember {
	out := make([]models.HouseholdMember, len(enriched))
	for i, e := range enriched {
		out[i] = e.Member
	}
	return out
}

func entityErrors(batch *validators.Batch, found validation.ErrorMap) []models.EntityErrors {
	indexes := found.Indexes()
	if len(indexes) == 0 {
		return nil
	}
	out := make([]models.EntityErrors, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, models.EntityErrors{Index: idx, Member: batch.Entities[idx], Errors: found[idx]})
	}
	return out
}

func errConcurrentUpdate() *validation.Error {
	return validation.NewError(validation.CodeRowVersionMismatch, "Row version changed by a concurrent request")
}

// firstEntityError turns the lowest-index entity error into a request error.
func firstEntityError(found validation.ErrorMap) error {
	indexes := found.Indexes()
	if len(indexes) == 0 {
		return nil
	}
	first := found[indexes[0]][0]
	return dErrors.Wrap(first, dErrors.CodeValidation, first.Code+": "+first.Message)
}
