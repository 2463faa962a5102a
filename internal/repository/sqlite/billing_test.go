package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/notara/billing/internal/config"
	"github.com/notara/billing/internal/domain/billing"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/logger"
	"github.com/notara/billing/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type BillingRepositorySuite struct {
	suite.Suite
	ctx  context.Context
	repo billing.Repository
}

func TestBillingRepository(t *testing.T) {
	suite.Run(t, new(BillingRepositorySuite))
}

func (s *BillingRepositorySuite) SetupTest() {
	s.ctx = context.Background()

	cfg := config.GetDefaultConfig()
	cfg.SQLite.Path = ":memory:"

	log, err := logger.NewLogger(cfg)
	s.Require().NoError(err)

	db, err := NewDB(cfg, log)
	s.Require().NoError(err)

	s.repo = NewBillingRepository(db, log)
}

func (s *BillingRepositorySuite) paidRecord(entityID string) *billing.Record {
	now := time.Now().UTC().Truncate(time.Second)
	return &billing.Record{
		EntityID:                entityID,
		Plan:                    types.PlanPro,
		ExternalCustomerRef:     lo.ToPtr("cus_123"),
		ExternalSubscriptionRef: lo.ToPtr("sub_123"),
		PlanStartedAt:           &now,
		BaseModel:               types.GetDefaultBaseModel("user_test"),
	}
}

func (s *BillingRepositorySuite) TestGetMissingRecord() {
	record, err := s.repo.Get(s.ctx, "ent_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
	s.Nil(record)
}

func (s *BillingRepositorySuite) TestCreateAndGet() {
	created := s.paidRecord("ent_1")
	s.NoError(s.repo.Create(s.ctx, created))

	got, err := s.repo.Get(s.ctx, "ent_1")
	s.NoError(err)
	s.Equal(types.PlanPro, got.Plan)
	s.Equal("sub_123", got.SubscriptionRef())
	s.NotNil(got.PlanStartedAt)
	s.Equal("user_test", got.CreatedBy)
}

func (s *BillingRepositorySuite) TestCreateFirstWriteWins() {
	first := s.paidRecord("ent_1")
	s.NoError(s.repo.Create(s.ctx, first))

	second := s.paidRecord("ent_1")
	second.Plan = types.PlanMax

	err := s.repo.Create(s.ctx, second)
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))

	got, err := s.repo.Get(s.ctx, "ent_1")
	s.NoError(err)
	s.Equal(types.PlanPro, got.Plan)
}

func (s *BillingRepositorySuite) TestUpdate() {
	record := s.paidRecord("ent_1")
	s.NoError(s.repo.Create(s.ctx, record))

	record.Plan = types.PlanMax
	record.ExternalSubscriptionRef = lo.ToPtr("sub_456")
	record.UpdatedAt = time.Now().UTC()
	s.NoError(s.repo.Update(s.ctx, record))

	got, err := s.repo.Get(s.ctx, "ent_1")
	s.NoError(err)
	s.Equal(types.PlanMax, got.Plan)
	s.Equal("sub_456", got.SubscriptionRef())
}

func (s *BillingRepositorySuite) TestUpdateMissingRecord() {
	err := s.repo.Update(s.ctx, s.paidRecord("ent_missing"))
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *BillingRepositorySuite) TestCreateRejectsInvalidRecord() {
	record := s.paidRecord("ent_1")
	record.ExternalSubscriptionRef = nil

	err := s.repo.Create(s.ctx, record)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.repo.Get(s.ctx, "ent_1")
	s.True(ierr.IsNotFound(err))
}
