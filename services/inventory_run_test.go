package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createInput(n int) CreateRunInput {
	return CreateRunInput{
		ConsecutiveNumber: n,
		Site:              "S1",
		Category:          "Granos",
		Expected:          []ExpectedInput{{ItemID: "A100", Quantity: 50}, {ItemID: "B200", Quantity: 10}},
		CreatedBy:         "admin@site.co",
	}
}

func TestCreateRun(t *testing.T) {
	m := newMemStore()
	s := NewInventoryRunService(m, RetryPolicy{Attempts: 3}, nil)
	ctx := context.Background()

	run, err := s.Create(ctx, createInput(7))
	require.NoError(t, err)
	assert.False(t, run.ID.IsZero())
	assert.Equal(t, models.RunStateActive, run.State)
	assert.Equal(t, models.ApprovalPending, run.ApprovalState)
	assert.False(t, run.StartDate.IsZero())

	scope, err := m.ExpectedQuantities(ctx, 7, "S1")
	require.NoError(t, err)
	assert.Len(t, scope, 2)

	check, err := s.CheckConsecutive(ctx, "S1", 7)
	require.NoError(t, err)
	assert.False(t, check.Available)

	_, err = s.Create(ctx, createInput(7))
	var cerr *ConflictError
	assert.ErrorAs(t, err, &cerr)

	other := createInput(7)
	other.Site = "S2"
	_, err = s.Create(ctx, other)
	assert.NoError(t, err, "numbers are unique per site only")
}

func TestCreateRunNeedsConfirmationWhenCheckFails(t *testing.T) {
	m := newMemStore()
	m.existsErr = errStoreDown
	s := NewInventoryRunService(m, RetryPolicy{Attempts: 3}, nil)
	ctx := context.Background()

	_, err := s.Create(ctx, createInput(3))
	require.True(t, errors.Is(err, ErrConfirmationRequired))
	assert.Equal(t, 3, m.existsCalls)
	assert.Empty(t, m.runs)

	in := createInput(3)
	in.Confirmed = true
	run, err := s.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 3, run.ConsecutiveNumber)
}

func TestCreateRunValidation(t *testing.T) {
	s := NewInventoryRunService(newMemStore(), RetryPolicy{}, nil)

	dup := createInput(1)
	dup.Expected = append(dup.Expected, ExpectedInput{ItemID: " A100 "})
	noSite := createInput(1)
	noSite.Site = " "
	empty := createInput(1)
	empty.Expected = nil

	for name, in := range map[string]CreateRunInput{"duplicate item": dup, "blank site": noSite, "empty scope": empty, "zero number": createInput(0)} {
		_, err := s.Create(context.Background(), in)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, name)
	}
}

func TestRunLifecycle(t *testing.T) {
	m := newMemStore()
	s := NewInventoryRunService(m, RetryPolicy{Attempts: 1}, nil)
	ctx := context.Background()
	run, err := s.Create(ctx, createInput(1))
	require.NoError(t, err)

	var cerr *ConflictError
	_, err = s.Review(ctx, run.ID, DecisionApprove, "admin@site.co")
	require.ErrorAs(t, err, &cerr, "active runs cannot be reviewed")

	finalized, err := s.Finalize(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStateFinalized, finalized.State)

	_, err = s.Finalize(ctx, run.ID)
	assert.ErrorAs(t, err, &cerr)

	reviewed, err := s.Review(ctx, run.ID, DecisionReject, "admin@site.co")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, reviewed.ApprovalState)
	assert.Equal(t, "admin@site.co", reviewed.ReviewedBy)

	_, err = s.Review(ctx, run.ID, DecisionApprove, "admin@site.co")
	assert.ErrorAs(t, err, &cerr)

	var nf *NotFoundError
	_, err = s.Totals(ctx, 12345)
	assert.ErrorAs(t, err, &nf)
}
