package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makiti/internal/domain"
)

var (
	business = domain.BusinessInfo{Name: "Awa Textiles", Description: "Wax prints", Address: "Dakar", Phone: "+221"}
	document = domain.DocumentRef{URL: "https://files.example/doc.pdf", Type: "registry"}
)

func TestApprovalStateMachine(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.user(t, "s1", domain.RoleSeller)
	admin := e.user(t, "a1", domain.RoleAdmin)

	req, err := e.approval.Submit(ctx, seller, business, document)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, req.Status)
	assert.NotEmpty(t, req.SubmittedAt)

	_, err = e.approval.Submit(ctx, seller, business, document)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict), "pending: %v", err)

	_, err = e.approval.Decide(ctx, seller, seller.UserID, domain.ActionApprove, "")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	decided, err := e.approval.Decide(ctx, admin, seller.UserID, domain.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, decided.Status)
	assert.Equal(t, admin.UserID, decided.ReviewedBy)

	u, err := e.users.GetUser(ctx, seller.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, u.ApprovalStatus)

	_, err = e.approval.Decide(ctx, admin, seller.UserID, domain.ActionReject, "changed my mind")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict), "approved is terminal: %v", err)

	_, err = e.approval.Submit(ctx, seller, business, document)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict), "approved: %v", err)

	assert.Len(t, e.sink.inAppFor(seller.UserID, domain.NotifySellerApproved), 1)
	assert.Len(t, e.sink.emailsTo(seller.Email, domain.EmailSellerApproved), 1)
}

func TestApprovalRejectThenResubmit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.user(t, "s1", domain.RoleSeller)
	admin := e.user(t, "a1", domain.RoleAdmin)

	_, err := e.approval.Decide(ctx, admin, seller.UserID, domain.ActionApprove, "")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict), "none is not pending: %v", err)

	_, err = e.approval.Submit(ctx, seller, business, document)
	require.NoError(t, err)
	rejected, err := e.approval.Decide(ctx, admin, seller.UserID, domain.ActionReject, "  ")
	require.NoError(t, err)
	assert.Equal(t, "Not specified", rejected.RejectionReason)

	notes := e.sink.inAppFor(seller.UserID, domain.NotifySellerRejected)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "Not specified")

	_, err = e.approval.Submit(ctx, seller, business, document)
	require.NoError(t, err)

	status, err := e.approval.Status(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, status.Status)
	require.Len(t, status.History, 2)
	assert.Equal(t, domain.ApprovalRejected, status.History[0].Status)

	pending, err := e.approval.ListPending(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	_, err = e.approval.ListPending(ctx, seller)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
}

func TestApprovalInputChecks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customer := e.user(t, "c1", domain.RoleCustomer)
	seller := e.user(t, "s1", domain.RoleSeller)
	admin := e.user(t, "a1", domain.RoleAdmin)

	_, err := e.approval.Submit(ctx, customer, business, document)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	_, err = e.approval.Submit(ctx, seller, domain.BusinessInfo{Name: "x"}, document)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))

	_, err = e.approval.Submit(ctx, seller, business, domain.DocumentRef{})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))

	_, err = e.approval.Decide(ctx, admin, "ghost", domain.ActionApprove, "")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	_, err = e.approval.Decide(ctx, admin, seller.UserID, "maybe", "")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestApprovalDecisionSurvivesNotificationFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.user(t, "s1", domain.RoleSeller)
	admin := e.user(t, "a1", domain.RoleAdmin)

	_, err := e.approval.Submit(ctx, seller, business, document)
	require.NoError(t, err)
	e.sink.fail = true

	_, err = e.approval.Decide(ctx, admin, seller.UserID, domain.ActionApprove, "")
	require.NoError(t, err)
	u, err := e.users.GetUser(ctx, seller.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, u.ApprovalStatus)
	assert.Equal(t, 1, e.logs.FilterMessage("notify.email.failed").Len())
}
