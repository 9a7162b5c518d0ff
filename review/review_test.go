package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stridehq/stride/auth"
	"github.com/stridehq/stride/models"
	"github.com/stridehq/stride/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testService() (*Service, *storage.MemoryStorage) {
	store := storage.NewMemoryStorage()
	return NewService(store, auth.RoleCapability{}), store
}

func adminUser() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Role: auth.RoleAdmin}
}

func memberUser() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Role: auth.RoleMember}
}

func TestSubmitAndList(t *testing.T) {
	service, _ := testService()
	userID := primitive.NewObjectID()

	submission, err := service.Submit(context.Background(), userID, "Pathfinder", "screenshot of 30-day calendar")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionPending, submission.Status)
	assert.False(t, submission.ID.IsZero())

	_, err = service.Submit(context.Background(), userID, "", "no rung named")
	assert.Error(t, err)

	listed, err := service.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Pathfinder", listed[0].RungTitle)
}

func TestApprove(t *testing.T) {
	service, _ := testService()
	reviewer := adminUser()

	submission, err := service.Submit(context.Background(), primitive.NewObjectID(), "Pathfinder", "")
	require.NoError(t, err)

	approved, err := service.Approve(context.Background(), reviewer, submission.ID, 85)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionApproved, approved.Status)
	require.NotNil(t, approved.Score)
	assert.Equal(t, 85, *approved.Score)
	require.NotNil(t, approved.ReviewerID)
	assert.Equal(t, reviewer.ID, *approved.ReviewerID)
	assert.NotNil(t, approved.ReviewedAt)
}

func TestApproveScoreRange(t *testing.T) {
	service, _ := testService()
	reviewer := adminUser()

	submission, err := service.Submit(context.Background(), primitive.NewObjectID(), "Pathfinder", "")
	require.NoError(t, err)

	for _, score := range []int{-1, 101} {
		_, err := service.Approve(context.Background(), reviewer, submission.ID, score)
		assert.ErrorIs(t, err, ErrInvalidScoreRange, "score %d", score)
	}

	// The range check runs before anything else; the submission is still
	// pending and approvable.
	approved, err := service.Approve(context.Background(), reviewer, submission.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionApproved, approved.Status)
}

func TestReject(t *testing.T) {
	service, _ := testService()

	submission, err := service.Submit(context.Background(), primitive.NewObjectID(), "Pathfinder", "")
	require.NoError(t, err)

	rejected, err := service.Reject(context.Background(), adminUser(), submission.ID, "calendar does not show 30 days")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionRejected, rejected.Status)
	assert.Equal(t, "calendar does not show 30 days", rejected.Reason)
}

func TestReviewOnlyOnce(t *testing.T) {
	service, _ := testService()
	reviewer := adminUser()

	submission, err := service.Submit(context.Background(), primitive.NewObjectID(), "Pathfinder", "")
	require.NoError(t, err)

	_, err = service.Approve(context.Background(), reviewer, submission.ID, 90)
	require.NoError(t, err)

	_, err = service.Approve(context.Background(), reviewer, submission.ID, 95)
	assert.ErrorIs(t, err, ErrNotPending)

	_, err = service.Reject(context.Background(), reviewer, submission.ID, "changed my mind")
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestReviewRequiresCapability(t *testing.T) {
	service, _ := testService()

	submission, err := service.Submit(context.Background(), primitive.NewObjectID(), "Pathfinder", "")
	require.NoError(t, err)

	_, err = service.Approve(context.Background(), memberUser(), submission.ID, 90)
	assert.ErrorIs(t, err, ErrNotReviewer)

	_, err = service.Reject(context.Background(), memberUser(), submission.ID, "nope")
	assert.ErrorIs(t, err, ErrNotReviewer)
}

func TestReviewMissingSubmission(t *testing.T) {
	service, _ := testService()

	_, err := service.Approve(context.Background(), adminUser(), primitive.NewObjectID(), 90)
	assert.ErrorIs(t, err, ErrNotFound)
}
