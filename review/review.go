// Package review implements the ladder-submission review workflow: a user
// submits evidence for a ladder rung, and a reviewer holding the review
// capability approves it with a score or rejects it with a reason. A
// submission moves out of pending exactly once.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stridehq/stride/auth"
	"github.com/stridehq/stride/models"
	"github.com/stridehq/stride/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrInvalidScoreRange means the review score falls outside [0, 100].
	ErrInvalidScoreRange = errors.New("score must be between 0 and 100")

	// ErrNotPending means the submission has already been reviewed.
	ErrNotPending = errors.New("submission is not pending")

	// ErrNotReviewer means the acting user lacks the review capability.
	ErrNotReviewer = errors.New("user may not review submissions")

	// ErrNotFound means the submission does not exist.
	ErrNotFound = errors.New("submission not found")
)

// Service runs the submission workflow over the storage backend.
type Service struct {
	store storage.StorageInterface
	caps  auth.Capability
}

// NewService creates a review service with the given capability policy.
func NewService(store storage.StorageInterface, caps auth.Capability) *Service {
	return &Service{store: store, caps: caps}
}

// Submit files a new pending submission for a ladder rung.
func (s *Service) Submit(ctx context.Context, userID primitive.ObjectID, rungTitle, evidence string) (*models.LadderSubmission, error) {
	if rungTitle == "" {
		return nil, fmt.Errorf("rung title is required")
	}
	submission := &models.LadderSubmission{
		UserID:    userID,
		RungTitle: rungTitle,
		Evidence:  evidence,
		Status:    models.SubmissionPending,
		CreatedAt: time.Now(),
	}
	return s.store.AddSubmission(ctx, submission)
}

// ListForUser returns a user's submissions.
func (s *Service) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.LadderSubmission, error) {
	return s.store.FindSubmissionsByUser(ctx, userID)
}

// Approve moves a pending submission to approved with a score in [0, 100].
// The score range check runs before any state is touched.
func (s *Service) Approve(ctx context.Context, reviewer *models.User, submissionID primitive.ObjectID, score int) (*models.LadderSubmission, error) {
	if score < 0 || score > 100 {
		return nil, ErrInvalidScoreRange
	}
	return s.review(ctx, reviewer, submissionID, func(submission *models.LadderSubmission) {
		submission.Status = models.SubmissionApproved
		submission.Score = &score
	})
}

// Reject moves a pending submission to rejected with a reason.
func (s *Service) Reject(ctx context.Context, reviewer *models.User, submissionID primitive.ObjectID, reason string) (*models.LadderSubmission, error) {
	return s.review(ctx, reviewer, submissionID, func(submission *models.LadderSubmission) {
		submission.Status = models.SubmissionRejected
		submission.Reason = reason
	})
}

func (s *Service) review(ctx context.Context, reviewer *models.User, submissionID primitive.ObjectID, apply func(*models.LadderSubmission)) (*models.LadderSubmission, error) {
	if !s.caps.CanReviewSubmissions(reviewer) {
		return nil, ErrNotReviewer
	}

	submission, err := s.store.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if submission.Status != models.SubmissionPending {
		return nil, ErrNotPending
	}

	apply(submission)
	now := time.Now()
	submission.ReviewedAt = &now
	submission.ReviewerID = &reviewer.ID

	if _, err := s.store.UpdateSubmission(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}
