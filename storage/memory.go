package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stridehq/stride/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStorage is an in-memory implementation of StorageInterface. It
// mirrors the uniqueness constraints the MongoDB backend enforces through
// indexes, so the engine behaves identically on either backend. Used by the
// test suites and useful for local development without a database.
type MemoryStorage struct {
	mu          sync.RWMutex
	users       map[primitive.ObjectID]models.User
	items       map[primitive.ObjectID]models.TrackableItem
	subtasks    map[primitive.ObjectID]models.Subtask
	completions map[primitive.ObjectID]models.CompletionEvent
	ledgers     map[primitive.ObjectID]models.ProgressionLedger
	submissions map[primitive.ObjectID]models.LadderSubmission
}

// NewMemoryStorage creates an empty in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:       make(map[primitive.ObjectID]models.User),
		items:       make(map[primitive.ObjectID]models.TrackableItem),
		subtasks:    make(map[primitive.ObjectID]models.Subtask),
		completions: make(map[primitive.ObjectID]models.CompletionEvent),
		ledgers:     make(map[primitive.ObjectID]models.ProgressionLedger),
		submissions: make(map[primitive.ObjectID]models.LadderSubmission),
	}
}

// Connect is a no-op for the in-memory backend.
func (s *MemoryStorage) Connect(dbName, uri string) error { return nil }

// Disconnect is a no-op for the in-memory backend.
func (s *MemoryStorage) Disconnect() error { return nil }

func (s *MemoryStorage) AddUser(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return nil, ErrDuplicate
		}
	}

	user.ID = primitive.NewObjectID()
	s.users[user.ID] = *user
	return user, nil
}

func (s *MemoryStorage) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) AddItem(ctx context.Context, item *models.TrackableItem) (*models.TrackableItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.UserID == item.UserID && existing.Name == item.Name {
			return nil, ErrDuplicate
		}
	}

	item.ID = primitive.NewObjectID()
	s.items[item.ID] = *item
	return item, nil
}

func (s *MemoryStorage) FindItemByID(ctx context.Context, id primitive.ObjectID) (*models.TrackableItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (s *MemoryStorage) FindItemsByOwner(ctx context.Context, ownerID primitive.ObjectID, activeOnly bool) ([]models.TrackableItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []models.TrackableItem
	for _, item := range s.items {
		if item.UserID != ownerID {
			continue
		}
		if activeOnly && !item.IsActive {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (s *MemoryStorage) UpdateItem(ctx context.Context, item *models.TrackableItem) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.ID]
	if !ok {
		return nil, ErrNotFound
	}
	existing.Name = item.Name
	existing.Description = item.Description
	existing.Intensity = item.Intensity
	existing.PointValue = item.PointValue
	existing.IsActive = item.IsActive
	s.items[item.ID] = existing
	return &UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (s *MemoryStorage) ArchiveItem(ctx context.Context, id primitive.ObjectID, when time.Time) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	item.IsActive = false
	archived := when
	item.ArchivedAt = &archived
	s.items[id] = item
	return &UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (s *MemoryStorage) AddSubtask(ctx context.Context, subtask *models.Subtask) (*models.Subtask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subtask.ID = primitive.NewObjectID()
	s.subtasks[subtask.ID] = *subtask
	return subtask, nil
}

func (s *MemoryStorage) FindSubtasksByItem(ctx context.Context, itemID primitive.ObjectID) ([]models.Subtask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var subtasks []models.Subtask
	for _, subtask := range s.subtasks {
		if subtask.ItemID == itemID {
			subtasks = append(subtasks, subtask)
		}
	}
	sort.Slice(subtasks, func(i, j int) bool { return subtasks[i].Name < subtasks[j].Name })
	return subtasks, nil
}

func (s *MemoryStorage) UpdateSubtask(ctx context.Context, subtask *models.Subtask) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subtasks[subtask.ID]; !ok {
		return nil, ErrNotFound
	}
	s.subtasks[subtask.ID] = *subtask
	return &UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (s *MemoryStorage) ResetRepetitiveSubtasks(ctx context.Context, itemID primitive.ObjectID, now time.Time) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var modified int64
	for id, subtask := range s.subtasks {
		if subtask.ItemID == itemID && subtask.IsRepetitive && subtask.Completed {
			subtask.Completed = false
			subtask.LastShown = now
			s.subtasks[id] = subtask
			modified++
		}
	}
	return &UpdateResult{MatchedCount: modified, ModifiedCount: modified}, nil
}

func (s *MemoryStorage) AddCompletion(ctx context.Context, event *models.CompletionEvent) (*models.CompletionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Mirror of the unique (user_id, item_id, day) index.
	for _, existing := range s.completions {
		if existing.UserID == event.UserID && existing.ItemID == event.ItemID && existing.Day == event.Day {
			return nil, ErrDuplicate
		}
	}

	event.ID = primitive.NewObjectID()
	s.completions[event.ID] = *event
	return event, nil
}

func (s *MemoryStorage) CompletionExists(ctx context.Context, userID, itemID primitive.ObjectID, start, end time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, event := range s.completions {
		if event.UserID == userID && event.ItemID == itemID && inWindow(event.CompletedAt, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStorage) HasAnyCompletion(ctx context.Context, userID, itemID primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, event := range s.completions {
		if event.UserID == userID && event.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStorage) LatestCompletion(ctx context.Context, userID, itemID primitive.ObjectID, start, end time.Time) (*models.CompletionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.CompletionEvent
	for _, event := range s.completions {
		if event.UserID != userID || event.ItemID != itemID || !inWindow(event.CompletedAt, start, end) {
			continue
		}
		if latest == nil || event.CompletedAt.After(latest.CompletedAt) {
			e := event
			latest = &e
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (s *MemoryStorage) CompletionsForItem(ctx context.Context, userID, itemID primitive.ObjectID) ([]models.CompletionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []models.CompletionEvent
	for _, event := range s.completions {
		if event.UserID == userID && event.ItemID == itemID {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CompletedAt.Before(events[j].CompletedAt) })
	return events, nil
}

func (s *MemoryStorage) DeleteCompletion(ctx context.Context, id primitive.ObjectID) (*DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.completions[id]; !ok {
		return &DeleteResult{DeletedCount: 0}, nil
	}
	delete(s.completions, id)
	return &DeleteResult{DeletedCount: 1}, nil
}

func (s *MemoryStorage) FindLedger(ctx context.Context, userID primitive.ObjectID) (*models.ProgressionLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger, ok := s.ledgers[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := ledger
	out.Achievements = append([]models.Achievement(nil), ledger.Achievements...)
	return &out, nil
}

func (s *MemoryStorage) EnsureLedger(ctx context.Context, userID primitive.ObjectID) (*models.ProgressionLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.ledgers[userID]
	if !ok {
		now := time.Now()
		ledger = models.ProgressionLedger{
			ID:           primitive.NewObjectID(),
			UserID:       userID,
			Achievements: []models.Achievement{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		s.ledgers[userID] = ledger
	}
	out := ledger
	out.Achievements = append([]models.Achievement(nil), ledger.Achievements...)
	return &out, nil
}

func (s *MemoryStorage) ApplyLedgerDelta(ctx context.Context, userID primitive.ObjectID, delta LedgerDelta) (*models.ProgressionLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.ledgers[userID]
	if !ok {
		return nil, ErrNotFound
	}

	ledger.TotalPoints += delta.TotalPointsDelta
	ledger.WeeklyPoints += delta.WeeklyPointsDelta
	if delta.CurrentStreak != nil && *delta.CurrentStreak > ledger.CurrentStreak {
		ledger.CurrentStreak = *delta.CurrentStreak
	}
	if delta.LongestStreak != nil && *delta.LongestStreak > ledger.LongestStreak {
		ledger.LongestStreak = *delta.LongestStreak
	}
	if delta.CurrentLevel != nil {
		ledger.CurrentLevel = *delta.CurrentLevel
	}
	ledger.Achievements = append(ledger.Achievements, delta.NewAchievements...)
	ledger.UpdatedAt = time.Now()

	s.ledgers[userID] = ledger
	out := ledger
	out.Achievements = append([]models.Achievement(nil), ledger.Achievements...)
	return &out, nil
}

func (s *MemoryStorage) ResetWeeklyPoints(ctx context.Context, userID primitive.ObjectID) (*models.ProgressionLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.ledgers[userID]
	if !ok {
		return nil, ErrNotFound
	}
	ledger.WeeklyPoints = 0
	ledger.UpdatedAt = time.Now()
	s.ledgers[userID] = ledger
	out := ledger
	out.Achievements = append([]models.Achievement(nil), ledger.Achievements...)
	return &out, nil
}

func (s *MemoryStorage) AddSubmission(ctx context.Context, submission *models.LadderSubmission) (*models.LadderSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	submission.ID = primitive.NewObjectID()
	s.submissions[submission.ID] = *submission
	return submission, nil
}

func (s *MemoryStorage) FindSubmissionByID(ctx context.Context, id primitive.ObjectID) (*models.LadderSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	submission, ok := s.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &submission, nil
}

func (s *MemoryStorage) FindSubmissionsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.LadderSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var submissions []models.LadderSubmission
	for _, submission := range s.submissions {
		if submission.UserID == userID {
			submissions = append(submissions, submission)
		}
	}
	sort.Slice(submissions, func(i, j int) bool { return submissions[i].CreatedAt.Before(submissions[j].CreatedAt) })
	return submissions, nil
}

func (s *MemoryStorage) UpdateSubmission(ctx context.Context, submission *models.LadderSubmission) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.submissions[submission.ID]; !ok {
		return nil, ErrNotFound
	}
	s.submissions[submission.ID] = *submission
	return &UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

// inWindow reports whether t falls within [start, end).
func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
