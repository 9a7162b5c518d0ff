package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stridehq/stride/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStorage is a struct representing a MongoDB storage.
// It provides an interface to perform CRUD operations on the collections
// the progression engine reads and writes.
type MongoStorage struct {
	client *mongo.Client
	dbName string
}

// NewMongoStorage creates a new instance of MongoStorage.
// This function doesn't establish a connection to the MongoDB server.
// To connect to the server, use the Connect method of the returned MongoStorage instance.
func NewMongoStorage() *MongoStorage {
	return &MongoStorage{}
}

// Connect establishes a connection to the MongoDB server at the given URI
// and database name. Sets up indexes and unique constraints as necessary.
// Returns an error if any issues are encountered.
func (m *MongoStorage) Connect(dbName, uri string) error {
	// Set a timeout for the connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("error connecting to MongoDB: %v", err)
	}

	m.client = client
	m.dbName = dbName

	db := m.client.Database(m.dbName)

	// Every user has a unique email and username.
	usersCollection := db.Collection("users")
	for _, field := range []string{"email", "username"} {
		model := mongo.IndexModel{
			Keys:    bson.M{field: 1}, // 1 for ascending order
			Options: options.Index().SetUnique(true),
		}
		if _, err = usersCollection.Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("error creating %s index: %v", field, err)
		}
	}

	// A user can't have two items with the same name.
	itemsCollection := db.Collection("items")
	userIDNameIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "name", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err = itemsCollection.Indexes().CreateOne(ctx, userIDNameIndexModel); err != nil {
		return fmt.Errorf("error creating user_id and name index: %v", err)
	}

	// One completion per (user, item, calendar day). This backs the
	// same-day idempotence guard at the store level too, so a race between
	// two requests can't slip a duplicate row in.
	completionsCollection := db.Collection("completions")
	completionDayIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "item_id", Value: 1},
			{Key: "day", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err = completionsCollection.Indexes().CreateOne(ctx, completionDayIndexModel); err != nil {
		return fmt.Errorf("error creating completion day index: %v", err)
	}

	// The streak walk issues window queries on completed_at.
	completionTimeIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "item_id", Value: 1},
			{Key: "completed_at", Value: -1},
		},
		Options: options.Index(),
	}
	if _, err = completionsCollection.Indexes().CreateOne(ctx, completionTimeIndexModel); err != nil {
		return fmt.Errorf("error creating completion time index: %v", err)
	}

	// One ledger per user.
	ledgersCollection := db.Collection("ledgers")
	ledgerUserIndexModel := mongo.IndexModel{
		Keys:    bson.M{"user_id": 1},
		Options: options.Index().SetUnique(true),
	}
	if _, err = ledgersCollection.Indexes().CreateOne(ctx, ledgerUserIndexModel); err != nil {
		return fmt.Errorf("error creating ledger user_id index: %v", err)
	}

	itemIDIndexModel := mongo.IndexModel{
		Keys:    bson.M{"item_id": 1},
		Options: options.Index(),
	}
	if _, err = db.Collection("subtasks").Indexes().CreateOne(ctx, itemIDIndexModel); err != nil {
		return fmt.Errorf("error creating subtask item_id index: %v", err)
	}

	userIDIndexModel := mongo.IndexModel{
		Keys:    bson.M{"user_id": 1},
		Options: options.Index(),
	}
	if _, err = db.Collection("submissions").Indexes().CreateOne(ctx, userIDIndexModel); err != nil {
		return fmt.Errorf("error creating submission user_id index: %v", err)
	}

	return nil
}

// Disconnect closes the connection to the MongoDB server.
// It should be called when the MongoStorage instance is no longer needed.
func (m *MongoStorage) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := m.client.Disconnect(ctx)
	if err != nil {
		return fmt.Errorf("error disconnecting from MongoDB: %v", err)
	}

	return nil
}

func (m *MongoStorage) collection(name string) *mongo.Collection {
	return m.client.Database(m.dbName).Collection(name)
}

// translateErr maps driver errors onto the storage sentinels.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// AddUser adds a new user document to the 'users' collection.
// Returns the added user instance and an error if the insert operation fails.
func (m *MongoStorage) AddUser(ctx context.Context, user *models.User) (*models.User, error) {
	result, err := m.collection("users").InsertOne(ctx, user)
	if err != nil {
		return nil, translateErr(err)
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	return user, nil
}

// FindUserByID finds a user document by its id.
func (m *MongoStorage) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user := &models.User{}
	err := m.collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(user)
	if err != nil {
		return nil, translateErr(err)
	}
	return user, nil
}

// FindUserByEmail finds a user document by its email address.
func (m *MongoStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := m.collection("users").FindOne(ctx, bson.M{"email": email}).Decode(user)
	if err != nil {
		return nil, translateErr(err)
	}
	return user, nil
}

// AddItem adds a new trackable item document to the 'items' collection.
func (m *MongoStorage) AddItem(ctx context.Context, item *models.TrackableItem) (*models.TrackableItem, error) {
	result, err := m.collection("items").InsertOne(ctx, item)
	if err != nil {
		if errors.Is(translateErr(err), ErrDuplicate) {
			return nil, fmt.Errorf("an item with the name '%s' already exists for the user: %w", item.Name, ErrDuplicate)
		}
		return nil, err
	}
	item.ID = result.InsertedID.(primitive.ObjectID)
	return item, nil
}

// FindItemByID finds a trackable item document by its id.
func (m *MongoStorage) FindItemByID(ctx context.Context, id primitive.ObjectID) (*models.TrackableItem, error) {
	item := &models.TrackableItem{}
	err := m.collection("items").FindOne(ctx, bson.M{"_id": id}).Decode(item)
	if err != nil {
		return nil, translateErr(err)
	}
	return item, nil
}

// FindItemsByOwner returns the items owned by a user. With activeOnly set,
// archived and soft-disabled items are excluded (the "today" view).
func (m *MongoStorage) FindItemsByOwner(ctx context.Context, ownerID primitive.ObjectID, activeOnly bool) ([]models.TrackableItem, error) {
	filter := bson.M{"user_id": ownerID}
	if activeOnly {
		filter["is_active"] = true
	}

	cursor, err := m.collection("items").Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.TrackableItem
	for cursor.Next(ctx) {
		var item models.TrackableItem
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, cursor.Err()
}

// UpdateItem replaces the mutable fields of an item document.
func (m *MongoStorage) UpdateItem(ctx context.Context, item *models.TrackableItem) (*UpdateResult, error) {
	update := bson.M{"$set": bson.M{
		"name":        item.Name,
		"description": item.Description,
		"intensity":   item.Intensity,
		"point_value": item.PointValue,
		"is_active":   item.IsActive,
	}}
	result, err := m.collection("items").UpdateOne(ctx, bson.M{"_id": item.ID}, update)
	if err != nil {
		return nil, translateErr(err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return &UpdateResult{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}

// ArchiveItem soft-disables an item. Items are never hard-deleted while
// completions reference them; archiving keeps the history intact.
func (m *MongoStorage) ArchiveItem(ctx context.Context, id primitive.ObjectID, when time.Time) (*UpdateResult, error) {
	update := bson.M{"$set": bson.M{
		"is_active":   false,
		"archived_at": when,
	}}
	result, err := m.collection("items").UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, translateErr(err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return &UpdateResult{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}

// AddSubtask adds a new subtask document to the 'subtasks' collection.
func (m *MongoStorage) AddSubtask(ctx context.Context, subtask *models.Subtask) (*models.Subtask, error) {
	result, err := m.collection("subtasks").InsertOne(ctx, subtask)
	if err != nil {
		return nil, translateErr(err)
	}
	subtask.ID = result.InsertedID.(primitive.ObjectID)
	return subtask, nil
}

// FindSubtasksByItem returns the subtasks under an item.
func (m *MongoStorage) FindSubtasksByItem(ctx context.Context, itemID primitive.ObjectID) ([]models.Subtask, error) {
	cursor, err := m.collection("subtasks").Find(ctx, bson.M{"item_id": itemID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subtasks []models.Subtask
	for cursor.Next(ctx) {
		var subtask models.Subtask
		if err := cursor.Decode(&subtask); err != nil {
			return nil, err
		}
		subtasks = append(subtasks, subtask)
	}

	return subtasks, cursor.Err()
}

// UpdateSubtask replaces the mutable fields of a subtask document.
func (m *MongoStorage) UpdateSubtask(ctx context.Context, subtask *models.Subtask) (*UpdateResult, error) {
	update := bson.M{"$set": bson.M{
		"name":          subtask.Name,
		"is_repetitive": subtask.IsRepetitive,
		"completed":     subtask.Completed,
		"last_shown":    subtask.LastShown,
	}}
	result, err := m.collection("subtasks").UpdateOne(ctx, bson.M{"_id": subtask.ID}, update)
	if err != nil {
		return nil, translateErr(err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return &UpdateResult{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}

// ResetRepetitiveSubtasks flips completed repetitive subtasks of an item
// back to incomplete and refreshes their last_shown stamp. UpdateMany keeps
// the daily reset a single round trip.
func (m *MongoStorage) ResetRepetitiveSubtasks(ctx context.Context, itemID primitive.ObjectID, now time.Time) (*UpdateResult, error) {
	filter := bson.M{
		"item_id":       itemID,
		"is_repetitive": true,
		"completed":     true,
	}
	update := bson.M{"$set": bson.M{
		"completed":  false,
		"last_shown": now,
	}}
	result, err := m.collection("subtasks").UpdateMany(ctx, filter, update)
	if err != nil {
		return nil, translateErr(err)
	}
	return &UpdateResult{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}

// AddCompletion inserts a completion event row. The unique
// (user_id, item_id, day) index turns same-day duplicates into ErrDuplicate.
func (m *MongoStorage) AddCompletion(ctx context.Context, event *models.CompletionEvent) (*models.CompletionEvent, error) {
	result, err := m.collection("completions").InsertOne(ctx, event)
	if err != nil {
		return nil, translateErr(err)
	}
	event.ID = result.InsertedID.(primitive.ObjectID)
	return event, nil
}

// CompletionExists reports whether any completion of the item by the user
// falls within [start, end).
func (m *MongoStorage) CompletionExists(ctx context.Context, userID, itemID primitive.ObjectID, start, end time.Time) (bool, error) {
	filter := bson.M{
		"user_id":      userID,
		"item_id":      itemID,
		"completed_at": bson.M{"$gte": start, "$lt": end},
	}
	count, err := m.collection("completions").CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasAnyCompletion reports whether the item has ever been completed by the
// user.
func (m *MongoStorage) HasAnyCompletion(ctx context.Context, userID, itemID primitive.ObjectID) (bool, error) {
	filter := bson.M{"user_id": userID, "item_id": itemID}
	count, err := m.collection("completions").CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LatestCompletion returns the most recent completion within [start, end).
func (m *MongoStorage) LatestCompletion(ctx context.Context, userID, itemID primitive.ObjectID, start, end time.Time) (*models.CompletionEvent, error) {
	filter := bson.M{
		"user_id":      userID,
		"item_id":      itemID,
		"completed_at": bson.M{"$gte": start, "$lt": end},
	}
	opts := options.FindOne().SetSort(bson.M{"completed_at": -1})
	event := &models.CompletionEvent{}
	err := m.collection("completions").FindOne(ctx, filter, opts).Decode(event)
	if err != nil {
		return nil, translateErr(err)
	}
	return event, nil
}

// CompletionsForItem returns the full completion history for an item,
// oldest first.
func (m *MongoStorage) CompletionsForItem(ctx context.Context, userID, itemID primitive.ObjectID) ([]models.CompletionEvent, error) {
	filter := bson.M{"user_id": userID, "item_id": itemID}
	opts := options.Find().SetSort(bson.M{"completed_at": 1})
	cursor, err := m.collection("completions").Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []models.CompletionEvent
	for cursor.Next(ctx) {
		var event models.CompletionEvent
		if err := cursor.Decode(&event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, cursor.Err()
}

// DeleteCompletion hard-deletes a completion event row (the undo path).
func (m *MongoStorage) DeleteCompletion(ctx context.Context, id primitive.ObjectID) (*DeleteResult, error) {
	result, err := m.collection("completions").DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	return &DeleteResult{DeletedCount: result.DeletedCount}, nil
}

// FindLedger finds a user's progression ledger.
func (m *MongoStorage) FindLedger(ctx context.Context, userID primitive.ObjectID) (*models.ProgressionLedger, error) {
	ledger := &models.ProgressionLedger{}
	err := m.collection("ledgers").FindOne(ctx, bson.M{"user_id": userID}).Decode(ledger)
	if err != nil {
		return nil, translateErr(err)
	}
	return ledger, nil
}

// EnsureLedger returns the user's ledger, creating an empty one if none
// exists yet. The upsert makes lazy creation safe under concurrent first
// completions.
func (m *MongoStorage) EnsureLedger(ctx context.Context, userID primitive.ObjectID) (*models.ProgressionLedger, error) {
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"user_id":        userID,
			"total_points":   0,
			"weekly_points":  0,
			"current_streak": 0,
			"longest_streak": 0,
			"current_level":  0,
			"achievements":   []models.Achievement{},
			"created_at":     now,
			"updated_at":     now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	ledger := &models.ProgressionLedger{}
	err := m.collection("ledgers").FindOneAndUpdate(ctx, bson.M{"user_id": userID}, update, opts).Decode(ledger)
	if err != nil {
		return nil, translateErr(err)
	}
	return ledger, nil
}

// ApplyLedgerDelta applies a LedgerDelta as one update document: point
// deltas via $inc, streaks via $max, the level via $set, achievements via
// $push. A concurrent completion can therefore not lose a point increment.
func (m *MongoStorage) ApplyLedgerDelta(ctx context.Context, userID primitive.ObjectID, delta LedgerDelta) (*models.ProgressionLedger, error) {
	set := bson.M{"updated_at": time.Now()}
	if delta.CurrentLevel != nil {
		set["current_level"] = *delta.CurrentLevel
	}

	update := bson.M{
		"$inc": bson.M{
			"total_points":  delta.TotalPointsDelta,
			"weekly_points": delta.WeeklyPointsDelta,
		},
		"$set": set,
	}

	maxFields := bson.M{}
	if delta.CurrentStreak != nil {
		maxFields["current_streak"] = *delta.CurrentStreak
	}
	if delta.LongestStreak != nil {
		maxFields["longest_streak"] = *delta.LongestStreak
	}
	if len(maxFields) > 0 {
		update["$max"] = maxFields
	}

	if len(delta.NewAchievements) > 0 {
		update["$push"] = bson.M{
			"achievements": bson.M{"$each": delta.NewAchievements},
		}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	ledger := &models.ProgressionLedger{}
	err := m.collection("ledgers").FindOneAndUpdate(ctx, bson.M{"user_id": userID}, update, opts).Decode(ledger)
	if err != nil {
		return nil, translateErr(err)
	}
	return ledger, nil
}

// ResetWeeklyPoints zeroes the weekly accumulator.
func (m *MongoStorage) ResetWeeklyPoints(ctx context.Context, userID primitive.ObjectID) (*models.ProgressionLedger, error) {
	update := bson.M{"$set": bson.M{
		"weekly_points": 0,
		"updated_at":    time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	ledger := &models.ProgressionLedger{}
	err := m.collection("ledgers").FindOneAndUpdate(ctx, bson.M{"user_id": userID}, update, opts).Decode(ledger)
	if err != nil {
		return nil, translateErr(err)
	}
	return ledger, nil
}

// AddSubmission adds a new ladder submission document.
func (m *MongoStorage) AddSubmission(ctx context.Context, submission *models.LadderSubmission) (*models.LadderSubmission, error) {
	result, err := m.collection("submissions").InsertOne(ctx, submission)
	if err != nil {
		return nil, translateErr(err)
	}
	submission.ID = result.InsertedID.(primitive.ObjectID)
	return submission, nil
}

// FindSubmissionByID finds a ladder submission by its id.
func (m *MongoStorage) FindSubmissionByID(ctx context.Context, id primitive.ObjectID) (*models.LadderSubmission, error) {
	submission := &models.LadderSubmission{}
	err := m.collection("submissions").FindOne(ctx, bson.M{"_id": id}).Decode(submission)
	if err != nil {
		return nil, translateErr(err)
	}
	return submission, nil
}

// FindSubmissionsByUser returns a user's ladder submissions.
func (m *MongoStorage) FindSubmissionsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.LadderSubmission, error) {
	cursor, err := m.collection("submissions").Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var submissions []models.LadderSubmission
	for cursor.Next(ctx) {
		var submission models.LadderSubmission
		if err := cursor.Decode(&submission); err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}

	return submissions, cursor.Err()
}

// UpdateSubmission replaces the review fields of a submission document.
func (m *MongoStorage) UpdateSubmission(ctx context.Context, submission *models.LadderSubmission) (*UpdateResult, error) {
	update := bson.M{"$set": bson.M{
		"status":      submission.Status,
		"score":       submission.Score,
		"reason":      submission.Reason,
		"reviewer_id": submission.ReviewerID,
		"reviewed_at": submission.ReviewedAt,
	}}
	result, err := m.collection("submissions").UpdateOne(ctx, bson.M{"_id": submission.ID}, update)
	if err != nil {
		return nil, translateErr(err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return &UpdateResult{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}
