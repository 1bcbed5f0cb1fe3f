package worker_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"recipegram_22520060/internal/cache"
	"recipegram_22520060/internal/queue"
	"recipegram_22520060/internal/service"
	"recipegram_22520060/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockFollowerProvider simulates the follower repository.
type MockFollowerProvider struct {
	// followers maps userID -> list of follower IDs
	followers map[int64][]int64
}

func NewMockFollowerProvider() *MockFollowerProvider {
	return &MockFollowerProvider{
		followers: make(map[int64][]int64),
	}
}

func (m *MockFollowerProvider) AddFollower(userID, followerID int64) {
	m.followers[userID] = append(m.followers[userID], followerID)
}

func (m *MockFollowerProvider) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	return m.followers[userID], nil
}

// MockRecipesProvider simulates the recipe repository.
type MockRecipesProvider struct {
	// recipes maps authorID -> list of (recipeID, timestamp)
	recipes map[int64][]cache.RecipeScore
}

func NewMockRecipesProvider() *MockRecipesProvider {
	return &MockRecipesProvider{
		recipes: make(map[int64][]cache.RecipeScore),
	}
}

func (m *MockRecipesProvider) AddRecipe(authorID, recipeID int64, timestamp int64) {
	m.recipes[authorID] = append(m.recipes[authorID], cache.RecipeScore{
		RecipeID:  recipeID,
		Timestamp: timestamp,
	})
}

func (m *MockRecipesProvider) GetRecentRecipesByUser(ctx context.Context, userID int64, limit int) ([]cache.RecipeScore, error) {
	recipes := m.recipes[userID]
	if len(recipes) > limit {
		return recipes[:limit], nil
	}
	return recipes, nil
}

// MockNotifier records push notification requests.
type MockNotifier struct {
	mu            sync.Mutex
	notifications []service.NewRecipeNotification
}

func (m *MockNotifier) NotifyFollowersNewRecipe(ctx context.Context, n service.NewRecipeNotification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
}

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}

	// Use DB 1 for testing to avoid conflicts with dev data
	opts.DB = 1

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}

	client.FlushDB(ctx)

	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx := context.Background()
	client.FlushDB(ctx)
	client.Close()
}

// =============================================================================
// Integration Tests
// =============================================================================

// TestRecipeCreatedFanout tests that when a user publishes a recipe,
// it gets added to all followers' feeds and the push notifier is invoked.
func TestRecipeCreatedFanout(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	feedCache := cache.NewFeedCache(client)
	mockFollowers := NewMockFollowerProvider()
	mockRecipes := NewMockRecipesProvider()
	handler := worker.NewHandler(feedCache, mockFollowers, mockRecipes)

	notifier := &MockNotifier{}
	handler.SetPushNotifier(notifier)

	// Scenario: User 1 (author) has 3 followers: User 2, 3, 4
	authorID := int64(1)
	follower2 := int64(2)
	follower3 := int64(3)
	follower4 := int64(4)

	mockFollowers.AddFollower(authorID, follower2)
	mockFollowers.AddFollower(authorID, follower3)
	mockFollowers.AddFollower(authorID, follower4)

	recipeID := int64(100)
	timestamp := time.Now().Unix()
	event := queue.RecipeEvent{
		Type:        queue.EventRecipeCreated,
		RecipeID:    recipeID,
		AuthorID:    authorID,
		RecipeTitle: "Pho Bo",
		AuthorName:  "chef_anh",
		Timestamp:   timestamp,
	}

	err := handler.HandleEvent(ctx, event)
	if err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	// Verify: recipe should be in all followers' feeds AND author's own feed
	for _, userID := range []int64{authorID, follower2, follower3, follower4} {
		score, found, err := feedCache.GetScore(ctx, userID, recipeID)
		if err != nil {
			t.Fatalf("GetScore failed for user %d: %v", userID, err)
		}
		if !found {
			t.Errorf("Recipe %d not found in user %d's feed", recipeID, userID)
		}
		if score != timestamp {
			t.Errorf("Wrong timestamp for recipe %d in user %d's feed: got %d, want %d",
				recipeID, userID, score, timestamp)
		}
	}

	// Verify the push notifier was called with the event payload
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.notifications) != 1 {
		t.Fatalf("Expected 1 push notification request, got %d", len(notifier.notifications))
	}
	n := notifier.notifications[0]
	if n.AuthorID != authorID || n.RecipeID != recipeID || n.RecipeTitle != "Pho Bo" || n.AuthorName != "chef_anh" {
		t.Errorf("Unexpected notification payload: %+v", n)
	}
}

// TestRecipeDeletedRemoval tests that when a user deletes a recipe,
// it gets removed from all followers' feeds.
func TestRecipeDeletedRemoval(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	feedCache := cache.NewFeedCache(client)
	mockFollowers := NewMockFollowerProvider()
	mockRecipes := NewMockRecipesProvider()
	handler := worker.NewHandler(feedCache, mockFollowers, mockRecipes)

	authorID := int64(1)
	follower2 := int64(2)
	follower3 := int64(3)

	mockFollowers.AddFollower(authorID, follower2)
	mockFollowers.AddFollower(authorID, follower3)

	// Pre-populate: add a recipe to everyone's feed
	recipeID := int64(100)
	timestamp := time.Now().Unix()
	for _, userID := range []int64{authorID, follower2, follower3} {
		feedCache.AddRecipe(ctx, userID, recipeID, timestamp)
	}

	event := queue.RecipeEvent{
		Type:      queue.EventRecipeDeleted,
		RecipeID:  recipeID,
		AuthorID:  authorID,
		Timestamp: time.Now().Unix(),
	}

	err := handler.HandleEvent(ctx, event)
	if err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	for _, userID := range []int64{authorID, follower2, follower3} {
		_, found, err := feedCache.GetScore(ctx, userID, recipeID)
		if err != nil {
			t.Fatalf("GetScore failed for user %d: %v", userID, err)
		}
		if found {
			t.Errorf("Recipe %d should have been removed from user %d's feed", recipeID, userID)
		}
	}
}

// TestUserFollowedBackfill tests that when a user follows someone,
// the followee's recent recipes are backfilled into the follower's feed.
func TestUserFollowedBackfill(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	feedCache := cache.NewFeedCache(client)
	mockFollowers := NewMockFollowerProvider()
	mockRecipes := NewMockRecipesProvider()
	handler := worker.NewHandler(feedCache, mockFollowers, mockRecipes)

	// Scenario: User 2 follows User 1, who has 3 existing recipes
	followerID := int64(2)
	followeeID := int64(1)

	now := time.Now().Unix()
	mockRecipes.AddRecipe(followeeID, 101, now-3600) // 1 hour ago
	mockRecipes.AddRecipe(followeeID, 102, now-1800) // 30 min ago
	mockRecipes.AddRecipe(followeeID, 103, now-600)  // 10 min ago

	event := queue.RecipeEvent{
		Type:       queue.EventUserFollowed,
		FollowerID: followerID,
		FolloweeID: followeeID,
		Timestamp:  now,
	}

	err := handler.HandleEvent(ctx, event)
	if err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	size, _ := feedCache.Size(ctx, followerID)
	if size != 3 {
		t.Errorf("Follower's feed size: got %d, want 3", size)
	}

	for _, recipeID := range []int64{101, 102, 103} {
		_, found, err := feedCache.GetScore(ctx, followerID, recipeID)
		if err != nil {
			t.Fatalf("GetScore failed: %v", err)
		}
		if !found {
			t.Errorf("Recipe %d not found in follower's feed after follow", recipeID)
		}
	}
}

// TestUserUnfollowedRemoval tests that when a user unfollows someone,
// the followee's recipes are removed while other authors' recipes remain.
func TestUserUnfollowedRemoval(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	feedCache := cache.NewFeedCache(client)
	mockFollowers := NewMockFollowerProvider()
	mockRecipes := NewMockRecipesProvider()
	handler := worker.NewHandler(feedCache, mockFollowers, mockRecipes)

	followerID := int64(2)
	unfollowedID := int64(1)
	otherUserID := int64(3)

	now := time.Now().Unix()

	// User 1's recipes (to be removed)
	mockRecipes.AddRecipe(unfollowedID, 101, now-3600)
	mockRecipes.AddRecipe(unfollowedID, 102, now-1800)

	// User 3's recipes (should remain)
	mockRecipes.AddRecipe(otherUserID, 301, now-2400)
	mockRecipes.AddRecipe(otherUserID, 302, now-1200)

	// Pre-populate follower's feed with all recipes
	feedCache.AddRecipe(ctx, followerID, 101, now-3600)
	feedCache.AddRecipe(ctx, followerID, 102, now-1800)
	feedCache.AddRecipe(ctx, followerID, 301, now-2400)
	feedCache.AddRecipe(ctx, followerID, 302, now-1200)

	event := queue.RecipeEvent{
		Type:       queue.EventUserUnfollowed,
		FollowerID: followerID,
		FolloweeID: unfollowedID,
		Timestamp:  now,
	}

	err := handler.HandleEvent(ctx, event)
	if err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	for _, recipeID := range []int64{101, 102} {
		_, found, _ := feedCache.GetScore(ctx, followerID, recipeID)
		if found {
			t.Errorf("Recipe %d should have been removed from feed", recipeID)
		}
	}

	for _, recipeID := range []int64{301, 302} {
		_, found, _ := feedCache.GetScore(ctx, followerID, recipeID)
		if !found {
			t.Errorf("Recipe %d should still be in feed", recipeID)
		}
	}

	size, _ := feedCache.Size(ctx, followerID)
	if size != 2 {
		t.Errorf("Feed size after unfollow: got %d, want 2", size)
	}
}

// TestPublishConsumeRoundTrip publishes an event through the Redis stream and
// verifies a consumer group delivers and acknowledges it.
func TestPublishConsumeRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	publisher := queue.NewPublisher(client)
	consumer := queue.NewConsumer(client)

	if err := consumer.EnsureGroup(ctx, queue.StreamRecipes, queue.ConsumerGroupRecipes); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}

	event := queue.NewRecipeCreatedEvent(42, 7, "Banh Mi", "chef_anh")
	msgID, err := publisher.Publish(ctx, queue.StreamRecipes, event)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	messages, err := consumer.Read(ctx, queue.StreamRecipes, queue.ConsumerGroupRecipes, "test-consumer", 10, time.Second)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}

	msg := messages[0]
	if msg.ID != msgID {
		t.Errorf("Message ID mismatch: got %s, want %s", msg.ID, msgID)
	}
	if msg.Event.Type != queue.EventRecipeCreated {
		t.Errorf("Event type: got %s, want %s", msg.Event.Type, queue.EventRecipeCreated)
	}
	if msg.Event.RecipeID != 42 || msg.Event.AuthorID != 7 {
		t.Errorf("Event payload mismatch: %+v", msg.Event)
	}
	if msg.Event.RecipeTitle != "Banh Mi" || msg.Event.AuthorName != "chef_anh" {
		t.Errorf("Event enrichment mismatch: %+v", msg.Event)
	}

	if err := consumer.Ack(ctx, queue.StreamRecipes, queue.ConsumerGroupRecipes, msg.ID); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}

	pending, err := consumer.Pending(ctx, queue.StreamRecipes, queue.ConsumerGroupRecipes)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if pending != 0 {
		t.Errorf("Expected 0 pending messages after ack, got %d", pending)
	}
}
