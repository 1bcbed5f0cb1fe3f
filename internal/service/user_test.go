package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"recipegram_22520060/internal/model"
)

// =============================================================================
// MOCK REPOSITORIES
// =============================================================================
//
// In unit tests, we don't want to hit a real database. Instead, we create a
// "mock" that implements the same interface but returns controlled responses.
//
// This is the KEY insight: because UserService depends on the repository
// INTERFACES (not the concrete implementations), we can swap in mocks.

type mockUserRepository struct {
	// These functions let each test define custom behavior
	createFn           func(ctx context.Context, user *model.User) error
	getByIDFn          func(ctx context.Context, id int64) (*model.User, error)
	getByUsernameFn    func(ctx context.Context, username string) (*model.User, error)
	existsByUsernameFn func(ctx context.Context, username string) (bool, error)
	searchFn           func(ctx context.Context, query string, limit int) ([]model.UserSummary, error)

	// Track calls for assertions
	createCalls []createCall
}

type createCall struct {
	User *model.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls = append(m.createCalls, createCall{User: user})
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *mockUserRepository) IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	return nil
}

func (m *mockUserRepository) IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	return nil
}

type mockFollowRepository struct {
	existsFn       func(ctx context.Context, followerID, followeeID int64) (bool, error)
	checkFollowsFn func(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)
}

func (m *mockFollowRepository) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	return false, nil
}

func (m *mockFollowRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error {
	return nil
}

func (m *mockFollowRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, followerID, followeeID)
	}
	return false, nil
}

func (m *mockFollowRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	return nil, nil, nil
}

func (m *mockFollowRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	return nil, nil, nil
}

func (m *mockFollowRepository) CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	if m.checkFollowsFn != nil {
		return m.checkFollowsFn(ctx, followerID, followeeIDs)
	}
	return map[int64]bool{}, nil
}

func (m *mockFollowRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	return nil, nil
}

func (m *mockFollowRepository) GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	return nil, nil
}

// =============================================================================
// REGISTER TESTS
// =============================================================================

func TestUserService_Register_Success(t *testing.T) {
	// ARRANGE: Set up test data and mocks
	mockRepo := &mockUserRepository{
		existsByUsernameFn: func(ctx context.Context, username string) (bool, error) {
			return false, nil // Username doesn't exist
		},
		createFn: func(ctx context.Context, user *model.User) error {
			// Simulate database setting ID and timestamps
			user.ID = 1
			user.CreatedAt = time.Now()
			user.UpdatedAt = time.Now()
			return nil
		},
	}
	svc := NewUserService(mockRepo, &mockFollowRepository{}, "")

	req := &model.RegisterRequest{
		Username:    "testcook",
		Password:    "securepassword123",
		DisplayName: "Test Cook",
	}

	// ACT: Call the method we're testing
	user, err := svc.Register(context.Background(), req)

	// ASSERT: Check the results
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if user == nil {
		t.Fatal("expected user, got nil")
	}

	if user.Username != req.Username {
		t.Errorf("username = %q, want %q", user.Username, req.Username)
	}

	if user.DisplayName == nil || *user.DisplayName != req.DisplayName {
		t.Errorf("display_name = %v, want %q", user.DisplayName, req.DisplayName)
	}

	// Verify password was hashed (not stored in plain text!)
	if user.PasswordHashed == req.Password {
		t.Error("password should be hashed, not stored in plain text")
	}

	// Verify the hash is valid bcrypt
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password))
	if err != nil {
		t.Error("password hash should be valid bcrypt hash")
	}

	// Verify Create was called exactly once
	if len(mockRepo.createCalls) != 1 {
		t.Errorf("Create called %d times, want 1", len(mockRepo.createCalls))
	}
}

func TestUserService_Register_UsernameExists(t *testing.T) {
	mockRepo := &mockUserRepository{
		existsByUsernameFn: func(ctx context.Context, username string) (bool, error) {
			return true, nil // Username already exists
		},
	}
	svc := NewUserService(mockRepo, &mockFollowRepository{}, "")

	req := &model.RegisterRequest{
		Username: "existingcook",
		Password: "password123",
	}

	user, err := svc.Register(context.Background(), req)

	// Should return ErrUsernameExists
	if !errors.Is(err, model.ErrUsernameExists) {
		t.Errorf("error = %v, want %v", err, model.ErrUsernameExists)
	}

	if user != nil {
		t.Error("user should be nil when registration fails")
	}

	// Verify Create was NOT called
	if len(mockRepo.createCalls) != 0 {
		t.Error("Create should not be called when username exists")
	}
}

func TestUserService_Register_CheckUsernameError(t *testing.T) {
	dbError := errors.New("database connection failed")
	mockRepo := &mockUserRepository{
		existsByUsernameFn: func(ctx context.Context, username string) (bool, error) {
			return false, dbError // Database error
		},
	}
	svc := NewUserService(mockRepo, &mockFollowRepository{}, "")

	req := &model.RegisterRequest{
		Username: "testcook",
		Password: "password123",
	}

	_, err := svc.Register(context.Background(), req)

	if err == nil {
		t.Fatal("expected error, got nil")
	}

	// The original error should be wrapped
	if !errors.Is(err, dbError) {
		t.Errorf("error should wrap original database error")
	}
}

func TestUserService_Register_WithoutDisplayName(t *testing.T) {
	mockRepo := &mockUserRepository{
		existsByUsernameFn: func(ctx context.Context, username string) (bool, error) {
			return false, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			user.ID = 1
			return nil
		},
	}
	svc := NewUserService(mockRepo, &mockFollowRepository{}, "")

	req := &model.RegisterRequest{
		Username: "testcook",
		Password: "password123",
		// DisplayName intentionally omitted
	}

	user, err := svc.Register(context.Background(), req)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.DisplayName != nil {
		t.Errorf("display_name should be nil when not provided, got %v", user.DisplayName)
	}
}

func TestUserService_Register_DefaultAvatar(t *testing.T) {
	mockRepo := &mockUserRepository{
		createFn: func(ctx context.Context, user *model.User) error {
			user.ID = 1
			return nil
		},
	}
	svc := NewUserService(mockRepo, &mockFollowRepository{}, "https://cdn.example.com/avatars/default.png")

	user, err := svc.Register(context.Background(), &model.RegisterRequest{
		Username: "testcook",
		Password: "password123",
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.AvatarURL == nil || *user.AvatarURL != "https://cdn.example.com/avatars/default.png" {
		t.Errorf("avatar_url = %v, want default avatar", user.AvatarURL)
	}
}

// =============================================================================
// LOGIN TESTS - Table-Driven (THE Go idiom)
// =============================================================================

func TestUserService_Login(t *testing.T) {
	validPassword := "correctpassword"
	validHash, _ := bcrypt.GenerateFromPassword([]byte(validPassword), bcrypt.MinCost)

	testUser := &model.User{
		ID:             1,
		Username:       "testcook",
		PasswordHashed: string(validHash),
	}

	tests := []struct {
		name          string
		username      string
		password      string
		mockGetByUser func(ctx context.Context, username string) (*model.User, error)
		wantErr       error
		wantUser      bool
	}{
		{
			name:     "successful login",
			username: "testcook",
			password: validPassword,
			mockGetByUser: func(ctx context.Context, username string) (*model.User, error) {
				return testUser, nil
			},
			wantErr:  nil,
			wantUser: true,
		},
		{
			name:     "user not found",
			username: "nonexistent",
			password: "anypassword",
			mockGetByUser: func(ctx context.Context, username string) (*model.User, error) {
				return nil, model.ErrUserNotFound
			},
			wantErr:  model.ErrInvalidCredentials, // Don't reveal user doesn't exist
			wantUser: false,
		},
		{
			name:     "wrong password",
			username: "testcook",
			password: "wrongpassword",
			mockGetByUser: func(ctx context.Context, username string) (*model.User, error) {
				return testUser, nil
			},
			wantErr:  model.ErrInvalidCredentials,
			wantUser: false,
		},
		{
			name:     "database error",
			username: "testcook",
			password: validPassword,
			mockGetByUser: func(ctx context.Context, username string) (*model.User, error) {
				return nil, errors.New("database error")
			},
			wantErr:  model.ErrInvalidCredentials, // Don't reveal internal errors
			wantUser: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mockUserRepository{
				getByUsernameFn: tt.mockGetByUser,
			}
			svc := NewUserService(mockRepo, &mockFollowRepository{}, "")

			req := &model.LoginRequest{
				Username: tt.username,
				Password: tt.password,
			}

			user, err := svc.Login(context.Background(), req)

			// Check error
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			// Check user
			if tt.wantUser && user == nil {
				t.Error("expected user, got nil")
			}
			if !tt.wantUser && user != nil {
				t.Error("expected nil user")
			}
		})
	}
}

// =============================================================================
// PROFILE TESTS
// =============================================================================

func TestUserService_GetProfile(t *testing.T) {
	viewer := int64(2)

	tests := []struct {
		name          string
		userID        int64
		viewerID      *int64
		mockGetFn     func(ctx context.Context, id int64) (*model.User, error)
		mockExistsFn  func(ctx context.Context, followerID, followeeID int64) (bool, error)
		wantErr       error
		wantFollowing bool
	}{
		{
			name:     "profile with follow status",
			userID:   1,
			viewerID: &viewer,
			mockGetFn: func(ctx context.Context, id int64) (*model.User, error) {
				return &model.User{ID: id, Username: "testcook"}, nil
			},
			mockExistsFn: func(ctx context.Context, followerID, followeeID int64) (bool, error) {
				return true, nil
			},
			wantFollowing: true,
		},
		{
			name:     "anonymous viewer gets no follow status",
			userID:   1,
			viewerID: nil,
			mockGetFn: func(ctx context.Context, id int64) (*model.User, error) {
				return &model.User{ID: id, Username: "testcook"}, nil
			},
			mockExistsFn: func(ctx context.Context, followerID, followeeID int64) (bool, error) {
				t.Error("Exists should not be called for anonymous viewers")
				return false, nil
			},
			wantFollowing: false,
		},
		{
			name:     "follow check failure does not block the profile",
			userID:   1,
			viewerID: &viewer,
			mockGetFn: func(ctx context.Context, id int64) (*model.User, error) {
				return &model.User{ID: id, Username: "testcook"}, nil
			},
			mockExistsFn: func(ctx context.Context, followerID, followeeID int64) (bool, error) {
				return false, errors.New("connection timeout")
			},
			wantFollowing: false,
		},
		{
			name:     "user not found",
			userID:   999,
			viewerID: &viewer,
			mockGetFn: func(ctx context.Context, id int64) (*model.User, error) {
				return nil, model.ErrUserNotFound
			},
			wantErr: model.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mockUserRepository{getByIDFn: tt.mockGetFn}
			mockFollows := &mockFollowRepository{existsFn: tt.mockExistsFn}
			svc := NewUserService(mockRepo, mockFollows, "")

			profile, err := svc.GetProfile(context.Background(), tt.userID, tt.viewerID)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if profile.IsFollowing != tt.wantFollowing {
				t.Errorf("is_following = %v, want %v", profile.IsFollowing, tt.wantFollowing)
			}
		})
	}
}

func TestUserService_Search_EnrichesFollowStatus(t *testing.T) {
	viewer := int64(7)

	mockRepo := &mockUserRepository{
		searchFn: func(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
			return []model.UserSummary{
				{ID: 1, Username: "alice_bakes"},
				{ID: 2, Username: "alice_grills"},
			}, nil
		},
	}
	mockFollows := &mockFollowRepository{
		checkFollowsFn: func(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
			if followerID != viewer {
				t.Errorf("follower id = %d, want %d", followerID, viewer)
			}
			return map[int64]bool{1: true}, nil
		},
	}
	svc := NewUserService(mockRepo, mockFollows, "")

	users, err := svc.Search(context.Background(), "alice", 20, &viewer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if !users[0].IsFollowing {
		t.Error("expected first result to be followed")
	}
	if users[1].IsFollowing {
		t.Error("expected second result to not be followed")
	}
}
