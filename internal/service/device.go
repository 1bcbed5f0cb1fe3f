package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"recipegram_22520060/internal/model"
	"recipegram_22520060/internal/repository"
)

// DeviceService manages push notification device registrations.
type DeviceService struct {
	repo repository.DeviceTokenRepository
}

func NewDeviceService(repo repository.DeviceTokenRepository) *DeviceService {
	return &DeviceService{repo: repo}
}

// RegisterToken records a device token for the user. Registering a token
// already known to another user reassigns it; registering an inactive token
// reactivates it.
func (s *DeviceService) RegisterToken(ctx context.Context, userID int64, req *model.RegisterTokenRequest) error {
	if strings.TrimSpace(req.Token) == "" {
		return fmt.Errorf("token is required")
	}

	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform != model.PlatformIOS && platform != model.PlatformAndroid {
		return fmt.Errorf("platform must be %q or %q", model.PlatformIOS, model.PlatformAndroid)
	}

	if err := s.repo.Upsert(ctx, userID, req.Token, platform); err != nil {
		return fmt.Errorf("register device token: %w", err)
	}

	log.Printf("[DeviceService] Registered token for user=%d platform=%s", userID, platform)
	return nil
}

// UnregisterToken deactivates a device token, typically on logout. The row is
// kept so a later register on the same device flips it back.
func (s *DeviceService) UnregisterToken(ctx context.Context, req *model.UnregisterTokenRequest) error {
	if strings.TrimSpace(req.Token) == "" {
		return fmt.Errorf("token is required")
	}

	if err := s.repo.Deactivate(ctx, req.Token); err != nil {
		return fmt.Errorf("unregister device token: %w", err)
	}

	return nil
}
