package service

import (
	"context"
	"log"
	"strconv"
	"sync"

	"recipegram_22520060/internal/push"
)

// FollowerProvider resolves the social-graph audience for an author.
type FollowerProvider interface {
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

// DeviceTokenProvider resolves followers to registered push targets.
type DeviceTokenProvider interface {
	GetActiveTokensForUsers(ctx context.Context, userIDs []int64) ([]string, error)
}

// AccessTokenSource yields a gateway access token, cached or fresh.
type AccessTokenSource interface {
	Token(ctx context.Context) (string, error)
}

// PushSender delivers a single push message.
type PushSender interface {
	Send(ctx context.Context, accessToken string, msg push.Message) error
}

// NewRecipeNotification describes one publish event. Built by the recipe
// flow after the new recipe row is committed; consumed once.
type NewRecipeNotification struct {
	AuthorID    int64
	AuthorName  string
	RecipeID    int64
	RecipeTitle string
}

// NotifierService fans a new-recipe push notification out to the author's
// followers. Every failure path downgrades to a log line: recipe creation
// must never be affected by notification problems.
type NotifierService struct {
	followers   FollowerProvider
	tokens      DeviceTokenProvider
	tokenSource AccessTokenSource
	sender      PushSender
	creds       push.Credentials

	// storeConfigured is false when the privileged service-role DSN is
	// absent; the whole subsystem is disabled then.
	storeConfigured bool
}

func NewNotifierService(
	followers FollowerProvider,
	tokens DeviceTokenProvider,
	tokenSource AccessTokenSource,
	sender PushSender,
	creds push.Credentials,
	storeConfigured bool,
) *NotifierService {
	return &NotifierService{
		followers:       followers,
		tokens:          tokens,
		tokenSource:     tokenSource,
		sender:          sender,
		creds:           creds,
		storeConfigured: storeConfigured,
	}
}

// NotifyFollowersNewRecipe sends a best-effort push to every active device of
// every follower of the author. Each stage short-circuits to a no-op:
// missing config, no followers, no devices, or a failed token exchange all
// end the round quietly. Blocks until every in-flight send has finished.
func (s *NotifierService) NotifyFollowersNewRecipe(ctx context.Context, n NewRecipeNotification) {
	if !s.storeConfigured {
		log.Printf("[Notifier] Service-role credential not configured, skipping push for recipe=%d", n.RecipeID)
		return
	}
	if !s.creds.Complete() {
		log.Printf("[Notifier] Firebase service account incomplete, skipping push for recipe=%d", n.RecipeID)
		return
	}

	followerIDs, err := s.followers.GetFollowerIDs(ctx, n.AuthorID)
	if err != nil {
		log.Printf("[Notifier] Failed to get followers: author=%d err=%v", n.AuthorID, err)
		return
	}
	if len(followerIDs) == 0 {
		return
	}

	deviceTokens, err := s.tokens.GetActiveTokensForUsers(ctx, followerIDs)
	if err != nil {
		log.Printf("[Notifier] Failed to get device tokens: author=%d err=%v", n.AuthorID, err)
		return
	}

	deviceTokens = dedupeTokens(deviceTokens)
	if len(deviceTokens) == 0 {
		return
	}

	accessToken, err := s.tokenSource.Token(ctx)
	if err != nil {
		log.Printf("[Notifier] Token exchange failed: %v", err)
		return
	}

	s.dispatch(ctx, accessToken, deviceTokens, n)
}

// dispatch sends one message per device token concurrently and joins on all
// of them. A failed send is logged and dropped; it never affects siblings.
func (s *NotifierService) dispatch(ctx context.Context, accessToken string, deviceTokens []string, n NewRecipeNotification) {
	var wg sync.WaitGroup

	var failures int64
	var mu sync.Mutex

	for _, token := range deviceTokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()

			msg := push.Message{
				Token: token,
				Title: "New recipe from " + n.AuthorName,
				Body:  n.RecipeTitle,
				Data: map[string]string{
					"type":      "new_recipe",
					"recipe_id": strconv.FormatInt(n.RecipeID, 10),
					"author_id": strconv.FormatInt(n.AuthorID, 10),
				},
			}

			if err := s.sender.Send(ctx, accessToken, msg); err != nil {
				log.Printf("[Notifier] Push failed: %v", err)
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}(token)
	}

	wg.Wait()

	mu.Lock()
	failed := failures
	mu.Unlock()
	log.Printf("[Notifier] Dispatched recipe=%d tokens=%d failed=%d", n.RecipeID, len(deviceTokens), failed)
}

// dedupeTokens collapses duplicate token strings so a shared physical device
// receives exactly one push per round. Order of first appearance is kept.
func dedupeTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
