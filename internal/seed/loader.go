// Package seed loads user and relationship datasets into the backing
// stores through the same write paths the API uses.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rafaelcs/userhub/backend/internal/coordinator"
	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/network"
)

// UserRecord mirrors one entry of the users dataset file.
type UserRecord struct {
	Credentials *CredentialRecord `json:"credentials"`
	Profile     *ProfileRecord    `json:"profile"`
	LoginCount  int64             `json:"loginCount"`
}

// CredentialRecord is the credential portion of a seed entry.
type CredentialRecord struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

// ProfileRecord is the profile portion of a seed entry.
type ProfileRecord struct {
	UserID           string   `json:"userId"`
	Age              *int     `json:"age"`
	Country          string   `json:"country"`
	SubscriptionType string   `json:"subscriptionType"`
	Device           string   `json:"device"`
	Genres           []string `json:"genres"`
	Gender           string   `json:"gender"`
	MonthlyRevenue   *float64 `json:"monthlyRevenue"`
}

// RelationshipRecord mirrors one entry of the relationships dataset file.
type RelationshipRecord struct {
	FollowerID string `json:"followerId"`
	FollowedID string `json:"followedId"`
}

// Summary totals one seeding run. A record that failed in every store
// counts as a failure; a record persisted in only some stores counts as
// created and as a partial write.
type Summary struct {
	UsersCreated   int64
	UserFailures   int64
	PartialWrites  int64
	FollowsCreated int64
	FollowFailures int64
}

// Loader pushes datasets through the coordinator using a worker pool.
// Individual record failures are counted, never fatal: a seeding run
// always processes the whole dataset.
type Loader struct {
	coordinator *coordinator.Coordinator
	network     *network.Manager
	logger      *slog.Logger
	workers     int
}

// NewLoader constructs a Loader with the provided concurrency.
func NewLoader(logger *slog.Logger, coord *coordinator.Coordinator, net *network.Manager, workers int) *Loader {
	if workers <= 0 {
		workers = 4
	}
	return &Loader{
		coordinator: coord,
		network:     net,
		logger:      logger,
		workers:     workers,
	}
}

// LoadUsersFile reads a users dataset from disk and seeds it.
func (l *Loader) LoadUsersFile(ctx context.Context, path string, summary *Summary) error {
	var records []UserRecord
	if err := readJSONFile(path, &records); err != nil {
		return err
	}
	l.logger.Info("seeding users", "count", len(records), "workers", l.workers)
	l.SeedUsers(ctx, records, summary)
	return nil
}

// LoadRelationshipsFile reads a relationships dataset from disk and seeds it.
func (l *Loader) LoadRelationshipsFile(ctx context.Context, path string, summary *Summary) error {
	var records []RelationshipRecord
	if err := readJSONFile(path, &records); err != nil {
		return err
	}
	l.logger.Info("seeding relationships", "count", len(records), "workers", l.workers)
	l.SeedRelationships(ctx, records, summary)
	return nil
}

// SeedUsers creates every user record concurrently.
func (l *Loader) SeedUsers(ctx context.Context, records []UserRecord, summary *Summary) {
	l.run(ctx, len(records), func(idx int) {
		l.seedUser(ctx, records[idx], summary)
	})
}

// SeedRelationships creates every follow edge concurrently. Edges whose
// endpoints were never created fail individually and are counted.
func (l *Loader) SeedRelationships(ctx context.Context, records []RelationshipRecord, summary *Summary) {
	l.run(ctx, len(records), func(idx int) {
		rec := records[idx]
		if err := l.network.Follow(ctx, rec.FollowerID, rec.FollowedID); err != nil {
			atomic.AddInt64(&summary.FollowFailures, 1)
			l.logger.Debug("seed follow failed", "followerId", rec.FollowerID, "followedId", rec.FollowedID, "error", err)
			return
		}
		atomic.AddInt64(&summary.FollowsCreated, 1)
	})
}

func (l *Loader) seedUser(ctx context.Context, rec UserRecord, summary *Summary) {
	input := coordinator.CreateInput{LoginCount: rec.LoginCount}

	if rec.Credentials != nil {
		input.UserID = rec.Credentials.UserID
		input.Email = rec.Credentials.Email
		input.PasswordHash = rec.Credentials.PasswordHash
	}
	if rec.Profile != nil {
		if input.UserID == "" {
			input.UserID = rec.Profile.UserID
		}
		input.Profile = &domain.Profile{
			UserID:           input.UserID,
			Age:              rec.Profile.Age,
			Country:          rec.Profile.Country,
			SubscriptionType: rec.Profile.SubscriptionType,
			Device:           rec.Profile.Device,
			Genres:           rec.Profile.Genres,
			Gender:           rec.Profile.Gender,
			MonthlyRevenue:   rec.Profile.MonthlyRevenue,
		}
	}
	if strings.TrimSpace(input.UserID) == "" {
		input.UserID = uuid.NewString()
	}

	result, err := l.coordinator.Create(ctx, input)
	if err != nil {
		atomic.AddInt64(&summary.UserFailures, 1)
		l.logger.Debug("seed user failed", "userId", input.UserID, "error", err)
		return
	}
	atomic.AddInt64(&summary.UsersCreated, 1)
	if len(result.Failures) > 0 {
		atomic.AddInt64(&summary.PartialWrites, 1)
	}
	if created := atomic.LoadInt64(&summary.UsersCreated); created%100 == 0 {
		l.logger.Info("seed progress", "usersCreated", created)
	}
}

func (l *Loader) run(ctx context.Context, total int, fn func(idx int)) {
	if total == 0 {
		return
	}
	indexCh := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexCh {
				fn(idx)
			}
		}()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
}

func readJSONFile(path string, target any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
