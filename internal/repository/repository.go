package repository

import (
	"github.com/pagebrief/entitlement-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User         UserRepository
	Credential   CredentialRepository
	Usage        UsageRepository
	Subscription SubscriptionRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Credential:   NewCredentialRepository(db),
		Usage:        NewUsageRepository(db),
		Subscription: NewSubscriptionRepository(db),
	}
}
