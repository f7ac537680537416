package main

import (
	"context"
	"fmt"
	"log"

	"github.com/anonto42/niche-communities/backend/internal/auth"
	"github.com/anonto42/niche-communities/backend/internal/repositories"
	"github.com/anonto42/niche-communities/backend/internal/repositories/memory"
	"github.com/anonto42/niche-communities/backend/pkg/config"
	"github.com/anonto42/niche-communities/backend/pkg/firebase"
)

// backends is the storage and identity layer the services are built on
type backends struct {
	users             repositories.UserRepository
	communities       repositories.CommunityRepository
	memberships       repositories.MembershipRepository
	posts             repositories.PostRepository
	notifications     repositories.NotificationRepository
	pushSubscriptions repositories.PushSubscriptionRepository
	provider          auth.Provider

	// feed is set when notifications live in Postgres
	feed    *repositories.NotificationFeed
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}

	var db *config.DB
	if cfg.UseMemory() {
		store := memory.NewStore()
		b.users, b.communities, b.memberships = store, store, store
		b.posts, b.notifications, b.pushSubscriptions = store, store, store
		log.Println("Using in-memory storage.")
	} else {
		var err error
		db, err = config.InitDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("initialize databases: %w", err)
		}
		b.closers = append(b.closers, db.CloseDB)
		b.users = repositories.NewPostgresUserRepository(db.Postgres)
		b.memberships = repositories.NewPostgresMembershipRepository(db.Postgres)
		b.communities = repositories.NewMongoCommunityRepository(db.MongoDB)
		b.posts = repositories.NewMongoPostRepository(db.MongoDB)
		b.pushSubscriptions = repositories.NewMongoPushSubscriptionRepository(db.MongoDB)
	}

	var app *firebase.App
	if cfg.FirebaseCredentialsPath != "" {
		var err error
		app, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseAPIKey)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("initialize firebase: %w", err)
		}
		b.provider = firebase.NewIdentityProvider(app)
	} else {
		log.Println("FIREBASE_CREDENTIALS_PATH not set, using local accounts.")
		b.provider = auth.NewLocalProvider()
	}

	switch {
	case cfg.NotificationBackend == "firestore":
		if app == nil {
			b.close()
			return nil, fmt.Errorf("firestore notifications need FIREBASE_CREDENTIALS_PATH")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, func() {
			if err := client.Close(); err != nil {
				log.Printf("Error closing Firestore client: %v", err)
			}
		})
		b.notifications = repositories.NewFirestoreNotificationRepository(client)
		log.Println("Notifications stored in Firestore.")
	case db != nil:
		b.feed = repositories.NewNotificationFeed(cfg.PostgresConnStr)
		b.notifications = repositories.NewPostgresNotificationRepository(db.Postgres, b.feed)
		log.Println("Notifications stored in PostgreSQL.")
	}
	return b, nil
}
