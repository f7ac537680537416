package models

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
)

// PushSubscription is a browser push endpoint registered by a user (MongoDB).
type PushSubscription struct {
	Endpoint  string               `json:"endpoint" bson:"_id"`
	UserID    string               `json:"user_id" bson:"user_id"`
	Sub       webpush.Subscription `json:"sub" bson:"sub"`
	CreatedAt time.Time            `json:"created_at" bson:"created_at"`
}

type PushSubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}
