// Package push delivers stored notifications to subscribed browsers.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/repositories"
	"github.com/anonto42/niche-communities/backend/internal/services"
)

var _ services.Pusher = (*WebPusher)(nil)

type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	TTL             int
}

type WebPusher struct {
	subs   repositories.PushSubscriptionRepository
	cfg    Config
	send   func(ctx context.Context, payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)
	logger *slog.Logger
}

func NewWebPusher(subs repositories.PushSubscriptionRepository, cfg Config) *WebPusher {
	if cfg.TTL == 0 {
		cfg.TTL = 30
	}
	return &WebPusher{
		subs:   subs,
		cfg:    cfg,
		send:   webpush.SendNotificationWithContext,
		logger: slog.Default().With("component", "webpush"),
	}
}

type payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

// Push sends n to every browser the recipient subscribed. Subscriptions the
// push service reports as gone are deleted.
func (p *WebPusher) Push(ctx context.Context, n *models.Notification) error {
	subs, err := p.subs.GetPushSubscriptions(ctx, n.ToUser)
	if err != nil {
		return fmt.Errorf("load push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	data := map[string]any{"notification_id": n.ID, "type": n.Type}
	if target, ok := services.Target(n); ok {
		data["url"] = target
	}
	body, err := json.Marshal(payload{Title: "Niche Communities", Body: n.Message, Data: data})
	if err != nil {
		return err
	}

	var errs []error
	for i := range subs {
		sub := subs[i]
		resp, err := p.send(ctx, body, &sub.Sub, &webpush.Options{
			Subscriber:      p.cfg.Subscriber,
			VAPIDPublicKey:  p.cfg.VAPIDPublicKey,
			VAPIDPrivateKey: p.cfg.VAPIDPrivateKey,
			TTL:             p.cfg.TTL,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
			p.logger.Info("push subscription expired, deleting", "user_id", sub.UserID)
			if err := p.subs.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
				errs = append(errs, err)
			}
		case resp.StatusCode >= 400:
			errs = append(errs, fmt.Errorf("push service returned %d", resp.StatusCode))
		}
	}
	return errors.Join(errs...)
}
