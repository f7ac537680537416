package services

import (
	"fmt"

	"github.com/anonto42/niche-communities/backend/internal/models"
)

// Describe renders the sentence shown for a notification.
func Describe(n *models.Notification) string {
	switch n.Type {
	case models.NotificationReaction:
		return fmt.Sprintf("%s reacted with %s to your post", n.FromUserName, n.ReactionType)
	case models.NotificationComment:
		return fmt.Sprintf("%s commented on your post: \"%s\"", n.FromUserName, n.CommentContent)
	case models.NotificationReply:
		return fmt.Sprintf("%s replied to your comment: \"%s\"", n.FromUserName, n.CommentContent)
	case models.NotificationJoin:
		return fmt.Sprintf("%s joined your community \"%s\"", n.FromUserName, n.CommunityName)
	case models.NotificationLeave:
		return fmt.Sprintf("%s left your community \"%s\"", n.FromUserName, n.CommunityName)
	case models.NotificationNewPost:
		return fmt.Sprintf("%s created a new post in your community \"%s\"", n.FromUserName, n.CommunityName)
	case models.NotificationRemoved:
		return fmt.Sprintf("%s removed you from the community \"%s\"", n.FromUserName, n.CommunityName)
	default:
		return "New notification"
	}
}

// Target returns the client path a notification links to, if any.
func Target(n *models.Notification) (string, bool) {
	switch n.Type {
	case models.NotificationComment, models.NotificationReply, models.NotificationReaction:
		return fmt.Sprintf("/community/%s#post-%s", n.CommunityID, n.PostID), true
	case models.NotificationJoin, models.NotificationLeave, models.NotificationNewPost:
		return "/community/" + n.CommunityID, true
	default:
		return "", false
	}
}
