package models

import "time"

const (
	NotificationJoin     = "join"
	NotificationLeave    = "leave"
	NotificationReaction = "reaction"
	NotificationComment  = "comment"
	NotificationReply    = "reply"
	NotificationRemoved  = "removed"
	NotificationNewPost  = "new_post"
)

// Notification is a recipient-addressed event record. It is only ever
// created as a side effect of a primary mutation and only mutated by marking it read.
type Notification struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36" firestore:"-"`
	Type           string    `json:"type" gorm:"size:30;index" firestore:"type"`
	ToUser         string    `json:"to_user" gorm:"size:128;index" firestore:"toUser"`
	FromUser       string    `json:"from_user" gorm:"size:128" firestore:"fromUser"`
	FromUserName   string    `json:"from_user_name" firestore:"fromUserName"`
	CommunityID    string    `json:"community_id,omitempty" gorm:"size:64" firestore:"communityId"`
	CommunityName  string    `json:"community_name,omitempty" firestore:"communityName"`
	PostID         string    `json:"post_id,omitempty" gorm:"size:64" firestore:"postId"`
	CommentContent string    `json:"comment_content,omitempty" firestore:"commentContent"`
	ReactionType   string    `json:"reaction_type,omitempty" gorm:"size:20" firestore:"reactionType"`
	Message        string    `json:"message" firestore:"message"`
	Read           bool      `json:"read" gorm:"default:false;index" firestore:"read"`
	CreatedAt      time.Time `json:"created_at" gorm:"index" firestore:"createdAt"`
}
