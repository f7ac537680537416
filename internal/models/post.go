package models

import "time"

// ReactionKinds is the fixed set of reactions a post accepts, in display order.
var ReactionKinds = []string{"like", "love", "laugh", "wow", "sad", "angry"}

// IsReactionKind reports whether kind is one of ReactionKinds.
func IsReactionKind(kind string) bool {
	for _, k := range ReactionKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Post is stored in MongoDB with its comments and replies embedded.
// Author display fields are captured when the post is created.
type Post struct {
	ID                string              `json:"id" bson:"_id"`
	CommunityID       string              `json:"community_id" bson:"community_id"`
	UID               string              `json:"uid" bson:"uid"`
	AuthorDisplayName string              `json:"author_display_name" bson:"author_display_name"`
	AuthorPhotoURL    *string             `json:"author_photo_url" bson:"author_photo_url"`
	Content           string              `json:"content" bson:"content"`
	MediaURL          string              `json:"media_url,omitempty" bson:"media_url,omitempty"`
	Reactions         map[string][]string `json:"reactions" bson:"reactions"`
	Comments          []Comment           `json:"comments" bson:"comments"`
	CreatedAt         time.Time           `json:"created_at" bson:"created_at"`
}

// Comment is embedded in Post, newest first.
type Comment struct {
	ID                   string    `json:"id" bson:"id"`
	CreatedBy            string    `json:"created_by" bson:"created_by"`
	CreatedByDisplayName string    `json:"created_by_display_name" bson:"created_by_display_name"`
	Content              string    `json:"content" bson:"content"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at"`
	Replies              []Reply   `json:"replies" bson:"replies"`
}

// Reply is embedded in Comment, oldest first.
type Reply struct {
	ID                   string    `json:"id" bson:"id"`
	CreatedBy            string    `json:"created_by" bson:"created_by"`
	CreatedByDisplayName string    `json:"created_by_display_name" bson:"created_by_display_name"`
	Content              string    `json:"content" bson:"content"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at"`
}

type CreatePostRequest struct {
	Content  string `json:"content" validate:"max=5000"`
	MediaURL string `json:"media_url,omitempty" validate:"omitempty,url"`
}

type ReactRequest struct {
	Kind string `json:"kind" validate:"required"`
}

type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// Clone returns a deep copy of p.
func (p *Post) Clone() *Post {
	cp := *p
	if p.AuthorPhotoURL != nil {
		photo := *p.AuthorPhotoURL
		cp.AuthorPhotoURL = &photo
	}
	cp.Reactions = make(map[string][]string, len(p.Reactions))
	for kind, users := range p.Reactions {
		cp.Reactions[kind] = append([]string(nil), users...)
	}
	cp.Comments = make([]Comment, len(p.Comments))
	for i, c := range p.Comments {
		c.Replies = append([]Reply(nil), c.Replies...)
		cp.Comments[i] = c
	}
	return &cp
}

// HasReacted reports whether userID is listed under kind.
func (p *Post) HasReacted(userID, kind string) bool {
	for _, id := range p.Reactions[kind] {
		if id == userID {
			return true
		}
	}
	return false
}

// ToggleReaction adds or removes userID under kind and reports whether the
// reaction is active afterwards.
func (p *Post) ToggleReaction(userID, kind string) bool {
	if p.Reactions == nil {
		p.Reactions = map[string][]string{}
	}
	users := p.Reactions[kind]
	for i, id := range users {
		if id == userID {
			p.Reactions[kind] = append(users[:i:i], users[i+1:]...)
			return false
		}
	}
	p.Reactions[kind] = append(users, userID)
	return true
}

// FindComment returns the index of the comment with the given id, or -1.
func (p *Post) FindComment(commentID string) int {
	for i := range p.Comments {
		if p.Comments[i].ID == commentID {
			return i
		}
	}
	return -1
}

// InsertComment places c at position i, clamped to the slice bounds.
func (p *Post) InsertComment(i int, c Comment) {
	if i < 0 {
		i = 0
	}
	if i > len(p.Comments) {
		i = len(p.Comments)
	}
	p.Comments = append(p.Comments, Comment{})
	copy(p.Comments[i+1:], p.Comments[i:])
	p.Comments[i] = c
}

// RemoveComment drops the comment with the given id and returns it with its former position.
func (p *Post) RemoveComment(commentID string) (Comment, int, bool) {
	i := p.FindComment(commentID)
	if i < 0 {
		return Comment{}, -1, false
	}
	c := p.Comments[i]
	p.Comments = append(p.Comments[:i:i], p.Comments[i+1:]...)
	return c, i, true
}

// AppendReply adds r to the comment with the given id.
func (p *Post) AppendReply(commentID string, r Reply) bool {
	i := p.FindComment(commentID)
	if i < 0 {
		return false
	}
	p.Comments[i].Replies = append(p.Comments[i].Replies, r)
	return true
}

// FindReply returns the reply with the given ids.
func (p *Post) FindReply(commentID, replyID string) (*Reply, bool) {
	i := p.FindComment(commentID)
	if i < 0 {
		return nil, false
	}
	for j := range p.Comments[i].Replies {
		if p.Comments[i].Replies[j].ID == replyID {
			return &p.Comments[i].Replies[j], true
		}
	}
	return nil, false
}

// RemoveReply drops a reply and returns it with its former position.
func (p *Post) RemoveReply(commentID, replyID string) (Reply, int, bool) {
	i := p.FindComment(commentID)
	if i < 0 {
		return Reply{}, -1, false
	}
	replies := p.Comments[i].Replies
	for j, r := range replies {
		if r.ID == replyID {
			p.Comments[i].Replies = append(replies[:j:j], replies[j+1:]...)
			return r, j, true
		}
	}
	return Reply{}, -1, false
}

// InsertReply places r at position j of the comment's replies.
func (p *Post) InsertReply(commentID string, j int, r Reply) bool {
	i := p.FindComment(commentID)
	if i < 0 {
		return false
	}
	replies := p.Comments[i].Replies
	if j < 0 {
		j = 0
	}
	if j > len(replies) {
		j = len(replies)
	}
	replies = append(replies, Reply{})
	copy(replies[j+1:], replies[j:])
	replies[j] = r
	p.Comments[i].Replies = replies
	return true
}
