package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/repositories"
	"github.com/google/uuid"
)

// InteractionCoordinator applies posts, reactions, comments and replies.
// Each post mutation is mirrored into the PostView before the durable write
// and rolled back there if the write fails.
type InteractionCoordinator struct {
	posts       repositories.PostRepository
	communities repositories.CommunityRepository
	memberships repositories.MembershipRepository
	users       repositories.UserRepository
	notifier    *Notifier
	view        *PostView
	logger      *slog.Logger
	now         func() time.Time
}

func NewInteractionCoordinator(
	posts repositories.PostRepository,
	communities repositories.CommunityRepository,
	memberships repositories.MembershipRepository,
	users repositories.UserRepository,
	notifier *Notifier,
	view *PostView,
) *InteractionCoordinator {
	return &InteractionCoordinator{
		posts:       posts,
		communities: communities,
		memberships: memberships,
		users:       users,
		notifier:    notifier,
		view:        view,
		logger:      slog.Default().With("component", "interaction"),
		now:         time.Now,
	}
}

// CreatePost publishes a post in a community the author belongs to and
// notifies the community creator.
func (c *InteractionCoordinator) CreatePost(ctx context.Context, userID, communityID string, req models.CreatePostRequest) (post *models.Post, err error) {
	defer func() { observe("create_post", err) }()

	content := strings.TrimSpace(req.Content)
	mediaURL := strings.TrimSpace(req.MediaURL)
	if content == "" && mediaURL == "" {
		return nil, ErrEmptyContent
	}
	community, err := c.communities.GetCommunityByID(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("get community: %w", err)
	}
	member, err := c.memberships.IsMember(ctx, userID, communityID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, fmt.Errorf("%w: only members can post", ErrForbidden)
	}
	author, err := c.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get author: %w", err)
	}

	post = &models.Post{
		CommunityID:       communityID,
		UID:               userID,
		AuthorDisplayName: author.Name(),
		AuthorPhotoURL:    author.PhotoURL,
		Content:           content,
		MediaURL:          mediaURL,
		Reactions:         map[string][]string{},
		Comments:          []models.Comment{},
	}
	if err := c.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	c.view.Reconcile(post)

	c.notifier.Notify(ctx, &models.Notification{
		Type:          models.NotificationNewPost,
		ToUser:        community.CreatedBy,
		FromUser:      userID,
		FromUserName:  author.Name(),
		CommunityID:   communityID,
		CommunityName: community.Name,
		PostID:        post.ID,
	})
	return post, nil
}

// GetPost returns a post, with any in-flight optimistic changes applied.
func (c *InteractionCoordinator) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	if c.view.Pending(postID) {
		if post, ok := c.view.Get(postID); ok {
			return post, nil
		}
	}
	post, err := c.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	c.view.Reconcile(post)
	return post, nil
}

// ListPosts returns a community's posts, newest first.
func (c *InteractionCoordinator) ListPosts(ctx context.Context, communityID string) ([]models.Post, error) {
	if _, err := c.communities.GetCommunityByID(ctx, communityID); err != nil {
		return nil, fmt.Errorf("get community: %w", err)
	}
	posts, err := c.posts.GetPostsByCommunityID(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// DeletePost removes a post; only its author may.
func (c *InteractionCoordinator) DeletePost(ctx context.Context, userID, postID string) (err error) {
	defer func() { observe("delete_post", err) }()

	post, err := c.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UID != userID {
		return ErrForbidden
	}
	if err := c.posts.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	c.view.Forget(postID)
	return nil
}

// React toggles userID's reaction of the given kind. Only the write that
// actually inserts the reaction notifies the post author; a racing duplicate
// toggle that finds it already present stays silent.
func (c *InteractionCoordinator) React(ctx context.Context, userID, postID, kind string) (post *models.Post, err error) {
	defer func() { observe("react", err) }()

	if !models.IsReactionKind(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReaction, kind)
	}
	current, err := c.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	activate := !current.HasReacted(userID, kind)

	toggle := func(p *models.Post) { p.ToggleReaction(userID, kind) }
	pending := c.view.begin(current, postMutation{apply: toggle, inverse: toggle})
	added := false
	if activate {
		post, added, err = c.posts.AddReaction(ctx, postID, kind, userID)
	} else {
		post, err = c.posts.RemoveReaction(ctx, postID, kind, userID)
	}
	if err != nil {
		pending.Rollback()
		return nil, fmt.Errorf("toggle reaction: %w", err)
	}
	pending.Commit(post)

	if added {
		c.notifier.Notify(ctx, &models.Notification{
			Type:          models.NotificationReaction,
			ToUser:        post.UID,
			FromUser:      userID,
			FromUserName:  displayName(ctx, c.users, userID),
			CommunityID:   post.CommunityID,
			CommunityName: c.communityName(ctx, post.CommunityID),
			PostID:        post.ID,
			ReactionType:  kind,
		})
	}
	return post, nil
}

// AddComment prepends a comment to the post and notifies the post author.
func (c *InteractionCoordinator) AddComment(ctx context.Context, userID, postID, content string) (post *models.Post, err error) {
	defer func() { observe("add_comment", err) }()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	current, err := c.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	name := displayName(ctx, c.users, userID)
	comment := models.Comment{
		ID:                   uuid.NewString(),
		CreatedBy:            userID,
		CreatedByDisplayName: name,
		Content:              content,
		CreatedAt:            c.now(),
		Replies:              []models.Reply{},
	}

	pending := c.view.begin(current, postMutation{
		apply:   func(p *models.Post) { p.InsertComment(0, comment) },
		inverse: func(p *models.Post) { p.RemoveComment(comment.ID) },
	})
	post, err = c.posts.PrependComment(ctx, postID, comment)
	if err != nil {
		pending.Rollback()
		return nil, fmt.Errorf("add comment: %w", err)
	}
	pending.Commit(post)

	c.notifier.Notify(ctx, &models.Notification{
		Type:           models.NotificationComment,
		ToUser:         post.UID,
		FromUser:       userID,
		FromUserName:   name,
		CommunityID:    post.CommunityID,
		CommunityName:  c.communityName(ctx, post.CommunityID),
		PostID:         post.ID,
		CommentContent: content,
	})
	return post, nil
}

// AddReply appends a reply to a comment and notifies the comment's author.
func (c *InteractionCoordinator) AddReply(ctx context.Context, userID, postID, commentID, content string) (post *models.Post, err error) {
	defer func() { observe("add_reply", err) }()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	current, err := c.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	i := current.FindComment(commentID)
	if i < 0 {
		return nil, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	commentAuthor := current.Comments[i].CreatedBy

	name := displayName(ctx, c.users, userID)
	reply := models.Reply{
		ID:                   uuid.NewString(),
		CreatedBy:            userID,
		CreatedByDisplayName: name,
		Content:              content,
		CreatedAt:            c.now(),
	}

	pending := c.view.begin(current, postMutation{
		apply:   func(p *models.Post) { p.AppendReply(commentID, reply) },
		inverse: func(p *models.Post) { p.RemoveReply(commentID, reply.ID) },
	})
	post, err = c.posts.AppendReply(ctx, postID, commentID, reply)
	if err != nil {
		pending.Rollback()
		return nil, fmt.Errorf("add reply: %w", err)
	}
	pending.Commit(post)

	c.notifier.Notify(ctx, &models.Notification{
		Type:           models.NotificationReply,
		ToUser:         commentAuthor,
		FromUser:       userID,
		FromUserName:   name,
		CommunityID:    post.CommunityID,
		CommunityName:  c.communityName(ctx, post.CommunityID),
		PostID:         post.ID,
		CommentContent: content,
	})
	return post, nil
}

// DeleteComment removes a comment and its replies; only its author may.
func (c *InteractionCoordinator) DeleteComment(ctx context.Context, userID, postID, commentID string) (post *models.Post, err error) {
	defer func() { observe("delete_comment", err) }()

	current, err := c.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	i := current.FindComment(commentID)
	if i < 0 {
		return nil, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	if current.Comments[i].CreatedBy != userID {
		return nil, ErrForbidden
	}

	var (
		removed  models.Comment
		position int
		ok       bool
	)
	pending := c.view.begin(current, postMutation{
		apply: func(p *models.Post) { removed, position, ok = p.RemoveComment(commentID) },
		inverse: func(p *models.Post) {
			if ok {
				p.InsertComment(position, removed)
			}
		},
	})
	post, err = c.posts.RemoveComment(ctx, postID, commentID)
	if err != nil {
		pending.Rollback()
		return nil, fmt.Errorf("delete comment: %w", err)
	}
	pending.Commit(post)
	return post, nil
}

// DeleteReply removes a reply; only its author may.
func (c *InteractionCoordinator) DeleteReply(ctx context.Context, userID, postID, commentID, replyID string) (post *models.Post, err error) {
	defer func() { observe("delete_reply", err) }()

	current, err := c.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	reply, found := current.FindReply(commentID, replyID)
	if !found {
		return nil, fmt.Errorf("reply %s: %w", replyID, ErrNotFound)
	}
	if reply.CreatedBy != userID {
		return nil, ErrForbidden
	}

	var (
		removed  models.Reply
		position int
		ok       bool
	)
	pending := c.view.begin(current, postMutation{
		apply: func(p *models.Post) { removed, position, ok = p.RemoveReply(commentID, replyID) },
		inverse: func(p *models.Post) {
			if ok {
				p.InsertReply(commentID, position, removed)
			}
		},
	})
	post, err = c.posts.RemoveReply(ctx, postID, commentID, replyID)
	if err != nil {
		pending.Rollback()
		return nil, fmt.Errorf("delete reply: %w", err)
	}
	pending.Commit(post)
	return post, nil
}

func (c *InteractionCoordinator) communityName(ctx context.Context, communityID string) string {
	community, err := c.communities.GetCommunityByID(ctx, communityID)
	if err != nil {
		c.logger.WarnContext(ctx, "community lookup for notification failed", "community_id", communityID, "error", err)
		return ""
	}
	return community.Name
}
