package models

import (
	"sort"
	"strings"
	"time"
)

// DefaultCommunityPhoto is used when a community is created without a cover image.
const DefaultCommunityPhoto = "https://via.placeholder.com/150"

// Community is stored in MongoDB. Members is a projection of the membership relation.
type Community struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Category    string    `json:"category" bson:"category"`
	PhotoURL    string    `json:"photo_url" bson:"photo_url"`
	CreatedBy   string    `json:"created_by" bson:"created_by"`
	Members     []string  `json:"members" bson:"members"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// HasMember reports whether the projection lists userID.
func (c *Community) HasMember(userID string) bool {
	for _, id := range c.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with c.
func (c *Community) Clone() *Community {
	cp := *c
	cp.Members = append([]string(nil), c.Members...)
	return &cp
}

type CreateCommunityRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=80"`
	Description string `json:"description" validate:"required,max=1000"`
	Category    string `json:"category" validate:"required,max=50"`
	PhotoURL    string `json:"photo_url,omitempty" validate:"omitempty,url"`
}

type UpdateCommunityPhotoRequest struct {
	PhotoURL string `json:"photo_url" validate:"required,url"`
}

// CommunityFilter narrows and orders a community listing.
type CommunityFilter struct {
	Query    string
	Category string
	Sort     string // newest, oldest, members, name
}

// Matches reports whether c passes the query and category parts of f.
func (f CommunityFilter) Matches(c *Community) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.Description), q) {
			return false
		}
	}
	if f.Category != "" && !strings.EqualFold(c.Category, f.Category) {
		return false
	}
	return true
}

// SortCommunities orders cs in place; unknown orderings fall back to newest first.
func SortCommunities(cs []Community, by string) {
	var less func(a, b *Community) bool
	switch by {
	case "oldest":
		less = func(a, b *Community) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "members":
		less = func(a, b *Community) bool { return len(a.Members) > len(b.Members) }
	case "name":
		less = func(a, b *Community) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	default:
		less = func(a, b *Community) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(cs, func(i, j int) bool { return less(&cs[i], &cs[j]) })
}
