package services

import (
	"time"

	"lyceum/internal/models"
	"lyceum/internal/utils"
)

// Author is the denormalised projection embedded in comment responses.
type Author struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Image       string      `json:"image"`
	DisplayName string      `json:"displayName"`
	Role        models.Role `json:"role"`
}

func authorOf(u models.User) Author {
	a := Author{
		ID:          u.ID,
		Name:        u.Name,
		Image:       u.Image,
		DisplayName: u.Name,
		Role:        models.RoleUser,
	}
	if u.Profile != nil {
		if u.Profile.DisplayName != "" {
			a.DisplayName = u.Profile.DisplayName
		}
		if u.Profile.Role != "" {
			a.Role = u.Profile.Role
		}
	}
	return a
}

type CommentView struct {
	ID          string     `json:"id"`
	PostID      string     `json:"postId"`
	ParentID    *string    `json:"parentId"`
	Content     string     `json:"content"`
	ContentHTML string     `json:"contentHtml"`
	IsDeleted   bool       `json:"isDeleted"`
	DeletedAt   *time.Time `json:"deletedAt"`
	AuthorID    string     `json:"authorId"`
	Author      Author     `json:"author"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func commentView(c models.Comment) CommentView {
	v := CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		ParentID:  c.ParentID,
		Content:   c.Content,
		IsDeleted: c.IsDeleted,
		DeletedAt: c.DeletedAt,
		AuthorID:  c.AuthorID,
		Author:    authorOf(c.Author),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if v.Author.ID == "" {
		v.Author.ID = c.AuthorID
	}
	if !c.IsDeleted {
		v.ContentHTML = utils.RenderMarkdown(c.Content)
	}
	return v
}

// CommentNode is one comment of a thread with its direct replies.
type CommentNode struct {
	CommentView
	Replies []*CommentNode `json:"replies"`
}

// VoteView keeps the two-column wire shape: exactly one of PostID / CommentID is set.
type VoteView struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	PostID    *string          `json:"postId"`
	CommentID *string          `json:"commentId"`
	Value     models.VoteValue `json:"value"`
}

func voteView(v models.Vote) *VoteView {
	view := &VoteView{ID: v.ID, UserID: v.UserID, Value: v.Value}
	id := v.Target.ID
	switch v.Target.Type {
	case models.TargetPost:
		view.PostID = &id
	case models.TargetComment:
		view.CommentID = &id
	}
	return view
}

type PostView struct {
	models.Post
	ContentHTML string `json:"contentHtml"`
}
