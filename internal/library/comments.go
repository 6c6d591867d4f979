package library

import (
	"context"
	"fmt"
	"strings"

	"sopline.io/internal/ids"
	"sopline.io/internal/rbac"
)

const maxCommentLength = 4000

// publishedSOP resolves an SOP that accepts comments from actor.
func (s *Service) publishedSOP(ctx context.Context, actor rbac.Caller, sopID string) (SOP, error) {
	sop, err := s.loadSOP(ctx, actor, sopID, rbac.ActionView)
	if err != nil {
		return SOP{}, err
	}
	if !sop.Published {
		return SOP{}, fmt.Errorf("%w: sop", ErrNotFound)
	}
	return sop, nil
}

func cleanCommentBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: comment body is required", ErrInvalidInput)
	}
	if len([]rune(body)) > maxCommentLength {
		return "", fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidInput, maxCommentLength)
	}
	return body, nil
}

// ListComments returns the comments of a published SOP oldest first.
func (s *Service) ListComments(ctx context.Context, actor rbac.Caller, sopID string) ([]Comment, error) {
	sop, err := s.publishedSOP(ctx, actor, sopID)
	if err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, sop.ID)
}

func (s *Service) AddComment(ctx context.Context, actor rbac.Caller, sopID string, in CommentInput) (Comment, error) {
	sop, err := s.publishedSOP(ctx, actor, sopID)
	if err != nil {
		return Comment{}, err
	}
	body, err := cleanCommentBody(in.Body)
	if err != nil {
		return Comment{}, err
	}
	if in.Timestamp != nil && *in.Timestamp < 0 {
		return Comment{}, fmt.Errorf("%w: timestamp must not be negative", ErrInvalidInput)
	}
	parentID := strings.TrimSpace(in.ParentID)
	if parentID != "" {
		if _, err := s.store.GetComment(ctx, sop.ID, parentID); err != nil {
			return Comment{}, hideMissing(err, "parent comment")
		}
	}
	return s.store.CreateComment(ctx, Comment{
		ID:        ids.New(),
		SOPID:     sop.ID,
		ParentID:  parentID,
		Author:    Author{ID: actor.UserID},
		Body:      body,
		Timestamp: in.Timestamp,
		CreatedAt: s.now().UTC(),
	})
}

// EditComment changes the body of the actor's own comment.
func (s *Service) EditComment(ctx context.Context, actor rbac.Caller, sopID, id, body string) (Comment, error) {
	sop, err := s.publishedSOP(ctx, actor, sopID)
	if err != nil {
		return Comment{}, err
	}
	c, err := s.store.GetComment(ctx, sop.ID, strings.TrimSpace(id))
	if err != nil {
		return Comment{}, hideMissing(err, "comment")
	}
	if c.Author.ID != actor.UserID {
		return Comment{}, fmt.Errorf("%w: only the author can edit a comment", ErrForbidden)
	}
	body, err = cleanCommentBody(body)
	if err != nil {
		return Comment{}, err
	}
	return s.store.UpdateComment(ctx, sop.ID, c.ID, body, s.now().UTC())
}

// DeleteComment removes a comment and its replies. Authors may delete their
// own comments, moderators anyone's.
func (s *Service) DeleteComment(ctx context.Context, actor rbac.Caller, sopID, id string) error {
	sop, err := s.publishedSOP(ctx, actor, sopID)
	if err != nil {
		return err
	}
	c, err := s.store.GetComment(ctx, sop.ID, strings.TrimSpace(id))
	if err != nil {
		return hideMissing(err, "comment")
	}
	if c.Author.ID != actor.UserID && !rbac.CanDeleteResource(actor, sop.Resource()) {
		return fmt.Errorf("%w: only the author or a moderator can delete a comment", ErrForbidden)
	}
	return s.store.DeleteComment(ctx, sop.ID, c.ID)
}
