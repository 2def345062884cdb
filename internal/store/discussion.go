package store

import (
	"context"
	"fmt"
	"strings"
)

// OpenDiscussion starts a comment thread on a change set.
func (s *Store) OpenDiscussion(ctx context.Context, setID string) (*Discussion, error) {
	if _, err := s.ChangeSet(ctx, setID); err != nil {
		return nil, err
	}

	discussion := &Discussion{ID: s.idgen.New(), ChangeSetID: setID, CreatedAt: s.clock.Now()}
	version, err := s.database.CreateDiscussion(ctx, discussion)
	if err != nil {
		return nil, fmt.Errorf("creating discussion: %w", err)
	}
	s.publish(version, "discussion")
	return discussion, nil
}

// Discussion returns a discussion by id.
func (s *Store) Discussion(ctx context.Context, id string) (*Discussion, error) {
	discussion, err := s.database.FindDiscussion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding discussion: %w", err)
	}
	if discussion == nil {
		return nil, fmt.Errorf("%w: discussion %s", ErrNotFound, id)
	}
	return discussion, nil
}

// Discussions returns the threads on a change set, oldest first.
func (s *Store) Discussions(ctx context.Context, setID string) ([]*Discussion, error) {
	if _, err := s.ChangeSet(ctx, setID); err != nil {
		return nil, err
	}
	discussions, err := s.database.ListDiscussions(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("listing discussions: %w", err)
	}
	return discussions, nil
}

// AddComment appends an immutable comment to a discussion. Its timestamp is
// strictly after every earlier comment in the thread.
func (s *Store) AddComment(ctx context.Context, discussionID, body string) (*Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: empty comment body", ErrInvalidArgument)
	}
	if _, err := s.Discussion(ctx, discussionID); err != nil {
		return nil, err
	}

	comment, version, err := s.database.InsertComment(ctx, &Comment{
		ID:           s.idgen.New(),
		DiscussionID: discussionID,
		Body:         body,
		CreatedAt:    s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("adding comment: %w", err)
	}
	s.publish(version, "comment")
	return comment, nil
}

// Comments returns the comments of a discussion in the order they were added.
func (s *Store) Comments(ctx context.Context, discussionID string) ([]*Comment, error) {
	if _, err := s.Discussion(ctx, discussionID); err != nil {
		return nil, err
	}
	comments, err := s.database.ListComments(ctx, discussionID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return comments, nil
}
