package app

import (
	"context"
	"log"
	"sync"

	"trial-lesson-service/internal/domain"
)

// CommentService is the backend surface behind a lesson's comment board.
type CommentService interface {
	ListComments(ctx context.Context, lessonID string) ([]domain.Comment, error)
	AddComment(ctx context.Context, lessonID, content, parentID string) error
	DeleteComment(ctx context.Context, commentID string) error
}

// CommentsView is the rendered comment section of a lesson.
type CommentsView struct {
	Comments []CommentView `json:"comments"`
	Draft    string        `json:"draft"`
	Error    string        `json:"error,omitempty"`
}

const commentsLoadFailed = "Failed to load comments"

// CommentBoard owns a lesson's comment tree: it fetches it, routes the
// thread's add and delete callbacks to the backend and refetches after every
// successful mutation.
type CommentBoard struct {
	lessonID string
	svc      CommentService
	thread   *Thread

	mu      sync.RWMutex
	tree    []domain.Comment
	loadErr string
}

func NewCommentBoard(svc CommentService, lessonID, viewerID string, maxLen int) *CommentBoard {
	b := &CommentBoard{lessonID: lessonID, svc: svc}
	b.thread = NewThread(viewerID, maxLen,
		func(ctx context.Context, content, parentID string) error {
			return svc.AddComment(ctx, lessonID, content, parentID)
		},
		func(ctx context.Context, commentID string) error {
			return svc.DeleteComment(ctx, commentID)
		},
	)
	return b
}

// Refresh replaces the tree with the backend's current one.
func (b *CommentBoard) Refresh(ctx context.Context) error {
	tree, err := b.svc.ListComments(ctx, b.lessonID)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		log.Printf("list comments for lesson %s failed: %v", b.lessonID, err)
		b.loadErr = commentsLoadFailed
		return err
	}
	b.tree = tree
	b.loadErr = ""
	return nil
}

func (b *CommentBoard) Input(parentID, text string) error {
	return b.thread.Input(parentID, text)
}

func (b *CommentBoard) ToggleReply(commentID string) bool {
	return b.thread.ToggleReply(commentID)
}

// Submit posts the addressed draft and reloads the tree on success.
func (b *CommentBoard) Submit(ctx context.Context, parentID string) error {
	if err := b.thread.Submit(ctx, parentID); err != nil {
		return err
	}
	return b.Refresh(ctx)
}

// Delete removes one of the viewer's own comments and reloads the tree.
func (b *CommentBoard) Delete(ctx context.Context, commentID string) error {
	b.mu.RLock()
	tree := b.tree
	b.mu.RUnlock()
	if err := b.thread.Delete(ctx, tree, commentID); err != nil {
		return err
	}
	return b.Refresh(ctx)
}

func (b *CommentBoard) View() CommentsView {
	b.mu.RLock()
	tree, loadErr := b.tree, b.loadErr
	b.mu.RUnlock()
	return CommentsView{
		Comments: b.thread.Render(tree),
		Draft:    b.thread.Draft(),
		Error:    loadErr,
	}
}
