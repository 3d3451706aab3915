package app

import (
	"context"
	"strings"
	"sync"

	"trial-lesson-service/internal/domain"
)

// DefaultCommentMaxLength is the composer bound in UTF-16 code units.
const DefaultCommentMaxLength = 300

// AddCommentFunc posts a comment; parentID is empty for a top-level comment.
type AddCommentFunc func(ctx context.Context, content, parentID string) error

// DeleteCommentFunc removes a comment by ID.
type DeleteCommentFunc func(ctx context.Context, commentID string) error

// Composer is a bounded text input that submits through a callback.
type Composer struct {
	maxLen   int
	parentID string
	add      AddCommentFunc
	content  string
}

func NewComposer(maxLen int, parentID string, add AddCommentFunc) *Composer {
	if maxLen <= 0 {
		maxLen = DefaultCommentMaxLength
	}
	return &Composer{maxLen: maxLen, parentID: parentID, add: add}
}

// Input replaces the composer content, dropping everything past the bound.
func (c *Composer) Input(text string) {
	c.content = truncateUTF16(text, c.maxLen)
}

func (c *Composer) Content() string { return c.content }

// Remaining reports how many code units can still be typed.
func (c *Composer) Remaining() int {
	return c.maxLen - utf16Len(c.content)
}

// Submit hands the content to the add callback and clears the input once
// the callback succeeds. Blank content never reaches the callback.
func (c *Composer) Submit(ctx context.Context) error {
	content, err := c.draft()
	if err != nil {
		return err
	}
	if err := c.add(ctx, content, c.parentID); err != nil {
		return err
	}
	c.clearSent(content)
	return nil
}

func (c *Composer) draft() (string, error) {
	if strings.TrimSpace(c.content) == "" {
		return "", domain.ErrEmptyComment
	}
	return c.content, nil
}

// clearSent empties the input unless it was edited while sent was in flight.
func (c *Composer) clearSent(sent string) {
	if c.content == sent {
		c.content = ""
	}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Units(r)
	}
	return n
}

// utf16Units is the UTF-16 width of r; runes past the BMP take a surrogate pair.
func utf16Units(r rune) int {
	if r >= 0x10000 && r <= 0x10FFFF {
		return 2
	}
	return 1
}

// truncateUTF16 keeps the longest prefix of s that fits in limit UTF-16 code
// units without splitting a surrogate pair.
func truncateUTF16(s string, limit int) string {
	units := 0
	for i, r := range s {
		size := utf16Units(r)
		if units+size > limit {
			return s[:i]
		}
		units += size
	}
	return s
}

// CommentView is one rendered node of the comment tree.
type CommentView struct {
	ID         string        `json:"id"`
	AuthorName string        `json:"authorName"`
	Content    string        `json:"content"`
	CreatedAt  string        `json:"createdAt"`
	CanDelete  bool          `json:"canDelete"`
	ReplyOpen  bool          `json:"replyOpen"`
	Draft      string        `json:"draft,omitempty"`
	Replies    []CommentView `json:"replies,omitempty"`
}

// Thread renders a comment tree for one viewer and keeps the per-node reply
// toggles and reply composers. It never mutates the tree; add and delete go
// through the callbacks and the owner supplies the refreshed tree.
type Thread struct {
	viewerID string
	maxLen   int
	add      AddCommentFunc
	remove   DeleteCommentFunc

	mu      sync.Mutex
	root    *Composer
	replies map[string]*Composer
}

func NewThread(viewerID string, maxLen int, add AddCommentFunc, remove DeleteCommentFunc) *Thread {
	return &Thread{
		viewerID: viewerID,
		maxLen:   maxLen,
		add:      add,
		remove:   remove,
		root:     NewComposer(maxLen, "", add),
		replies:  make(map[string]*Composer),
	}
}

// ToggleReply opens or closes the reply box under a comment and reports
// whether it is now open.
func (t *Thread) ToggleReply(commentID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, open := t.replies[commentID]; open {
		delete(t.replies, commentID)
		return false
	}
	t.replies[commentID] = NewComposer(t.maxLen, commentID, t.add)
	return true
}

// Input types into the top-level composer, or into the open reply box of
// parentID when it is set.
func (t *Thread) Input(parentID, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, err := t.composerLocked(parentID)
	if err != nil {
		return err
	}
	c.Input(text)
	return nil
}

// Submit posts the draft of the addressed composer. A reply box closes after
// its reply is accepted.
func (t *Thread) Submit(ctx context.Context, parentID string) error {
	t.mu.Lock()
	c, err := t.composerLocked(parentID)
	var content string
	if err == nil {
		content, err = c.draft()
	}
	t.mu.Unlock()
	if err != nil {
		return err
	}

	if err := t.add(ctx, content, parentID); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	c.clearSent(content)
	if parentID != "" && t.replies[parentID] == c {
		delete(t.replies, parentID)
	}
	return nil
}

func (t *Thread) composerLocked(parentID string) (*Composer, error) {
	if parentID == "" {
		return t.root, nil
	}
	c, ok := t.replies[parentID]
	if !ok {
		return nil, domain.ErrInvalidAction
	}
	return c, nil
}

// Delete asks the owner to remove a comment; only the author's own comments
// are eligible.
func (t *Thread) Delete(ctx context.Context, tree []domain.Comment, commentID string) error {
	c, ok := findComment(tree, commentID)
	if !ok {
		return domain.ErrCommentNotFound
	}
	if t.viewerID == "" || c.AuthorID != t.viewerID {
		return domain.ErrNotCommentAuthor
	}
	return t.remove(ctx, commentID)
}

// Draft returns the top-level composer content.
func (t *Thread) Draft() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root.Content()
}

// Render walks the tree depth first, keeping the source order of children.
func (t *Thread) Render(tree []domain.Comment) []CommentView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.renderLocked(tree)
}

func (t *Thread) renderLocked(nodes []domain.Comment) []CommentView {
	if len(nodes) == 0 {
		return nil
	}
	views := make([]CommentView, len(nodes))
	for i, c := range nodes {
		reply, open := t.replies[c.ID]
		v := CommentView{
			ID:         c.ID,
			AuthorName: c.AuthorName,
			Content:    c.Content,
			CreatedAt:  c.CreatedAt.Format("2006-01-02 15:04"),
			CanDelete:  t.viewerID != "" && c.AuthorID == t.viewerID,
			ReplyOpen:  open,
			Replies:    t.renderLocked(c.Children),
		}
		if open {
			v.Draft = reply.Content()
		}
		views[i] = v
	}
	return views
}

func findComment(nodes []domain.Comment, id string) (domain.Comment, bool) {
	for _, c := range nodes {
		if c.ID == id {
			return c, true
		}
		if found, ok := findComment(c.Children, id); ok {
			return found, true
		}
	}
	return domain.Comment{}, false
}
