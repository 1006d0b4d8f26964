package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is an opaque unique identifier for tasks and subtasks.
// Repositories assign random UUID strings when a record is added.
type ID string

// HashContent returns the lowercase hex SHA-256 digest of text.
// A stored ContentHash is compared against HashContent(Title) to decide
// whether the stored embedding still describes the current title.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IDFromContent derives a compact deterministic key from text content using BLAKE2b hashing.
// It keys the embedding cache; it is not used for staleness detection.
func IDFromContent(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// Kind distinguishes tasks from subtasks.
type Kind string

const (
	KindTask    Kind = "task"
	KindSubtask Kind = "subtask"
)

// AllKinds lists every searchable record kind.
var AllKinds = []Kind{KindTask, KindSubtask}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status is the progress state shared by tasks and subtasks.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Task is a top-level unit of work owned by a single user.
type Task struct {
	Id          ID
	OwnerId     string
	Title       string
	Priority    Priority
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Embedding   []float32 // nil until the title has been embedded
	ContentHash string    // HashContent of the title the embedding was computed from
}

// Subtask is a child of a Task. Subtasks do not nest further.
type Subtask struct {
	Id          ID
	ParentId    ID
	OwnerId     string
	Title       string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Embedding   []float32
	ContentHash string
}

// HasFreshEmbedding reports whether the task's embedding was computed from its current title.
func (t *Task) HasFreshEmbedding() bool {
	return isFresh(t.Title, t.Embedding, t.ContentHash)
}

// HasFreshEmbedding reports whether the subtask's embedding was computed from its current title.
func (s *Subtask) HasFreshEmbedding() bool {
	return isFresh(s.Title, s.Embedding, s.ContentHash)
}

func isFresh(title string, embedding []float32, hash string) bool {
	return len(embedding) > 0 && hash != "" && hash == HashContent(title)
}

// Ref returns the record reference used for embedding work.
func (t *Task) Ref() RecordRef {
	return RecordRef{Kind: KindTask, Id: t.Id}
}

// Ref returns the record reference used for embedding work.
func (s *Subtask) Ref() RecordRef {
	return RecordRef{Kind: KindSubtask, Id: s.Id}
}

// Candidate projects the task onto the kind-agnostic shape used for ranking.
func (t *Task) Candidate() *Candidate {
	return &Candidate{
		Kind:        KindTask,
		Id:          t.Id,
		OwnerId:     t.OwnerId,
		Title:       t.Title,
		Priority:    t.Priority,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Embedding:   t.Embedding,
		ContentHash: t.ContentHash,
	}
}

// Candidate projects the subtask onto the kind-agnostic shape used for ranking.
func (s *Subtask) Candidate() *Candidate {
	return &Candidate{
		Kind:        KindSubtask,
		Id:          s.Id,
		ParentId:    s.ParentId,
		OwnerId:     s.OwnerId,
		Title:       s.Title,
		Status:      s.Status,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		Embedding:   s.Embedding,
		ContentHash: s.ContentHash,
	}
}

// RecordRef identifies a task or subtask.
type RecordRef struct {
	Kind Kind
	Id   ID
}

// Candidate is a searchable record of either kind.
// Priority is empty for subtasks; ParentId is empty for tasks.
type Candidate struct {
	Kind        Kind
	Id          ID
	ParentId    ID
	OwnerId     string
	Title       string
	Priority    Priority
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Embedding   []float32
	ContentHash string
}

// HasFreshEmbedding reports whether the candidate's embedding matches its title.
func (c *Candidate) HasFreshEmbedding() bool {
	return isFresh(c.Title, c.Embedding, c.ContentHash)
}

// SearchResult is a ranked candidate with its cosine similarity to the query.
type SearchResult struct {
	Candidate  *Candidate
	Similarity float64
}

// CacheEntry is a memoized embedding for an exact piece of text.
type CacheEntry struct {
	Model     string
	Text      string
	Embedding []float32
	CreatedAt time.Time
}
