package core

import (
	"testing"
)

func TestHashContent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "empty string",
			text: "",
			want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name: "abc",
			text: "abc",
			want: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HashContent(tt.text)
			if got != tt.want {
				t.Errorf("HashContent(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestHashContent_Deterministic(t *testing.T) {
	if HashContent("buy milk") != HashContent("buy milk") {
		t.Errorf("HashContent() produced different hashes for same content")
	}
	if HashContent("buy milk") == HashContent("buy milk ") {
		t.Errorf("HashContent() ignored trailing whitespace")
	}
	if got := len(HashContent("buy milk")); got != 64 {
		t.Errorf("HashContent() length = %d, want 64", got)
	}
}

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "simple content", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	if IDFromContent("content1") == IDFromContent("content2") {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestHasFreshEmbedding(t *testing.T) {
	title := "Buy milk"
	tests := []struct {
		name      string
		embedding []float32
		hash      string
		want      bool
	}{
		{name: "fresh", embedding: []float32{1, 0}, hash: HashContent(title), want: true},
		{name: "no embedding", embedding: nil, hash: HashContent(title), want: false},
		{name: "no hash", embedding: []float32{1, 0}, hash: "", want: false},
		{name: "stale hash", embedding: []float32{1, 0}, hash: HashContent("Buy bread"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{Title: title, Embedding: tt.embedding, ContentHash: tt.hash}
			if got := task.HasFreshEmbedding(); got != tt.want {
				t.Errorf("Task.HasFreshEmbedding() = %v, want %v", got, tt.want)
			}
			sub := &Subtask{Title: title, Embedding: tt.embedding, ContentHash: tt.hash}
			if got := sub.HasFreshEmbedding(); got != tt.want {
				t.Errorf("Subtask.HasFreshEmbedding() = %v, want %v", got, tt.want)
			}
			if got := task.Candidate().HasFreshEmbedding(); got != tt.want {
				t.Errorf("Candidate.HasFreshEmbedding() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCandidateProjection(t *testing.T) {
	task := &Task{Id: "t1", OwnerId: "u1", Title: "Plan trip", Priority: PriorityHigh, Status: StatusPending}
	c := task.Candidate()
	if c.Kind != KindTask || c.Id != "t1" || c.OwnerId != "u1" || c.Priority != PriorityHigh {
		t.Errorf("Task.Candidate() = %+v", c)
	}
	if c.ParentId != "" {
		t.Errorf("Task.Candidate() ParentId = %q, want empty", c.ParentId)
	}

	sub := &Subtask{Id: "s1", ParentId: "t1", OwnerId: "u1", Title: "Book hotel", Status: StatusDone}
	c = sub.Candidate()
	if c.Kind != KindSubtask || c.ParentId != "t1" || c.Status != StatusDone {
		t.Errorf("Subtask.Candidate() = %+v", c)
	}
	if c.Priority != "" {
		t.Errorf("Subtask.Candidate() Priority = %q, want empty", c.Priority)
	}

	if ref := sub.Ref(); ref.Kind != KindSubtask || ref.Id != "s1" {
		t.Errorf("Subtask.Ref() = %+v", ref)
	}
	if ref := task.Ref(); ref.Kind != KindTask || ref.Id != "t1" {
		t.Errorf("Task.Ref() = %+v", ref)
	}
}
