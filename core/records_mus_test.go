package core

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

func TestTaskMUS(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	tests := []struct {
		name string
		task Task
	}{
		{
			name: "full task",
			task: Task{
				Id: "a1b2", OwnerId: "user-1", Title: "Buy milk",
				Priority: PriorityHigh, Status: StatusInProgress,
				CreatedAt: now, UpdatedAt: now.Add(time.Minute),
				Embedding: []float32{0.25, -1, 3.5}, ContentHash: HashContent("Buy milk"),
			},
		},
		{
			name: "unembedded task",
			task: Task{Id: "x", OwnerId: "user-2", Title: "Write report", Priority: PriorityLow, Status: StatusPending, CreatedAt: now, UpdatedAt: now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs := make([]byte, TaskMUS.Size(tt.task))
			n := TaskMUS.Marshal(tt.task, bs)
			if n != len(bs) {
				t.Fatalf("Marshal() wrote %d bytes, Size() = %d", n, len(bs))
			}
			got, n2, err := TaskMUS.Unmarshal(bs)
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if n2 != n {
				t.Errorf("Unmarshal() read %d bytes, want %d", n2, n)
			}
			if !reflect.DeepEqual(got, tt.task) {
				t.Errorf("Unmarshal() = %+v, want %+v", got, tt.task)
			}
		})
	}
}

func TestSubtaskMUS(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	sub := Subtask{
		Id: "s1", ParentId: "t1", OwnerId: "user-1", Title: "Call the store",
		Status: StatusDone, CreatedAt: now, UpdatedAt: now,
		Embedding: []float32{1, 0}, ContentHash: HashContent("Call the store"),
	}
	bs := make([]byte, SubtaskMUS.Size(sub))
	SubtaskMUS.Marshal(sub, bs)
	got, _, err := SubtaskMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(got, sub) {
		t.Errorf("Unmarshal() = %+v, want %+v", got, sub)
	}
}

func TestCacheEntryMUS(t *testing.T) {
	entry := CacheEntry{Model: "nomic-embed-text", Text: "buy milk", Embedding: []float32{0.5, 0.5}, CreatedAt: time.UnixMicro(1700000000000000).UTC()}
	bs := make([]byte, CacheEntryMUS.Size(entry))
	CacheEntryMUS.Marshal(entry, bs)
	got, _, err := CacheEntryMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(got, entry) {
		t.Errorf("Unmarshal() = %+v, want %+v", got, entry)
	}
}

func TestTaskMUS_Truncated(t *testing.T) {
	task := Task{Id: "a", OwnerId: "u", Title: "Buy milk", Priority: PriorityLow, Status: StatusPending, Embedding: []float32{1, 2, 3}}
	bs := make([]byte, TaskMUS.Size(task))
	TaskMUS.Marshal(task, bs)
	if _, _, err := TaskMUS.Unmarshal(bs[:len(bs)/2]); err == nil {
		t.Errorf("Unmarshal() of truncated data returned no error")
	}
	if _, _, err := TaskMUS.Unmarshal(nil); err == nil {
		t.Errorf("Unmarshal() of empty data returned no error")
	}
}

func TestUnmarshalEmbedding_LengthBeyondData(t *testing.T) {
	// a huge element count followed by a single float
	bs := make([]byte, varint.Int.Size(1<<30)+4)
	n := varint.Int.Marshal(1<<30, bs)
	raw.Float32.Marshal(1, bs[n:])

	_, _, err := unmarshalEmbedding(bs)
	if !errors.Is(err, ErrLengthOutOfRange) {
		t.Errorf("unmarshalEmbedding() error = %v, want %v", err, ErrLengthOutOfRange)
	}

	// one byte short of the declared three floats
	bs = make([]byte, sizeEmbedding([]float32{1, 2, 3}))
	marshalEmbedding([]float32{1, 2, 3}, bs)
	if _, _, err := unmarshalEmbedding(bs[:len(bs)-1]); !errors.Is(err, ErrLengthOutOfRange) {
		t.Errorf("unmarshalEmbedding() of short data error = %v, want %v", err, ErrLengthOutOfRange)
	}

	got, _, err := unmarshalEmbedding(bs)
	if err != nil || len(got) != 3 {
		t.Errorf("unmarshalEmbedding() = %v, %v, want 3 floats", got, err)
	}
}
