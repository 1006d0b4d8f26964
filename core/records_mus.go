package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

var (
	// ErrNegativeLength is returned when an encoded slice length is negative.
	ErrNegativeLength = errors.New("negative length")

	// ErrLengthOutOfRange is returned when an encoded slice length claims
	// more elements than the remaining bytes can hold.
	ErrLengthOutOfRange = errors.New("length exceeds remaining data")
)

// float32Size is the encoded size of one embedding component.
const float32Size = 4

// TaskMUS is the MUS serializer for Task.
var TaskMUS = taskMUS{}

// SubtaskMUS is the MUS serializer for Subtask.
var SubtaskMUS = subtaskMUS{}

// CacheEntryMUS is the MUS serializer for CacheEntry.
var CacheEntryMUS = cacheEntryMUS{}

type taskMUS struct{}

func (s taskMUS) Marshal(v Task, bs []byte) (n int) {
	n = ord.String.Marshal(string(v.Id), bs)
	n += ord.String.Marshal(v.OwnerId, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(string(v.Priority), bs[n:])
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	n += marshalEmbedding(v.Embedding, bs[n:])
	return n + ord.String.Marshal(v.ContentHash, bs[n:])
}

func (s taskMUS) Unmarshal(bs []byte) (v Task, n int, err error) {
	var (
		str string
		n1  int
	)
	str, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Id = ID(str)
	v.OwnerId, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	str, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Priority = Priority(str)
	str, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Status = Status(str)
	v.CreatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Embedding, n1, err = unmarshalEmbedding(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ContentHash, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s taskMUS) Size(v Task) (size int) {
	size = ord.String.Size(string(v.Id))
	size += ord.String.Size(v.OwnerId)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(string(v.Priority))
	size += ord.String.Size(string(v.Status))
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.UpdatedAt)
	size += sizeEmbedding(v.Embedding)
	return size + ord.String.Size(v.ContentHash)
}

type subtaskMUS struct{}

func (s subtaskMUS) Marshal(v Subtask, bs []byte) (n int) {
	n = ord.String.Marshal(string(v.Id), bs)
	n += ord.String.Marshal(string(v.ParentId), bs[n:])
	n += ord.String.Marshal(v.OwnerId, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	n += marshalEmbedding(v.Embedding, bs[n:])
	return n + ord.String.Marshal(v.ContentHash, bs[n:])
}

func (s subtaskMUS) Unmarshal(bs []byte) (v Subtask, n int, err error) {
	var (
		str string
		n1  int
	)
	str, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Id = ID(str)
	str, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ParentId = ID(str)
	v.OwnerId, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	str, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Status = Status(str)
	v.CreatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Embedding, n1, err = unmarshalEmbedding(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ContentHash, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s subtaskMUS) Size(v Subtask) (size int) {
	size = ord.String.Size(string(v.Id))
	size += ord.String.Size(string(v.ParentId))
	size += ord.String.Size(v.OwnerId)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(string(v.Status))
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.UpdatedAt)
	size += sizeEmbedding(v.Embedding)
	return size + ord.String.Size(v.ContentHash)
}

type cacheEntryMUS struct{}

func (s cacheEntryMUS) Marshal(v CacheEntry, bs []byte) (n int) {
	n = ord.String.Marshal(v.Model, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += marshalEmbedding(v.Embedding, bs[n:])
	return n + marshalTime(v.CreatedAt, bs[n:])
}

func (s cacheEntryMUS) Unmarshal(bs []byte) (v CacheEntry, n int, err error) {
	var n1 int
	v.Model, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Embedding, n1, err = unmarshalEmbedding(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (s cacheEntryMUS) Size(v CacheEntry) (size int) {
	size = ord.String.Size(v.Model)
	size += ord.String.Size(v.Text)
	size += sizeEmbedding(v.Embedding)
	return size + sizeTime(v.CreatedAt)
}

// Times are stored as UnixMicro; the zero time is stored as 0.
func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(timeToMicro(t), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	if us == 0 {
		return time.Time{}, n, nil
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(timeToMicro(t))
}

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

// Embeddings are a varint length followed by raw float32 values.
// A nil embedding and an empty one both encode as length 0 and decode as nil.
func marshalEmbedding(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalEmbedding(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, ErrNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	if length > (len(bs)-n)/float32Size {
		return nil, n, ErrLengthOutOfRange
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func sizeEmbedding(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}
