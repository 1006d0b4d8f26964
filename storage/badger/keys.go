package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/tasklens/core"
)

// Key prefixes for different data types
const (
	taskPrefix          = "task"
	taskOwnerPrefix     = "taskown"
	subtaskPrefix       = "subtask"
	subtaskOwnerPrefix  = "subown"
	subtaskParentPrefix = "subpar"
	embeddingPrefix     = "embcache"
)

// makeTaskKey generates a key for a task by ID.
func makeTaskKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s", taskPrefix, id))
}

// makeSubtaskKey generates a key for a subtask by ID.
func makeSubtaskKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s", subtaskPrefix, id))
}

// makeScopePrefix generates the partial key shared by every index entry of scope.
// Format: prefix:len(scope):scope
// The length is written big endian so one owner's prefix can never be a
// prefix of another owner's keys.
func makeScopePrefix(prefix, scope string) []byte {
	head := prefix + ":"
	buf := make([]byte, len(head)+4+len(scope))
	offset := copy(buf, head)
	binary.BigEndian.PutUint32(buf[offset:], uint32(len(scope)))
	offset += 4
	copy(buf[offset:], scope)
	return buf
}

// makeScopeKey generates an index key for a record within a scope.
// Format: prefix:len(scope):scope:id
func makeScopeKey(prefix, scope string, id core.ID) []byte {
	head := makeScopePrefix(prefix, scope)
	buf := make([]byte, 0, len(head)+1+len(id))
	buf = append(buf, head...)
	buf = append(buf, ':')
	return append(buf, id...)
}

// makeTaskOwnerKey indexes a task under its owner.
func makeTaskOwnerKey(owner string, id core.ID) []byte {
	return makeScopeKey(taskOwnerPrefix, owner, id)
}

// makeSubtaskOwnerKey indexes a subtask under its owner.
func makeSubtaskOwnerKey(owner string, id core.ID) []byte {
	return makeScopeKey(subtaskOwnerPrefix, owner, id)
}

// makeSubtaskParentKey indexes a subtask under its parent task.
func makeSubtaskParentKey(parent core.ID, id core.ID) []byte {
	return makeScopeKey(subtaskParentPrefix, string(parent), id)
}

// makeEmbeddingKey generates a key for a cached embedding.
func makeEmbeddingKey(model, text string) []byte {
	head := embeddingPrefix + ":"
	buf := make([]byte, len(head)+8)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], core.IDFromContent(model+"\x00"+text))
	return buf
}
