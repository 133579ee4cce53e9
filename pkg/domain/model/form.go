package model

import (
	"sort"
	"strings"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
)

// FileBlob is a pending file chosen for a file field
type FileBlob struct {
	Name        string
	ContentType string
	Data        []byte
}

// FormState maps field paths to their current values. A value is a string, a
// number, a *FileBlob, a []*FileBlob (file list), a config.Option (relation)
// or whatever a custom field stores.
type FormState map[string]any

// Clone returns a shallow copy. File blobs are shared, not copied.
func (s FormState) Clone() FormState {
	cloned := make(FormState, len(s))
	for k, v := range s {
		if list, ok := v.([]*FileBlob); ok {
			copied := make([]*FileBlob, len(list))
			copy(copied, list)
			v = copied
		}
		cloned[k] = v
	}
	return cloned
}

// Paths returns the paths of the state in sorted order
func (s FormState) Paths() []string {
	paths := make([]string, 0, len(s))
	for k := range s {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}

// IsEmptyValue reports whether v counts as "not filled in"
func IsEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case *FileBlob:
		return val == nil
	case []*FileBlob:
		return len(val) == 0 || val[0] == nil
	case config.Option:
		return IsEmptyValue(val.Value)
	case *config.Option:
		return val == nil || IsEmptyValue(val.Value)
	default:
		return false
	}
}

// PendingBlob normalizes a file field value. A file list collapses to its
// first element. It returns false when v holds no pending blob (an already
// uploaded URL string, for example).
func PendingBlob(v any) (*FileBlob, bool) {
	switch val := v.(type) {
	case *FileBlob:
		return val, val != nil
	case []*FileBlob:
		if len(val) == 0 || val[0] == nil {
			return nil, false
		}
		return val[0], true
	default:
		return nil, false
	}
}
