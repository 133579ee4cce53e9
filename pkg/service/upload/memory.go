package upload

import (
	"context"
	"strings"
	"sync"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// Stored is one upload kept by Memory
type Stored struct {
	Location string
	Path     string
	Blob     model.FileBlob
}

// Memory keeps uploads in process. It serves development runs and tests.
type Memory struct {
	mu      sync.Mutex
	baseURL string
	stored  []Stored
	failOn  map[string]error
}

var _ interfaces.Uploader = &Memory{}

// NewMemory creates an uploader whose public URLs start with baseURL
func NewMemory(baseURL string) *Memory {
	return &Memory{
		baseURL: strings.TrimRight(baseURL, "/"),
		failOn:  make(map[string]error),
	}
}

// FailOn makes every upload to location fail with err
func (m *Memory) FailOn(location string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[location] = err
}

func (m *Memory) Upload(ctx context.Context, location string, blob *model.FileBlob) (string, error) {
	if blob == nil {
		return "", goerr.Wrap(model.ErrUpload, "no file to upload", goerr.V(model.LocationKey, location))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failOn[location]; ok {
		return "", goerr.Wrap(model.ErrUpload, "upload rejected",
			goerr.V(model.LocationKey, location),
			goerr.V("cause", err.Error()))
	}

	p := objectPath(location, blob)
	stored := Stored{Location: location, Path: p, Blob: *blob}
	stored.Blob.Data = append([]byte(nil), blob.Data...)
	m.stored = append(m.stored, stored)
	return p, nil
}

func (m *Memory) PublicURL(path string) string {
	return m.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Uploads returns every upload in the order it happened
func (m *Memory) Uploads() []Stored {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Stored(nil), m.stored...)
}

// Open returns the stored blob for path
func (m *Memory) Open(path string) (*model.FileBlob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.stored {
		if m.stored[i].Path == path {
			blob := m.stored[i].Blob
			return &blob, true
		}
	}
	return nil, false
}
