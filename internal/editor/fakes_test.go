package editor

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"backend-cartorando/internal/hike"
	"backend-cartorando/internal/storage"
	"backend-cartorando/internal/track"

	"github.com/jackc/pgx/v5"
)

type polylineWrite struct {
	hikeID string
	track  track.Track
}

type fakeHikes struct {
	mu        sync.Mutex
	hikes     map[string]hike.Hike
	polylines []polylineWrite
	gpxPaths  map[string]string
	updateErr error
	pathErr   error
}

func newFakeHikes(hikes ...hike.Hike) *fakeHikes {
	f := &fakeHikes{hikes: map[string]hike.Hike{}, gpxPaths: map[string]string{}}
	for _, h := range hikes {
		f.hikes[h.ID] = h
	}
	return f
}

func (f *fakeHikes) Get(_ context.Context, id string) (hike.Hike, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hikes[id]
	if !ok {
		return hike.Hike{}, pgx.ErrNoRows
	}
	return h, nil
}

func (f *fakeHikes) UpdatePolyline(_ context.Context, id string, t track.Track) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return time.Time{}, f.updateErr
	}
	f.polylines = append(f.polylines, polylineWrite{hikeID: id, track: t})
	return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), nil
}

func (f *fakeHikes) SetGPXPath(_ context.Context, id, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pathErr != nil {
		return f.pathErr
	}
	f.gpxPaths[id] = path
	return nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (f *fakeBlobs) Upload(_ context.Context, _, path, kind string, data []byte) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.Object{}, f.err
	}
	f.objects[path] = append([]byte(nil), data...)
	return storage.Object{ID: "obj-" + path, Path: path, Kind: kind}, nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events map[string][]any
}

func (f *fakeBroadcaster) BroadcastJSON(hikeID string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events == nil {
		f.events = map[string][]any{}
	}
	f.events[hikeID] = append(f.events[hikeID], v)
	return nil
}

// blockingReader hands out its content only once release is closed. started
// is closed when the first Read begins.
type blockingReader struct {
	data    []byte
	started chan struct{}
	release chan struct{}
	once    sync.Once
	read    bool
}

func newBlockingReader(data string) *blockingReader {
	return &blockingReader{data: []byte(data), started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingReader) Read(p []byte) (int, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	if b.read {
		return 0, io.EOF
	}
	b.read = true
	return copy(p, b.data), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errRead }

var (
	errRead = errors.New("read failed")
	errIO   = errors.New("backend unavailable")
)

func strPtr(s string) *string { return &s }
