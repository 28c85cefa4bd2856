package task

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tbellam/translateq/internal/domain"
	"github.com/tbellam/translateq/internal/item"
	"github.com/tbellam/translateq/internal/translator"
)

// memStore is an in-memory Store. Entries are kept JSON-encoded so tests
// exercise the same decode path a durable store would, including malformed
// records.
type memStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	order   []string
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string][]byte)}
}

func (s *memStore) ListKeys(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys, nil
}

func (s *memStore) Get(_ context.Context, key string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.entries[key]
	if !ok {
		return nil, ErrTaskNotFound
	}
	var t domain.Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, ErrMalformedTask
	}
	return &t, nil
}

func (s *memStore) Put(_ context.Context, task *domain.Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := StoreKey(task.AttachmentID)
	if _, ok := s.entries[key]; !ok {
		s.order = append(s.order, key)
	}
	s.entries[key] = raw
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		for i, k := range s.order {
			if k == key {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (s *memStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]byte)
	s.order = nil
	return nil
}

// putRaw injects a raw record, bypassing encoding, for malformed-entry tests.
func (s *memStore) putRaw(key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		s.order = append(s.order, key)
	}
	s.entries[key] = raw
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// memHistory is an in-memory HistoryStore.
type memHistory struct {
	mu      sync.Mutex
	entries []domain.Task
}

func newMemHistory() *memHistory {
	return &memHistory{}
}

func (h *memHistory) Append(_ context.Context, task *domain.Task) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, *task)
	return nil
}

func (h *memHistory) List(_ context.Context, limit int) ([]domain.Task, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Task, 0, len(h.entries))
	for i := len(h.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, h.entries[i])
	}
	return out, nil
}

// mockItemStore is a configurable in-memory item.Store. Each method uses the
// corresponding Fn field when set and falls back to map-backed behavior.
type mockItemStore struct {
	mu       sync.Mutex
	refs     map[int64]item.Ref
	nextID   int64
	imported []item.ImportRequest
	tags     map[int64][]string

	GetFn              func(ctx context.Context, id int64) (item.Ref, error)
	ImportAttachmentFn func(ctx context.Context, req item.ImportRequest) (item.Ref, error)
	SetTagsFn          func(ctx context.Context, id int64, tags []string) error
}

func newMockItemStore(refs ...item.Ref) *mockItemStore {
	s := &mockItemStore{
		refs:   make(map[int64]item.Ref),
		nextID: 1000,
		tags:   make(map[int64][]string),
	}
	for _, r := range refs {
		s.refs[r.ID] = r
	}
	return s
}

func (s *mockItemStore) Get(ctx context.Context, id int64) (item.Ref, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.refs[id]
	if !ok {
		return item.Ref{}, item.ErrItemNotFound
	}
	return r, nil
}

func (s *mockItemStore) Attachments(_ context.Context, itemID int64) ([]item.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []item.Ref
	// Map order is unstable; scan by ID so tests see insertion order.
	for id := int64(0); id <= s.nextID; id++ {
		r, ok := s.refs[id]
		if ok && r.ParentID == itemID && r.IsAttachment() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *mockItemStore) ImportAttachment(ctx context.Context, req item.ImportRequest) (item.Ref, error) {
	if s.ImportAttachmentFn != nil {
		return s.ImportAttachmentFn(ctx, req)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ref := item.Ref{
		ID:          s.nextID,
		ParentID:    req.ParentID,
		Kind:        item.KindAttachment,
		Filename:    req.Title,
		Path:        req.FilePath,
		ContentType: req.ContentType,
		Collections: req.Collections,
	}
	s.refs[ref.ID] = ref
	s.imported = append(s.imported, req)
	return ref, nil
}

func (s *mockItemStore) SetTags(ctx context.Context, id int64, tags []string) error {
	if s.SetTagsFn != nil {
		return s.SetTagsFn(ctx, id, tags)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[id] = tags
	if r, ok := s.refs[id]; ok {
		r.Tags = tags
		s.refs[id] = r
	}
	return nil
}

func (s *mockItemStore) importedRequests() []item.ImportRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]item.ImportRequest, len(s.imported))
	copy(out, s.imported)
	return out
}

func (s *mockItemStore) tagsOf(id int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags[id]
}

// mockClient is a configurable translator.Client with happy-path defaults.
type mockClient struct {
	mu          sync.Mutex
	createdJobs []string // file names, in CreateJob call order
	uploads     int
	slots       int

	RequestUploadSlotFn func(ctx context.Context) (translator.UploadSlot, error)
	UploadFileFn        func(ctx context.Context, uploadURL string, data []byte, contentType string) error
	CreateJobFn         func(ctx context.Context, req translator.CreateJobRequest) (string, error)
	GetJobStatusFn      func(ctx context.Context, jobID string) (translator.JobStatus, error)
	GetJobResultFn      func(ctx context.Context, jobID string) (translator.JobResult, error)
	DownloadFileFn      func(ctx context.Context, url string) ([]byte, error)
}

func (c *mockClient) RequestUploadSlot(ctx context.Context) (translator.UploadSlot, error) {
	c.mu.Lock()
	c.slots++
	c.mu.Unlock()
	if c.RequestUploadSlotFn != nil {
		return c.RequestUploadSlotFn(ctx)
	}
	return translator.UploadSlot{ObjectKey: "obj-key", UploadURL: "https://upload.example/slot"}, nil
}

func (c *mockClient) UploadFile(ctx context.Context, uploadURL string, data []byte, contentType string) error {
	c.mu.Lock()
	c.uploads++
	c.mu.Unlock()
	if c.UploadFileFn != nil {
		return c.UploadFileFn(ctx, uploadURL, data, contentType)
	}
	return nil
}

func (c *mockClient) CreateJob(ctx context.Context, req translator.CreateJobRequest) (string, error) {
	if c.CreateJobFn != nil {
		id, err := c.CreateJobFn(ctx, req)
		if err == nil {
			c.recordJob(req.FileName)
		}
		return id, err
	}
	c.recordJob(req.FileName)
	return "job-" + req.FileName, nil
}

func (c *mockClient) GetJobStatus(ctx context.Context, jobID string) (translator.JobStatus, error) {
	if c.GetJobStatusFn != nil {
		return c.GetJobStatusFn(ctx, jobID)
	}
	return translator.JobStatus{Status: "ok", OverallProgress: 50, CurrentStageName: "translating"}, nil
}

func (c *mockClient) GetJobResult(ctx context.Context, jobID string) (translator.JobResult, error) {
	if c.GetJobResultFn != nil {
		return c.GetJobResultFn(ctx, jobID)
	}
	return translator.JobResult{
		DualURL:            "https://result.example/" + jobID + "/dual",
		TranslationOnlyURL: "https://result.example/" + jobID + "/translation",
	}, nil
}

func (c *mockClient) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	if c.DownloadFileFn != nil {
		return c.DownloadFileFn(ctx, url)
	}
	return []byte("%PDF-1.7 result"), nil
}

func (c *mockClient) recordJob(fileName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createdJobs = append(c.createdJobs, fileName)
}

func (c *mockClient) jobOrder() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.createdJobs))
	copy(out, c.createdJobs)
	return out
}

func (c *mockClient) slotRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots
}
