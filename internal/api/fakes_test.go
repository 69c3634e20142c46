package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"magicyan/internal/channel"
	"magicyan/internal/database"
	"magicyan/internal/icons"
	"magicyan/internal/idgen"
	"magicyan/internal/magicyan"
	"magicyan/internal/pdf"
	"magicyan/internal/resume"
	"magicyan/internal/storage"
)

var testNow = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryJobs struct {
	mu   sync.Mutex
	jobs map[string]database.ExportJob
}

func (m *memoryJobs) Create(_ context.Context, job *database.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.CreatedAt = testNow
	m.jobs[job.ID] = *job
	return nil
}

func (m *memoryJobs) Get(_ context.Context, id string) (*database.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, database.ErrJobNotFound
	}
	return &job, nil
}

func (m *memoryJobs) Complete(_ context.Context, id, objectKey string, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return database.ErrJobNotFound
	}
	job.Status = database.ExportCompleted
	job.ObjectKey = objectKey
	m.jobs[id] = job
	return nil
}

func (m *memoryJobs) Fail(_ context.Context, id string, code int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return database.ErrJobNotFound
	}
	job.Status = database.ExportFailed
	job.ErrorCode = code
	job.ErrorMessage = message
	m.jobs[id] = job
	return nil
}

func (m *memoryJobs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return database.ErrJobNotFound
	}
	delete(m.jobs, id)
	return nil
}

type fakeQueue struct {
	tasks []*asynq.Task
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type fakeStorage struct {
	objects  map[string][]byte
	prefixes []string
}

func (s *fakeStorage) UploadFile(_ context.Context, name string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	s.objects[name] = b
	return &minio.UploadInfo{Key: name}, nil
}

func (s *fakeStorage) StatObject(_ context.Context, key string) (storage.ObjectMeta, error) {
	b, ok := s.objects[key]
	if !ok {
		return storage.ObjectMeta{}, minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return storage.ObjectMeta{Key: key, Size: int64(len(b))}, nil
}

func (s *fakeStorage) GeneratePresignedURLWithParams(_ context.Context, key string, _ time.Duration, _ map[string]string) (string, error) {
	return "https://example.invalid/" + key, nil
}

func (s *fakeStorage) DeletePrefix(_ context.Context, prefix string) error {
	s.prefixes = append(s.prefixes, prefix)
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
		}
	}
	return nil
}

type fakeExporter struct {
	calls int
}

func (f *fakeExporter) Export(_ context.Context, doc resume.Document) (pdf.Result, error) {
	f.calls++
	return pdf.Result{
		PDF:      []byte("%PDF-1.4"),
		Filename: magicyan.PDFFilename(doc.Title, testNow),
	}, nil
}

type fakeCounter struct {
	counts map[string]int64
}

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

type fakeScanner struct {
	err error
}

func (s *fakeScanner) Scan([]byte) error { return s.err }

type stubIcons struct {
	glyphs map[resume.IconRef]icons.Glyph
}

func (s stubIcons) Prefetch(_ context.Context, refs []resume.IconRef) map[resume.IconRef]icons.Glyph {
	out := map[resume.IconRef]icons.Glyph{}
	for _, ref := range refs {
		if g, ok := s.glyphs[ref]; ok {
			out[ref] = g
		}
	}
	return out
}

func (s stubIcons) Resolve(_ context.Context, ref resume.IconRef) (icons.Glyph, bool) {
	g, ok := s.glyphs[ref]
	return g, ok
}

type stubSearcher struct {
	err error
}

func (s *stubSearcher) Search(_ context.Context, _, query string) ([]icons.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return icons.FilterCommon(query), nil
}

type testEnv struct {
	router   *gin.Engine
	codec    *magicyan.Codec
	jobs     *memoryJobs
	queue    *fakeQueue
	storage  *fakeStorage
	exporter *fakeExporter
	tickets  *channel.Tickets
	scanner  *fakeScanner
	searcher *stubSearcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec := &magicyan.Codec{Now: func() time.Time { return testNow }, AppVersion: "test"}
	env := &testEnv{
		codec:    codec,
		jobs:     &memoryJobs{jobs: map[string]database.ExportJob{}},
		queue:    &fakeQueue{},
		storage:  &fakeStorage{objects: map[string][]byte{}},
		exporter: &fakeExporter{},
		tickets:  channel.NewTickets("test-secret"),
		scanner:  &fakeScanner{},
		searcher: &stubSearcher{},
	}

	glyphs := stubIcons{glyphs: map[resume.IconRef]icons.Glyph{
		"mdi:phone": {ViewBox: "0 0 24 24", Paths: []string{"M0 0h24v24H0z"}},
	}}
	bus := channel.NewMemoryBus()
	opener := channel.NewOpener(bus, env.tickets, codec, logger, channel.OpenerOptions{
		InlineLimit:      512,
		HandshakeTimeout: 5 * time.Second,
	})
	receiver := channel.NewReceiver(bus, channel.NewMemoryStore(), codec, logger, time.Hour)

	editor := resume.Editor{NewID: idgen.Sequence()}
	documents := NewDocumentHandler(codec, editor, env.scanner, 1<<20)
	documents.now = func() time.Time { return testNow }
	exports := NewExportHandler(env.jobs, env.queue, env.storage, codec)
	exports.now = func() time.Time { return testNow }
	renderer := NewRenderHandler(glyphs, env.exporter, &fakeCounter{counts: map[string]int64{}}, 2)
	renderer.now = func() time.Time { return testNow }

	env.router = NewRouter(logger)
	RegisterRoutes(env.router, Handlers{
		Documents: documents,
		Assets:    NewAssetHandler(env.scanner, 1<<20),
		Render:    renderer,
		Exports:   exports,
		Preview:   NewPreviewHandler(opener, receiver, env.tickets, glyphs, codec),
		Icons:     NewIconHandler(env.searcher, glyphs),
		Ws:        NewWsHandler(bus, env.jobs, receiver, env.tickets, 5*time.Second, nil),
	})
	return env
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) postJSON(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return env.do(req)
}

func (env *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	return env.do(req)
}
