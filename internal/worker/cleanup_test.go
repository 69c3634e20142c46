package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magicyan/internal/database"
	"magicyan/internal/tasks"
)

func (f *fakeJobs) Finished(_ context.Context, before time.Time, limit int) ([]database.ExportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []database.ExportJob
	for _, job := range f.jobs {
		if job.Status == database.ExportPending || job.CompletedAt == nil || !job.CompletedAt.Before(before) {
			continue
		}
		out = append(out, *job)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CompletedAt.Before(*out[k].CompletedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func finishedAt(id, status string, at time.Time) *database.ExportJob {
	return &database.ExportJob{ID: id, Status: status, CompletedAt: &at}
}

func newJanitorFixture(t *testing.T) (*Janitor, *fakeJobs, *fakeArtifacts, time.Time) {
	t.Helper()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-10 * 24 * time.Hour)

	jobs := &fakeJobs{jobs: map[string]*database.ExportJob{
		"old-done":   finishedAt("old-done", database.ExportCompleted, old),
		"old-failed": finishedAt("old-failed", database.ExportFailed, old.Add(time.Hour)),
		"fresh":      finishedAt("fresh", database.ExportCompleted, now.Add(-time.Hour)),
		"pending":    {ID: "pending", Status: database.ExportPending},
	}}
	artifacts := &fakeArtifacts{objects: map[string][]byte{
		tasks.ExportObjectKey("old-done", "a.pdf"): []byte("%PDF"),
		tasks.ExportObjectKey("fresh", "b.pdf"):    []byte("%PDF"),
	}}

	janitor := NewJanitor(jobs, artifacts, 7*24*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	janitor.now = func() time.Time { return now }
	return janitor, jobs, artifacts, now
}

func remainingIDs(jobs *fakeJobs) []string {
	ids := make([]string, 0, len(jobs.jobs))
	for id := range jobs.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func TestJanitorPurgesExpiredJobs(t *testing.T) {
	janitor, jobs, artifacts, _ := newJanitorFixture(t)

	err := janitor.ProcessTask(context.Background(), tasks.NewExportCleanupTask())
	require.NoError(t, err)

	assert.Equal(t, []string{"fresh", "pending"}, remainingIDs(jobs))
	assert.NotContains(t, artifacts.objects, tasks.ExportObjectKey("old-done", "a.pdf"))
	assert.Contains(t, artifacts.objects, tasks.ExportObjectKey("fresh", "b.pdf"))
}

func TestJanitorPurgesInBatches(t *testing.T) {
	janitor, jobs, _, now := newJanitorFixture(t)
	janitor.batch = 1

	purged, err := janitor.Purge(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, purged)
	assert.Equal(t, []string{"pending"}, remainingIDs(jobs))
}

func TestJanitorKeepsJobWhenArtifactDeleteFails(t *testing.T) {
	janitor, jobs, artifacts, now := newJanitorFixture(t)
	artifacts.deleteErr = map[string]error{tasks.ExportPrefix("old-done"): errors.New("minio down")}

	purged, err := janitor.Purge(context.Background(), now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	assert.Equal(t, []string{"fresh", "old-done", "pending"}, remainingIDs(jobs))
}

func TestJanitorRejectsOtherTasks(t *testing.T) {
	janitor, _, _, _ := newJanitorFixture(t)

	err := janitor.ProcessTask(context.Background(), asynq.NewTask(tasks.TypePDFExport, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
