package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magicyan/internal/database"
	"magicyan/internal/tasks"
)

func createExport(t *testing.T, env *testEnv) string {
	t.Helper()
	rec := env.postJSON(t, "/v1/exports", sampleJSON(t))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var body struct {
		JobID    string `json:"job_id"`
		Status   string `json:"status"`
		Filename string `json:"filename"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, database.ExportPending, body.Status)
	assert.Equal(t, "张三_2024-05-01.pdf", body.Filename)
	return body.JobID
}

func TestCreateExport_Enqueues(t *testing.T) {
	env := newTestEnv(t)
	jobID := createExport(t, env)

	require.Len(t, env.queue.tasks, 1)
	task := env.queue.tasks[0]
	assert.Equal(t, tasks.TypePDFExport, task.Type())

	payload, err := tasks.ParsePDFExportPayload(task)
	require.NoError(t, err)
	assert.Equal(t, jobID, payload.JobID)
	assert.NotEmpty(t, payload.CorrelationID)

	doc, err := env.codec.Decode(payload.File)
	require.NoError(t, err)
	assert.Equal(t, "张三", doc.Title)
}

func TestCreateExport_RejectsInvalidDocument(t *testing.T) {
	env := newTestEnv(t)
	rec := env.postJSON(t, "/v1/exports", `{"title":"","personalInfo":[],"modules":[]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "schema_violation")
	assert.Empty(t, env.queue.tasks)
}

func TestExportStatus_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	jobID := createExport(t, env)

	rec := env.get(t, "/v1/exports/"+jobID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
	assert.NotContains(t, rec.Body.String(), `"url"`)

	key := tasks.ExportObjectKey(jobID, "张三_2024-05-01.pdf")
	env.storage.objects[key] = []byte("%PDF")
	require.NoError(t, env.jobs.Complete(context.Background(), jobID, key, nil))

	rec = env.get(t, "/v1/exports/"+jobID)
	require.Equal(t, http.StatusOK, rec.Code)
	var status exportStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, database.ExportCompleted, status.Status)
	assert.Equal(t, "https://example.invalid/"+key, status.URL)
	assert.Equal(t, "张三_2024-05-01.pdf", status.Filename)

	delete(env.storage.objects, key)
	rec = env.get(t, "/v1/exports/"+jobID)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestExportStatus_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get(t, "/v1/exports/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteExport(t *testing.T) {
	env := newTestEnv(t)
	jobID := createExport(t, env)
	key := tasks.ExportObjectKey(jobID, "a.pdf")
	env.storage.objects[key] = []byte("%PDF")

	req := httptest.NewRequest(http.MethodDelete, "/v1/exports/"+jobID, nil)
	rec := env.do(req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{tasks.ExportPrefix(jobID)}, env.storage.prefixes)
	assert.Empty(t, env.storage.objects)

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/v1/exports/"+jobID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func TestExportUpdates_FinishedJobSendsFinalNotice(t *testing.T) {
	env := newTestEnv(t)
	jobID := createExport(t, env)
	require.NoError(t, env.jobs.Fail(context.Background(), jobID, 5000, "chromium crashed"))

	server := httptest.NewServer(env.router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/v1/exports/"+jobID+"/ws"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg["status"])
	assert.Equal(t, jobID, msg["job_id"])
	assert.Equal(t, "chromium crashed", msg["error_message"])
}

func TestExportUpdates_UnknownJob(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "/v1/exports/nope/ws"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
