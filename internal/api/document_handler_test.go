package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magicyan/internal/resume"
	"magicyan/internal/validate"
)

func sampleJSON(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(resume.Sample(testNow))
	require.NoError(t, err)
	return string(data)
}

func multipartRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	rec = env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "magicyan_http_requests_total")
}

func TestCreateDocument(t *testing.T) {
	env := newTestEnv(t)
	rec := env.postJSON(t, "/v1/documents", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var doc resume.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Empty(t, doc.Title)
	assert.NotNil(t, doc.PersonalInfo)
	assert.NotNil(t, doc.Modules)
	assert.Equal(t, "2024-05-01T08:00:00.000Z", doc.CreatedAt)
	assert.Contains(t, rec.Body.String(), `"modules":[]`)
}

func TestTemplates(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/v1/templates")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"templates":["blank","sample"]}`, rec.Body.String())

	rec = env.get(t, "/v1/templates/sample")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc resume.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "张三", doc.Title)
	assert.Len(t, doc.Modules, 3)

	rec = env.get(t, "/v1/templates/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateDocument(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/v1/documents/validate", sampleJSON(t))
	require.Equal(t, http.StatusOK, rec.Code)
	var result validate.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Valid)

	rec = env.postJSON(t, "/v1/documents/validate", `{"title":"","personalInfo":"x","modules":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)

	rec = env.postJSON(t, "/v1/documents/validate", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMutateDocument(t *testing.T) {
	env := newTestEnv(t)

	body := `{"document":` + sampleJSON(t) + `,"op":"move_module","id":"module-skills","direction":"up"}`
	rec := env.postJSON(t, "/v1/documents/mutations", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc resume.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	var ids []string
	for _, m := range resume.SortedModules(doc.Modules) {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"module-education", "module-skills", "module-work"}, ids)

	rec = env.postJSON(t, "/v1/documents/mutations", `{"document":`+sampleJSON(t)+`,"op":"add_module"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Modules, 4)
	assert.Equal(t, "module-1", doc.Modules[3].ID)
	assert.Equal(t, 3, doc.Modules[3].Order)

	rec = env.postJSON(t, "/v1/documents/mutations", `{"document":`+sampleJSON(t)+`,"op":"explode"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportThenImport(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/v1/documents/export", sampleJSON(t))
	require.Equal(t, http.StatusOK, rec.Code)
	disposition := rec.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, "attachment"))
	assert.Contains(t, disposition, "_2024-05-01.magicyan")

	exported := rec.Body.Bytes()
	assert.Contains(t, string(exported), `"version": "1.0.0"`)

	rec = env.do(multipartRequest(t, "/v1/documents/import", "resume.magicyan", exported))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var imported struct {
		Version string          `json:"version"`
		Data    resume.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &imported))
	assert.Equal(t, "1.0.0", imported.Version)
	assert.Equal(t, resume.Sample(testNow).Modules, imported.Data.Modules)
	assert.Equal(t, "张三", imported.Data.Title)
}

func TestImport_RawBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.postJSON(t, "/v1/documents/export", sampleJSON(t))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.postJSON(t, "/v1/documents/import", rec.Body.String())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestImport_Rejections(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
		kind string
	}{
		{"empty", "", "empty_input"},
		{"syntax", "{not json", "malformed_syntax"},
		{"no version", `{"data":{}}`, "missing_version"},
		{"no data", `{"version":"1.0.0"}`, "missing_data"},
		{"schema", `{"version":"1.0.0","data":{"title":"","personalInfo":[],"modules":[{"id":"m"}]}}`, "schema_violation"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(multipartRequest(t, "/v1/documents/import", "x.magicyan", []byte(tc.body)))
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.kind, body["kind"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestImport_MaliciousFile(t *testing.T) {
	env := newTestEnv(t)
	env.scanner.err = ErrMalicious

	rec := env.do(multipartRequest(t, "/v1/documents/import", "x.magicyan", []byte(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"malicious file detected"}`, rec.Body.String())
}

func TestImport_TooLarge(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(multipartRequest(t, "/v1/documents/import", "x.magicyan", bytes.Repeat([]byte("a"), 3<<19)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadAvatar(t *testing.T) {
	env := newTestEnv(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	rec := env.do(multipartRequest(t, "/v1/assets/avatar", "me.png", png))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body["avatar"], "data:image/png;base64,"))

	rec = env.do(multipartRequest(t, "/v1/assets/avatar", "me.txt", []byte("hello world")))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
