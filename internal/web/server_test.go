// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prikit/internal/anonymizer"
	"prikit/internal/observability"
	"prikit/internal/redactors"
	"prikit/internal/tasks"
)

// copyRedactor writes a marked copy of its input
type copyRedactor struct{}

func (copyRedactor) GetName() string             { return "copy_redactor" }
func (copyRedactor) GetComponentName() string    { return "copy_redactor" }
func (copyRedactor) GetSupportedTypes() []string { return nil }

func (copyRedactor) Redact(ctx context.Context, inputPath, outputPath string, opts redactors.Options) (int, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return 0, err
	}
	return 1, os.WriteFile(outputPath, append([]byte("redacted:"), data...), 0600)
}

type testEnv struct {
	server   *Server
	registry *tasks.Registry
	handler  http.Handler
	dataDir  string
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	root := t.TempDir()

	resolver, err := redactors.NewOutputResolver(filepath.Join(root, "out"), observability.Nop())
	require.NoError(t, err)
	manager := anonymizer.NewManager(resolver, observability.Nop())
	for _, ft := range redactors.FileTypes() {
		require.NoError(t, manager.Register(ft, copyRedactor{}))
	}

	cfg := DefaultConfig()
	cfg.UploadDir = filepath.Join(root, "uploads")
	cfg.RateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}

	registry := tasks.NewRegistry(cfg.UploadDir, observability.Nop())
	server, err := NewServer(cfg, manager, registry, observability.Nop())
	require.NoError(t, err)

	dataDir := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0700))
	return &testEnv{server: server, registry: registry, handler: server.Handler(), dataDir: dataDir}
}

func (e *testEnv) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dataDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, target string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return e.do(t, http.MethodPost, target, bytes.NewReader(data), "application/json")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type upload struct {
	name    string
	content string
}

func multipartBody(t *testing.T, field string, files []upload, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealthAndSupportedTypes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = env.do(t, http.MethodGet, "/api/supported_types", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		FileTypes map[string][]string `json:"supported_file_types"`
		Methods   map[string][]string `json:"anonymization_methods"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{".pdf"}, body.FileTypes["pdf"])
	assert.Equal(t, []string{"mask", "color", "char"}, body.Methods["pdf"])
	assert.Equal(t, []string{"mask"}, body.Methods["ppt"])
	assert.Len(t, body.FileTypes, 5)

	rec = env.do(t, http.MethodPost, "/api/health", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSinglePDFMaskEndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)
	input := env.file(t, "contract.pdf", "%PDF-1.4 phone 13812345678")

	rec := env.postJSON(t, "/api/anonymize/single", map[string]string{
		"file_path": input,
		"file_type": "pdf",
		"method":    "mask",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decode(t, rec)
	assert.Equal(t, "pending", accepted["status"])
	assert.Equal(t, input, accepted["input_file"])
	id := accepted["task_id"].(string)

	env.registry.Wait()

	rec = env.do(t, http.MethodGet, "/api/task/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode(t, rec)
	assert.Equal(t, "completed", status["status"])
	assert.EqualValues(t, 100, status["progress"])
	assert.EqualValues(t, 1, status["output_files_count"])
	assert.Contains(t, status, "duration")
	assert.Equal(t, []interface{}{"/api/download/" + id + "/0"}, status["download_urls"])

	rec = env.do(t, http.MethodGet, "/api/download/"+id+"/0", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "redacted:%PDF-1.4 phone 13812345678", rec.Body.String())
	disposition := rec.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, "attachment;"), disposition)
	assert.Contains(t, disposition, "contract_anonymous_mask")
}

func TestEncryptWithoutKeyIsRejectedBeforeTaskCreation(t *testing.T) {
	env := newTestEnv(t, nil)
	input := env.file(t, "staff.docx", "PK data")

	rec := env.postJSON(t, "/api/anonymize/single", map[string]string{
		"file_path": input,
		"file_type": "word",
		"method":    "encrypt",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "encryption_key")

	rec = env.postJSON(t, "/api/anonymize/single", map[string]string{
		"file_path":      input,
		"file_type":      "word",
		"method":         "encrypt",
		"encryption_key": "12ab",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, env.registry.List())
}

func TestBatchExcelSkipsInvalidPaths(t *testing.T) {
	env := newTestEnv(t, nil)
	inputs := []string{
		env.file(t, "q1.xlsx", "a"),
		env.file(t, "q2.xlsx", "b"),
		env.file(t, "q3.xlsx", "c"),
		filepath.Join(env.dataDir, "missing.xlsx"),
	}

	rec := env.postJSON(t, "/api/anonymize/batch", map[string]interface{}{
		"file_paths":     inputs,
		"file_type":      "excel",
		"method":         "encrypt",
		"encryption_key": "123456",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decode(t, rec)
	assert.EqualValues(t, 3, accepted["total_files"])
	assert.Equal(t, []interface{}{"q1.xlsx", "q2.xlsx", "q3.xlsx"}, accepted["original_filenames"])
	assert.Equal(t, true, accepted["encryption_key_provided"])
	assert.NotContains(t, accepted, "color")

	env.registry.Wait()

	snap, err := env.registry.Get(accepted["task_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, tasks.StatusCompleted, snap.Status)
	assert.Equal(t, 3, snap.OutputFilesCount)
	assert.Contains(t, snap.Message, "3/3")
}

func TestBatchParallelWorkers(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.Workers = 3 })
	inputs := []string{
		env.file(t, "a.png", "1"),
		env.file(t, "b.png", "2"),
		env.file(t, "c.png", "3"),
	}

	rec := env.postJSON(t, "/api/anonymize/batch", map[string]interface{}{
		"file_paths": inputs,
		"file_type":  "image",
		"method":     "color",
		"color":      "black",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decode(t, rec)
	assert.Equal(t, "black", accepted["color"])
	assert.Equal(t, "*", accepted["char"])

	env.registry.Wait()

	snap, err := env.registry.Get(accepted["task_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, tasks.StatusCompleted, snap.Status)
	require.Len(t, snap.OutputFilenames, 3)
	for i, prefix := range []string{"a_", "b_", "c_"} {
		assert.True(t, strings.HasPrefix(snap.OutputFilenames[i], prefix), snap.OutputFilenames[i])
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	pdf := env.file(t, "x.pdf", "data")

	tests := []struct {
		name    string
		target  string
		payload map[string]interface{}
		wantKey string
	}{
		{"missing file path", "/api/anonymize/single", map[string]interface{}{"file_type": "pdf", "method": "mask"}, "error"},
		{"missing method", "/api/anonymize/single", map[string]interface{}{"file_path": pdf, "file_type": "pdf"}, "error"},
		{"unknown type", "/api/anonymize/single", map[string]interface{}{"file_path": pdf, "file_type": "odt", "method": "mask"}, "supported_types"},
		{"method not supported", "/api/anonymize/single", map[string]interface{}{"file_path": pdf, "file_type": "pdf", "method": "fake"}, "supported_methods"},
		{"wrong extension", "/api/anonymize/single", map[string]interface{}{"file_path": pdf, "file_type": "word", "method": "mask"}, "error"},
		{"missing file", "/api/anonymize/single", map[string]interface{}{"file_path": pdf + ".gone.pdf", "file_type": "pdf", "method": "mask"}, "error"},
		{"char with path separator", "/api/anonymize/single", map[string]interface{}{"file_path": pdf, "file_type": "pdf", "method": "char", "char": "/../../x"}, "error"},
		{"empty batch", "/api/anonymize/batch", map[string]interface{}{"file_paths": []string{}, "file_type": "pdf", "method": "mask"}, "error"},
		{"no valid batch paths", "/api/anonymize/batch", map[string]interface{}{"file_paths": []string{"/nope.pdf"}, "file_type": "pdf", "method": "mask"}, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postJSON(t, tt.target, tt.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode(t, rec), tt.wantKey)
		})
	}

	rec := env.do(t, http.MethodPost, "/api/anonymize/single", strings.NewReader("{not json"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.registry.List())
}

func TestUploadSingle(t *testing.T) {
	env := newTestEnv(t, nil)
	body, contentType := multipartBody(t, "file", []upload{{"slides.pptx", "deck"}}, map[string]string{
		"file_type": "ppt",
		"method":    "mask",
	})

	rec := env.do(t, http.MethodPost, "/api/upload/single", body, contentType)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decode(t, rec)
	id := accepted["task_id"].(string)
	assert.Equal(t, "slides.pptx", accepted["original_filename"])

	saved := filepath.Join(env.server.cfg.UploadDir, id+"_slides.pptx")
	info, err := os.Stat(saved)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	env.registry.Wait()
	snap, err := env.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, tasks.StatusCompleted, snap.Status)
	assert.Equal(t, []string{saved}, snap.InputFiles)
}

func TestUploadBatchSkipsUnsupportedFiles(t *testing.T) {
	env := newTestEnv(t, nil)
	body, contentType := multipartBody(t, "files", []upload{
		{"one.docx", "1"},
		{"notes.txt", "2"},
		{"empty.docx", ""},
		{"two.docx", "3"},
	}, map[string]string{"file_type": "word", "method": "mask"})

	rec := env.do(t, http.MethodPost, "/api/upload/batch", body, contentType)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decode(t, rec)
	assert.EqualValues(t, 2, accepted["total_files"])
	assert.Equal(t, []interface{}{"one.docx", "two.docx"}, accepted["original_filenames"])

	entries, err := os.ReadDir(env.server.cfg.UploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "rejected uploads are not kept")

	body, contentType = multipartBody(t, "files", []upload{{"notes.txt", "x"}}, map[string]string{"file_type": "word", "method": "mask"})
	rec = env.do(t, http.MethodPost, "/api/upload/batch", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.registry.Wait()
}

func TestUploadTooLarge(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.MaxUploadBytes = 1 << 10 })
	body, contentType := multipartBody(t, "file", []upload{{"big.pdf", strings.Repeat("x", 4<<10)}}, map[string]string{
		"file_type": "pdf",
		"method":    "mask",
	})

	rec := env.do(t, http.MethodPost, "/api/upload/single", body, contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, env.registry.List())
}

func TestUploadMissingFile(t *testing.T) {
	env := newTestEnv(t, nil)
	body, contentType := multipartBody(t, "file", nil, map[string]string{"file_type": "pdf", "method": "mask"})

	rec := env.do(t, http.MethodPost, "/api/upload/single", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no file provided", decode(t, rec)["error"])
}

func TestTaskAndDownloadErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/task/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/download/unknown/0", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	pending := env.registry.Create(tasks.Request{Inputs: []string{"a.pdf"}})
	rec = env.do(t, http.MethodGet, "/api/download/"+pending+"/0", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "task is not completed", decode(t, rec)["error"])

	input := env.file(t, "doc.pdf", "data")
	rec = env.postJSON(t, "/api/anonymize/single", map[string]string{"file_path": input, "file_type": "pdf", "method": "char"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decode(t, rec)["task_id"].(string)
	env.registry.Wait()

	rec = env.do(t, http.MethodGet, "/api/download/"+id+"/5", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/download/"+id+"/first", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	output, err := env.registry.Output(id, 0)
	require.NoError(t, err)
	require.NoError(t, os.Remove(output))

	rec = env.do(t, http.MethodGet, "/api/download/"+id+"/0", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.RateLimit = 0.001
		cfg.RateBurst = 1
	})

	rec := env.postJSON(t, "/api/anonymize/single", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.postJSON(t, "/api/anonymize/single", map[string]string{})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code, "read endpoints are not limited")
}
