// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"prikit/internal/anonymizer"
	"prikit/internal/paths"
	"prikit/internal/redactors"
	"prikit/internal/security"
	"prikit/internal/tasks"
	"prikit/internal/version"
)

// multipartMemory is the part of an upload kept in memory before spilling to disk
const multipartMemory = 8 << 20

// anonymizeRequest is the JSON body of the path-based submit endpoints
type anonymizeRequest struct {
	FilePath      string   `json:"file_path"`
	FilePaths     []string `json:"file_paths"`
	FileType      string   `json:"file_type"`
	Method        string   `json:"method"`
	Language      string   `json:"language"`
	EncryptionKey string   `json:"encryption_key"`
	Color         string   `json:"color"`
	Char          string   `json:"char"`
}

// submission is a validated request ready to become a task
type submission struct {
	fileType   redactors.FileType
	anonymizer *anonymizer.Anonymizer
	opts       anonymizer.Options

	// key is held apart from opts and cleared when the task ends
	key         *security.Secret
	keyProvided bool
}

// options returns the submission options with the key filled in
func (sub *submission) options() anonymizer.Options {
	opts := sub.opts
	opts.Key = sub.key.Reveal()
	return opts
}

// parseSubmission checks the type, method and key of a request. Nothing is
// created or stored until it succeeds.
func (s *Server) parseSubmission(fileType, method, key, language, color, char string) (*submission, *errorResponse) {
	if strings.TrimSpace(fileType) == "" {
		return nil, &errorResponse{Error: "missing required parameter: file_type"}
	}
	if strings.TrimSpace(method) == "" {
		return nil, &errorResponse{Error: "missing required parameter: method"}
	}

	ft, err := redactors.ParseFileType(fileType)
	if err != nil {
		return nil, &errorResponse{Error: "unsupported file type: " + fileType, SupportedTypes: s.supportedTypeNames()}
	}
	a, err := s.manager.Get(ft)
	if err != nil {
		return nil, &errorResponse{Error: "unsupported file type: " + fileType, SupportedTypes: s.supportedTypeNames()}
	}

	strategy := redactors.ParseStrategy(method)
	if !ft.SupportsMethod(strategy) {
		return nil, &errorResponse{Error: "unsupported method: " + method, SupportedMethods: ft.MethodNames()}
	}
	if strategy == redactors.StrategyEncrypt && key == "" {
		return nil, &errorResponse{Error: "encrypt method requires the encryption_key parameter"}
	}

	opts := anonymizer.Options{
		Strategy: strategy,
		Key:      key,
		Language: valueOr(language, anonymizer.DefaultLanguage),
		Color:    valueOr(color, "white"),
		Char:     valueOr(char, "*"),
	}.Normalized()
	if err := a.ValidateOptions(opts); err != nil {
		return nil, &errorResponse{Error: err.Error()}
	}

	secret := security.NewSecret(opts.Key)
	opts.Key = ""
	return &submission{fileType: ft, anonymizer: a, opts: opts, key: secret, keyProvided: secret.IsSet()}, nil
}

func (s *Server) supportedTypeNames() []string {
	var names []string
	for _, info := range s.manager.SupportedTypes() {
		names = append(names, string(info.Type))
	}
	return names
}

// newJob binds the submission to the task runner. The options, key
// included, stay in these closures only.
func (s *Server) newJob(sub *submission) tasks.Job {
	job := tasks.Job{
		ProcessOne: func(ctx context.Context, input string) (string, error) {
			return s.manager.ProcessFile(ctx, sub.fileType, input, sub.options())
		},
		Release: sub.key.Clear,
	}
	if s.cfg.Workers > 1 {
		job.ProcessAll = func(ctx context.Context, inputs []string, progress tasks.ProgressFunc) ([]string, error) {
			opts := sub.options()
			opts.Progress = progress
			result, err := s.manager.ProcessFiles(ctx, sub.fileType, inputs, opts, s.cfg.Workers, s.cfg.FileTimeout)
			if err != nil {
				return nil, err
			}
			outputs := make([]string, len(result.Results))
			for i, r := range result.Results {
				if r.Succeeded() {
					outputs[i] = r.Output
				}
			}
			return outputs, nil
		}
	}
	return job
}

// submit registers and schedules a task
func (s *Server) submit(req tasks.Request, sub *submission) (string, error) {
	req.FileType = string(sub.fileType)
	req.Method = string(sub.opts.Strategy)

	id := s.registry.Create(req)
	if err := s.registry.Schedule(id, s.newJob(sub)); err != nil {
		sub.key.Clear()
		return "", err
	}
	return id, nil
}

// batchResponse builds the 202 body shared by both batch endpoints
func batchResponse(id string, sub *submission, message string, originals []string) map[string]interface{} {
	response := map[string]interface{}{
		"task_id":            id,
		"status":             tasks.StatusPending,
		"message":            message,
		"file_type":          sub.fileType,
		"method":             sub.opts.Strategy,
		"total_files":        len(originals),
		"original_filenames": originals,
	}
	if sub.fileType.IsVisual() {
		response["color"] = sub.opts.Color
		response["char"] = sub.opts.Char
	}
	if sub.opts.Strategy == redactors.StrategyEncrypt && sub.keyProvided {
		response["encryption_key_provided"] = true
	}
	return response
}

// handleHealth reports service status and build information
func (s *Server) handleHealth(responseWriter http.ResponseWriter, request *http.Request) {
	s.sendJSON(responseWriter, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   version.ServiceName,
		"version":   version.Short(),
		"timestamp": float64(time.Now().UnixNano()) / float64(time.Second),
		"build_info": version.Details(),
	})
}

// handleSupportedTypes lists extensions and methods per file type
func (s *Server) handleSupportedTypes(responseWriter http.ResponseWriter, request *http.Request) {
	fileTypes := make(map[string][]string)
	methods := make(map[string][]string)
	for _, info := range s.manager.SupportedTypes() {
		fileTypes[string(info.Type)] = info.Extensions
		methods[string(info.Type)] = info.Methods
	}
	s.sendJSON(responseWriter, http.StatusOK, map[string]interface{}{
		"supported_file_types":  fileTypes,
		"anonymization_methods": methods,
	})
}

func (s *Server) decodeJSON(responseWriter http.ResponseWriter, request *http.Request, v interface{}) error {
	request.Body = http.MaxBytesReader(responseWriter, request.Body, s.cfg.MaxUploadBytes)
	decoder := json.NewDecoder(request.Body)
	return decoder.Decode(v)
}

// handleAnonymizeSingle starts a task for a file already on the server
func (s *Server) handleAnonymizeSingle(responseWriter http.ResponseWriter, request *http.Request) {
	var body anonymizeRequest
	if err := s.decodeJSON(responseWriter, request, &body); err != nil {
		s.sendError(responseWriter, "request body must be JSON")
		return
	}
	if strings.TrimSpace(body.FilePath) == "" {
		s.sendError(responseWriter, "missing required parameter: file_path")
		return
	}

	sub, errResp := s.parseSubmission(body.FileType, body.Method, body.EncryptionKey, body.Language, body.Color, body.Char)
	if errResp != nil {
		s.sendJSON(responseWriter, http.StatusBadRequest, errResp)
		return
	}
	if err := sub.anonymizer.ValidateFile(body.FilePath); err != nil {
		s.sendProcessingError(responseWriter, err)
		return
	}

	id, err := s.submit(tasks.Request{
		Inputs:            []string{body.FilePath},
		OriginalFilenames: []string{filepath.Base(body.FilePath)},
	}, sub)
	if err != nil {
		s.sendProcessingError(responseWriter, err)
		return
	}

	s.sendJSON(responseWriter, http.StatusAccepted, map[string]interface{}{
		"task_id":    id,
		"status":     tasks.StatusPending,
		"message":    "single file anonymization task started",
		"file_type":  sub.fileType,
		"method":     sub.opts.Strategy,
		"input_file": body.FilePath,
	})
}

// handleAnonymizeBatch starts one task for several files on the server.
// Invalid paths are skipped; the request fails only when none remain.
func (s *Server) handleAnonymizeBatch(responseWriter http.ResponseWriter, request *http.Request) {
	var body anonymizeRequest
	if err := s.decodeJSON(responseWriter, request, &body); err != nil {
		s.sendError(responseWriter, "request body must be JSON")
		return
	}
	if len(body.FilePaths) == 0 {
		s.sendError(responseWriter, "file_paths must be a non-empty list")
		return
	}

	sub, errResp := s.parseSubmission(body.FileType, body.Method, body.EncryptionKey, body.Language, body.Color, body.Char)
	if errResp != nil {
		s.sendJSON(responseWriter, http.StatusBadRequest, errResp)
		return
	}

	var valid, originals []string
	for _, path := range body.FilePaths {
		if err := sub.anonymizer.ValidateFile(path); err != nil {
			s.logEvent("skip_invalid_file", false, map[string]interface{}{
				"file_path": path,
				"error":     err.Error(),
			})
			continue
		}
		valid = append(valid, path)
		originals = append(originals, filepath.Base(path))
	}
	if len(valid) == 0 {
		s.sendError(responseWriter, "no valid file paths")
		return
	}

	id, err := s.submit(tasks.Request{Inputs: valid, OriginalFilenames: originals, Batch: true}, sub)
	if err != nil {
		s.sendProcessingError(responseWriter, err)
		return
	}

	s.sendJSON(responseWriter, http.StatusAccepted,
		batchResponse(id, sub, fmt.Sprintf("batch anonymization task started with %d files", len(valid)), originals))
}

// parseUpload reads a size-limited multipart form. It writes the error
// response itself and returns false on failure.
func (s *Server) parseUpload(responseWriter http.ResponseWriter, request *http.Request) bool {
	if request.ContentLength > s.cfg.MaxUploadBytes {
		s.sendErrorWithStatus(responseWriter, fmt.Sprintf("upload exceeds the %d MB limit", s.cfg.MaxUploadBytes>>20), http.StatusRequestEntityTooLarge)
		return false
	}

	request.Body = http.MaxBytesReader(responseWriter, request.Body, s.cfg.MaxUploadBytes)
	if err := request.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			s.sendErrorWithStatus(responseWriter, fmt.Sprintf("upload exceeds the %d MB limit", s.cfg.MaxUploadBytes>>20), http.StatusRequestEntityTooLarge)
			return false
		}
		s.sendError(responseWriter, "failed to parse form data: "+err.Error())
		return false
	}
	return true
}

// saveUpload stores an uploaded part as {taskID}_{name} with owner-only
// permissions, falling back to {taskID}_{n}_{name} on a name clash.
func (s *Server) saveUpload(header *multipart.FileHeader, taskID, name string) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	var dst *os.File
	var path string
	for n := 0; ; n++ {
		path = filepath.Join(s.cfg.UploadDir, taskID+"_"+name)
		if n > 0 {
			path = filepath.Join(s.cfg.UploadDir, fmt.Sprintf("%s_%d_%s", taskID, n, name))
		}
		dst, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) || n >= 100 {
			return "", err
		}
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// acceptUpload validates and stores one uploaded file for taskID
func (s *Server) acceptUpload(sub *submission, header *multipart.FileHeader, taskID string) (string, string, error) {
	name := paths.SafeFilename(header.Filename)
	if name == "" {
		return "", "", redactors.NewFileValidationError(header.Filename, "invalid file name")
	}
	if !sub.fileType.SupportsFile(name) {
		return "", "", redactors.NewFileValidationError(name, "unsupported file format, supported: %s",
			strings.Join(sub.fileType.Extensions(), ", "))
	}

	path, err := s.saveUpload(header, taskID, name)
	if err != nil {
		return "", "", fmt.Errorf("failed to save upload %s: %w", name, err)
	}
	if err := sub.anonymizer.ValidateFile(path); err != nil {
		os.Remove(path)
		return "", "", err
	}
	return path, name, nil
}

// handleUploadSingle stores one uploaded file and starts a task for it
func (s *Server) handleUploadSingle(responseWriter http.ResponseWriter, request *http.Request) {
	if !s.parseUpload(responseWriter, request) {
		return
	}
	defer request.MultipartForm.RemoveAll()

	headers := request.MultipartForm.File["file"]
	if len(headers) == 0 || headers[0].Filename == "" {
		s.sendError(responseWriter, "no file provided")
		return
	}

	sub, errResp := s.parseSubmission(request.FormValue("file_type"), request.FormValue("method"),
		request.FormValue("encryption_key"), request.FormValue("language"), request.FormValue("color"), request.FormValue("char"))
	if errResp != nil {
		s.sendJSON(responseWriter, http.StatusBadRequest, errResp)
		return
	}

	taskID := uuid.NewString()
	path, name, err := s.acceptUpload(sub, headers[0], taskID)
	if err != nil {
		s.sendProcessingError(responseWriter, err)
		return
	}

	id, err := s.submit(tasks.Request{
		ID:                taskID,
		Inputs:            []string{path},
		OriginalFilenames: []string{name},
	}, sub)
	if err != nil {
		s.sendProcessingError(responseWriter, err)
		return
	}

	s.sendJSON(responseWriter, http.StatusAccepted, map[string]interface{}{
		"task_id":           id,
		"status":            tasks.StatusPending,
		"message":           "single file upload anonymization task started",
		"file_type":         sub.fileType,
		"method":            sub.opts.Strategy,
		"original_filename": name,
	})
}

// handleUploadBatch stores several uploaded files and starts one task for
// them. Unusable files are skipped.
func (s *Server) handleUploadBatch(responseWriter http.ResponseWriter, request *http.Request) {
	if !s.parseUpload(responseWriter, request) {
		return
	}
	defer request.MultipartForm.RemoveAll()

	headers := request.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.sendError(responseWriter, "no file provided")
		return
	}

	sub, errResp := s.parseSubmission(request.FormValue("file_type"), request.FormValue("method"),
		request.FormValue("encryption_key"), request.FormValue("language"), request.FormValue("color"), request.FormValue("char"))
	if errResp != nil {
		s.sendJSON(responseWriter, http.StatusBadRequest, errResp)
		return
	}

	taskID := uuid.NewString()
	var saved, originals []string
	for _, header := range headers {
		path, name, err := s.acceptUpload(sub, header, taskID)
		if err != nil {
			s.logEvent("skip_invalid_upload", false, map[string]interface{}{
				"file_name": header.Filename,
				"error":     err.Error(),
			})
			continue
		}
		saved = append(saved, path)
		originals = append(originals, name)
	}
	if len(saved) == 0 {
		s.sendError(responseWriter, "no valid files")
		return
	}

	id, err := s.submit(tasks.Request{ID: taskID, Inputs: saved, OriginalFilenames: originals, Batch: true}, sub)
	if err != nil {
		s.sendProcessingError(responseWriter, err)
		return
	}

	s.sendJSON(responseWriter, http.StatusAccepted,
		batchResponse(id, sub, fmt.Sprintf("batch upload anonymization task started with %d files", len(saved)), originals))
}

// handleTaskStatus returns the current snapshot of a task
func (s *Server) handleTaskStatus(responseWriter http.ResponseWriter, request *http.Request) {
	snap, err := s.registry.Get(request.PathValue("id"))
	if err != nil {
		s.sendErrorWithStatus(responseWriter, "task not found", http.StatusNotFound)
		return
	}
	s.sendJSON(responseWriter, http.StatusOK, snap)
}

// handleDownload streams one output of a completed task as an attachment
func (s *Server) handleDownload(responseWriter http.ResponseWriter, request *http.Request) {
	index, err := strconv.Atoi(request.PathValue("index"))
	if err != nil {
		s.sendError(responseWriter, "invalid file index")
		return
	}

	path, err := s.registry.Output(request.PathValue("id"), index)
	switch {
	case errors.Is(err, tasks.ErrTaskNotFound):
		s.sendErrorWithStatus(responseWriter, "task not found", http.StatusNotFound)
		return
	case errors.Is(err, tasks.ErrTaskNotCompleted):
		s.sendError(responseWriter, "task is not completed")
		return
	case errors.Is(err, tasks.ErrInvalidIndex):
		s.sendError(responseWriter, "invalid file index")
		return
	case err != nil:
		s.sendErrorWithStatus(responseWriter, "file not found", http.StatusNotFound)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		s.sendErrorWithStatus(responseWriter, "file not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		s.sendErrorWithStatus(responseWriter, "failed to read file: "+err.Error(), http.StatusInternalServerError)
		return
	}

	name := filepath.Base(path)
	responseWriter.Header().Set("Content-Type", "application/octet-stream")
	responseWriter.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(responseWriter, request, name, info.ModTime(), file)
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
