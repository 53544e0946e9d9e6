package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/zurustar/semitone/pkg/smf"
)

// uploadField はmultipartでファイルを受け取るフィールド名
const uploadField = "file"

// HealthResponse は /health のレスポンス
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "OK", Version: Version})
}

// handleProcessMIDI はアップロードされたSMFを移調して返す
func (s *Server) handleProcessMIDI(w http.ResponseWriter, r *http.Request) {
	// Content-Lengthで超過が分かる場合は読まずに拒否
	if r.ContentLength > s.opts.MaxUploadBytes {
		s.fail(w, r, "", &http.MaxBytesError{Limit: s.opts.MaxUploadBytes})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	filename, data, err := s.readUpload(r)
	if err != nil {
		s.fail(w, r, "", err)
		return
	}

	s.log.Info("Processing MIDI file", "filename", filename, "size", len(data))

	out, err := s.transposer.Transpose(data)
	if err != nil {
		s.fail(w, r, filename, err)
		return
	}

	if summary, err := smf.Summarize(out); err != nil {
		s.log.Warn("Failed to summarize processed MIDI file", "filename", filename, "error", err)
	} else {
		s.log.Info("MIDI file processed",
			"filename", filename,
			"tracks", summary.Tracks,
			"events", summary.Events,
			"notes", summary.Notes,
			"lowKey", summary.LowKey,
			"highKey", summary.HighKey,
			"duration", summary.Duration)
	}

	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", contentDisposition(ProcessedPrefix+filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		s.log.Debug("Failed to write response", "filename", filename, "error", err)
	}
}

// readUpload はリクエストからファイル名と内容を取り出す
// multipart/form-data の場合は "file" フィールド、それ以外はボディ全体
func (s *Server) readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		mr, err := r.MultipartReader()
		if err != nil {
			return "", nil, badRequest("invalid multipart request", err)
		}
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return "", nil, badRequest("missing \"file\" field in upload", nil)
			}
			if err != nil {
				return "", nil, badRequest("invalid multipart request", err)
			}
			if part.FormName() != uploadField {
				part.Close()
				continue
			}
			data, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				return "", nil, badRequest("failed to read upload", err)
			}
			if len(data) == 0 {
				return "", nil, badRequest("uploaded file is empty", nil)
			}
			return uploadFilename(part.FileName()), data, nil
		}
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, badRequest("failed to read upload", err)
	}
	if len(data) == 0 {
		return "", nil, badRequest("request body is empty", nil)
	}

	name := r.URL.Query().Get("filename")
	if name == "" {
		name = r.Header.Get("X-Filename")
	}
	return uploadFilename(name), data, nil
}

// fail はエラーをJSONで返し、ログに残す
func (s *Server) fail(w http.ResponseWriter, r *http.Request, filename string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Error processing MIDI", "filename", filename, "error", err)
	} else {
		s.log.Warn("Rejected MIDI upload", "filename", filename, "status", status, "error", err)
	}
	writeError(w, status, msg)
}
