package resp

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Envelope is the body of every JSON API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is returned by the static file route, which has no envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteOK(w http.ResponseWriter, data any) {
	writeResp(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) {
	writeResp(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// WriteUploaded reports a stored asset URL.
func WriteUploaded(w http.ResponseWriter, url string) {
	writeResp(w, http.StatusOK, Envelope{Success: true, URL: url})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

func WriteInternalServerError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	writeResp(w, status, Envelope{Success: false, Error: message})
}

// WriteStaticError writes the bare {"error": ...} body used by file reads.
func WriteStaticError(w http.ResponseWriter, status int, message string) {
	writeResp(w, status, ErrorResponse{Error: message})
}

// WriteFile writes raw bytes with the given headers.
func WriteFile(w http.ResponseWriter, data []byte, contentType, cacheControl string) {
	w.Header().Set("Content-Type", contentType)
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
	}
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeResp(w http.ResponseWriter, status int, object any) {
	haveObject := object != nil

	if haveObject {
		w.Header().Add("Content-Type", "application/json")
	}

	w.WriteHeader(status)

	if haveObject {
		err := json.NewEncoder(w).Encode(object)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to write standard HTTP response: %v", err), http.StatusInternalServerError)
		}
	}
}
