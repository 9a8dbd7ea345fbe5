package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// bodyLimit caps a synthesis request body. A rune may take up to twelve bytes
// once JSON escaped, plus room for the remaining fields.
func bodyLimit(maxTextLength int) int64 {
	if maxTextLength <= 0 {
		maxTextLength = 5000
	}
	return int64(maxTextLength)*12 + 4096
}

// decodeBody reads a size-capped JSON body into v and returns the status to
// answer with when it fails.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, errors.New("request body too large")
		}
		return http.StatusBadRequest, errors.New("invalid request body")
	}
	return http.StatusOK, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeAudio(w http.ResponseWriter, contentType string, audio []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="tts_output.wav"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}
