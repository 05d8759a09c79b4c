package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cladtek/dbchat-engine/pkg/apperrors"
)

// GenericErrorMessage is the user-facing text for unexpected failures.
// Internals never leak into responses.
const GenericErrorMessage = "Maaf, terjadi kesalahan saat memproses permintaan Anda."

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps pipeline sentinels to HTTP statuses. Anything not an
// input-rejection sentinel becomes the generic 500 message.
func WriteError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrEmptyQuestion):
		return ErrorResponse(w, http.StatusBadRequest, "empty_question", "Pertanyaan tidak boleh kosong.")
	case errors.Is(err, apperrors.ErrInvalidSessionID):
		return ErrorResponse(w, http.StatusBadRequest, "invalid_session_id", "Session ID tidak valid.")
	case errors.Is(err, apperrors.ErrInvalidMode):
		return ErrorResponse(w, http.StatusBadRequest, "invalid_mode", "Mode harus 'internal' atau 'external'.")
	case errors.Is(err, apperrors.ErrInputTooLong):
		return ErrorResponse(w, http.StatusBadRequest, "input_too_long", "Pertanyaan terlalu panjang.")
	case errors.Is(err, apperrors.ErrInjectionSuspected),
		errors.Is(err, apperrors.ErrExcessiveSpecialChars):
		return ErrorResponse(w, http.StatusBadRequest, "invalid_input", "Pertanyaan mengandung konten yang tidak diizinkan.")
	case errors.Is(err, apperrors.ErrRateLimited):
		return ErrorResponse(w, http.StatusTooManyRequests, "rate_limited", "Terlalu banyak permintaan. Silakan coba lagi nanti.")
	case errors.Is(err, apperrors.ErrNoExportableQuery):
		return ErrorResponse(w, http.StatusNotFound, "no_exportable_query", "Tidak ada data yang bisa diexport untuk session ini.")
	default:
		return ErrorResponse(w, http.StatusInternalServerError, "internal_error", GenericErrorMessage)
	}
}
