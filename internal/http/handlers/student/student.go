// Package student contains the HTTP handlers for the Student resource.
//
// HANDLER PATTERN USED HERE: THE CLOSURE / FACTORY PATTERN
// ────────────────────────────────────────────────────────
// The router expects func(http.ResponseWriter, *http.Request), which has no
// room for a service or a logger. Each exported function therefore takes
// its dependencies once at startup and returns the handler that serves
// every request:
//
//	router.HandleFunc("POST /api/students", student.New(svc, logger))
//	//                                        ^^^^^^^^^^^^^^^^^^^^^^^^
//	//                          called ONCE when the route is registered;
//	//                          the returned func runs on EVERY request.
//
// All errors use the envelope { "status": "error", "error": "..." }.
package student

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aanand-mishra/student-records/internal/http/middleware"
	"github.com/aanand-mishra/student-records/internal/service"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

var (
	errEmptyBody = errors.New("request body is empty")
	errInvalidID = errors.New("invalid id: must be a positive integer")
	errNotFound  = errors.New("student not found")
)

// Register mounts every student route on the mux.
func Register(mux *http.ServeMux, svc service.StudentService, logger zerolog.Logger) {
	logger = logger.With().Str("component", "student_handler").Logger()

	mux.HandleFunc("POST /api/students", New(svc, logger))
	mux.HandleFunc("GET /api/students", GetList(svc, logger))
	mux.HandleFunc("GET /api/students/{id}", GetByID(svc, logger))
	mux.HandleFunc("PUT /api/students/{id}", Update(svc, logger))
	mux.HandleFunc("DELETE /api/students/{id}", Delete(svc, logger))
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
// Creates a new student from the JSON request body.
//
// Request body (JSON), every field optional, "age" may also be "20":
//
//	{ "name": "Ann", "age": 20, "email": "a@x.com" }
//
// An "id" in the body is ignored; the database assigns it.
//
// Success response (201 Created):
//
//	{ "id": 1, "name": "Ann", "age": 20, "email": "a@x.com" }
//
// Error responses:
//
//	400 Bad Request  empty body or malformed JSON
//	500 Internal     database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(svc service.StudentService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, ok := decodePatch(w, r)
		if !ok {
			return
		}

		student, err := svc.Create(r.Context(), input)
		if err != nil {
			serverError(w, r, logger, "error creating student", err)
			return
		}

		requestLogger(logger, r).Info().Uint("id", student.ID).Msg("student created")
		response.WriteJSON(w, http.StatusCreated, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students
// Returns a JSON array of all students, ordered by id.
//
// Success response (200 OK):
//
//	[
//	  { "id": 1, "name": "Ann", "age": 20, "email": "a@x.com" },
//	  { "id": 2, "name": "Bo",  "age": null, "email": null }
//	]
//
// Returns [] (not null) when there are no students.
//
// Error responses:
//
//	500 Internal     database error
//
// ─────────────────────────────────────────────────────────────────────────────
func GetList(svc service.StudentService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		students, err := svc.List(r.Context())
		if err != nil {
			serverError(w, r, logger, "error getting students", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/students/{id}
// Fetches a single student by primary key.
//
// Path parameter: {id}, a positive integer.
//
// Success response (200 OK):
//
//	{ "id": 1, "name": "Ann", "age": 20, "email": "a@x.com" }
//
// Error responses:
//
//	400 Bad Request  id is not a positive integer
//	404 Not Found    no student has that id
//	500 Internal     database error
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(svc service.StudentService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		student, found, err := svc.Get(r.Context(), id)
		if err != nil {
			serverError(w, r, logger, "error getting student", err)
			return
		}
		if !found {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errNotFound))
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}
// Merges the fields present in the body into an existing student.
//
// Unlike a classic PUT this is a partial update: omitted fields AND fields
// sent as null keep their stored value, so a field cannot be cleared.
//
// Request body (JSON):
//
//	{ "age": 21 }
//
// Success response (200 OK), the merged student:
//
//	{ "id": 1, "name": "Ann", "age": 21, "email": "a@x.com" }
//
// Error responses:
//
//	400 Bad Request  invalid id, empty body or malformed JSON
//	404 Not Found    no student has that id (nothing is written)
//	500 Internal     database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(svc service.StudentService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		patch, ok := decodePatch(w, r)
		if !ok {
			return
		}

		student, found, err := svc.Update(r.Context(), id, patch)
		if err != nil {
			serverError(w, r, logger, "error updating student", err)
			return
		}
		if !found {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errNotFound))
			return
		}

		requestLogger(logger, r).Info().Uint("id", id).Msg("student updated")
		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{id}
// Permanently removes a student record.
//
// The call is idempotent: deleting an id that does not exist succeeds too.
//
// Success response (200 OK):
//
//	{ "status": "deleted" }
//
// Error responses:
//
//	400 Bad Request  invalid id
//	500 Internal     database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(svc service.StudentService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			serverError(w, r, logger, "error deleting student", err)
			return
		}

		requestLogger(logger, r).Info().Uint("id", id).Msg("student deleted")
		response.WriteJSON(w, http.StatusOK, response.Status(response.StatusDeleted))
	}
}

// parseID reads the {id} path segment. ServeMux fills it from the
// "/api/students/{id}" pattern; zero and negative values are rejected.
func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, strconv.IntSize)
	if err != nil || id == 0 {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errInvalidID))
		return 0, false
	}
	return uint(id), true
}

// decodePatch reads the JSON body. io.EOF means the body was empty.
// Unknown keys (such as "id") are ignored.
func decodePatch(w http.ResponseWriter, r *http.Request) (types.StudentPatch, bool) {
	var patch types.StudentPatch
	err := json.NewDecoder(r.Body).Decode(&patch)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errEmptyBody))
		return types.StudentPatch{}, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return types.StudentPatch{}, false
	}
	return patch, true
}

func serverError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, msg string, err error) {
	requestLogger(logger, r).Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}

func requestLogger(logger zerolog.Logger, r *http.Request) *zerolog.Logger {
	l := logger.With().Str("request_id", middleware.GetRequestID(r.Context())).Logger()
	return &l
}
