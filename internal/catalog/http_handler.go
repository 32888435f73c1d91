package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"booklibrary/internal/httpx"
)

const persistWarning = "change applied in memory but could not be saved"

type HTTPHandler struct {
	svc     *Service
	version string
}

func NewHTTPHandler(svc *Service, version string) *HTTPHandler {
	return &HTTPHandler{svc: svc, version: version}
}

type AddBookRequest struct {
	ISBN string `json:"isbn" validate:"notblank,max=64"`
}

type AddManualRequest struct {
	Title  string `json:"title" validate:"notblank,max=500"`
	Author string `json:"author" validate:"notblank,max=500"`
	ISBN   string `json:"isbn" validate:"notblank,max=64"`
}

// RegisterRoutes mounts the catalog API on mux. Mutating routes are wrapped in protect.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /{$}", h.Info)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /books", h.List)
	mux.HandleFunc("GET /books/{isbn}", h.GetByISBN)
	mux.HandleFunc("GET /stats", h.Stats)
	mux.Handle("POST /books", protect(http.HandlerFunc(h.Add)))
	mux.Handle("POST /books/manual", protect(http.HandlerFunc(h.AddManual)))
	mux.Handle("DELETE /books/{isbn}", protect(http.HandlerFunc(h.Delete)))
}

// Info handles GET /
// @Summary API information
// @Tags meta
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router / [get]
func (h *HTTPHandler) Info(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, map[string]string{
		"message": "Welcome to the Library Management API",
		"version": h.version,
	}, nil)
}

// Health handles GET /health
// @Summary Health check
// @Tags meta
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /health [get]
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, map[string]any{
		"status": "healthy",
		"books":  h.svc.Count(),
	}, nil)
}

// List handles GET /books
// @Summary Get all books
// @Description Retrieve every book in the catalog in the order it was added
// @Tags books
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	books := h.svc.List()
	httpx.JSONSuccess(w, r, books, map[string]any{"total": len(books)})
}

// GetByISBN handles GET /books/{isbn}
// @Summary Get a specific book
// @Tags books
// @Produce json
// @Param isbn path string true "Book ISBN"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{isbn} [get]
func (h *HTTPHandler) GetByISBN(w http.ResponseWriter, r *http.Request) {
	isbn := r.PathValue("isbn")
	book, ok := h.svc.Find(isbn)
	if !ok {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Book with ISBN %s not found", isbn), nil)
		return
	}
	httpx.JSONSuccess(w, r, book, nil)
}

// Add handles POST /books
// @Summary Add a book by ISBN
// @Description Add a book by fetching its details from Open Library
// @Tags books
// @Accept json
// @Produce json
// @Param request body AddBookRequest true "ISBN to add"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Failure 502 {object} httpx.ErrorResponse
// @Failure 504 {object} httpx.ErrorResponse
// @Router /books [post]
func (h *HTTPHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	book, err := h.svc.AddByISBN(r.Context(), req.ISBN)
	h.writeMutation(w, r, http.StatusCreated, book, err)
}

// AddManual handles POST /books/manual
// @Summary Add a book manually
// @Tags books
// @Accept json
// @Produce json
// @Param request body AddManualRequest true "Book to add"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /books/manual [post]
func (h *HTTPHandler) AddManual(w http.ResponseWriter, r *http.Request) {
	var req AddManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	book, err := h.svc.AddManual(r.Context(), req.Title, req.Author, req.ISBN)
	h.writeMutation(w, r, http.StatusCreated, book, err)
}

// Delete handles DELETE /books/{isbn}
// @Summary Delete a book
// @Tags books
// @Produce json
// @Param isbn path string true "Book ISBN"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{isbn} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	book, err := h.svc.Remove(r.Context(), r.PathValue("isbn"))
	h.writeMutation(w, r, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Book with ISBN %s successfully removed", book.ISBN),
		"book":    book,
	}, err)
}

// Stats handles GET /stats
// @Summary Get library statistics
// @Tags books
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /stats [get]
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, h.svc.Stats(5), nil)
}

// writeMutation renders the outcome of a mutating call. A persist failure is
// still a success for the caller, with a warning in meta.
func (h *HTTPHandler) writeMutation(w http.ResponseWriter, r *http.Request, status int, data any, err error) {
	var meta map[string]any
	if err != nil {
		if !errors.Is(err, ErrPersistFailed) {
			h.writeError(w, r, err)
			return
		}
		meta = map[string]any{"warning": persistWarning}
	}

	if status == http.StatusCreated {
		httpx.JSONSuccessCreated(w, r, data, meta)
		return
	}
	httpx.JSONSuccess(w, r, data, meta)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	case errors.Is(err, ErrAlreadyExists):
		httpx.JSONError(w, r, http.StatusConflict, "ALREADY_EXISTS", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrLookupNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "ISBN_NOT_FOUND", "Could not find book in Open Library", nil)
	case errors.Is(err, ErrLookupTimeout):
		httpx.JSONError(w, r, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "Open Library did not respond in time", nil)
	case errors.Is(err, ErrResolutionFailed):
		httpx.JSONError(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", "Open Library lookup failed", nil)
	default:
		log.Printf("catalog request failed request_id=%s: %v", httpx.RequestIDFrom(r), err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
