package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"

	"study-rag/internal/models"
	"study-rag/internal/rag"
)

const (
	maxUploadBytes  = 64 << 20
	maxUploadMemory = 32 << 20
	uploadField     = "file"
)

// Service is what the handlers need from the study service
type Service interface {
	UploadPDF(ctx context.Context, filename string, body io.Reader) (int, error)
	GenerateAll(ctx context.Context) (models.GenerateSummary, error)
	Chat(ctx context.Context, question string, history []rag.ChatTurn) (models.ChatResponse, error)
	RunDemo(ctx context.Context) (map[string]int, error)
	Flashcards() ([]byte, error)
	Quizzes() ([]byte, error)
	Planner() ([]byte, error)
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Question    string         `json:"question" validate:"required"`
	ChatHistory []rag.ChatTurn `json:"chat_history"`
}

type UploadResponse struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

type DemoResponse struct {
	Status  string         `json:"status"`
	Summary map[string]int `json:"summary"`
}

type Handler struct {
	svc       Service
	validator *validator.Validate
}

func NewHandler(svc Service) *Handler {
	return &Handler{
		svc:       svc,
		validator: validator.New(),
	}
}

// UploadPDF handles POST /upload_pdf
func (h *Handler) UploadPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(w, r, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		RespondWithError(w, r, http.StatusBadRequest, "Invalid multipart upload")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	chunks, err := h.svc.UploadPDF(r.Context(), header.Filename, file)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("file", header.Filename).Int("chunks", chunks).Msg("PDF indexed")
	RespondWithJSON(w, r, http.StatusOK, UploadResponse{Status: "ok", Chunks: chunks})
}

// GenerateAll handles POST /generate_all
func (h *Handler) GenerateAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.GenerateAll(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, summary)
}

// RunDemo handles POST /run_demo
func (h *Handler) RunDemo(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.RunDemo(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, DemoResponse{Status: "ok", Summary: summary})
}

// Chat handles POST /chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	resp, err := h.svc.Chat(r.Context(), req.Question, req.ChatHistory)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) Flashcards(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, h.svc.Flashcards)
}

func (h *Handler) Quizzes(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, h.svc.Quizzes)
}

func (h *Handler) Planner(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, h.svc.Planner)
}

func (h *Handler) serveArtifact(w http.ResponseWriter, r *http.Request, load func() ([]byte, error)) {
	data, err := load()
	if err != nil {
		HandleError(w, r, err)
		return
	}
	RespondWithRawJSON(w, r, http.StatusOK, data)
}

func Health(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
