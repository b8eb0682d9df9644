package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/txxxxz/autonote/internal/notes"
	"github.com/txxxxz/autonote/internal/outline"
	"github.com/txxxxz/autonote/internal/pipeline"
	"github.com/txxxxz/autonote/internal/repository"
	"github.com/txxxxz/autonote/internal/style"
)

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	semantic := s.cfg.SemanticOutline
	if v := r.URL.Query().Get("semantic"); v != "" {
		semantic = v == "true"
	}
	tree, err := s.pipeline.Outline(r.Context(), sessionID, semantic)
	if errors.Is(err, repository.ErrNotFound) {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "outline failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeOutline(w, sessionID, tree)
}

func (s *Server) handleGetOutline(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	tree, err := loadArtifact[outline.Tree](r.Context(), s.repo, sessionID, repository.KindOutline)
	if errors.Is(err, repository.ErrNotFound) {
		jsonError(w, "outline not generated yet", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeOutline(w, sessionID, tree)
}

func writeOutline(w http.ResponseWriter, sessionID string, tree *outline.Tree) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"session_id": sessionID,
		"outline":    tree.Root,
		"markdown":   outline.RenderMarkdown(tree),
	})
}

type generateRequest struct {
	DetailLevel string `json:"detail_level"`
	Tone        string `json:"tone"`
	Language    string `json:"language"`
}

// handleGenerateNotes starts an asynchronous note-generation task. Only
// one task per session may run at a time.
func (s *Server) handleGenerateNotes(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Reject unknown style combinations before spending a task slot.
	if _, err := style.Build(style.DetailLevel(req.DetailLevel), style.Tone(req.Tone), style.Language(req.Language)); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.repo.GetSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			jsonError(w, "session not found", http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	task, err := s.tasks.Begin(sessionID)
	if errors.Is(err, pipeline.ErrTaskConflict) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The request ends long before generation does; run detached.
	go s.tasks.Run(task, func(progress func(notes.Progress)) error {
		_, err := s.pipeline.GenerateNotes(context.Background(), sessionID, req.DetailLevel, req.Tone, req.Language, progress)
		return err
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"task_id":    task.ID,
		"session_id": sessionID,
		"status_url": fmt.Sprintf("/api/v1/tasks/%s", task.ID),
		"events_url": fmt.Sprintf("/api/v1/tasks/%s/events", task.ID),
	})
}

func (s *Server) handleGetNotes(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	doc, err := s.pipeline.LoadNotes(r.Context(), sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		jsonError(w, "notes not generated yet", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task := s.tasks.Get(chi.URLParam(r, "taskID"))
	if task == nil {
		jsonError(w, "task not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task.Snapshot())
}

// handleTaskEvents streams task progress as server-sent events until the
// task finishes or the client disconnects.
func (s *Server) handleTaskEvents(w http.ResponseWriter, r *http.Request) {
	task := s.tasks.Get(chi.URLParam(r, "taskID"))
	if task == nil {
		jsonError(w, "task not found", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-task.Events():
			if !open {
				final, _ := json.Marshal(task.Snapshot())
				fmt.Fprintf(w, "event: done\ndata: %s\n\n", final)
				flusher.Flush()
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func loadArtifact[T any](ctx context.Context, repo *repository.Store, sessionID, kind string) (*T, error) {
	artifact, err := repo.LatestArtifact(ctx, sessionID, kind)
	if err != nil {
		return nil, err
	}
	var value T
	if err := json.Unmarshal(artifact.Payload, &value); err != nil {
		return nil, fmt.Errorf("decode %s artifact: %w", kind, err)
	}
	return &value, nil
}
