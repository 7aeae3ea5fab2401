package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/nhle/todolist/internal/model"
)

type reorderRequest struct {
	Order json.RawMessage `json:"order"`
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request, user model.User) {
	todos, err := s.store.ListTodos(r.Context(), user.ID)
	if err != nil {
		s.writeStoreError(w, r, err, "Todo not found", "Conflict", "Failed to fetch todos")
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request, user model.User) {
	var in model.NewTodo
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	todo, err := s.store.CreateTodo(r.Context(), user.ID, in)
	if err != nil {
		s.writeStoreError(w, r, err, "Todo not found", "Conflict", "Failed to create todo")
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request, user model.User) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}

	var u model.TodoUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	todo, err := s.store.UpdateTodo(r.Context(), user.ID, id, u)
	if err != nil {
		s.writeStoreError(w, r, err, "Todo not found", "Conflict", "Failed to update todo")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request, user model.User) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}

	if err := s.store.DeleteTodo(r.Context(), user.ID, id); err != nil {
		s.writeStoreError(w, r, err, "Todo not found", "Conflict", "Failed to delete todo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderTodos(w http.ResponseWriter, r *http.Request, user model.User) {
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	raw := bytes.TrimSpace(req.Order)
	var ids []int64
	if len(raw) == 0 || raw[0] != '[' || json.Unmarshal(raw, &ids) != nil {
		writeError(w, http.StatusBadRequest, "Order array is required")
		return
	}

	todos, err := s.store.ReorderTodos(r.Context(), user.ID, ids)
	if err != nil {
		s.writeStoreError(w, r, err, "Todo not found", "Conflict", "Failed to reorder todos")
		return
	}
	writeJSON(w, http.StatusOK, todos)
}
