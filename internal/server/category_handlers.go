package server

import (
	"net/http"

	"github.com/nhle/todolist/internal/model"
)

type categoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, user model.User) {
	cats, err := s.store.ListCategories(r.Context(), user.ID)
	if err != nil {
		s.writeStoreError(w, r, err, "Category not found", "Category already exists", "Failed to fetch categories")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, user model.User) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	cat, err := s.store.CreateCategory(r.Context(), user.ID, req.Name)
	if err != nil {
		s.writeStoreError(w, r, err, "Category not found", "Category already exists", "Failed to create category")
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request, user model.User) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}

	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	cat, err := s.store.RenameCategory(r.Context(), user.ID, id, req.Name)
	if err != nil {
		s.writeStoreError(w, r, err, "Category not found", "Category already exists", "Failed to update category")
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, user model.User) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}

	if err := s.store.DeleteCategory(r.Context(), user.ID, id); err != nil {
		s.writeStoreError(w, r, err, "Category not found", "Category already exists", "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
