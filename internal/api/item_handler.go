package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tbellam/translateq/internal/item"
)

// ItemLibrary is the item registration surface the handlers consume.
type ItemLibrary interface {
	List(ctx context.Context) ([]item.Ref, error)
	Create(ctx context.Context, ref item.Ref) (item.Ref, error)
}

// ItemHandler handles library item endpoints.
type ItemHandler struct {
	library  ItemLibrary
	validate *validator.Validate
	logger   *slog.Logger
}

// NewItemHandler creates an ItemHandler.
func NewItemHandler(library ItemLibrary, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		library:  library,
		validate: validator.New(),
		logger:   logger.With("component", "item_handler"),
	}
}

// ListItems handles GET /items.
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.library.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list items", "error", err)
		RespondWithError(w, r, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []item.Ref{}
	}
	RespondWithJSON(w, r, http.StatusOK, items)
}

// CreateItem handles POST /items.
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "kind must be document or attachment")
		return
	}

	created, err := h.library.Create(r.Context(), item.Ref{
		ParentID:    req.ParentID,
		Kind:        item.Kind(req.Kind),
		Title:       req.Title,
		Filename:    req.Filename,
		Path:        req.Path,
		ContentType: req.ContentType,
		Collections: req.Collections,
	})
	if errors.Is(err, item.ErrInvalidItem) {
		RespondWithError(w, r, http.StatusBadRequest, "invalid item data")
		return
	}
	if err != nil {
		h.logger.Error("failed to create item", "error", err)
		RespondWithError(w, r, http.StatusInternalServerError, "failed to create item")
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, created)
}
