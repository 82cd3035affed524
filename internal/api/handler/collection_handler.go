package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
)

// CollectionHandler handles HTTP requests for collections.
type CollectionHandler struct {
	service ports.CollectionService
}

func NewCollectionHandler(service ports.CollectionService) *CollectionHandler {
	return &CollectionHandler{service: service}
}

// List handles GET /collections.
//
// @Summary      List collections
// @Tags         collections
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Collection
// @Failure      401  {object}  errorResponse
// @Router       /collections [get]
func (h *CollectionHandler) List(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}

	list, err := h.service.List(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Get handles GET /collections/:id.
//
// @Summary      Get a collection
// @Tags         collections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Collection ID"
// @Success      200  {object}  ports.CollectionDetail
// @Success      204  {object}  errorResponse  "Collection not found"
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /collections/{id} [get]
func (h *CollectionHandler) Get(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}

	detail, err := h.service.Get(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// RelatedNotes handles GET /collections/relatedNotes.
//
// @Summary      List the notes of a collection
// @Description  The collection id is read from the JSON body or the noteCollectionID query parameter.
// @Tags         collections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        noteCollectionID  query     string  false  "Collection ID"
// @Success      200               {array}   domain.Note
// @Success      204               {object}  errorResponse  "Collection not found"
// @Failure      400               {object}  validationResponse
// @Failure      403               {object}  errorResponse
// @Router       /collections/relatedNotes [get]
func (h *CollectionHandler) RelatedNotes(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}

	var req relatedNotesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	notes, err := h.service.RelatedNotes(c.Request().Context(), id, req.NoteCollectionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notes)
}

// Create handles POST /collections.
//
// @Summary      Create a collection
// @Description  Notes listed in the body are moved into the new collection when the caller may claim them.
// @Tags         collections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCollectionRequest  true  "Collection"
// @Success      201   {object}  createCollectionResponse
// @Failure      400   {object}  validationResponse
// @Failure      403   {object}  errorResponse
// @Router       /collections [post]
func (h *CollectionHandler) Create(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}

	var req createCollectionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := validNoteIDs(req.Notes); err != nil {
		return err
	}

	created, err := h.service.Create(c.Request().Context(), id, ports.CreateCollectionInput{
		Name:        req.Name,
		Description: req.Description,
		Notes:       req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createCollectionResponse{
		Message:    "Collection created and notes linked",
		Collection: created,
	})
}

// Update handles PUT /collections/:id.
//
// @Summary      Update a collection
// @Description  When notes is present it replaces the member set; omit it to keep the current members.
// @Tags         collections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                   true  "Collection ID"
// @Param        body  body      updateCollectionRequest  true  "Collection"
// @Success      200   {object}  domain.Collection
// @Success      204   {object}  errorResponse  "Collection not found"
// @Failure      400   {object}  validationResponse
// @Failure      403   {object}  errorResponse
// @Router       /collections/{id} [put]
func (h *CollectionHandler) Update(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}

	var req updateCollectionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := validNoteIDs(req.Notes); err != nil {
		return err
	}

	updated, err := h.service.Update(c.Request().Context(), id, c.Param("id"), ports.UpdateCollectionInput{
		Name:        req.Name,
		Description: req.Description,
		Notes:       req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /collections/:id.
//
// @Summary      Delete a collection
// @Description  Member notes are kept and detached.
// @Tags         collections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Collection ID"
// @Success      200  {object}  messageResponse
// @Success      204  {object}  errorResponse  "Collection not found"
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /collections/{id} [delete]
func (h *CollectionHandler) Delete(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), id, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Collection deleted and notes disassociated."})
}

// validNoteIDs rejects the first malformed note id.
func validNoteIDs(ids []string) error {
	for _, id := range ids {
		if !primitive.IsValidObjectID(id) {
			return domain.NewValidationError("notes", fmt.Sprintf("Invalid Note ID: %s", id))
		}
	}
	return nil
}
