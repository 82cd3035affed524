package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wlcham/notes-server/internal/api/middleware"
	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
	"github.com/wlcham/notes-server/internal/pkg/pagination"
)

// NoteHandler handles HTTP requests for notes.
type NoteHandler struct {
	service ports.NoteService
}

func NewNoteHandler(service ports.NoteService) *NoteHandler {
	return &NoteHandler{service: service}
}

// List handles GET /notes.
//
// @Summary      List notes
// @Description  Returns one page of the caller's notes (all notes for admins), newest first.
// @Description  Navigation links are sent in the Link header.
// @Tags         notes
// @Produce      json
// @Security     BearerAuth
// @Param        title  query     string  false  "Case-insensitive title filter"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Page size (default and max 10)"
// @Success      200    {array}   domain.Note
// @Header       200    {string}  Link  "RFC 5988 navigation links"
// @Failure      400    {object}  validationResponse
// @Failure      401    {object}  errorResponse
// @Router       /notes [get]
func (h *NoteHandler) List(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}

	page, err := h.service.List(c.Request().Context(), id, ports.ListNotesInput{
		Title: c.QueryParam("title"),
		Page:  middleware.PageFrom(c),
	})
	if err != nil {
		return err
	}

	links := pagination.BuildLinks(c.Request().RequestURI, page.Page, page.TotalPages, page.Limit)
	c.Response().Header().Set("Link", links.Header())
	return c.JSON(http.StatusOK, page.Items)
}

// Get handles GET /notes/:id.
//
// @Summary      Get a note
// @Tags         notes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Note ID"
// @Success      200  {object}  ports.NoteDetail
// @Success      204  {object}  errorResponse  "Note not found"
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /notes/{id} [get]
func (h *NoteHandler) Get(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}

	note, err := h.service.Get(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, note)
}

// Create handles POST /notes.
//
// @Summary      Create a note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createNoteRequest  true  "Note"
// @Success      201   {object}  domain.Note
// @Failure      400   {object}  validationResponse
// @Failure      403   {object}  errorResponse
// @Router       /notes [post]
func (h *NoteHandler) Create(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}

	var req createNoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := ports.CreateNoteInput{Title: req.Title, Description: req.Description}
	if req.CollectionID != "" {
		in.CollectionID = &req.CollectionID
	}

	note, err := h.service.Create(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, note)
}

// Update handles PUT /notes/:id.
//
// @Summary      Update a note
// @Description  collectionId may be omitted (unchanged), null (removed from its collection) or an id (moved).
// @Tags         notes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Note ID"
// @Param        body  body      updateNoteRequest  true  "Note"
// @Success      200   {object}  domain.Note
// @Success      204   {object}  errorResponse  "Note not found"
// @Failure      400   {object}  validationResponse
// @Failure      403   {object}  errorResponse
// @Router       /notes/{id} [put]
func (h *NoteHandler) Update(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}

	var req updateNoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	coll, err := req.CollectionID.optional("collectionId")
	if err != nil {
		return err
	}

	note, err := h.service.Update(c.Request().Context(), id, c.Param("id"), ports.UpdateNoteInput{
		Title:       req.Title,
		Description: req.Description,
		Collection:  coll,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, note)
}

// Assign handles PUT /notes.
//
// @Summary      Assign a note to a collection
// @Description  A null noteCollectionID removes the note from its collection.
// @Tags         notes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      assignNoteRequest  true  "Assignment"
// @Success      200   {object}  assignResponse
// @Success      204   {object}  errorResponse  "Note not found"
// @Failure      400   {object}  validationResponse
// @Failure      403   {object}  errorResponse
// @Router       /notes [put]
func (h *NoteHandler) Assign(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}

	var req assignNoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if !req.NoteCollectionID.set {
		return domain.NewValidationError("noteCollectionID", "Collection ID is required")
	}
	target, err := req.NoteCollectionID.optional("noteCollectionID")
	if err != nil {
		return err
	}

	res, err := h.service.Assign(c.Request().Context(), id, req.NoteID, target.Value())
	if err != nil {
		return err
	}

	resp := assignResponse{
		Message: "Note removed from its collection",
		Note:    noteRef{ID: res.Note.ID, Title: res.Note.Title},
	}
	if res.Collection != nil {
		resp.Message = "Note successfully assigned to collection"
		resp.Collection = &collectionRef{ID: res.Collection.ID, Name: res.Collection.Name}
	}
	return c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /notes/:id.
//
// @Summary      Delete a note
// @Tags         notes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Note ID"
// @Success      200  {object}  messageResponse
// @Success      204  {object}  errorResponse  "Note not found"
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /notes/{id} [delete]
func (h *NoteHandler) Delete(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), id, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Note deleted successfully"})
}
