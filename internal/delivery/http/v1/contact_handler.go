package v1

import (
	"net/http"

	"go-panel-backend/internal/delivery/http/response"
	"go-panel-backend/internal/domain"
	"go-panel-backend/internal/editor"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	contactUC domain.ContactUsecase
	deps      EditorDeps
}

func NewContactHandler(editors *gin.RouterGroup, contactUC domain.ContactUsecase, deps EditorDeps) {
	handler := &ContactHandler{contactUC: contactUC, deps: deps}

	g := editors.Group("/" + domain.CollectionContacts)
	{
		g.GET("", handler.List)
		g.GET("/export", handler.Export)
		g.GET("/editor", handler.Editor)
		g.POST("", handler.Create)
		g.PUT("/:id", handler.Update)
		g.DELETE("/:id", handler.Delete)
	}
}

// List godoc
// @Summary      List contacts
// @Tags         usuarios
// @Produce      json
// @Success      200  {object}  response.Response{data=[]domain.Contact}
// @Failure      401  {object}  response.Response
// @Router       /usuarios [get]
func (h *ContactHandler) List(c *gin.Context) {
	items, err := h.contactUC.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "OK", items)
}

// Export godoc
// @Summary      Download contacts
// @Tags         usuarios
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      text/csv
// @Param        format  query  string  false  "xlsx (default) or csv"
// @Success      200
// @Router       /usuarios/export [get]
func (h *ContactHandler) Export(c *gin.Context) {
	sendExport(c, domain.CollectionContacts, h.contactUC.Export, h.deps.Audit)
}

// Create godoc
// @Summary      Add a contact
// @Description  fecha is set to the creation date (d/m/yyyy).
// @Tags         usuarios
// @Accept       json
// @Produce      json
// @Param        contact  body      domain.ContactInput  true  "Contact"
// @Success      201      {object}  response.Response{data=domain.Contact}
// @Failure      422      {object}  response.Response
// @Router       /usuarios [post]
func (h *ContactHandler) Create(c *gin.Context) {
	var input domain.ContactInput
	if !bindInput(c, &input) {
		return
	}
	item, err := h.contactUC.Create(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Registro agregado", item)
}

// Update godoc
// @Summary      Edit a contact
// @Tags         usuarios
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Document id"
// @Param        contact  body      domain.ContactInput  true  "Contact"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /usuarios/{id} [put]
func (h *ContactHandler) Update(c *gin.Context) {
	var input domain.ContactInput
	if !bindInput(c, &input) {
		return
	}
	if err := h.contactUC.Update(c.Request.Context(), c.Param("id"), input); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Cambios guardados", nil)
}

// Delete godoc
// @Summary      Delete a contact
// @Tags         usuarios
// @Param        id       path   string  true  "Document id"
// @Param        confirm  query  bool    true  "Must be true"
// @Success      200  {object}  response.Response
// @Failure      428  {object}  response.Response
// @Router       /usuarios/{id} [delete]
func (h *ContactHandler) Delete(c *gin.Context) {
	if !confirmed(c) {
		return
	}
	if err := h.contactUC.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Registro eliminado", nil)
}

// Editor godoc
// @Summary      Live contact editor (websocket)
// @Tags         usuarios
// @Success      101
// @Router       /usuarios/editor [get]
func (h *ContactHandler) Editor(c *gin.Context) {
	serveEditor(c, h.deps.Sockets, editor.ContactAdapter(h.contactUC), h.deps.recorder())
}
