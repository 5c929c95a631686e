package v1

import (
	"net/http"

	"go-panel-backend/internal/delivery/http/response"
	"go-panel-backend/internal/domain"
	"go-panel-backend/internal/editor"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	postUC domain.PostUsecase
	deps   EditorDeps
}

func NewPostHandler(editors *gin.RouterGroup, postUC domain.PostUsecase, deps EditorDeps) {
	handler := &PostHandler{postUC: postUC, deps: deps}

	g := editors.Group("/" + domain.CollectionPosts)
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
// @Summary      List posts
// @Tags         post
// @Produce      json
// @Success      200  {object}  response.Response{data=[]domain.Post}
// @Failure      401  {object}  response.Response
// @Router       /post [get]
func (h *PostHandler) List(c *gin.Context) {
	items, err := h.postUC.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "OK", items)
}

// Export godoc
// @Summary      Download posts
// @Tags         post
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      text/csv
// @Param        format  query  string  false  "xlsx (default) or csv"
// @Success      200
// @Router       /post/export [get]
func (h *PostHandler) Export(c *gin.Context) {
	sendExport(c, domain.CollectionPosts, h.postUC.Export, h.deps.Audit)
}

// Create godoc
// @Summary      Add a post
// @Description  createdAt is the server time; updatedAt stays null until the first edit.
// @Tags         post
// @Accept       json
// @Produce      json
// @Param        post     body      domain.PostInput  true  "Post"
// @Success      201      {object}  response.Response{data=domain.Post}
// @Failure      422      {object}  response.Response
// @Router       /post [post]
func (h *PostHandler) Create(c *gin.Context) {
	var input domain.PostInput
	if !bindInput(c, &input) {
		return
	}
	item, err := h.postUC.Create(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Registro agregado", item)
}

// Update godoc
// @Summary      Edit a post
// @Tags         post
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Document id"
// @Param        post     body      domain.PostInput  true  "Post"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /post/{id} [put]
func (h *PostHandler) Update(c *gin.Context) {
	var input domain.PostInput
	if !bindInput(c, &input) {
		return
	}
	if err := h.postUC.Update(c.Request.Context(), c.Param("id"), input); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Cambios guardados", nil)
}

// Delete godoc
// @Summary      Delete a post
// @Tags         post
// @Param        id       path   string  true  "Document id"
// @Param        confirm  query  bool    true  "Must be true"
// @Success      200  {object}  response.Response
// @Failure      428  {object}  response.Response
// @Router       /post/{id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	if !confirmed(c) {
		return
	}
	if err := h.postUC.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Registro eliminado", nil)
}

// Editor godoc
// @Summary      Live post editor (websocket)
// @Tags         post
// @Success      101
// @Router       /post/editor [get]
func (h *PostHandler) Editor(c *gin.Context) {
	serveEditor(c, h.deps.Sockets, editor.PostAdapter(h.postUC), h.deps.recorder())
}
