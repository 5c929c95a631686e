package v1

import (
	"net/http"

	"go-panel-backend/internal/delivery/http/response"
	"go-panel-backend/internal/domain"
	"go-panel-backend/internal/editor"
	"go-panel-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	productUC domain.ProductUsecase
	deps      EditorDeps
}

func NewProductHandler(editors *gin.RouterGroup, productUC domain.ProductUsecase, deps EditorDeps) {
	handler := &ProductHandler{productUC: productUC, deps: deps}
	upload := orPass(deps.Upload)

	g := editors.Group("/" + domain.CollectionProducts)
	{
		g.GET("", handler.List)
		g.GET("/export", handler.Export)
		g.GET("/editor", handler.Editor)
		g.POST("", upload, handler.Create)
		g.PUT("/:id", upload, handler.Update)
		g.DELETE("/:id", handler.Delete)
	}
}

// List godoc
// @Summary      List products, newest first
// @Tags         productos
// @Produce      json
// @Success      200  {object}  response.Response{data=[]domain.Product}
// @Failure      401  {object}  response.Response
// @Router       /productos [get]
func (h *ProductHandler) List(c *gin.Context) {
	items, err := h.productUC.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "OK", items)
}

// Export godoc
// @Summary      Download products
// @Tags         productos
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      text/csv
// @Param        format  query  string  false  "xlsx (default) or csv"
// @Success      200
// @Router       /productos/export [get]
func (h *ProductHandler) Export(c *gin.Context) {
	sendExport(c, domain.CollectionProducts, h.productUC.Export, h.deps.Audit)
}

// Create godoc
// @Summary      Add a product
// @Description  The image is uploaded first; the record is written only when the upload succeeds.
// @Tags         productos
// @Accept       multipart/form-data
// @Produce      json
// @Param        titulo       formData  string  true  "Title"
// @Param        descripcion  formData  string  true  "Description"
// @Param        categoria    formData  string  true  "Category"
// @Param        precio       formData  number  true  "Price"
// @Param        imagen       formData  file    true  "Product image"
// @Success      201  {object}  response.Response{data=domain.Product}
// @Failure      422  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /productos [post]
func (h *ProductHandler) Create(c *gin.Context) {
	input, image, ok := h.bind(c)
	if !ok {
		return
	}
	item, err := h.productUC.Create(c.Request.Context(), input, image)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Producto agregado", item)
}

// Update godoc
// @Summary      Edit a product
// @Description  imagenURL is replaced only when a new imagen is sent.
// @Tags         productos
// @Accept       multipart/form-data
// @Produce      json
// @Param        id           path      string  true   "Document id"
// @Param        titulo       formData  string  true   "Title"
// @Param        descripcion  formData  string  true   "Description"
// @Param        categoria    formData  string  true   "Category"
// @Param        precio       formData  number  true   "Price"
// @Param        imagen       formData  file    false  "Replacement image"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /productos/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	input, image, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.productUC.Update(c.Request.Context(), c.Param("id"), input, image); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Cambios guardados", nil)
}

func (h *ProductHandler) bind(c *gin.Context) (domain.ProductInput, *domain.Upload, bool) {
	var input domain.ProductInput
	if !bindInput(c, &input) {
		return input, nil, false
	}
	image, err := formUpload(c, "imagen", h.deps.MaxUpload)
	if err != nil {
		c.Error(apperror.BadRequest(apperror.MsgStorageFailed))
		return input, nil, false
	}
	return input, image, true
}

// Delete godoc
// @Summary      Delete a product
// @Tags         productos
// @Param        id       path   string  true  "Document id"
// @Param        confirm  query  bool    true  "Must be true"
// @Success      200  {object}  response.Response
// @Failure      428  {object}  response.Response
// @Router       /productos/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	if !confirmed(c) {
		return
	}
	if err := h.productUC.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Producto eliminado", nil)
}

// Editor godoc
// @Summary      Live product editor (websocket)
// @Description  save and create commands may carry {"image":{"filename","data"}} with base64 data.
// @Tags         productos
// @Success      101
// @Router       /productos/editor [get]
func (h *ProductHandler) Editor(c *gin.Context) {
	serveEditor(c, h.deps.Sockets, editor.ProductAdapter(h.productUC), h.deps.recorder())
}
