package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/student-store/internal/application"
	"github.com/oksasatya/student-store/internal/interface/middleware"
	"github.com/oksasatya/student-store/pkg/response"
)

// MaxImageBytes caps a single uploaded file before compression.
const MaxImageBytes = 25 << 20

type ProductHandler struct {
	Svc    *application.ProductService
	Logger *logrus.Logger
}

func NewProductHandler(svc *application.ProductService, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{Svc: svc, Logger: logger}
}

type createProductForm struct {
	Name        string   `form:"name"`
	Description *string  `form:"description"`
	Price       float64  `form:"price"`
	Location    string   `form:"location"`
	Category    string   `form:"category"`
	Tags        []string `form:"tags"`
}

// splitTags accepts repeated tags fields as well as one comma-separated value.
func splitTags(in []string) []string {
	var out []string
	for _, t := range in {
		for _, p := range strings.Split(t, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

var errImageTooLarge = errors.New("image too large")

func readImages(files []*multipart.FileHeader) ([]application.RawImage, error) {
	out := make([]application.RawImage, 0, len(files))
	for _, fh := range files {
		if fh.Size > MaxImageBytes {
			return nil, fmt.Errorf("%w: %s", errImageTooLarge, fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		if len(data) > MaxImageBytes {
			return nil, fmt.Errorf("%w: %s", errImageTooLarge, fh.Filename)
		}
		out = append(out, application.RawImage{
			Data:        data,
			Size:        fh.Size,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
		})
	}
	return out, nil
}

// Create POST /products (multipart/form-data, files under "images")
func (h *ProductHandler) Create(c *gin.Context) {
	var form createProductForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return
	}
	var files []*multipart.FileHeader
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		files = mf.File["images"]
	}
	images, err := readImages(files)
	if err != nil {
		if errors.Is(err, errImageTooLarge) {
			response.Error[any](c, http.StatusBadRequest, "validation failed", response.ErrorBody{
				Code:    "validation",
				Details: map[string]string{"images": err.Error()},
			})
			return
		}
		writeError(c, h.Logger, err)
		return
	}

	in := application.CreateProductInput{
		Name:        strings.TrimSpace(form.Name),
		Description: form.Description,
		Price:       form.Price,
		Location:    strings.TrimSpace(form.Location),
		Category:    strings.TrimSpace(form.Category),
		Tags:        splitTags(form.Tags),
		SellerID:    c.GetString(middleware.CtxUserID),
	}
	p, err := h.Svc.Create(c.Request.Context(), in, images)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toProductResponse(p), "product created", nil)
}

// List GET /products
func (h *ProductHandler) List(c *gin.Context) {
	ps, err := h.Svc.List(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProductList(ps), "ok", map[string]any{"count": len(ps)})
}

// Search GET /products/search?q=&size=
func (h *ProductHandler) Search(c *gin.Context) {
	size := 0
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			bindError(c, err)
			return
		}
		size = n
	}
	ps, err := h.Svc.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProductList(ps), "ok", map[string]any{"count": len(ps)})
}

// Get GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProductResponse(p), "ok", nil)
}

// Update PUT /products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	var req application.UpdateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.Svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProductResponse(p), "product updated", nil)
}

// Delete DELETE /products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkSold PATCH /products/:id/sold
func (h *ProductHandler) MarkSold(c *gin.Context) {
	p, err := h.Svc.MarkSold(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProductResponse(p), "product marked as sold", nil)
}
