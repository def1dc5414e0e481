package product

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/yamar8/lovetree-backend/internal"
	"github.com/yamar8/lovetree-backend/internal/response"
	"github.com/yamar8/lovetree-backend/internal/service"
	"github.com/yamar8/lovetree-backend/pkg/middleware"
	"github.com/yamar8/lovetree-backend/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProductAdd expects a multipart form with the product fields and the images
// in image1, image2 and so on
func ProductAdd(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	if !strings.HasPrefix(c.Request.Header.Get("Content-Type"), "multipart/form-data") {
		response.Fail(c, http.StatusBadRequest, "Invalid request")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			response.Fail(c, http.StatusRequestEntityTooLarge, "Request body size exceeds limit")
			return
		}

		zap.L().Debug("Failed to parse multipart form", zap.Error(err), zap.String("requestID", requestID))
		response.Fail(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	p := service.NewProduct{
		Name:        formValue(form, "name"),
		Description: formValue(form, "description"),
		Category:    formValue(form, "category"),
		SubCategory: formValue(form, "subCategory"),
		Bestseller:  formValue(form, "bestseller") == "true",
	}

	if raw := formValue(form, "price"); raw != "" {
		p.Price, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, "Price must be a number")
			return
		}
	}

	if raw := formValue(form, "sizes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Sizes); err != nil {
			response.Fail(c, http.StatusBadRequest, "Sizes must be a JSON array of strings")
			return
		}
	}

	var images []service.Image
	defer func() {
		for _, img := range images {
			img.Body.(multipart.File).Close()
		}
	}()

	for i := 1; i <= d.Catalog.MaxImages(); i++ {
		files := form.File[fmt.Sprintf("image%d", i)]
		if len(files) == 0 {
			continue
		}

		code, f, mime, err := validators.ImageValidator(files[0], d.ImageRules)
		if err != nil {
			if code == http.StatusInternalServerError {
				zap.L().Error("Failed to validate image", zap.Error(err), zap.String("requestID", requestID))
				response.Fail(c, code, "Internal server error")
				return
			}

			response.Fail(c, code, fmt.Sprintf("image%d: %s", i, err.Error()))
			return
		}

		images = append(images, service.Image{Body: f, ContentType: mime})
	}

	product, err := d.Catalog.Add(c.Request.Context(), p, images)
	if err != nil {
		response.Error(c, err)
		return
	}

	zap.L().Info("Product added", zap.String("productID", product.ID), zap.String("requestID", requestID))

	response.OK(c, gin.H{
		"message": "Product Added",
		"product": product,
	})
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}

	return ""
}
