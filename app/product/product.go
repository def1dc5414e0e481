package product

import (
	"net/http"

	"github.com/yamar8/lovetree-backend/internal"
	"github.com/yamar8/lovetree-backend/internal/response"
	"github.com/yamar8/lovetree-backend/internal/store"
	"github.com/yamar8/lovetree-backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type removeBody struct {
	ID string `json:"id"`
}

type singleBody struct {
	ProductID string `json:"productId"`
}

type editBody struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       number `json:"price"`
}

type reviewBody struct {
	ID      string `json:"_id"`
	Rating  number `json:"rating"`
	Comment string `json:"comment"`
}

func ProductList(c *gin.Context, d *internal.Deps) {
	products, err := d.Catalog.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"products": products})
}

func ProductSingle(c *gin.Context, d *internal.Deps) {
	var data singleBody
	if !bind(c, &data) {
		return
	}

	product, err := d.Catalog.Get(c.Request.Context(), data.ProductID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"product": product})
}

func ProductRemove(c *gin.Context, d *internal.Deps) {
	var data removeBody
	if !bind(c, &data) {
		return
	}

	if err := d.Catalog.Remove(c.Request.Context(), data.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "Product Removed"})
}

// ProductEdit takes a JSON array of edits and applies all of them or none
func ProductEdit(c *gin.Context, d *internal.Deps) {
	var data []editBody
	if !bind(c, &data) {
		return
	}

	edits := make([]store.ProductEdit, len(data))
	for i, e := range data {
		edits[i] = store.ProductEdit{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Category:    e.Category,
			Price:       float64(e.Price),
		}
	}

	if err := d.Catalog.Edit(c.Request.Context(), edits); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "Products updated successfully"})
}

func ProductReview(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var data reviewBody
	if !bind(c, &data) {
		return
	}

	rating := int(data.Rating)
	if float64(rating) != float64(data.Rating) {
		response.Fail(c, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	if err := d.Catalog.AddReview(c.Request.Context(), data.ID, userID, rating, data.Comment); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "Review Added"})
}

func ProductCategories(c *gin.Context, d *internal.Deps) {
	categories, err := d.Catalog.Categories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"categories": categories})
}

func bind(c *gin.Context, dst any) bool {
	requestID := c.MustGet("requestID").(string)

	if err := c.ShouldBindJSON(dst); err != nil {
		if middleware.IsBodyTooLarge(err) {
			response.Fail(c, http.StatusRequestEntityTooLarge, "Request body size exceeds limit")
			return false
		}

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		response.Fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}

	return true
}
