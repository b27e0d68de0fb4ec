package handler

import (
	"net/http"

	"catalog-chat/internal/domain"
	"catalog-chat/internal/repository"
	"catalog-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the initial page data: the catalog and the chat history.
// Live updates after that arrive over the websocket.
type CatalogHandler struct {
	products repository.ProductRepository
	messages repository.MessageRepository
}

func NewCatalogHandler(products repository.ProductRepository, messages repository.MessageRepository) *CatalogHandler {
	return &CatalogHandler{products: products, messages: messages}
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.products.ReadAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewListResponse(products))
}

func (h *CatalogHandler) ListMessages(c *gin.Context) {
	messages, err := h.messages.ReadAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewListResponse(messages))
}

// SampleProducts previews the starter catalog without touching the store.
func (h *CatalogHandler) SampleProducts(c *gin.Context) {
	samples := domain.SampleCatalog()
	products := make([]domain.Product, 0, len(samples))
	for i, in := range samples {
		p := in.ToProduct()
		p.ID = domain.ProductID(i + 1)
		products = append(products, p)
	}
	c.JSON(http.StatusOK, httpdto.NewListResponse(products))
}
