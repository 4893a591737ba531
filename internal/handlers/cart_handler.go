package handlers

import (
	"net/http"

	"golang-food-checkout/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AddToCartRequest struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CartHandler struct {
	sessionHandler
}

func NewCartHandler(sessions SessionProvider, logger *zap.Logger) *CartHandler {
	return &CartHandler{sessionHandler{sessions: sessions, logger: logger.Named("cart_handler")}}
}

func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	cart := router.Group("/cart", authMiddleware.AuthRequired())
	{
		cart.GET("", h.GetCart)
		cart.POST("/items", h.AddToCart)
		cart.PUT("/items/:item_id", h.UpdateCartItem)
		cart.DELETE("/items/:item_id", h.RemoveFromCart)
		cart.DELETE("", h.ClearCart)
	}
}

// GetCart godoc
// @Summary Get the customer's cart
// @Tags cart
// @Produce json
// @Success 200 {object} services.CartSnapshot
// @Failure 502 {object} ErrorResponse
// @Router /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Cart.FetchCart(c.Request.Context()); err != nil {
		respondError(c, "Failed to get cart", err)
		return
	}
	h.persist(c, session)
	c.JSON(http.StatusOK, session.Cart.Snapshot())
}

// AddToCart godoc
// @Summary Add to an item's quantity
// @Description Quantity is a delta; it defaults to 1.
// @Tags cart
// @Accept json
// @Produce json
// @Param item body AddToCartRequest true "Cart item"
// @Success 200 {object} services.CartSnapshot
// @Failure 400 {object} ErrorResponse
// @Router /cart/items [post]
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Cart.AddItem(c.Request.Context(), req.MenuItemID, req.Quantity); err != nil {
		respondError(c, "Failed to add item", err)
		return
	}
	h.persist(c, session)
	c.JSON(http.StatusOK, session.Cart.Snapshot())
}

// UpdateCartItem godoc
// @Summary Set an item's quantity
// @Description Zero or less removes the item.
// @Tags cart
// @Accept json
// @Produce json
// @Param item_id path string true "Menu item ID"
// @Param item body UpdateCartItemRequest true "Quantity"
// @Success 200 {object} services.CartSnapshot
// @Router /cart/items/{item_id} [put]
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Cart.UpdateItem(c.Request.Context(), c.Param("item_id"), *req.Quantity); err != nil {
		respondError(c, "Failed to update item", err)
		return
	}
	h.persist(c, session)
	c.JSON(http.StatusOK, session.Cart.Snapshot())
}

func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Cart.RemoveItem(c.Request.Context(), c.Param("item_id")); err != nil {
		respondError(c, "Failed to remove item", err)
		return
	}
	h.persist(c, session)
	c.JSON(http.StatusOK, session.Cart.Snapshot())
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Cart.ClearCartItems(c.Request.Context()); err != nil {
		respondError(c, "Failed to clear cart", err)
		return
	}
	h.persist(c, session)
	c.JSON(http.StatusOK, session.Cart.Snapshot())
}
