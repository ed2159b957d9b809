// Package api exposes the engine's operations over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/discovery"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/links"
)

// ProductReader loads catalog products.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// ProgramDiscoverer finds affiliate programs for a product.
type ProgramDiscoverer interface {
	Discover(ctx context.Context, product *domain.Product, platform *domain.Platform) (discovery.Result, error)
}

// LinkService manages the affiliate link lifecycle.
type LinkService interface {
	GenerateLink(ctx context.Context, product *domain.Product, platform domain.Platform) (*domain.AffiliateLink, error)
	GenerateAllLinks(ctx context.Context, products []domain.Product) (*links.BatchResult, error)
	RefreshLink(ctx context.Context, id int64) (*links.RefreshResult, error)
	DeleteLink(ctx context.Context, id int64) error
	ListLinks(ctx context.Context, productID int64) ([]domain.AffiliateLink, error)
}

// AdService recommends and writes ad copy.
type AdService interface {
	Analyze(ctx context.Context, product *domain.Product) (*domain.RecommendationResult, error)
	Generate(ctx context.Context, product *domain.Product, adType *domain.AdType, instructions string) (*domain.GeneratedAdCopy, error)
	History(ctx context.Context, productID int64) ([]domain.GeneratedAdCopy, error)
}

// Handler handles HTTP requests for the affiliate engine API.
type Handler struct {
	products  ProductReader
	discovery ProgramDiscoverer
	links     LinkService
	ads       AdService
	log       logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	products ProductReader,
	programs ProgramDiscoverer,
	linkService LinkService,
	ads AdService,
	log logger.Logger,
) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		products:  products,
		discovery: programs,
		links:     linkService,
		ads:       ads,
		log:       log,
	}
}

// GenerateLinkRequest is the body of POST /products/:id/links.
type GenerateLinkRequest struct {
	Platform string `binding:"required" json:"platform"`
}

// GenerateAdRequest is the body of POST /products/:id/ads. An empty AdType
// uses the recommended format.
type GenerateAdRequest struct {
	AdType             string `json:"ad_type"`
	CustomInstructions string `json:"custom_instructions"`
}

// ProgramsResponse lists discovered programs, best first.
type ProgramsResponse struct {
	ProductID    int64              `json:"product_id"`
	Programs     []domain.Candidate `json:"programs"`
	UsedFallback bool               `json:"used_fallback"`
	Total        int                `json:"total"`
}

// LinksResponse lists a product's links.
type LinksResponse struct {
	Links []domain.AffiliateLink `json:"links"`
	Total int                    `json:"total"`
}

// AdHistoryResponse lists a product's generated copy.
type AdHistoryResponse struct {
	AdCopies []domain.GeneratedAdCopy `json:"ad_copies"`
	Total    int                      `json:"total"`
}

// DiscoverPrograms handles GET /products/:id/programs?platform=.
func (h *Handler) DiscoverPrograms(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	var platform *domain.Platform
	if raw := c.Query("platform"); raw != "" {
		p, err := domain.ParsePlatform(raw)
		if err != nil {
			h.respondError(c, err)
			return
		}
		platform = &p
	}

	result, err := h.discovery.Discover(c.Request.Context(), product, platform)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ProgramsResponse{
		ProductID:    product.ID,
		Programs:     result.Candidates,
		UsedFallback: result.UsedFallback(),
		Total:        len(result.Candidates),
	})
}

// GenerateLink handles POST /products/:id/links.
func (h *Handler) GenerateLink(c *gin.Context) {
	var req GenerateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	platform, err := domain.ParsePlatform(req.Platform)
	if err != nil {
		h.respondError(c, err)
		return
	}

	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	link, err := h.links.GenerateLink(c.Request.Context(), product, platform)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info("Affiliate link generated",
		logger.ProductID(product.ID),
		logger.Platform(string(platform)),
		logger.LinkID(link.ID),
	)
	c.JSON(http.StatusCreated, link)
}

// ListLinks handles GET /products/:id/links.
func (h *Handler) ListLinks(c *gin.Context) {
	productID, ok := parseID(c)
	if !ok {
		return
	}

	out, err := h.links.ListLinks(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, LinksResponse{Links: out, Total: len(out)})
}

// GenerateAllLinks handles POST /links/generate-all.
func (h *Handler) GenerateAllLinks(c *gin.Context) {
	products, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.links.GenerateAllLinks(c.Request.Context(), products)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"links":     result.Links,
		"errors":    batchErrors(result.Errors),
		"generated": len(result.Links),
		"failed":    len(result.Errors),
	})
}

// RefreshLink handles POST /links/:id/refresh.
func (h *Handler) RefreshLink(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.links.RefreshLink(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteLink handles DELETE /links/:id.
func (h *Handler) DeleteLink(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.links.DeleteLink(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecommendAd handles GET /products/:id/ads/recommendation.
func (h *Handler) RecommendAd(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	result, err := h.ads.Analyze(c.Request.Context(), product)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GenerateAd handles POST /products/:id/ads.
func (h *Handler) GenerateAd(c *gin.Context) {
	var req GenerateAdRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	var adType *domain.AdType
	if req.AdType != "" {
		at, err := domain.ParseAdType(req.AdType)
		if err != nil {
			h.respondError(c, err)
			return
		}
		adType = &at
	}

	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	saved, err := h.ads.Generate(c.Request.Context(), product, adType, req.CustomInstructions)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// AdHistory handles GET /products/:id/ads.
func (h *Handler) AdHistory(c *gin.Context) {
	productID, ok := parseID(c)
	if !ok {
		return
	}

	out, err := h.ads.History(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AdHistoryResponse{AdCopies: out, Total: len(out)})
}

func (h *Handler) loadProduct(c *gin.Context) (*domain.Product, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}

	product, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return product, true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, fmt.Sprintf("invalid id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

func batchErrors(items []links.ItemError) []ErrorResponse {
	out := make([]ErrorResponse, 0, len(items))
	for _, item := range items {
		resp, _ := describe(item.Err)
		resp.ProductID = item.ProductID
		resp.Platform = string(item.Platform)
		out = append(out, resp)
	}
	return out
}
