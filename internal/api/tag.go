package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type TagHandler struct {
	authService service.IAuthService
	tags        service.ITagService
}

func NewTagHandler(authService service.IAuthService, tags service.ITagService) *TagHandler {
	return &TagHandler{authService: authService, tags: tags}
}

func (h *TagHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := []gin.HandlerFunc{middleware.AuthMiddleware(h.authService), middleware.RequireAdmin()}

	tags := router.Group("/tags")
	{
		tags.GET("/", h.ListTags)
		tags.GET("/:id/", h.GetTag)
		tags.POST("/", append(admin, h.CreateTag)...)
		tags.DELETE("/:id/", append(admin, h.DeleteTag)...)
	}
}

func (h *TagHandler) ListTags(c *gin.Context) {
	tags, err := h.tags.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]types.TagResponse, len(tags))
	for i := range tags {
		out[i] = tagResponse(&tags[i])
	}
	c.JSON(http.StatusOK, out)
}

func (h *TagHandler) GetTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	tag, err := h.tags.GetTag(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tagResponse(tag))
}

func (h *TagHandler) CreateTag(c *gin.Context) {
	var req types.TagRequest
	if !bindJSON(c, &req) {
		return
	}

	tag, err := h.tags.CreateTag(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tagResponse(tag))
}

func (h *TagHandler) DeleteTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.tags.DeleteTag(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
