package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-favourites/internal/dto"
	"github.com/prperemyshlev/media-favourites/internal/service"
	"go.uber.org/zap"
)

// FavouriteHandler handles favourite requests
type FavouriteHandler struct {
	favouriteService service.FavouriteService
	logger           *zap.Logger
}

// NewFavouriteHandler creates a new favourite handler
func NewFavouriteHandler(favouriteService service.FavouriteService, logger *zap.Logger) *FavouriteHandler {
	return &FavouriteHandler{
		favouriteService: favouriteService,
		logger:           logger,
	}
}

// List returns the user's favourites
// @Summary List favourites
// @Tags favourite
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.FavouritesResponse
// @Router /favourite [get]
func (h *FavouriteHandler) List(c *gin.Context) {
	favourites, err := h.favouriteService.List(c.Request.Context(), UserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	items := make([]dto.FavouriteItem, 0, len(favourites))
	for _, f := range favourites {
		items = append(items, dto.FavouriteItem{
			ID:        f.MediaID,
			URL:       f.MediaURL,
			MediaType: string(f.MediaType),
		})
	}

	c.JSON(http.StatusOK, dto.FavouritesResponse{Favourites: items})
}

// ListIDs returns the media ids the user has favourited
// @Summary List favourite media ids
// @Tags favourite
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.FavouriteIDsResponse
// @Router /favourite/ids [get]
func (h *FavouriteHandler) ListIDs(c *gin.Context) {
	ids, err := h.favouriteService.ListIDs(c.Request.Context(), UserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.FavouriteIDsResponse{FavouriteIDs: ids})
}

// Add favourites a media item
// @Summary Add favourite
// @Tags favourite
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.AddFavouriteRequest true "Media item"
// @Success 201 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /favourite [post]
func (h *FavouriteHandler) Add(c *gin.Context) {
	var req dto.AddFavouriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.favouriteService.Add(c.Request.Context(), UserID(c), &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.SuccessResponse{Message: "Favorite added successfully"})
}

// Remove deletes a favourite by media id
// @Summary Remove favourite
// @Tags favourite
// @Security BearerAuth
// @Produce json
// @Param mediaId path int true "Media id"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /favourite/{mediaId} [delete]
func (h *FavouriteHandler) Remove(c *gin.Context) {
	mediaID, err := strconv.ParseInt(c.Param("mediaId"), 10, 64)
	if err != nil || mediaID <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: "Invalid media id",
		})
		return
	}

	if err := h.favouriteService.Remove(c.Request.Context(), UserID(c), mediaID); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Favorite removed successfully"})
}

// Top returns the most favourited media across all users
// @Summary Top favourites
// @Tags favourite
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Number of entries, 1 to 100"
// @Success 200 {object} dto.TopFavouritesResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /favourite/top [get]
func (h *FavouriteHandler) Top(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   http.StatusText(http.StatusBadRequest),
				Message: "Limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	counts, err := h.favouriteService.Top(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	top := make([]dto.TopFavourite, 0, len(counts))
	for _, fc := range counts {
		top = append(top, dto.TopFavourite{
			MediaID:  fc.MediaID,
			MediaURL: fc.MediaURL,
			Count:    fc.Count,
		})
	}

	c.JSON(http.StatusOK, dto.TopFavouritesResponse{TopFavorites: top})
}
