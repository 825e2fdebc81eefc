package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
	"github.com/noah-isme/grid-mediation-api/pkg/geocode"
	"github.com/noah-isme/grid-mediation-api/pkg/response"
)

// GeoHandler exposes the reverse-geocoding collaborator over HTTP.
type GeoHandler struct {
	geocoder *geocode.Client
}

// NewGeoHandler constructs a geo handler.
func NewGeoHandler(geocoder *geocode.Client) *GeoHandler {
	return &GeoHandler{geocoder: geocoder}
}

// Reverse resolves a coordinate pair to a human-readable address.
//
//	@Summary		Reverse geocode a coordinate
//	@Tags			Map
//	@Produce		json
//	@Param			lat	query		number	true	"Latitude"
//	@Param			lng	query		number	true	"Longitude"
//	@Success		200	{object}	response.Envelope
//	@Failure		400	{object}	response.Envelope
//	@Failure		502	{object}	response.Envelope
//	@Security		BearerAuth
//	@Router			/map/reverse-geocode [get]
func (h *GeoHandler) Reverse(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "lat and lng must be valid coordinates"))
		return
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "coordinates out of range"))
		return
	}

	result, err := h.geocoder.Reverse(c.Request.Context(), lat, lng)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.ReverseGeocodeResponse{
		Address:  result.Address,
		Province: result.Province,
		City:     result.City,
		District: result.District,
	}, nil)
}
