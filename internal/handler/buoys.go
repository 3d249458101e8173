package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/gin-gonic/gin"
)

// MaxNearbyRadiusKM максимальный радиус поиска ближайших буев
const MaxNearbyRadiusKM = 500

// loadBuoys возвращает список буев: кеш, затем AIS бэкенд, затем каталог MySQL (если включен fallback).
// Успешный ответ бэкенда кешируется и записывается в каталог.
func (h *RESTHandler) loadBuoys(ctx context.Context) ([]models.Buoy, error) {
	buoys, err := h.buoys.LoadBuoys(ctx)
	if err == nil {
		return buoys, nil
	}
	if !isNotFound(err) {
		h.logger.WithError(err).Warn("Buoy cache read failed")
	}

	buoys, fetchErr := h.upstream.FetchBuoys(ctx)
	if fetchErr != nil {
		return h.fallbackBuoys(ctx, fetchErr)
	}

	if err := h.buoys.SaveBuoys(ctx, buoys); err != nil {
		h.logger.WithError(err).Warn("Failed to cache buoys")
	}
	if h.catalog != nil {
		if err := h.catalog.SaveBuoys(ctx, buoys); err != nil {
			h.logger.WithError(err).Warn("Failed to update buoy catalog")
		}
	}
	return buoys, nil
}

func (h *RESTHandler) fallbackBuoys(ctx context.Context, fetchErr error) ([]models.Buoy, error) {
	if h.catalog == nil || !h.features.EnableMySQLFallback {
		return nil, fetchErr
	}

	buoys, err := h.catalog.LoadBuoys(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Buoy catalog fallback failed")
		return nil, fetchErr
	}

	h.logger.WithField("buoys", len(buoys)).WithError(fetchErr).Warn("AIS backend failed, serving buoys from catalog")
	return buoys, nil
}

// GetBuoys список буев, опционально по району
// GET /api/v1/buoys?area=Hai%20Phong
func (h *RESTHandler) GetBuoys(c *gin.Context) {
	buoys, err := h.loadBuoys(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if area, ok := c.GetQuery("area"); ok {
		buoys = models.FilterByArea(buoys, area)
	}

	c.JSON(http.StatusOK, gin.H{
		"buoys": convertBuoys(buoys),
		"count": len(buoys),
	})
}

// GetAreas уникальные районы в порядке первого появления
// GET /api/v1/areas
func (h *RESTHandler) GetAreas(c *gin.Context) {
	buoys, err := h.loadBuoys(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"areas": models.Areas(buoys),
	})
}

// GetNearbyBuoys буи в радиусе от точки, ближайшие первыми
// GET /api/v1/buoys/nearby?lat=20.6&lon=106.8&radius_km=10
func (h *RESTHandler) GetNearbyBuoys(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		badRequest(c, "invalid_latitude", "Latitude must be between -90 and 90")
		return
	}

	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		badRequest(c, "invalid_longitude", "Longitude must be between -180 and 180")
		return
	}

	radius, err := strconv.ParseFloat(c.DefaultQuery("radius_km", "10"), 64)
	if err != nil || radius <= 0 || radius > MaxNearbyRadiusKM {
		badRequest(c, "invalid_radius", fmt.Sprintf("Radius must be between 0 and %d km", MaxNearbyRadiusKM))
		return
	}

	ctx := c.Request.Context()
	// Прогреваем кеш, гео-индекс строится при сохранении списка
	if _, err := h.loadBuoys(ctx); err != nil {
		respondError(c, h.logger, err)
		return
	}

	nearby, err := h.buoys.NearbyBuoys(ctx, models.GeoPoint{Latitude: lat, Longitude: lon}, radius)
	if err != nil && !isNotFound(err) {
		respondError(c, h.logger, err)
		return
	}

	result := make([]nearbyBuoyJSON, len(nearby))
	for i, nb := range nearby {
		result[i] = nearbyBuoyJSON{buoyJSON: convertBuoy(nb.Buoy), DistanceKM: nb.DistanceKM}
	}

	c.JSON(http.StatusOK, gin.H{
		"buoys": result,
		"count": len(result),
	})
}
