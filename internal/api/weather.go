package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ambient-clock/internal/astronomy"
	"ambient-clock/internal/weather"
)

const errCoordsRequired = "lat and lon parameters required"

var errBadUnits = errors.New("units must be metric, imperial or standard")

// parseCoordinate reads lat and lon from the query string; both must be
// present, numeric and in range.
func parseCoordinate(c *gin.Context) (astronomy.Coordinate, bool) {
	latStr, lonStr := strings.TrimSpace(c.Query("lat")), strings.TrimSpace(c.Query("lon"))
	if latStr == "" || lonStr == "" {
		return astronomy.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return astronomy.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return astronomy.Coordinate{}, false
	}
	coord := astronomy.Coordinate{Latitude: lat, Longitude: lon}
	if coord.Validate() != nil {
		return astronomy.Coordinate{}, false
	}
	return coord, true
}

func parseUnits(c *gin.Context) (string, error) {
	switch units := strings.ToLower(strings.TrimSpace(c.DefaultQuery("units", "metric"))); units {
	case "", "metric":
		return "metric", nil
	case "imperial", "standard":
		return units, nil
	default:
		return "", errBadUnits
	}
}

func (s *Server) weatherQuery(c *gin.Context) (weather.Query, bool) {
	coord, ok := parseCoordinate(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errCoordsRequired})
		return weather.Query{}, false
	}
	units, err := parseUnits(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return weather.Query{}, false
	}
	if s.weather == nil {
		writeError(c, weather.ErrNotConfigured)
		return weather.Query{}, false
	}
	return weather.Query{Lat: coord.Latitude, Lon: coord.Longitude, Units: units}, true
}

func (s *Server) currentWeatherHandler(c *gin.Context) {
	q, ok := s.weatherQuery(c)
	if !ok {
		return
	}
	data, err := s.weather.Current(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) forecastHandler(c *gin.Context) {
	q, ok := s.weatherQuery(c)
	if !ok {
		return
	}
	data, err := s.weather.Forecast(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) oneCallHandler(c *gin.Context) {
	q, ok := s.weatherQuery(c)
	if !ok {
		return
	}
	data, err := s.weather.OneCall(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) airQualityHandler(c *gin.Context) {
	q, ok := s.weatherQuery(c)
	if !ok {
		return
	}
	data, err := s.weather.AirQuality(c.Request.Context(), q.Lat, q.Lon)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) geocodeHandler(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q parameter required"})
		return
	}
	if s.weather == nil {
		writeError(c, weather.ErrNotConfigured)
		return
	}
	results, err := s.weather.Geocode(c.Request.Context(), query)
	if err != nil {
		writeError(c, err)
		return
	}
	if results == nil {
		results = []weather.GeocodeResult{}
	}
	c.JSON(http.StatusOK, results)
}
