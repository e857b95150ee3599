package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ambient-clock/internal/astronomy"
	"ambient-clock/internal/storage"
)

// astronomyHandler treats a zero latitude or longitude as missing.
func (s *Server) astronomyHandler(c *gin.Context) {
	coord, ok := parseCoordinate(c)
	if !ok || coord.Latitude == 0 || coord.Longitude == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errCoordsRequired})
		return
	}

	withTimes, _ := strconv.ParseBool(c.DefaultQuery("times", "false"))
	report := astronomy.Calculate(coord, s.now(), astronomy.Options{SunTimes: withTimes})
	c.JSON(http.StatusOK, report)
}

func (s *Server) snapshotsHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Snapshot storage not configured"})
		return
	}

	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr != "" && toStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' date format"})
			return
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' date format"})
			return
		}
		snapshots, err := s.db.GetSnapshotsByRange(from, to)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, orEmpty(snapshots))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(storage.DefaultLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}
	snapshots, err := s.db.GetSnapshotsWithLimit(storage.ClampLimit(limit))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(snapshots))
}

// latestSnapshotHandler prefers the collector's in-memory copy.
func (s *Server) latestSnapshotHandler(c *gin.Context) {
	if s.collector != nil {
		if latest := s.collector.GetLatest(); latest != nil {
			c.JSON(http.StatusOK, latest)
			return
		}
	}
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No snapshots available yet"})
		return
	}
	snapshot, err := s.db.GetLatestSnapshot()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) dailyStatsHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Snapshot storage not configured"})
		return
	}
	dateStr := c.DefaultQuery("date", s.now().UTC().Format("2006-01-02"))
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
		return
	}
	stats, err := s.db.GetDailyStats(date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func orEmpty(snapshots []storage.AstronomySnapshot) []storage.AstronomySnapshot {
	if snapshots == nil {
		return []storage.AstronomySnapshot{}
	}
	return snapshots
}
