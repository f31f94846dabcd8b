package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/bim4d-backend-go/internal/cache"
	"github.com/jengzang/bim4d-backend-go/internal/classify"
	"github.com/jengzang/bim4d-backend-go/internal/frames"
	"github.com/jengzang/bim4d-backend-go/internal/profile"
	"github.com/jengzang/bim4d-backend-go/internal/repository"
	"github.com/jengzang/bim4d-backend-go/internal/service"
	"github.com/jengzang/bim4d-backend-go/pkg/response"
)

var errorStatus = []response.Mapping{
	{Err: repository.ErrNotFound, Status: http.StatusNotFound},
	{Err: service.ErrInvalidRequest, Status: http.StatusBadRequest},
	{Err: service.ErrInvalidDocument, Status: http.StatusBadRequest},
	{Err: frames.ErrInvalidSpeed, Status: http.StatusBadRequest},
	{Err: profile.ErrInvalidProfile, Status: http.StatusBadRequest},
	{Err: service.ErrNoDateRange, Status: http.StatusConflict},
	{Err: profile.ErrProtectedGroup, Status: http.StatusConflict},
	{Err: cache.ErrUnavailable, Status: http.StatusConflict},
	{Err: classify.ErrUnavailable, Status: http.StatusConflict},
}

func fail(c *gin.Context, err error) {
	response.FromError(c, err, errorStatus...)
}

func scheduleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid schedule id")
		return 0, false
	}
	return id, true
}

// optionalTime parses an RFC 3339 query parameter; empty is nil
func optionalTime(c *gin.Context, name string) (*time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		response.BadRequest(c, "Invalid "+name+" parameter, expected RFC 3339")
		return nil, false
	}
	return &t, true
}
