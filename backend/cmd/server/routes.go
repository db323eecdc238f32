package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"socialgraph/backend/internal/graph"
	apperrors "socialgraph/backend/pkg/errors"
)

// relationshipService is what the HTTP layer needs from graph.Manager
type relationshipService interface {
	Follow(ctx context.Context, followerID, followeeID string) (*graph.Relationship, error)
	Unfollow(ctx context.Context, followerID, followeeID string) error
	ListFollowers(ctx context.Context, profileID string) ([]graph.Profile, error)
	ListFollowing(ctx context.Context, profileID string) ([]graph.Profile, error)
	CountFollowers(ctx context.Context, profileID string) (int64, error)
	CountFollowing(ctx context.Context, profileID string) (int64, error)
	IsFollowing(ctx context.Context, followerID, targetID string) (bool, error)
	Ping(ctx context.Context) error
}

type followRequest struct {
	FollowerID string `json:"followerId" binding:"required"`
}

func newRouter(svc relationshipService, log *zap.Logger, production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health checks
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := svc.Ping(ctx); err != nil {
			log.Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	follows := router.Group("/follows")
	{
		follows.POST("/:followeeId", func(c *gin.Context) {
			var req followRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "followerId is required"})
				return
			}

			rel, err := svc.Follow(c.Request.Context(), req.FollowerID, c.Param("followeeId"))
			if err != nil {
				writeError(c, log, "Follow", err)
				return
			}
			c.JSON(http.StatusOK, rel)
		})

		follows.DELETE("/:followerId/:followeeId", func(c *gin.Context) {
			err := svc.Unfollow(c.Request.Context(), c.Param("followerId"), c.Param("followeeId"))
			if err != nil {
				writeError(c, log, "Unfollow", err)
				return
			}
			c.Status(http.StatusNoContent)
		})
	}

	users := router.Group("/users")
	{
		users.GET("/:id/followers", func(c *gin.Context) {
			id, ok := requireParam(c, "id")
			if !ok {
				return
			}
			profiles, err := svc.ListFollowers(c.Request.Context(), id)
			if err != nil {
				writeError(c, log, "GetFollowers", err)
				return
			}
			c.JSON(http.StatusOK, profiles)
		})

		users.GET("/:id/following", func(c *gin.Context) {
			id, ok := requireParam(c, "id")
			if !ok {
				return
			}
			profiles, err := svc.ListFollowing(c.Request.Context(), id)
			if err != nil {
				writeError(c, log, "GetFollowing", err)
				return
			}
			c.JSON(http.StatusOK, profiles)
		})

		users.GET("/:id/followers/count", func(c *gin.Context) {
			id, ok := requireParam(c, "id")
			if !ok {
				return
			}
			n, err := svc.CountFollowers(c.Request.Context(), id)
			if err != nil {
				writeError(c, log, "GetFollowersCount", err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"count": n})
		})

		users.GET("/:id/following/count", func(c *gin.Context) {
			id, ok := requireParam(c, "id")
			if !ok {
				return
			}
			n, err := svc.CountFollowing(c.Request.Context(), id)
			if err != nil {
				writeError(c, log, "GetFollowingCount", err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"count": n})
		})

		users.GET("/:id/is-following/:targetId", func(c *gin.Context) {
			id, ok := requireParam(c, "id")
			if !ok {
				return
			}
			targetID, ok := requireParam(c, "targetId")
			if !ok {
				return
			}
			following, err := svc.IsFollowing(c.Request.Context(), id, targetID)
			if err != nil {
				writeError(c, log, "IsFollowing", err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"isFollowing": following})
		})
	}

	return router
}

// requireParam rejects blank path parameters with 400
func requireParam(c *gin.Context, name string) (string, bool) {
	value := c.Param(name)
	if strings.TrimSpace(value) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required"})
		return "", false
	}
	return value, true
}

// writeError maps the error taxonomy onto HTTP status codes
func writeError(c *gin.Context, log *zap.Logger, endpoint string, err error) {
	switch {
	case apperrors.IsInvalidIdentity(err), apperrors.IsSelfRelationship(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": publicMessage(err)})
	case apperrors.IsStoreUnavailable(err):
		log.Error("Graph store unavailable", zap.String("endpoint", endpoint), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
	default:
		log.Error("Error in endpoint", zap.String("endpoint", endpoint), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func publicMessage(err error) string {
	var invalid *apperrors.ErrInvalidIdentity
	if errors.As(err, &invalid) {
		return invalid.Message
	}
	var self *apperrors.ErrSelfRelationship
	if errors.As(err, &self) {
		return self.Message
	}
	return err.Error()
}
