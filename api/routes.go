package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soulgarden/topicbus/broker"
	"github.com/soulgarden/topicbus/dictionary"
)

type CreateTopicRequest struct {
	Name string `json:"name" binding:"required"`
}

// SetupRoutes registers the control plane and the websocket entry point.
func SetupRoutes(r *gin.Engine, b *broker.Broker, ws http.HandlerFunc) {
	r.GET("/ws", gin.WrapF(ws))

	r.POST("/topics", createTopic(b))
	r.DELETE("/topics/:name", deleteTopic(b))
	r.GET("/topics", listTopics(b))

	r.GET("/health", health(b))
	r.GET("/stats", stats(b))
}

func createTopic(b *broker.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTopicRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})

			return
		}

		if err := b.CreateTopic(req.Name); err != nil {
			switch {
			case errors.Is(err, dictionary.ErrTopicExists):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "topic": req.Name})
			case errors.Is(err, dictionary.ErrShuttingDown):
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}

			return
		}

		c.JSON(http.StatusCreated, gin.H{"status": "created", "topic": req.Name})
	}
}

func deleteTopic(b *broker.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		if err := b.DeleteTopic(name); err != nil {
			if errors.Is(err, dictionary.ErrTopicNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "topic": name})

				return
			}

			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "deleted", "topic": name})
	}
}

func listTopics(b *broker.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"topics": b.List()})
	}
}

func health(b *broker.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"uptime_sec":  b.Uptime(),
			"topics":      b.TopicCount(),
			"subscribers": b.TotalSubscribers(),
		})
	}
}

func stats(b *broker.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"topics": b.Stats()})
	}
}
