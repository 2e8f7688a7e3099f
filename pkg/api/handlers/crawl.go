package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"scrape-stream-go/pkg/crawler"
	"scrape-stream-go/pkg/models"
	"scrape-stream-go/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Crawl runs one scrape session synchronously and returns the final
// aggregate result. Live progress is published on the events stream;
// clients subscribe there first and match on the X-Session-ID header.
func Crawl(service *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
			return
		}

		sess, result, err := service.Run(c.Request.Context(), req)
		if sess != nil {
			c.Header("X-Session-ID", sess.ID)
		}
		if err != nil {
			var cerr *crawler.Error
			if errors.As(err, &cerr) && cerr.Type == crawler.ErrorTypeInvalidRequest {
				c.JSON(http.StatusBadRequest, gin.H{"error": cerr.UserMessage()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// bindingMessage flattens validator output into one readable message.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("field %q failed validation (%s)", fe.Field(), fe.Tag())
	}
	return err.Error()
}
