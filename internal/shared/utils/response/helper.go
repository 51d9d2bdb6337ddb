package response

import "github.com/gin-gonic/gin"

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// OK responds 200 with data
func OK(c *gin.Context, message string, data interface{}) {
	RespondJSON(c, "success", 200, message, data, nil)
}

// Created responds 201 with data
func Created(c *gin.Context, message string, data interface{}) {
	RespondJSON(c, "success", 201, message, data, nil)
}
