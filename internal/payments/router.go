package payments

import "github.com/gin-gonic/gin"

func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller, auth ...gin.HandlerFunc) {
	payments := rg.Group("/payments")
	payments.Use(auth...)
	{
		payments.POST("/create-order", controller.CreateOrder)
		payments.POST("/verify", controller.Verify)
		payments.POST("/failure", controller.Failure)
		payments.GET("/history", controller.History)
		payments.GET("/:id", controller.GetPayment)
	}
}
