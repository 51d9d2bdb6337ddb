package cars

import "github.com/gin-gonic/gin"

func SetupCarRoutes(rg *gin.RouterGroup, controller *Controller, auth ...gin.HandlerFunc) {
	cars := rg.Group("/cars")
	cars.Use(auth...)
	{
		cars.POST("", controller.AddCar)
		cars.GET("", controller.ListCars)
		cars.GET("/available", controller.ListAvailable)
		cars.DELETE("/:id", controller.DeleteCar)
	}
}
