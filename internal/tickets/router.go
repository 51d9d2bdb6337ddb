package tickets

import "github.com/gin-gonic/gin"

// SetupTicketRoutes mounts the credential routes. scanner guards gate validation.
// The returned group lets the caller attach admin maintenance routes.
func SetupTicketRoutes(rg *gin.RouterGroup, controller *Controller, auth, scanner gin.HandlerFunc) *gin.RouterGroup {
	tickets := rg.Group("/tickets")
	tickets.Use(auth)
	{
		tickets.GET("/my-tickets", controller.GetMyTickets)
		tickets.POST("/generate", controller.GenerateTicket)
		tickets.GET("/:id/pdf", controller.DownloadPDF)
		tickets.POST("/validate", scanner, controller.ValidateTicket)
	}
	return tickets
}
