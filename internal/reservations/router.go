package reservations

import "github.com/gin-gonic/gin"

// SetupBookingRoutes mounts the ledger routes behind the authenticated chain
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, auth ...gin.HandlerFunc) {
	bookings := rg.Group("/bookings")
	bookings.Use(auth...)
	{
		bookings.GET("", controller.ListBookings)
		bookings.POST("", controller.CreateBooking)
		bookings.POST("/calculate-amount", controller.CalculateAmount)
		bookings.GET("/:id", controller.GetBooking)
		bookings.POST("/:id/cancel", controller.CancelBooking)
	}
}

// Lifecycle:
//
//	pending_payment -> active          payment verified
//	pending_payment -> cancelled       owner cancel, or hold lapsed (payment_status=expired)
//	active          -> in_progress     ticket scanned at the gate
//	active          -> cancelled       owner cancel, or start passed without a scan
//	in_progress     -> completed       end time passed
//	active          -> expired         end time passed, never scanned
