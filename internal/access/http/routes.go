package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the access endpoints on group. verifyLimit, when not
// nil, runs in front of the verify route only.
func RegisterRoutes(group *gin.RouterGroup, handler *AccessHandler, verifyLimit gin.HandlerFunc) {
	patient := group.Group("/patients/:patient_id/access")
	{
		patient.GET("", handler.StatusHandler)
		patient.DELETE("", handler.RevokeHandler)
		patient.POST("/extend", handler.ExtendHandler)

		verify := []gin.HandlerFunc{handler.VerifyHandler}
		if verifyLimit != nil {
			verify = append([]gin.HandlerFunc{verifyLimit}, verify...)
		}
		patient.POST("/verify", verify...)
	}

	group.DELETE("/access", handler.RevokeAllHandler)
}
