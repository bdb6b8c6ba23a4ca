package middleware

import (
	"fmt"
	"net/http"

	"github.com/dfryer1193/postboard/api"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func HandlePanics() gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		err, ok := recovered.(error)
		if !ok {
			err = fmt.Errorf("%v", recovered)
		}

		log.Error().Err(err).Str("path", c.Request.URL.Path).Str("requestID", RequestID(c)).Msg("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, api.Error{Error: "internal server error"})
	}
}
