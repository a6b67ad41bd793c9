package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/bucketsync/internal/client/handlers"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
)

const (
	DefaultRate        = "10-S"
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// RateLimiter limits requests per client IP. formattedRate uses the limiter notation, e.g. "10-S".
func RateLimiter(formattedRate string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formattedRate)
	if err != nil {
		return nil, err
	}

	rl := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(
		rl,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.PureJSON(http.StatusTooManyRequests, handlers.ControlPlaneError{
				ErrorCode: ErrCodeRateLimited,
				Error:     "rate limit exceeded",
			})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			c.PureJSON(http.StatusInternalServerError, handlers.ControlPlaneError{
				ErrorCode: handlers.ErrCodeUnknownError,
				Error:     err.Error(),
			})
		}),
	), nil
}
