package devserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Faults lets tests force failures and latency per operation. Operation names
// are the route names registered in routes.go, e.g. "tailor" or "generate_pdf".
type Faults struct {
	mu     sync.RWMutex
	status map[string]int
	delay  map[string]time.Duration
}

func newFaults() *Faults {
	return &Faults{status: make(map[string]int), delay: make(map[string]time.Duration)}
}

// Fail makes every call of op answer status until cleared.
func (f *Faults) Fail(op string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[op] = status
}

// Delay holds every call of op for d before it is handled.
func (f *Faults) Delay(op string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay[op] = d
}

func (f *Faults) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = make(map[string]int)
	f.delay = make(map[string]time.Duration)
}

func (f *Faults) middleware(op string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			f.mu.RLock()
			status, d := f.status[op], f.delay[op]
			f.mu.RUnlock()

			if d > 0 {
				select {
				case <-time.After(d):
				case <-c.Request().Context().Done():
					return c.Request().Context().Err()
				}
			}
			if status != 0 {
				return echo.NewHTTPError(status, "injected failure: "+http.StatusText(status))
			}
			return next(c)
		}
	}
}
