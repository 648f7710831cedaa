package ws

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// NewUpgrader builds the websocket upgrader. With no allowed origins every
// origin is accepted; native clients send no Origin header and always pass.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[strings.ToLower(o)] = struct{}{}
		}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowed) == 0 {
				return true
			}
			_, ok := allowed[strings.ToLower(origin)]
			return ok
		},
	}
}
