package game

import (
	"net/http"
	"strings"

	"github.com/brianjaustin/cs4550-hw06/internal/auth"
)

// TokenVerifier checks optional join tokens. Satisfied by *auth.Service.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Server owns the websocket entry point into the room directory.
type Server struct {
	rooms  *RoomService
	tokens TokenVerifier
}

func NewServer(rooms *RoomService, tokens TokenVerifier) *Server {
	return &Server{rooms: rooms, tokens: tokens}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/", s.handleWS)
}

// roomNameFromWSPath extracts the room name from /ws/{room}. Names are
// lowercase alphanumerics plus '-' and '_', at most 64 bytes.
func roomNameFromWSPath(path string) (string, bool) {
	const prefix = "/ws/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	name := path[len(prefix):]
	if name == "" || len(name) > 64 {
		return "", false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		return "", false
	}
	return name, true
}
