package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/chorechart/internal/auth"
)

// Authenticator resolves the token passed in the query string.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

// HandleWebSocket authenticates ?token=, upgrades the connection and runs it
// as a client of the caller's family. originPatterns is passed to Accept;
// an empty list allows only same-origin browsers.
func HandleWebSocket(hub *Hub, authn Authenticator, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeUnauthorized(w, "not authenticated")
			return
		}
		p, err := authn.Authenticate(r.Context(), token)
		if err != nil {
			writeUnauthorized(w, "could not validate credentials")
			return
		}

		// Lift the server's read and write timeouts for the long-lived connection.
		rc := http.NewResponseController(w)
		rc.SetReadDeadline(time.Time{})
		rc.SetWriteDeadline(time.Time{})

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		logger.Debug("websocket connected", "user_id", p.UserID, "family_id", p.FamilyID)
		NewClient(hub, conn, p.UserID, p.FamilyID).Run(r.Context())
	}
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
