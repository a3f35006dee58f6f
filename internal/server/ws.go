package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// RegisterWSRoutes adds /ws/query, which answers one Response per Request
// message until the client disconnects.
func RegisterWSRoutes(mux *http.ServeMux, d Dependencies) {
	mux.HandleFunc("/ws/query", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && d.Log != nil {
					d.Log.WithError(err).Debug("websocket read ended")
				}
				return
			}
			var req Request
			var resp Response
			if err := json.Unmarshal(msg, &req); err != nil {
				resp = Response{Error: "invalid JSON message"}
			} else {
				resp, _ = Dispatch(d, req)
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	})
}
