package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readWait  = 60 * time.Second
	writeWait = 10 * time.Second
)

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type suggestRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
}

// serveWS answers every {"prefix": ...} message with the matching words until
// the client goes away or stays silent for readWait.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debugf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			s.log.Infof("websocket: %v", err)
			return
		}

		var req suggestRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Infof("websocket: %v", err)
			}
			return
		}

		result, err := s.suggest(req.Prefix, req.Limit)
		if err != nil {
			result = suggestions{Prefix: req.Prefix, Words: []string{}, Error: err.Error()}
		}

		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			s.log.Infof("websocket: %v", err)
			return
		}
		if err := conn.WriteJSON(result); err != nil {
			s.log.Infof("websocket: %v", err)
			return
		}
	}
}
