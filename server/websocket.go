package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astisapi"
	"github.com/asticode/go-astiws"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

// clientName builds a unique name for a websocket client. Hosts don't
// provide one when they connect.
func clientName(c *astiws.Client) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%p", c)))
}

func (s *Server) handleWebsocket(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := s.ws.ServeHTTP(rw, r, func(c *astiws.Client) (err error) {
		// Get name
		name := clientName(c)

		// Handle disconnect
		c.SetListener(astiws.EventNameDisconnect, func(_ *astiws.Client, _ string, _ json.RawMessage) (err error) {
			// Unregister client
			s.ws.UnregisterClient(name)

			// Log
			astilog.Infof("server: client %s has disconnected", name)
			return
		})

		// Register client
		s.ws.RegisterClient(name, c)

		// Log
		astilog.Infof("server: client %s has connected", name)
		return
	}); err != nil {
		if v, ok := errors.Cause(err).(*websocket.CloseError); !ok ||
			(v.Code != websocket.CloseNoStatusReceived && v.Code != websocket.CloseNormalClosure) {
			astilog.Error(errors.Wrap(err, "server: handling websocket failed"))
		}
		return
	}
}

// sendNotification forwards a driver notification to every connected client
func (s *Server) sendNotification(n *astisapi.Notification) (err error) {
	s.ws.Clients(func(_ interface{}, c *astiws.Client) (err error) {
		if err = c.WriteJSON(n); err != nil {
			astilog.Error(errors.Wrap(err, "server: writing JSON notification failed"))
			err = nil
		}
		return
	})
	return
}
