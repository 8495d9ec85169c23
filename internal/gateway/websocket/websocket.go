/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package websocket implements the websocket gateway adapter (C8): each
// connected client exchanges JSON Commands and Events over a single
// connection. Listener address is spec.md §6's 0.0.0.0:9999.
package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/advancedtelematic/ota-agent/internal/datatype"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Gateway bridges websocket clients to the interpreter's command channel
// and fans interpreter events out to every connected client.
type Gateway struct {
	mu       sync.Mutex
	clients  map[string]*websocket.Conn
	log      *zap.SugaredLogger
	commands chan<- datatype.Command
}

// New builds a Gateway that writes inbound commands to commands.
func New(log *zap.SugaredLogger, commands chan<- datatype.Command) *Gateway {
	return &Gateway{
		clients:  make(map[string]*websocket.Conn),
		log:      log,
		commands: commands,
	}
}

// ServeHTTP upgrades the connection and starts its read loop in a new
// goroutine; one goroutine per client, per spec.md §5's thread-per-adapter
// model.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	clientID := uuid.NewString()
	g.mu.Lock()
	g.clients[clientID] = conn
	g.mu.Unlock()
	g.log.Infow("websocket client connected", "clientId", clientID)

	go g.readLoop(clientID, conn)
}

func (g *Gateway) readLoop(clientID string, conn *websocket.Conn) {
	defer func() {
		conn.Close()
		g.mu.Lock()
		delete(g.clients, clientID)
		g.mu.Unlock()
		g.log.Infow("websocket client disconnected", "clientId", clientID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		cmd, err := decodeCommand(data)
		if err != nil {
			g.log.Warnw("ignoring unrecognized command", "clientId", clientID, "error", err)
			continue
		}
		g.commands <- cmd
	}
}

// Broadcast subscribes to events and forwards each to every connected
// client, cloning the client map without holding the lock across I/O
// (spec.md §5).
func (g *Gateway) Broadcast(events <-chan datatype.Event) {
	for event := range events {
		g.broadcastOne(event)
	}
}

func (g *Gateway) broadcastOne(event datatype.Event) {
	data, err := encodeEvent(event)
	if err != nil {
		g.log.Warnw("failed to encode event", "error", err)
		return
	}

	g.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(g.clients))
	for _, c := range g.clients {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			g.log.Warnw("failed to send event to client", "error", err)
		}
	}
}

type wireCommand struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
}

func decodeCommand(data []byte) (datatype.Command, error) {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding command: %w", err)
	}
	switch w.Type {
	case "GetPendingUpdates":
		return datatype.GetPendingUpdates{}, nil
	case "AcceptUpdate":
		return datatype.AcceptUpdate{RequestID: w.RequestID}, nil
	case "PostInstalledPackages":
		return datatype.PostInstalledPackages{}, nil
	case "ListInstalledPackages":
		return datatype.ListInstalledPackages{}, nil
	case "Shutdown":
		return datatype.Shutdown{}, nil
	default:
		return nil, fmt.Errorf("unrecognized command type %q", w.Type)
	}
}

func encodeEvent(event datatype.Event) ([]byte, error) {
	switch e := event.(type) {
	case datatype.NewUpdateAvailable:
		return json.Marshal(struct {
			Type      string `json:"type"`
			RequestID string `json:"requestId"`
		}{"NewUpdateAvailable", e.RequestID})
	case datatype.UpdateStateChanged:
		return json.Marshal(struct {
			Type      string             `json:"type"`
			RequestID string             `json:"requestId"`
			State     datatype.UpdateState `json:"state"`
		}{"UpdateStateChanged", e.RequestID, e.State})
	case datatype.UpdateErrored:
		return json.Marshal(struct {
			Type      string `json:"type"`
			RequestID string `json:"requestId"`
			Message   string `json:"message"`
		}{"UpdateErrored", e.RequestID, e.Message})
	case datatype.FoundInstalledPackages:
		return json.Marshal(struct {
			Type     string             `json:"type"`
			Packages []datatype.Package `json:"packages"`
		}{"FoundInstalledPackages", e.Packages})
	case datatype.ShuttingDown:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{"ShuttingDown"})
	case datatype.Batch:
		inner := make([]json.RawMessage, 0, len(e.Events))
		for _, sub := range e.Events {
			raw, err := encodeEvent(sub)
			if err != nil {
				return nil, err
			}
			inner = append(inner, raw)
		}
		return json.Marshal(struct {
			Type   string            `json:"type"`
			Events []json.RawMessage `json:"events"`
		}{"Batch", inner})
	default:
		return nil, fmt.Errorf("unrecognized event type %T", event)
	}
}
