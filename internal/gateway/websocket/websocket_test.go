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

package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/advancedtelematic/ota-agent/internal/datatype"
)

func TestDecodeCommand_AllVariants(t *testing.T) {
	cmd, err := decodeCommand([]byte(`{"type":"AcceptUpdate","requestId":"42"}`))
	require.NoError(t, err)
	assert.Equal(t, datatype.AcceptUpdate{RequestID: "42"}, cmd)

	cmd, err = decodeCommand([]byte(`{"type":"GetPendingUpdates"}`))
	require.NoError(t, err)
	assert.Equal(t, datatype.GetPendingUpdates{}, cmd)

	_, err = decodeCommand([]byte(`{"type":"Bogus"}`))
	assert.Error(t, err)
}

func TestEncodeEvent_Batch(t *testing.T) {
	data, err := encodeEvent(datatype.Batch{Events: []datatype.Event{
		datatype.NewUpdateAvailable{RequestID: "1"},
		datatype.UpdateErrored{RequestID: "2", Message: "boom"},
	}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"Batch"`)
	assert.Contains(t, string(data), `"requestId":"1"`)
	assert.Contains(t, string(data), `"message":"boom"`)
}

func TestGateway_ServeHTTP_RelaysCommandsAndEvents(t *testing.T) {
	commands := make(chan datatype.Command, 1)
	events := make(chan datatype.Event, 1)

	gw := New(zap.NewNop().Sugar(), commands)
	server := httptest.NewServer(gw)
	defer server.Close()

	go gw.Broadcast(events)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"GetPendingUpdates"}`)))

	select {
	case cmd := <-commands:
		assert.Equal(t, datatype.GetPendingUpdates{}, cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("command not relayed")
	}

	events <- datatype.ShuttingDown{}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"ShuttingDown"`)
}
