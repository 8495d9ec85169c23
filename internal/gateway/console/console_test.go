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

package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advancedtelematic/ota-agent/internal/datatype"
)

func TestParseLine(t *testing.T) {
	cmd, ok := parseLine("accept abc-123")
	require.True(t, ok)
	assert.Equal(t, datatype.AcceptUpdate{RequestID: "abc-123"}, cmd)

	cmd, ok = parseLine("list")
	require.True(t, ok)
	assert.Equal(t, datatype.ListInstalledPackages{}, cmd)

	cmd, ok = parseLine("poll")
	require.True(t, ok)
	assert.Equal(t, datatype.GetPendingUpdates{}, cmd)

	cmd, ok = parseLine("quit")
	require.True(t, ok)
	assert.Equal(t, datatype.Shutdown{}, cmd)

	_, ok = parseLine("accept")
	assert.False(t, ok)

	_, ok = parseLine("bogus")
	assert.False(t, ok)

	_, ok = parseLine("")
	assert.False(t, ok)
}

func TestGateway_Run_DispatchesAndStopsOnQuit(t *testing.T) {
	in := strings.NewReader("poll\naccept 7\nquit\n")
	var out bytes.Buffer
	commands := make(chan datatype.Command, 3)

	gw := New(in, &out, commands)
	gw.Run()
	close(commands)

	var got []datatype.Command
	for cmd := range commands {
		got = append(got, cmd)
	}

	assert.Equal(t, []datatype.Command{
		datatype.GetPendingUpdates{},
		datatype.AcceptUpdate{RequestID: "7"},
		datatype.Shutdown{},
	}, got)
}

func TestGateway_Run_ReportsUnrecognizedLines(t *testing.T) {
	in := strings.NewReader("bogus\nquit\n")
	var out bytes.Buffer
	commands := make(chan datatype.Command, 1)

	New(in, &out, commands).Run()

	assert.Contains(t, out.String(), `unrecognized command: "bogus"`)
}

func TestPrintEvents(t *testing.T) {
	var out bytes.Buffer
	events := make(chan datatype.Event, 1)
	done := make(chan struct{})

	go func() {
		PrintEvents(&out, events)
		close(done)
	}()

	events <- datatype.Batch{Events: []datatype.Event{
		datatype.NewUpdateAvailable{RequestID: "1"},
		datatype.UpdateStateChanged{RequestID: "1", State: datatype.UpdateStateDownloading},
	}}
	close(events)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PrintEvents did not return after channel close")
	}

	assert.Contains(t, out.String(), "update available: 1")
	assert.Contains(t, out.String(), "update 1: Downloading")
}
