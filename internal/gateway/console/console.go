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

// Package console implements the --test-looping manual REPL gateway,
// restoring original_source/src/main.rs's read_interpret_loop: a
// line-oriented stdin loop for driving the interpreter without a
// websocket client.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/advancedtelematic/ota-agent/internal/datatype"
)

// Gateway reads lines from in, writes prompts/output to out, and parses
// recognized lines into Commands.
type Gateway struct {
	in       *bufio.Scanner
	out      io.Writer
	commands chan<- datatype.Command
}

// New builds a console Gateway over in/out.
func New(in io.Reader, out io.Writer, commands chan<- datatype.Command) *Gateway {
	return &Gateway{in: bufio.NewScanner(in), out: out, commands: commands}
}

// Run reads lines until EOF, "quit", or a Shutdown command is sent.
// Recognized lines: "accept <id>", "list", "poll", "quit".
func (g *Gateway) Run() {
	for {
		fmt.Fprint(g.out, "ota> ")
		if !g.in.Scan() {
			return
		}
		line := strings.TrimSpace(g.in.Text())
		if line == "" {
			continue
		}

		cmd, ok := parseLine(line)
		if !ok {
			fmt.Fprintf(g.out, "unrecognized command: %q\n", line)
			continue
		}
		g.commands <- cmd
		if _, isShutdown := cmd.(datatype.Shutdown); isShutdown {
			return
		}
	}
}

func parseLine(line string) (datatype.Command, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, false
	}

	switch fields[0] {
	case "accept":
		if len(fields) != 2 {
			return nil, false
		}
		return datatype.AcceptUpdate{RequestID: fields[1]}, true
	case "list":
		return datatype.ListInstalledPackages{}, true
	case "poll":
		return datatype.GetPendingUpdates{}, true
	case "quit":
		return datatype.Shutdown{}, true
	default:
		return nil, false
	}
}

// PrintEvents subscribes to events and prints a one-line rendering of each
// to out, until events is closed.
func PrintEvents(out io.Writer, events <-chan datatype.Event) {
	for event := range events {
		fmt.Fprintln(out, renderEvent(event))
	}
}

func renderEvent(event datatype.Event) string {
	switch e := event.(type) {
	case datatype.NewUpdateAvailable:
		return fmt.Sprintf("update available: %s", e.RequestID)
	case datatype.UpdateStateChanged:
		return fmt.Sprintf("update %s: %s", e.RequestID, e.State)
	case datatype.UpdateErrored:
		return fmt.Sprintf("update %s failed: %s", e.RequestID, e.Message)
	case datatype.FoundInstalledPackages:
		names := make([]string, 0, len(e.Packages))
		for _, p := range e.Packages {
			names = append(names, fmt.Sprintf("%s-%s", p.Name, p.Version))
		}
		return fmt.Sprintf("installed packages: %s", strings.Join(names, ", "))
	case datatype.ShuttingDown:
		return "shutting down"
	case datatype.Batch:
		parts := make([]string, 0, len(e.Events))
		for _, sub := range e.Events {
			parts = append(parts, renderEvent(sub))
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprintf("unknown event: %T", event)
	}
}
