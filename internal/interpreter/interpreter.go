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

// Package interpreter implements the command-driven orchestrator (C5): it
// owns the OTA client, the live per-request-id Transfer map, and the
// package manager, and turns Commands into HTTP I/O, installs, and Events.
package interpreter

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/advancedtelematic/ota-agent/internal/datatype"
	"github.com/advancedtelematic/ota-agent/internal/otaclient"
	"github.com/advancedtelematic/ota-agent/internal/packagemanager"
	"github.com/advancedtelematic/ota-agent/internal/transfer"
)

// Interpreter is the authoritative command dispatcher. A single Interpreter
// serves one vehicle's worth of updates; request ids are assumed unique
// within its lifetime.
type Interpreter struct {
	ota    *otaclient.Client
	pkgMgr packagemanager.PackageManager
	fs     afero.Fs
	log    *zap.SugaredLogger

	prefixDir string

	mu        sync.Mutex
	pending   map[string]datatype.PendingUpdate
	states    map[string]datatype.UpdateState
	transfers map[string]*transfer.Transfer

	wg conc.WaitGroup
}

// New builds an Interpreter. prefixDir is the Transfer root (spec.md §3's
// prefix_dir), distinct from any path the package manager itself uses.
func New(ota *otaclient.Client, pkgMgr packagemanager.PackageManager, fs afero.Fs, log *zap.SugaredLogger, prefixDir string) *Interpreter {
	return &Interpreter{
		ota:       ota,
		pkgMgr:    pkgMgr,
		fs:        fs,
		log:       log,
		prefixDir: prefixDir,
		pending:   make(map[string]datatype.PendingUpdate),
		states:    make(map[string]datatype.UpdateState),
		transfers: make(map[string]*transfer.Transfer),
	}
}

// Run consumes commands until the channel is closed or a Shutdown command
// arrives, writing events to events. In both cases it drains in-flight
// AcceptUpdate work before closing events, so callers never observe a
// closed events channel with a transfer still mid-flight; only a Shutdown
// command also emits ShuttingDown just before the close.
func (in *Interpreter) Run(ctx context.Context, commands <-chan datatype.Command, events chan<- datatype.Event) {
	for cmd := range commands {
		if _, ok := cmd.(datatype.Shutdown); ok {
			in.wg.Wait()
			events <- datatype.ShuttingDown{}
			close(events)
			return
		}
		in.dispatch(ctx, cmd, events)
	}
	in.wg.Wait()
	close(events)
}

func (in *Interpreter) dispatch(ctx context.Context, cmd datatype.Command, events chan<- datatype.Event) {
	switch c := cmd.(type) {
	case datatype.GetPendingUpdates:
		in.handleGetPendingUpdates(ctx, events)
	case datatype.AcceptUpdate:
		id := c.RequestID
		in.wg.Go(func() { in.acceptUpdate(ctx, id, events) })
	case datatype.PostInstalledPackages:
		in.handlePostInstalledPackages(ctx)
	case datatype.ListInstalledPackages:
		in.handleListInstalledPackages(ctx, events)
	}
}

// handleGetPendingUpdates fetches the update list and announces every item
// not already in flight (spec.md §4.5). A fetch failure has no request id
// to attach an UpdateErrored to, so it is logged and dropped, matching the
// Transport error-handling policy's "do not crash" clause.
func (in *Interpreter) handleGetPendingUpdates(ctx context.Context, events chan<- datatype.Event) {
	updates, err := in.ota.GetPendingUpdates(ctx)
	if err != nil {
		in.log.Warnw("fetching pending updates failed", "error", err)
		return
	}

	in.mu.Lock()
	var announced []datatype.Event
	for _, u := range updates {
		if state, seen := in.states[u.RequestID]; seen && state != datatype.UpdateStateFailed {
			continue
		}
		in.pending[u.RequestID] = u
		in.states[u.RequestID] = datatype.UpdateStatePending
		announced = append(announced, datatype.NewUpdateAvailable{RequestID: u.RequestID})
	}
	in.mu.Unlock()

	if len(announced) > 0 {
		events <- datatype.Batch{Events: announced}
	}
}

// acceptUpdate drives one request id through download, assembly,
// verification, install, and report. Every downloaded artifact is written
// through transfer.Transfer as a single chunk at index 0 regardless of
// transport, so the checksum invariant holds unconditionally — see
// DESIGN.md, "Unifying the whole-file HTTP download with the chunked
// Transfer pipeline".
func (in *Interpreter) acceptUpdate(ctx context.Context, requestID string, events chan<- datatype.Event) {
	in.mu.Lock()
	update, ok := in.pending[requestID]
	in.mu.Unlock()
	if !ok {
		in.log.Warnw("AcceptUpdate for unknown request id", "requestId", requestID)
		in.fail(requestID, events, "Unknown request id", datatype.ResultGeneralError)
		return
	}

	in.setState(requestID, datatype.UpdateStateDownloading)
	events <- datatype.UpdateStateChanged{RequestID: requestID, State: datatype.UpdateStateDownloading}

	body, err := in.ota.DownloadPackage(ctx, requestID)
	if err != nil {
		in.fail(requestID, events, fmt.Sprintf("Download failed: %v", err), datatype.ResultGeneralError)
		return
	}

	xfer := transfer.New(in.fs, in.log, update.PackageID, update.Checksum, in.prefixDir)
	if err := xfer.WriteChunk(base64.StdEncoding.EncodeToString(body), 0); err != nil {
		in.fail(requestID, events, fmt.Sprintf("Download failed: %v", err), datatype.ResultGeneralError)
		return
	}

	in.mu.Lock()
	in.transfers[requestID] = xfer
	in.mu.Unlock()

	in.setState(requestID, datatype.UpdateStateVerifying)
	if err := xfer.AssemblePackage(); err != nil {
		in.fail(requestID, events, fmt.Sprintf("Download failed: %v", err), datatype.ResultGeneralError)
		return
	}
	if !xfer.Checksum() {
		in.fail(requestID, events, "Checksum mismatch", datatype.ResultValidationFailed)
		return
	}

	in.setState(requestID, datatype.UpdateStateInstalling)
	events <- datatype.UpdateStateChanged{RequestID: requestID, State: datatype.UpdateStateInstalling}

	code, text := in.pkgMgr.Install(ctx, xfer.PackagePath())
	if code != datatype.ResultOK {
		in.fail(requestID, events, fmt.Sprintf("INSTALL_FAILED: %q", text), code)
		return
	}

	in.succeed(requestID, events, xfer)
}

func (in *Interpreter) succeed(requestID string, events chan<- datatype.Event, xfer *transfer.Transfer) {
	in.setState(requestID, datatype.UpdateStateInstalled)
	in.mu.Lock()
	delete(in.transfers, requestID)
	in.mu.Unlock()

	if err := xfer.Destroy(); err != nil {
		in.log.Warnw("cleaning up transfer after install failed", "requestId", requestID, "error", err)
	}

	events <- datatype.UpdateStateChanged{RequestID: requestID, State: datatype.UpdateStateInstalled}
	in.sendReport(requestID, datatype.ResultOK, "")
}

func (in *Interpreter) fail(requestID string, events chan<- datatype.Event, message string, code datatype.UpdateResultCode) {
	in.setState(requestID, datatype.UpdateStateFailed)
	in.mu.Lock()
	delete(in.transfers, requestID)
	in.mu.Unlock()

	events <- datatype.UpdateErrored{RequestID: requestID, Message: message}
	in.sendReport(requestID, code, message)
}

// sendReport posts the outcome best-effort; a failure is logged, not
// retried within this run (spec.md §4.5).
func (in *Interpreter) sendReport(requestID string, code datatype.UpdateResultCode, text string) {
	report := datatype.NewUpdateReport(requestID, code, text)
	if err := in.ota.SendInstallReport(context.Background(), report); err != nil {
		in.log.Warnw("sending install report failed", "requestId", requestID, "error", err)
	}
}

func (in *Interpreter) setState(id string, state datatype.UpdateState) {
	in.mu.Lock()
	in.states[id] = state
	in.mu.Unlock()
}

func (in *Interpreter) handlePostInstalledPackages(ctx context.Context) {
	packages, err := in.pkgMgr.InstalledPackages(ctx)
	if err != nil {
		in.log.Warnw("listing installed packages failed", "error", err)
		return
	}
	if err := in.ota.ReportInstalledPackages(ctx, packages); err != nil {
		in.log.Warnw("reporting installed packages failed", "error", err)
	}
}

func (in *Interpreter) handleListInstalledPackages(ctx context.Context, events chan<- datatype.Event) {
	packages, err := in.pkgMgr.InstalledPackages(ctx)
	if err != nil {
		in.log.Warnw("listing installed packages failed", "error", err)
	}
	events <- datatype.FoundInstalledPackages{Packages: packages}
}
