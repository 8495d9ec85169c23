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

// Package packagemanager implements the capability interface spec.md §9
// names explicitly: install a path, list installed packages, and report
// the file extension this manager expects downloads to carry.
package packagemanager

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/advancedtelematic/ota-agent/internal/datatype"
)

// PackageManager is the dynamic-dispatch capability interface the
// interpreter depends on; tests substitute File for real installers.
type PackageManager interface {
	Install(ctx context.Context, path string) (code datatype.UpdateResultCode, text string)
	InstalledPackages(ctx context.Context) ([]datatype.Package, error)
	Extension() string
}

// Dpkg shells out to dpkg -i.
type Dpkg struct{}

func (Dpkg) Extension() string { return "deb" }

func (Dpkg) Install(ctx context.Context, path string) (datatype.UpdateResultCode, string) {
	return runInstaller(ctx, "dpkg", "-i", path)
}

func (Dpkg) InstalledPackages(ctx context.Context) ([]datatype.Package, error) {
	out, err := exec.CommandContext(ctx, "dpkg-query", "-W", "-f=${Package} ${Version}\n").Output()
	if err != nil {
		return nil, datatype.NewError(datatype.ErrorKindInstall, "listing dpkg packages", err)
	}
	return parsePackageList(string(out)), nil
}

// Rpm shells out to rpm -i.
type Rpm struct{}

func (Rpm) Extension() string { return "rpm" }

func (Rpm) Install(ctx context.Context, path string) (datatype.UpdateResultCode, string) {
	return runInstaller(ctx, "rpm", "-i", path)
}

func (Rpm) InstalledPackages(ctx context.Context) ([]datatype.Package, error) {
	out, err := exec.CommandContext(ctx, "rpm", "-qa", "--queryformat", "%{NAME} %{VERSION}\n").Output()
	if err != nil {
		return nil, datatype.NewError(datatype.ErrorKindInstall, "listing rpm packages", err)
	}
	return parsePackageList(string(out)), nil
}

// File is the test package manager named by spec.md §3/§6: it never shells
// out. Instead a companion file named Filename is read; its trimmed
// contents ("true"/"false") decide success, overriding Succeeds if present.
type File struct {
	Filename string
	Succeeds bool
}

func (File) Extension() string { return "spkg" }

// Install reports success per f.Succeeds, or per the contents of a
// companion file named f.Filename in the current directory if it exists
// (mirrors original_source/src/main.rs's File{filename, succeeds} tests).
func (f File) Install(_ context.Context, _ string) (datatype.UpdateResultCode, string) {
	succeeds := f.Succeeds
	if f.Filename != "" {
		if data, err := os.ReadFile(f.Filename); err == nil {
			succeeds = strings.TrimSpace(string(data)) == "true"
		}
	}
	if succeeds {
		return datatype.ResultOK, ""
	}
	return datatype.ResultInstallFailed, "failed"
}

func (File) InstalledPackages(context.Context) ([]datatype.Package, error) {
	return nil, nil
}

func runInstaller(ctx context.Context, name string, args ...string) (datatype.UpdateResultCode, string) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return datatype.ResultInstallFailed, strings.TrimSpace(stderr.String())
	}
	return datatype.ResultOK, ""
}

func parsePackageList(out string) []datatype.Package {
	var pkgs []datatype.Package
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			continue
		}
		pkgs = append(pkgs, datatype.Package{Name: fields[0], Version: fields[1]})
	}
	return pkgs
}
