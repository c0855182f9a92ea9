// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package profiling starts CPU profiles of the running process.
package profiling

import (
	"errors"
	"os"
	"runtime/pprof"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	lock    sync.Mutex
	running bool
)

// ErrRunning is returned by CPUProfileForDuration while another profile is
// being collected.
var ErrRunning = errors.New("a CPU profile is already running")

// CPUProfileForDuration starts writing a CPU profile to outputFilename and
// stops it after the given duration. It returns without waiting for the
// profile to complete. Only one profile can be running at a time.
func CPUProfileForDuration(outputFilename string, duration time.Duration) error {
	lock.Lock()
	defer lock.Unlock()
	if running {
		return ErrRunning
	}
	f, err := os.Create(outputFilename)
	if err != nil {
		return err
	}
	log.Infof("Starting CPU profiling, to %s for %s", outputFilename, duration)
	if err := pprof.StartCPUProfile(f); err != nil {
		log.Errorf("CPU profiling error: %s", err)
		f.Close()
		return err
	}
	running = true
	time.AfterFunc(duration, func() {
		pprof.StopCPUProfile()
		f.Close()
		lock.Lock()
		running = false
		lock.Unlock()
		log.Infof("Completed CPU profile to %s", outputFilename)
	})
	return nil
}
