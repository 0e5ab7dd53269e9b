//go:build linux

/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	perf "github.com/hodgesds/perf-utils"
)

// measure runs f under a hardware instruction counter
func measure(f func() error) error {
	var (
		ran    bool
		runErr error
	)
	pv, err := perf.CPUInstructions(func() error {
		ran = true
		runErr = f()
		return runErr
	})
	if !ran {
		fmt.Printf("perf counters unavailable: %v\n", err)
		return f()
	}
	if runErr != nil {
		return runErr
	}
	if err != nil {
		return err
	}
	fmt.Printf("CPU instructions: %d (enabled %v ns, running %v ns)\n", pv.Value, pv.TimeEnabled, pv.TimeRunning)
	return nil
}
