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

// Package feedback is the Player Feedback component (spec §4.6): a
// per-tick action-bar renderer driven off position/ETA/state.
package feedback

import (
	"fmt"
	"strings"
	"time"
)

// ETA computes spec §4.6's estimated time to admission: max(0, send_delay
// × position) seconds when connectionAttempts == 0; otherwise 0, so a
// failed attempt never makes the displayed ETA appear to go up
// (spec §8 property 6, scenario S6).
func ETA(sendDelay time.Duration, position, connectionAttempts int) time.Duration {
	if connectionAttempts > 0 {
		return 0
	}
	eta := sendDelay * time.Duration(position)
	if eta < 0 {
		return 0
	}
	return eta
}

// FormatDuration splits d into days/hours/minutes/seconds, emitting
// only non-zero leading components; seconds are always emitted (even
// zero) when no higher component is non-zero (spec §4.6).
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Round(time.Second) / time.Second)

	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var b strings.Builder
	wrote := false
	if days > 0 {
		fmt.Fprintf(&b, "%dd ", days)
		wrote = true
	}
	if hours > 0 || wrote {
		fmt.Fprintf(&b, "%dh ", hours)
		wrote = true
	}
	if minutes > 0 || wrote {
		fmt.Fprintf(&b, "%dm ", minutes)
		wrote = true
	}
	fmt.Fprintf(&b, "%ds", seconds)
	return b.String()
}
