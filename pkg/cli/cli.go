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

// Package cli is the `queueadmin` command surface (spec §6), a thin
// shell over pkg/control.Surface. It is deliberately separate from
// in-game chat command dispatch (out of scope per spec §1): this is the
// operator-facing administrative CLI, reusing the queueadmin name and
// the spec's exit code convention (1 success, -1 user error, 0 usage).
// No `queue` or `leavequeue` command tree is built here.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go.minekube.com/queue/pkg/control"
	"go.minekube.com/queue/pkg/queue"
)

const (
	ExitSuccess = 1
	ExitUserErr = -1
	ExitUsage   = 0
)

// Root builds the root `queueadmin` command tree over surface. out is
// where listqueues renders its colorized table.
func Root(surface *control.Surface, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "queueadmin",
		Short:         "Administer backend server queues",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(
		listQueuesCmd(surface, out),
		pauseCmd(surface),
		unpauseCmd(surface),
		addCmd(surface),
		addAllCmd(surface),
		removeCmd(surface),
		removeAllCmd(surface),
	)
	return root
}

// Run executes args against root and returns the spec's exit code
// convention rather than the process exit status.
func Run(root *cobra.Command, args []string) int {
	root.SetArgs(args)
	if len(args) == 0 {
		_ = root.Usage()
		return ExitUsage
	}
	if err := root.Execute(); err != nil {
		return ExitUserErr
	}
	return ExitSuccess
}

func listQueuesCmd(surface *control.Surface, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "listqueues",
		Short: "List every known queue's size, pause and online state",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, q := range surface.List() {
				state := color.Green.Sprint("online")
				if !q.Online {
					state = color.Red.Sprint("offline")
				}
				if q.Paused {
					state += " " + color.Yellow.Sprint("(paused)")
				}
				fmt.Fprintf(out, "%s: %d waiting, %s\n", q.Server, q.Size, state)
			}
			return nil
		},
	}
}

func pauseCmd(surface *control.Surface) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <server>",
		Short: "Pause sends for a backend's queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			surface.Pause(context.Background(), args[0])
			return nil
		},
	}
}

func unpauseCmd(surface *control.Surface) *cobra.Command {
	return &cobra.Command{
		Use:   "unpause <server>",
		Short: "Resume sends for a backend's queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			surface.Unpause(context.Background(), args[0])
			return nil
		},
	}
}

func addCmd(surface *control.Surface) *cobra.Command {
	var priority int
	c := &cobra.Command{
		Use:   "add <player-id> <server>",
		Short: "Administratively enqueue a player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid player id: %w", err)
			}
			return surface.Add(pid, args[1], priority)
		},
	}
	c.Flags().IntVar(&priority, "priority", 0, "admin priority to enqueue with")
	return c
}

func addAllCmd(surface *control.Surface) *cobra.Command {
	var priority int
	c := &cobra.Command{
		Use:   "addall <from-server> <to-server>",
		Short: "Enqueue every player on from-server onto to-server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := surface.AddAll(args[0], args[1], priority)
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %d players\n", n)
			return nil
		},
	}
	c.Flags().IntVar(&priority, "priority", 0, "admin priority to enqueue with")
	return c
}

func removeCmd(surface *control.Surface) *cobra.Command {
	var server string
	c := &cobra.Command{
		Use:   "remove <player-id>",
		Short: "Remove a player from one queue, or every queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid player id: %w", err)
			}
			if surface.Remove(pid, server) == 0 {
				return queue.ErrNotPresent
			}
			return nil
		},
	}
	c.Flags().StringVar(&server, "server", "", "limit removal to one server")
	return c
}

func removeAllCmd(surface *control.Surface) *cobra.Command {
	return &cobra.Command{
		Use:   "removeall <server>",
		Short: "Clear a backend's queue entirely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed := surface.RemoveAll(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", len(removed))
			return nil
		},
	}
}
