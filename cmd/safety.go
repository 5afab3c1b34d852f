/*
Copyright 2024 Blnk Finance Authors.

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

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// safetyCommands runs the Banker's algorithm over matrices given on the
// command line, e.g. --available 3,3,2 --max "7,5,3;3,2,2" --allocated "0,1,0;2,0,0".
func safetyCommands(b *bankcoreInstance) *cobra.Command {
	var available, maxDemand, allocated string

	cmd := &cobra.Command{
		Use:   "safety-check",
		Short: "check whether a resource allocation state is safe",
		RunE: func(cmd *cobra.Command, args []string) error {
			avail, err := parseVector(available)
			if err != nil {
				return fmt.Errorf("--available: %w", err)
			}
			demand, err := parseMatrix(maxDemand)
			if err != nil {
				return fmt.Errorf("--max: %w", err)
			}
			alloc, err := parseMatrix(allocated)
			if err != nil {
				return fmt.Errorf("--allocated: %w", err)
			}

			safe, sequence, err := b.core.SafetyCheck(avail, demand, alloc)
			if err != nil {
				return err
			}
			if safe {
				fmt.Fprintf(cmd.OutOrStdout(), "SAFE, sequence %v\n", sequence)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "UNSAFE")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&available, "available", "", "comma separated available units per resource")
	cmd.Flags().StringVar(&maxDemand, "max", "", "maximum demand matrix, rows separated by ';'")
	cmd.Flags().StringVar(&allocated, "allocated", "", "allocation matrix, rows separated by ';'")
	_ = cmd.MarkFlagRequired("available")
	_ = cmd.MarkFlagRequired("max")
	_ = cmd.MarkFlagRequired("allocated")
	return cmd
}

func parseVector(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseMatrix(s string) ([][]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return [][]int{}, nil
	}
	rows := strings.Split(s, ";")
	out := make([][]int, 0, len(rows))
	for _, row := range rows {
		v, err := parseVector(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
