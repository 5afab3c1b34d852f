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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blnkfinance/bankcore/config"
)

// configCommands prints the effective configuration with secrets masked.
func configCommands(b *bankcoreInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "print the effective bankcore configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := renderConfig(b.cnf)
			if err != nil {
				return fmt.Errorf("error printing config: %v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), data)
			return nil
		},
	}
}

func renderConfig(cnf *config.Configuration) (string, error) {
	masked := *cnf
	if masked.Server.SecretKey != "" {
		masked.Server.SecretKey = "********"
	}
	if masked.Notification.Slack.WebhookUrl != "" {
		masked.Notification.Slack.WebhookUrl = "********"
	}
	data, err := json.MarshalIndent(masked, "", "    ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
