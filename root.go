package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "chatterm",
		Short:         "Terminal client for a remote AI chat service",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}

	rootCmd.PersistentFlags().String("base-url", "", "chat service base URL (overrides config file and "+baseURLEnvVar+")")

	rootCmd.AddCommand(newSummarizeCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newPurgeCmd())
	return rootCmd
}

// resolveClient builds the service client from config, env, and the base-url
// flag, in increasing precedence.
func resolveClient(cmd *cobra.Command) (*serviceClient, appConfig, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, appConfig{}, err
	}
	if flagURL, _ := cmd.Flags().GetString("base-url"); strings.TrimSpace(flagURL) != "" {
		cfg.baseURL = strings.TrimSpace(flagURL)
	}
	return newServiceClient(cfg.baseURL, cfg.requestTimeout), cfg, nil
}

func runTUI(cmd *cobra.Command) error {
	client, cfg, err := resolveClient(cmd)
	if err != nil {
		return err
	}
	if err := setupLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "chatterm: logging disabled: %v\n", err)
	}

	archive, err := openArchiveDB(cfg.archivePath)
	if err != nil {
		logger.Warn().Err(err).Msg("local archive unavailable")
		archive = nil
	} else {
		defer archive.Close()
	}

	program := tea.NewProgram(newModel(cfg, client, archive), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run chatterm: %w", err)
	}
	return nil
}

func newSummarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize [text]",
		Short: "Summarize text without opening the TUI (reads stdin when no args)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(raw)
			}
			if !validSendText(text) {
				return fmt.Errorf("nothing to summarize")
			}

			client, _, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			summary, err := client.summarize(context.Background(), text)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent chat sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := resolveClient(cmd)
			if err != nil {
				return err
			}

			var flat []historyMessage
			if offline, _ := cmd.Flags().GetBool("offline"); offline {
				archive, err := openArchiveDB(cfg.archivePath)
				if err != nil {
					return err
				}
				defer archive.Close()
				flat, err = loadArchivedHistory(archive)
				if err != nil {
					return err
				}
			} else {
				flat, err = client.listRecent(context.Background())
				if err != nil {
					return err
				}
			}

			groups := groupBySession(flat)
			if len(groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No chat sessions found")
				return nil
			}
			for _, group := range groups {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %4d msgs  %-16s  %s\n",
					shortSessionID(group.sessionID), group.messageCount,
					formatTimestamp(group.lastTimestamp), group.preview)
			}
			return nil
		},
	}
	cmd.Flags().Bool("offline", false, "read the local archive instead of the service")
	return cmd
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <session-id>",
		Short: "Delete a session's server history and its local archive rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]
			client, cfg, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			if err := client.deleteSession(context.Background(), sessionID); err != nil {
				return err
			}

			// Local rows are convenience data; failing to drop them is not
			// a purge failure.
			if archive, err := openArchiveDB(cfg.archivePath); err == nil {
				defer archive.Close()
				if err := purgeArchivedSession(archive, sessionID); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "chatterm: %v\n", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", sessionID)
			return nil
		},
	}
}
