package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sells-group/warehouse-agent/internal/config"
	"github.com/sells-group/warehouse-agent/internal/secrets"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage provider API keys in the OS keyring",
	Long: "Keys stored here are used when neither the environment nor the config file " +
		"sets one for the selected provider.",
}

var authSetCmd = &cobra.Command{
	Use:       "set <provider>",
	Short:     "Store an API key",
	Args:      cobra.ExactArgs(1),
	ValidArgs: config.Providers,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := strings.ToLower(args[0])

		key, _ := cmd.Flags().GetString("key")
		if key == "" {
			var err error
			if key, err = readKey(provider); err != nil {
				return err
			}
		}

		ring, err := secrets.Open()
		if err != nil {
			return err
		}
		if err := ring.Set(provider, strings.TrimSpace(key)); err != nil {
			return err
		}
		pterm.Success.Printf("Stored %s API key in the OS keyring\n", provider)
		return nil
	},
}

var authDeleteCmd = &cobra.Command{
	Use:       "delete <provider>",
	Short:     "Remove a stored API key",
	Args:      cobra.ExactArgs(1),
	ValidArgs: config.Providers,
	RunE: func(_ *cobra.Command, args []string) error {
		provider := strings.ToLower(args[0])

		ring, err := secrets.Open()
		if err != nil {
			return err
		}
		err = ring.Delete(provider)
		if errors.Is(err, secrets.ErrNotFound) {
			pterm.Warning.Printf("No %s API key stored\n", provider)
			return nil
		}
		if err != nil {
			return err
		}
		pterm.Success.Printf("Removed %s API key\n", provider)
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which providers have a stored key",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		ring, err := secrets.Open()
		if err != nil {
			return err
		}
		items := make([]pterm.BulletListItem, 0, len(config.Providers))
		for _, p := range config.Providers {
			key, err := ring.Get(p)
			if err != nil {
				return err
			}
			state := "not set"
			if key != "" {
				state = "stored"
			}
			items = append(items, pterm.BulletListItem{Level: 0, Text: p + ": " + state})
		}
		return pterm.DefaultBulletList.WithItems(items).Render()
	},
}

func init() {
	authSetCmd.Flags().String("key", "", "API key (prompted for when omitted)")

	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authDeleteCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

// readKey prompts without echo on a terminal and reads one line otherwise.
func readKey(provider string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(os.Stderr, "%s API key: ", provider)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", eris.Wrap(err, "auth: read key")
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", eris.Wrap(err, "auth: read key from stdin")
	}
	return strings.TrimSpace(line), nil
}
