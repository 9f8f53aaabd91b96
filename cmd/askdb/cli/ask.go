package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/model"
)

func newAskCmd() *cobra.Command {
	var (
		profile          string
		conn             model.ConnectionParams
		mode             string
		allowDestructive bool
		confirm          bool
		jsonOutput       bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a one-shot question against a database",
		Long: `Run a single natural-language question against a database and print the
result. The connection comes from a named profile in the connections file,
or from the --driver/--host/--database flags. If the profile carries no
password you are prompted for one.`,
		Example: `  askdb ask --profile shop "which customers ordered last week?"
  askdb ask --driver sqlite --database ./app.db "how many users are there?"
  askdb ask --profile shop --mode optimization "SELECT * FROM orders"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(args[0], profile, conn, mode, allowDestructive, confirm, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "Named connection profile from the connections file")
	cmd.Flags().StringVar(&conn.Driver, "driver", "", "Database driver: mysql, postgres, or sqlite")
	cmd.Flags().StringVar(&conn.User, "user", "", "Database user")
	cmd.Flags().StringVar(&conn.Password, "password", "", "Database password (prompted if omitted)")
	cmd.Flags().StringVar(&conn.Host, "host", "", "Database host")
	cmd.Flags().IntVar(&conn.Port, "port", 0, "Database port")
	cmd.Flags().StringVar(&conn.Database, "database", "", "Database name (or file path for sqlite)")
	cmd.Flags().StringVar(&mode, "mode", "", "Conversation mode: assistant, query, teaching, debug, optimization, search")
	cmd.Flags().BoolVar(&allowDestructive, "allow-destructive", false, "Allow DROP/TRUNCATE/DELETE statements")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm a destructive statement")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full response envelope as JSON")

	return cmd
}

func runAsk(question, profile string, conn model.ConnectionParams, mode string, allowDestructive, confirm, jsonOutput bool) error {
	if profile != "" {
		profiles, err := config.LoadProfiles(connectionsFile)
		if err != nil {
			return err
		}
		p, ok := profiles[profile]
		if !ok {
			return fmt.Errorf("unknown connection profile %q", profile)
		}
		conn = p
	}
	if conn.Database == "" {
		return fmt.Errorf("no database specified: use --profile or --database")
	}
	conn = conn.Normalize()

	if conn.Password == "" && conn.Driver != "sqlite" {
		pw, err := promptPassword(fmt.Sprintf("Password for %s@%s: ", conn.User, conn.Host))
		if err != nil {
			return err
		}
		conn.Password = pw
	}

	cfg := config.Load(viper.GetViper())
	logger := newLogger(false)
	stack := buildStack(cfg, logger)
	defer stack.Registry.ReleaseAll()

	resp, err := stack.Orch.HandleMessage(context.Background(), model.ChatRequest{
		Message:          question,
		Connection:       conn,
		Mode:             mode,
		AllowDestructive: allowDestructive,
		Confirm:          confirm,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Println(resp.Response)
	if resp.SQL != "" {
		fmt.Printf("\nSQL: %s\n", resp.SQL)
	}
	if resp.Result != nil && len(resp.Result.Rows) > 0 {
		out, err := json.MarshalIndent(resp.Result.Rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	return nil
}
