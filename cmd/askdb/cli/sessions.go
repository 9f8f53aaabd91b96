package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/askdb/askdb/internal/model"
)

func newSessionsCmd() *cobra.Command {
	var (
		serverURL  string
		adminToken string
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage chat sessions on a running server",
		Long: `Inspect and clean up chat sessions held by a running askdb server.
Requires the server's admin token (--token or ASKDB_AUTH_ADMIN_TOKEN).`,
	}

	cmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "Base URL of the askdb server")
	cmd.PersistentFlags().StringVar(&adminToken, "token", "", "Admin token (default from config / env)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List live sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(serverURL, adminToken)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsDelete(serverURL, adminToken, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Remove idle sessions now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsCleanup(serverURL, adminToken)
		},
	})

	return cmd
}

// adminClient talks to the admin API of a running server.
type adminClient struct {
	base string
	jwt  string
	http *http.Client
}

func newAdminClient(base, adminToken string) (*adminClient, error) {
	if adminToken == "" {
		adminToken = viper.GetString("auth.admin_token")
	}
	if adminToken == "" {
		return nil, fmt.Errorf("no admin token: pass --token or set ASKDB_AUTH_ADMIN_TOKEN")
	}

	c := &adminClient{base: base, http: &http.Client{Timeout: 10 * time.Second}}

	body, _ := json.Marshal(model.LoginRequest{Token: adminToken})
	resp, err := c.http.Post(base+"/api/v1/admin/session", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("connect to server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed: server returned %s", resp.Status)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	c.jwt = out.Token
	return c, nil
}

func (c *adminClient) do(method, path string, out interface{}) error {
	req, err := http.NewRequest(method, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func runSessionsList(serverURL, adminToken string) error {
	c, err := newAdminClient(serverURL, adminToken)
	if err != nil {
		return err
	}

	var out struct {
		Sessions []model.SessionSummary `json:"sessions"`
		Count    int                    `json:"count"`
	}
	if err := c.do(http.MethodGet, "/api/v1/sessions", &out); err != nil {
		return err
	}

	if out.Count == 0 {
		fmt.Println("No live sessions.")
		return nil
	}
	fmt.Printf("%-38s %-20s %-20s %s\n", "SESSION", "CREATED", "LAST ACTIVITY", "MESSAGES")
	for _, s := range out.Sessions {
		fmt.Printf("%-38s %-20s %-20s %d\n",
			s.SessionID,
			s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			s.LastActivity.Local().Format("2006-01-02 15:04:05"),
			s.MessageCount)
	}
	return nil
}

func runSessionsDelete(serverURL, adminToken, id string) error {
	c, err := newAdminClient(serverURL, adminToken)
	if err != nil {
		return err
	}
	if err := c.do(http.MethodDelete, "/api/v1/sessions/"+id, nil); err != nil {
		return err
	}
	fmt.Printf("Deleted session %s\n", id)
	return nil
}

func runSessionsCleanup(serverURL, adminToken string) error {
	c, err := newAdminClient(serverURL, adminToken)
	if err != nil {
		return err
	}
	var out struct {
		Cleaned int `json:"cleaned"`
	}
	if err := c.do(http.MethodPost, "/api/v1/sessions/cleanup", &out); err != nil {
		return err
	}
	fmt.Printf("Removed %d idle sessions\n", out.Cleaned)
	return nil
}
