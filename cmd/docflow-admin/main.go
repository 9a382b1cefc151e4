/*-------------------------------------------------------------------------
 *
 * main.go
 *    Administrative CLI tool for DocFlow
 *
 * Command-line utility for bootstrapping workspaces, adding members,
 * and generating service API keys.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/cmd/docflow-admin/main.go
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/atelierflow/docflow/internal/auth"
	"github.com/atelierflow/docflow/internal/config"
	"github.com/atelierflow/docflow/internal/db"
)

var (
	dbHost string
	dbPort int
	dbName string
	dbUser string
	dbPass string
)

var rootCmd = &cobra.Command{
	Use:   "docflow-admin",
	Short: "DocFlow admin - workspace and credential management",
	Long: `docflow-admin manages DocFlow workspaces directly against the database.

Examples:
  # Create a workspace
  docflow-admin create-workspace --name "Atelier Lemoine"

  # Add a member with a login password
  docflow-admin add-member --workspace <id> --email anna@atelier.fr --name "Anna Lemoine" --role director --password secret

  # Generate a service API key
  docflow-admin generate-key --workspace <id> --roles service --rate 120
`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbHost, "db-host", "localhost", "Database host")
	rootCmd.PersistentFlags().IntVar(&dbPort, "db-port", 5432, "Database port")
	rootCmd.PersistentFlags().StringVar(&dbName, "db-name", "docflow", "Database name")
	rootCmd.PersistentFlags().StringVar(&dbUser, "db-user", "docflow", "Database user")
	rootCmd.PersistentFlags().StringVar(&dbPass, "db-pass", "", "Database password")

	rootCmd.AddCommand(createWorkspaceCmd())
	rootCmd.AddCommand(addMemberCmd())
	rootCmd.AddCommand(generateKeyCmd())
}

/* connect opens a small administrative connection pool */
func connect() (*db.DB, *db.Queries, error) {
	cfg := config.DefaultConfig()
	cfg.Database.Host = dbHost
	cfg.Database.Port = dbPort
	cfg.Database.Database = dbName
	cfg.Database.User = dbUser
	if dbPass != "" {
		cfg.Database.Password = dbPass
	}

	database, err := db.NewDB(cfg.Database.DSN(), db.PoolConfig{
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database at %s:%d: %w", dbHost, dbPort, err)
	}
	return database, db.NewQueries(database), nil
}

func createWorkspaceCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create-workspace",
		Short: "Create a new workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			database, queries, err := connect()
			if err != nil {
				return err
			}
			defer database.Close()

			ws := &db.Workspace{Name: name}
			if err := queries.CreateWorkspace(context.Background(), ws); err != nil {
				return fmt.Errorf("failed to create workspace: %w", err)
			}

			fmt.Println("Workspace created successfully")
			fmt.Printf("ID: %s\n", ws.ID)
			fmt.Printf("Name: %s\n", ws.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Workspace name")
	return cmd
}

func addMemberCmd() *cobra.Command {
	var (
		workspace   string
		email       string
		displayName string
		role        string
		password    string
	)

	cmd := &cobra.Command{
		Use:   "add-member",
		Short: "Add a member to a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceID, err := uuid.Parse(workspace)
			if err != nil {
				return fmt.Errorf("--workspace must be a valid UUID: %w", err)
			}
			if email == "" || displayName == "" || role == "" {
				return fmt.Errorf("--email, --name, and --role are required")
			}

			database, queries, err := connect()
			if err != nil {
				return err
			}
			defer database.Close()

			member := &db.WorkspaceMember{
				WorkspaceID: workspaceID,
				Email:       email,
				DisplayName: displayName,
				Role:        role,
			}
			if password != "" {
				hash, err := auth.HashSecret(password)
				if err != nil {
					return fmt.Errorf("failed to hash password: %w", err)
				}
				member.PasswordHash = &hash
			}

			if err := queries.CreateMember(context.Background(), member); err != nil {
				return fmt.Errorf("failed to add member: %w", err)
			}

			fmt.Println("Member added successfully")
			fmt.Printf("ID: %s\n", member.ID)
			fmt.Printf("Email: %s\n", member.Email)
			fmt.Printf("Role: %s\n", member.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&email, "email", "", "Member email")
	cmd.Flags().StringVar(&displayName, "name", "", "Member display name")
	cmd.Flags().StringVar(&role, "role", "", "Member role (e.g. architect, project_manager, director)")
	cmd.Flags().StringVar(&password, "password", "", "Login password (optional)")
	return cmd
}

func generateKeyCmd() *cobra.Command {
	var (
		workspace string
		rateLimit int
		roles     string
	)

	cmd := &cobra.Command{
		Use:   "generate-key",
		Short: "Generate a service API key for a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceID, err := uuid.Parse(workspace)
			if err != nil {
				return fmt.Errorf("--workspace must be a valid UUID: %w", err)
			}

			roleList := []string{}
			if roles != "" {
				roleList = strings.Split(roles, ",")
				for i := range roleList {
					roleList[i] = strings.TrimSpace(roleList[i])
				}
			}

			database, queries, err := connect()
			if err != nil {
				return err
			}
			defer database.Close()

			keyManager := auth.NewAPIKeyManager(queries)
			key, apiKey, err := keyManager.GenerateAPIKey(context.Background(), workspaceID, rateLimit, roleList)
			if err != nil {
				return fmt.Errorf("failed to generate API key: %w", err)
			}

			fmt.Println("API key generated successfully")
			fmt.Printf("Key: %s\n", key)
			fmt.Printf("Key ID: %s\n", apiKey.ID)
			fmt.Printf("Prefix: %s\n", apiKey.KeyPrefix)
			fmt.Fprintf(os.Stderr, "\nWarning: Save this key securely - it cannot be retrieved again after generation.\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID")
	cmd.Flags().IntVar(&rateLimit, "rate", 60, "Rate limit per minute")
	cmd.Flags().StringVar(&roles, "roles", "service", "Comma-separated roles")
	return cmd
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
