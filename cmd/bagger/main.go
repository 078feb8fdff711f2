package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"bagger/internal/app"
	"bagger/internal/apperror"
	"bagger/internal/bagger"
	"bagger/internal/config"
	"bagger/internal/encryption"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if app.IsSessionExpired(err) {
			fmt.Fprintln(os.Stderr, "Session expired. Run `bagger login` to sign in again.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", apperror.Message(err))
		}
		os.Exit(1)
	}
}

// newApp reads the config, creates a BaggerApp, restores the session and
// opens the user's library. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Sync", "Export").
func newApp(ctx context.Context, operation string) (*app.BaggerApp, error) {
	a, err := buildApp(ctx, operation)
	if err != nil {
		return nil, err
	}
	reportStart(operation, a.Start(ctx))
	return a, nil
}

// newSessionApp is newApp without opening the library.
func newSessionApp(ctx context.Context, operation string) (*app.BaggerApp, error) {
	a, err := buildApp(ctx, operation)
	if err != nil {
		return nil, err
	}
	reportStart(operation, a.StartSession(ctx))
	return a, nil
}

func buildApp(ctx context.Context, operation string) (*app.BaggerApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	if err := app.LoadEnv(); err != nil {
		return nil, err
	}

	cfg, err := app.LoadConfig(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config (run `bagger config init` first): %w", err)
	}

	a, err := app.NewBaggerApp(ctx, cfg, operation, app.Options{})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// reportStart warns about a failed session restore. Commands that need a
// user report a missing session themselves.
func reportStart(operation string, err error) {
	switch {
	case err == nil:
	case app.IsSessionExpired(err):
		if operation != "Login" && operation != "Signup" && operation != "Logout" {
			fmt.Fprintln(os.Stderr, "Session expired. Run `bagger login` to sign in again.")
		}
	default:
		fmt.Fprintf(os.Stderr, "Warning: %s\n", apperror.Message(err))
	}
}

// newLibraryApp is newApp for commands that need a signed-in user.
func newLibraryApp(ctx context.Context, operation string) (*app.BaggerApp, error) {
	a, err := newApp(ctx, operation)
	if err != nil {
		return nil, err
	}
	if _, err := a.RequireUser(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "bagger",
	Short:         "Personal cheat sheet library",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		if err := app.LoadEnv(); err != nil {
			return err
		}

		apiURL, _ := cmd.Flags().GetString("api-url")
		if apiURL == "" {
			apiURL = app.APIURLFromEnv()
		}
		if apiURL == "" {
			apiURL = app.DefaultAPIURL
		}

		cfg := config.NewConfig(apiURL, defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("API URL:  %s\n", cfg.APIURL)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		if err := app.LoadEnv(); err != nil {
			return err
		}

		cfg, err := app.LoadConfig(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		for _, kv := range cfg.Keys() {
			if kv[1] == "" {
				continue
			}
			fmt.Printf("%-26s %s\n", kv[0], kv[1])
		}
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the age identity used to encrypt local storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := app.LoadConfig(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		e := encryption.NewAgeEncryptor(cfg.Encryption.IdentityPath)
		if !e.IsConfigured() {
			if err := e.Setup(); err != nil {
				return err
			}
			fmt.Printf("Identity written to %s\n", cfg.Encryption.IdentityPath)
		}
		recipient, err := e.Recipient()
		if err != nil {
			return err
		}
		fmt.Printf("Public key: %s\n", recipient)
		if cfg.Encryption.Type != "age" {
			fmt.Println("Set encryption.type = \"age\" in the config to encrypt stored data.")
		}
		return nil
	},
}

// session commands
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")

		a, err := newApp(cmd.Context(), "Login")
		if err != nil {
			return err
		}
		defer a.Close()

		if email == "" {
			if email, err = prompt("Email: "); err != nil {
				return err
			}
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		user, err := a.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s <%s>\n", user.Name, user.Email)
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")

		a, err := newApp(cmd.Context(), "Signup")
		if err != nil {
			return err
		}
		defer a.Close()

		if name == "" {
			if name, err = prompt("Name: "); err != nil {
				return err
			}
		}
		if email == "" {
			if email, err = prompt("Email: "); err != nil {
				return err
			}
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		user, err := a.Signup(cmd.Context(), name, email, password)
		if err != nil {
			return err
		}
		fmt.Printf("Welcome, %s. You are logged in.\n", user.Name)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the cached library",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context(), "Logout")
		if err != nil {
			return err
		}
		defer a.Close()

		a.Logout()
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context(), "Whoami")
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.RequireUser()
		if err != nil {
			return err
		}
		fmt.Printf("%s <%s>\n", user.Name, user.Email)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show library counts and sync state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newLibraryApp(cmd.Context(), "Status")
		if err != nil {
			return err
		}
		defer a.Close()

		user := a.Session().User()
		st := a.Store().Status()
		stats := bagger.ComputeStats(a.Store().Snapshot())

		fmt.Printf("User:      %s <%s>\n", user.Name, user.Email)
		fmt.Printf("Cheats:    %d (%d public, %d favorites)\n", stats.Cheats, stats.Public, stats.Favorites)
		fmt.Printf("Platforms: %d\n", stats.Platforms)
		fmt.Printf("Topics:    %d\n", stats.Topics)
		if !st.LastSync.IsZero() {
			fmt.Printf("Synced:    %s\n", st.LastSync.Local().Format("2006-01-02 15:04:05"))
		}
		if st.Err != nil {
			fmt.Printf("Last error: %s\n", apperror.Message(st.Err))
		}
		if err := a.CheckStorage(); err != nil {
			fmt.Printf("Storage:   %s\n", err)
		} else {
			fmt.Println("Storage:   ok")
		}
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refetch the library from the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newLibraryApp(cmd.Context(), "Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Sync(cmd.Context()); err != nil {
			return err
		}
		stats := bagger.ComputeStats(a.Store().Snapshot())
		fmt.Printf("Synced %d cheat(s), %d platform(s), %d topic(s)\n", stats.Cheats, stats.Platforms, stats.Topics)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export platforms, topics and cheats as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		verify, _ := cmd.Flags().GetBool("verify")

		a, err := newLibraryApp(cmd.Context(), "Export")
		if err != nil {
			return err
		}
		defer a.Close()

		loc, err := a.Export(cmd.Context(), name, verify)
		if err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", loc)
		if verify {
			fmt.Println("Verified.")
		}
		return nil
	},
}

var (
	stdin = bufio.NewReader(os.Stdin)

	// promptOut receives prompt labels so stdout stays clean for output.
	promptOut io.Writer = os.Stderr
)

func prompt(label string) (string, error) {
	fmt.Fprint(promptOut, label)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal,
// and a plain line otherwise.
func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(promptOut, label)
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(promptOut)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("api-url", "", "Backend base URL")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)

	// session
	loginCmd.Flags().StringP("email", "e", "", "Account email")
	signupCmd.Flags().StringP("name", "n", "", "Display name")
	signupCmd.Flags().StringP("email", "e", "", "Account email")
	exportCmd.Flags().String("name", "", "Export file name (default bagger-export-<time>.json)")
	exportCmd.Flags().Bool("verify", false, "Read the export back and check it")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(paletteCmd)
	rootCmd.AddCommand(cheatsCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(platformsCmd)
}
