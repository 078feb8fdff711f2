package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bagger/internal/apperror"

	"github.com/spf13/cobra"
)

func flagCmd(t *testing.T, register func(*cobra.Command), args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	return cmd
}

func TestCheatInputFromFlags(t *testing.T) {
	cmd := flagCmd(t, addCheatFlags, "--title", "  Start a goroutine ", "--code", "-", "-p", "1,1,2")
	in, err := cheatInputFromFlags(cmd, strings.NewReader("go f()\n"))
	if err != nil {
		t.Fatalf("cheatInputFromFlags() error = %v", err)
	}
	if in.Title != "Start a goroutine" || in.Code != "go f()\n" {
		t.Errorf("input = %+v", in)
	}
	if len(in.PlatformIDs) != 2 {
		t.Errorf("PlatformIDs = %v, want [1 2]", in.PlatformIDs)
	}

	cmd = flagCmd(t, addCheatFlags, "--title", "No code")
	_, err = cheatInputFromFlags(cmd, strings.NewReader(""))
	if !apperror.IsValidation(err) || apperror.Message(err) != "Code is required" {
		t.Errorf("cheatInputFromFlags() error = %v, want Code is required", err)
	}
}

func TestPatchFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		build   func(t *testing.T) error
		wantMsg string
	}{
		{"cheat blank title", func(t *testing.T) error {
			_, err := cheatPatchFromFlags(flagCmd(t, addCheatFlags, "--title", " "), strings.NewReader(""))
			return err
		}, "Title is required"},
		{"topic blank name", func(t *testing.T) error {
			_, err := topicPatchFromFlags(flagCmd(t, addTopicEditFlags, "--name", ""))
			return err
		}, "Name is required"},
		{"platform bad type", func(t *testing.T) error {
			_, err := platformPatchFromFlags(flagCmd(t, addPlatformEditFlags, "--type", "editor"))
			return err
		}, `Invalid platform type "editor": must be one of language, framework, tool, format`},
		{"platform rename", func(t *testing.T) error {
			p, err := platformPatchFromFlags(flagCmd(t, addPlatformEditFlags, "--name", "Golang"))
			if err == nil && (p.Slug == nil || *p.Slug != "golang") {
				t.Errorf("Slug = %v, want golang", p.Slug)
			}
			return err
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build(t)
			if tt.wantMsg == "" {
				if err != nil {
					t.Errorf("error = %v", err)
				}
				return
			}
			if !apperror.IsValidation(err) || apperror.Message(err) != tt.wantMsg {
				t.Errorf("error = %v, want %q", err, tt.wantMsg)
			}
		})
	}
}

func TestPlatformInputFromFlags(t *testing.T) {
	in, err := platformInputFromFlags(flagCmd(t, addPlatformAddFlags), " Node.js ")
	if err != nil {
		t.Fatalf("platformInputFromFlags() error = %v", err)
	}
	if in.Name != "Node.js" || in.Slug != "node-js" || in.Type != "language" {
		t.Errorf("input = %+v", in)
	}

	_, err = topicInputFromFlags(flagCmd(t, func(c *cobra.Command) { c.Flags().String("slug", "", "") }), "  ")
	if apperror.Message(err) != "Name is required" {
		t.Errorf("topicInputFromFlags() error = %v", err)
	}
}

// Without any config on disk, only a command that validates before
// building the app can report the validation error.
func TestCheatsAdd_ValidatesBeforeLoadingConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BAGGER_CONFIG_PATH", filepath.Join(dir, "missing.toml"))
	t.Setenv("BAGGER_HOME", dir)
	t.Chdir(dir)

	rootCmd.SetArgs([]string{"cheats", "add", "--title", "No code"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	if !apperror.IsValidation(err) || apperror.Message(err) != "Code is required" {
		t.Errorf("Execute() error = %v, want Code is required", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "log")); !os.IsNotExist(statErr) {
		t.Error("command created app state before validating")
	}
}
