package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"bagger/internal/bagger"
	"bagger/internal/model"

	"github.com/spf13/cobra"
)

// cheats command
var cheatsCmd = &cobra.Command{
	Use:   "cheats",
	Short: "Browse and edit cheats",
}

var cheatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cheats",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		platforms, _ := cmd.Flags().GetInt64Slice("platform")
		topics, _ := cmd.Flags().GetInt64Slice("topic")
		page, _ := cmd.Flags().GetInt("page")

		a, err := newLibraryApp(cmd.Context(), "ListCheats")
		if err != nil {
			return err
		}
		defer a.Close()

		view := bagger.NewCheatListView()
		view.SetQuery(query)
		view.SetPlatforms(platforms)
		view.SetTopics(topics)
		view.SetPage(page)
		printCheatPage(os.Stdout, a.Store(), view.Render(a.Store().Cheats()))
		return nil
	},
}

var cheatsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a cheat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newLibraryApp(cmd.Context(), "ShowCheat")
		if err != nil {
			return err
		}
		defer a.Close()

		c, ok := a.Store().Cheat(id)
		if !ok {
			return fmt.Errorf("cheat %d not found", id)
		}
		printCheat(os.Stdout, a.Store(), c)
		return nil
	},
}

var cheatsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a cheat",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := cheatInputFromFlags(cmd, os.Stdin)
		if err != nil {
			return err
		}

		a, err := newLibraryApp(cmd.Context(), "CreateCheat")
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Store().CreateCheat(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Printf("Created cheat %d: %s\n", c.ID, c.Title)
		return nil
	},
}

var cheatsEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Update a cheat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		patch, err := cheatPatchFromFlags(cmd, os.Stdin)
		if err != nil {
			return err
		}

		a, err := newLibraryApp(cmd.Context(), "UpdateCheat")
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Store().UpdateCheat(cmd.Context(), id, patch)
		if err != nil {
			return err
		}
		fmt.Printf("Updated cheat %d: %s\n", c.ID, c.Title)
		return nil
	},
}

var cheatsRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a cheat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newLibraryApp(cmd.Context(), "DeleteCheat")
		if err != nil {
			return err
		}
		defer a.Close()

		c, ok := a.Store().Cheat(id)
		if !ok {
			return fmt.Errorf("cheat %d not found", id)
		}
		if !confirm(cmd, fmt.Sprintf("Delete cheat %q?", c.Title)) {
			return nil
		}
		if err := a.Store().DeleteCheat(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted cheat %d\n", id)
		return nil
	},
}

// topics command
var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Browse and edit topics",
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		page, _ := cmd.Flags().GetInt("page")

		a, err := newLibraryApp(cmd.Context(), "ListTopics")
		if err != nil {
			return err
		}
		defer a.Close()

		view := bagger.NewTopicListView()
		view.SetQuery(query)
		view.SetPage(page)
		p := view.Render(a.Store().Topics())
		usage := bagger.TopicUsage(a.Store().Cheats())

		if p.Total == 0 {
			fmt.Println("No topics found.")
			return nil
		}
		for _, t := range p.Items {
			fmt.Printf("%5d  %-24s  %-24s  %d cheat(s)\n", t.ID, t.Name, t.Slug, usage[t.ID])
		}
		printPageFooter(os.Stdout, p.Number, p.TotalPages, p.Total)
		return nil
	},
}

var topicsAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := topicInputFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		a, err := newLibraryApp(cmd.Context(), "CreateTopic")
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.Store().CreateTopic(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Printf("Created topic %d: %s (%s)\n", t.ID, t.Name, t.Slug)
		return nil
	},
}

var topicsEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Update a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		patch, err := topicPatchFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newLibraryApp(cmd.Context(), "UpdateTopic")
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.Store().UpdateTopic(cmd.Context(), id, patch)
		if err != nil {
			return err
		}
		fmt.Printf("Updated topic %d: %s (%s)\n", t.ID, t.Name, t.Slug)
		return nil
	},
}

var topicsRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newLibraryApp(cmd.Context(), "DeleteTopic")
		if err != nil {
			return err
		}
		defer a.Close()

		t, ok := a.Store().Topic(id)
		if !ok {
			return fmt.Errorf("topic %d not found", id)
		}
		if !confirm(cmd, fmt.Sprintf("Delete topic %q?", t.Name)) {
			return nil
		}
		if err := a.Store().DeleteTopic(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted topic %d\n", id)
		return nil
	},
}

// platforms command
var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "Browse and edit platforms",
}

var platformsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		typeName, _ := cmd.Flags().GetString("type")
		page, _ := cmd.Flags().GetInt("page")

		a, err := newLibraryApp(cmd.Context(), "ListPlatforms")
		if err != nil {
			return err
		}
		defer a.Close()

		view := bagger.NewPlatformListView()
		view.SetQuery(query)
		view.SetType(typeName)
		view.SetPage(page)
		p := view.Render(a.Store().Platforms())
		usage := bagger.PlatformUsage(a.Store().Cheats())

		if p.Total == 0 {
			fmt.Println("No platforms found.")
			return nil
		}
		for _, pl := range p.Items {
			fmt.Printf("%5d  %-20s  %-20s  %-10s  %d cheat(s)\n", pl.ID, pl.Name, pl.Slug, pl.Type, usage[pl.ID])
		}
		printPageFooter(os.Stdout, p.Number, p.TotalPages, p.Total)
		return nil
	},
}

var platformsAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := platformInputFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		a, err := newLibraryApp(cmd.Context(), "CreatePlatform")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Store().CreatePlatform(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Printf("Created platform %d: %s (%s, %s)\n", p.ID, p.Name, p.Slug, p.Type)
		return nil
	},
}

var platformsEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Update a platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		patch, err := platformPatchFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newLibraryApp(cmd.Context(), "UpdatePlatform")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Store().UpdatePlatform(cmd.Context(), id, patch)
		if err != nil {
			return err
		}
		fmt.Printf("Updated platform %d: %s (%s, %s)\n", p.ID, p.Name, p.Slug, p.Type)
		return nil
	},
}

var platformsRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newLibraryApp(cmd.Context(), "DeletePlatform")
		if err != nil {
			return err
		}
		defer a.Close()

		p, ok := a.Store().Platform(id)
		if !ok {
			return fmt.Errorf("platform %d not found", id)
		}
		if !confirm(cmd, fmt.Sprintf("Delete platform %q?", p.Name)) {
			return nil
		}
		if err := a.Store().DeletePlatform(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted platform %d\n", id)
		return nil
	},
}

// cheatInputFromFlags reads a new cheat from cmd's flags. Like the other
// *FromFlags helpers it returns normalized input and any validation error.
func cheatInputFromFlags(cmd *cobra.Command, stdin io.Reader) (model.CheatInput, error) {
	f := cmd.Flags()
	title, _ := f.GetString("title")
	code, _ := f.GetString("code")
	notes, _ := f.GetString("notes")
	public, _ := f.GetBool("public")
	platforms, _ := f.GetInt64Slice("platform")
	topics, _ := f.GetInt64Slice("topic")

	code, err := readCode(code, stdin)
	if err != nil {
		return model.CheatInput{}, err
	}
	in := bagger.NormalizeCheatInput(model.CheatInput{
		Title:       title,
		Code:        code,
		Notes:       notes,
		IsPublic:    public,
		PlatformIDs: platforms,
		TopicIDs:    topics,
	})
	return in, bagger.ValidateCheatInput(in)
}

func cheatPatchFromFlags(cmd *cobra.Command, stdin io.Reader) (model.CheatPatch, error) {
	f := cmd.Flags()
	var patch model.CheatPatch
	if f.Changed("title") {
		v, _ := f.GetString("title")
		patch.Title = &v
	}
	if f.Changed("code") {
		v, _ := f.GetString("code")
		v, err := readCode(v, stdin)
		if err != nil {
			return patch, err
		}
		patch.Code = &v
	}
	if f.Changed("notes") {
		v, _ := f.GetString("notes")
		patch.Notes = &v
	}
	if f.Changed("public") {
		v, _ := f.GetBool("public")
		patch.IsPublic = &v
	}
	if f.Changed("platform") {
		v, _ := f.GetInt64Slice("platform")
		patch.PlatformIDs = &v
	}
	if f.Changed("topic") {
		v, _ := f.GetInt64Slice("topic")
		patch.TopicIDs = &v
	}
	patch = bagger.NormalizeCheatPatch(patch)
	return patch, bagger.ValidateCheatPatch(patch)
}

// readCode returns code, or all of stdin when code is "-".
func readCode(code string, stdin io.Reader) (string, error) {
	if code != "-" {
		return code, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading code from stdin: %w", err)
	}
	return string(data), nil
}

func topicInputFromFlags(cmd *cobra.Command, name string) (model.TopicInput, error) {
	slug, _ := cmd.Flags().GetString("slug")
	in := bagger.NormalizeTopicInput(model.TopicInput{Name: name, Slug: slug})
	return in, bagger.ValidateTopicInput(in)
}

func topicPatchFromFlags(cmd *cobra.Command) (model.TopicPatch, error) {
	f := cmd.Flags()
	var patch model.TopicPatch
	if f.Changed("name") {
		v, _ := f.GetString("name")
		patch.Name = &v
	}
	if f.Changed("slug") {
		v, _ := f.GetString("slug")
		patch.Slug = &v
	}
	patch = bagger.NormalizeTopicPatch(patch)
	return patch, bagger.ValidateTopicPatch(patch)
}

func platformInputFromFlags(cmd *cobra.Command, name string) (model.PlatformInput, error) {
	slug, _ := cmd.Flags().GetString("slug")
	typeName, _ := cmd.Flags().GetString("type")
	in := bagger.NormalizePlatformInput(model.PlatformInput{
		Name: name,
		Slug: slug,
		Type: model.PlatformType(typeName),
	})
	return in, bagger.ValidatePlatformInput(in)
}

func platformPatchFromFlags(cmd *cobra.Command) (model.PlatformPatch, error) {
	f := cmd.Flags()
	var patch model.PlatformPatch
	if f.Changed("name") {
		v, _ := f.GetString("name")
		patch.Name = &v
	}
	if f.Changed("slug") {
		v, _ := f.GetString("slug")
		patch.Slug = &v
	}
	if f.Changed("type") {
		v, _ := f.GetString("type")
		t := model.PlatformType(v)
		patch.Type = &t
	}
	patch = bagger.NormalizePlatformPatch(patch)
	return patch, bagger.ValidatePlatformPatch(patch)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// confirm asks a yes/no question unless --yes was given.
func confirm(cmd *cobra.Command, question string) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true
	}
	answer, err := prompt(question + " [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		fmt.Println("Aborted.")
		return false
	}
}

func printCheatPage(w io.Writer, store *bagger.DataStore, p bagger.Page[model.Cheat]) {
	if p.Total == 0 {
		fmt.Fprintln(w, "No cheats found.")
		return
	}
	for _, c := range p.Items {
		star := " "
		if store.IsFavorite(c.ID) {
			star = "*"
		}
		fmt.Fprintf(w, "%5d %s %-40s  %s\n", c.ID, star, c.Title, strings.Join(platformNames(store, c.PlatformIDs), ", "))
	}
	printPageFooter(w, p.Number, p.TotalPages, p.Total)
}

func printPageFooter(w io.Writer, number, totalPages, total int) {
	fmt.Fprintf(w, "\nPage %d of %d (%d total)\n", number, totalPages, total)
}

func printCheat(w io.Writer, store *bagger.DataStore, c model.Cheat) {
	fmt.Fprintf(w, "#%d  %s\n", c.ID, c.Title)
	if names := platformNames(store, c.PlatformIDs); len(names) > 0 {
		fmt.Fprintf(w, "Platforms: %s\n", strings.Join(names, ", "))
	}
	if names := topicNames(store, c.TopicIDs); len(names) > 0 {
		fmt.Fprintf(w, "Topics:    %s\n", strings.Join(names, ", "))
	}
	var flags []string
	if c.IsPublic {
		flags = append(flags, "public")
	}
	if store.IsFavorite(c.ID) {
		flags = append(flags, "favorite")
	}
	if len(flags) > 0 {
		fmt.Fprintf(w, "Flags:     %s\n", strings.Join(flags, ", "))
	}
	fmt.Fprintf(w, "\n%s\n", strings.TrimRight(c.Code, "\n"))
	if c.Notes != "" {
		fmt.Fprintf(w, "\n%s\n", c.Notes)
	}
}

// platformNames resolves ids to names, skipping ids the library doesn't know.
func platformNames(store *bagger.DataStore, ids []int64) []string {
	var names []string
	for _, id := range ids {
		if p, ok := store.Platform(id); ok {
			names = append(names, p.Name)
		}
	}
	return names
}

func topicNames(store *bagger.DataStore, ids []int64) []string {
	var names []string
	for _, id := range ids {
		if t, ok := store.Topic(id); ok {
			names = append(names, t.Name)
		}
	}
	return names
}

func init() {
	cheatsCmd.AddCommand(cheatsListCmd, cheatsShowCmd, cheatsAddCmd, cheatsEditCmd, cheatsRmCmd)
	cheatsListCmd.Flags().StringP("query", "q", "", "Search title, code and notes")
	cheatsListCmd.Flags().Int64SliceP("platform", "p", nil, "Only cheats tagged with any of these platform ids")
	cheatsListCmd.Flags().Int64SliceP("topic", "t", nil, "Only cheats tagged with any of these topic ids")
	cheatsListCmd.Flags().Int("page", 1, "Page number")
	addCheatFlags(cheatsAddCmd)
	addCheatFlags(cheatsEditCmd)
	cheatsRmCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	topicsCmd.AddCommand(topicsListCmd, topicsAddCmd, topicsEditCmd, topicsRmCmd)
	topicsListCmd.Flags().StringP("query", "q", "", "Search name and slug")
	topicsListCmd.Flags().Int("page", 1, "Page number")
	topicsAddCmd.Flags().String("slug", "", "Slug (default derived from the name)")
	addTopicEditFlags(topicsEditCmd)
	topicsRmCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	platformsCmd.AddCommand(platformsListCmd, platformsAddCmd, platformsEditCmd, platformsRmCmd)
	platformsListCmd.Flags().StringP("query", "q", "", "Search name, slug and type")
	platformsListCmd.Flags().String("type", bagger.PlatformTypeAll, "language, framework, tool, format or all")
	platformsListCmd.Flags().Int("page", 1, "Page number")
	addPlatformAddFlags(platformsAddCmd)
	addPlatformEditFlags(platformsEditCmd)
	platformsRmCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

func addCheatFlags(c *cobra.Command) {
	c.Flags().String("title", "", "Title")
	c.Flags().String("code", "", "Code snippet, or - to read it from stdin")
	c.Flags().String("notes", "", "Notes")
	c.Flags().Bool("public", false, "Visible to other users")
	c.Flags().Int64SliceP("platform", "p", nil, "Platform ids")
	c.Flags().Int64SliceP("topic", "t", nil, "Topic ids")
}

func addTopicEditFlags(c *cobra.Command) {
	c.Flags().String("name", "", "Name")
	c.Flags().String("slug", "", "Slug (default derived from a new name)")
}

func addPlatformAddFlags(c *cobra.Command) {
	c.Flags().String("slug", "", "Slug (default derived from the name)")
	c.Flags().String("type", string(model.PlatformLanguage), "language, framework, tool or format")
}

func addPlatformEditFlags(c *cobra.Command) {
	c.Flags().String("name", "", "Name")
	c.Flags().String("slug", "", "Slug (default derived from a new name)")
	c.Flags().String("type", "", "language, framework, tool or format")
}
