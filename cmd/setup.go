package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	wizWarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for Storyreel",
	Long:  `Configure API keys and write the .env file Storyreel reads on startup.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎞  Storyreel Setup"))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Checking tools", checkTools},
		{"Configuring environment", configureEnv},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

func checkTools() error {
	return runWithSpinner("Checking for ffprobe", func() error {
		if !commandExists("ffprobe") {
			fmt.Println(wizWarnStyle.Render("ffprobe not found - audio durations will be estimated from file size"))
		}
		return nil
	})
}

func configureEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureRequiredKeys(env); err != nil {
		return err
	}
	if err := configureSpeechKeys(env); err != nil {
		return err
	}
	if err := configureStorage(env); err != nil {
		return err
	}

	return writeEnvFile(env)
}

func configureRequiredKeys(env map[string]string) error {
	var groqKey, pexelsKey, pixabayKey string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Groq API Key").
				Description("https://console.groq.com/keys").
				Value(&groqKey).
				Validate(required("Groq API Key")),
			huh.NewInput().
				Title("Pexels API Key").
				Description("https://www.pexels.com/api/ - leave empty to use Pixabay only").
				Value(&pexelsKey),
			huh.NewInput().
				Title("Pixabay API Key").
				Description("https://pixabay.com/api/docs/ - leave empty to use Pexels only").
				Value(&pixabayKey),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	env["GROQ_API_KEY"] = strings.TrimSpace(groqKey)
	env["PEXELS_API_KEY"] = strings.TrimSpace(pexelsKey)
	env["PIXABAY_API_KEY"] = strings.TrimSpace(pixabayKey)

	if env["PEXELS_API_KEY"] == "" && env["PIXABAY_API_KEY"] == "" {
		fmt.Println(wizWarnStyle.Render("No stock provider key set - candidate ranking will find nothing"))
	}
	return nil
}

func configureSpeechKeys(env map[string]string) error {
	var setup bool
	if err := huh.NewConfirm().
		Title("Setup speech synthesis?").
		Description("Narration runs on a stub voice without provider keys").
		Value(&setup).
		Run(); err != nil {
		return err
	}
	if !setup {
		return nil
	}

	var elevenKey, fishKey, moderationKey string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("ElevenLabs API Key").
				Description("https://elevenlabs.io/app/settings/api-keys (primary voice)").
				EchoMode(huh.EchoModePassword).
				Value(&elevenKey),
			huh.NewInput().
				Title("Fish Audio API Key").
				Description("https://fish.audio/ (fallback voice, optional)").
				EchoMode(huh.EchoModePassword).
				Value(&fishKey),
			huh.NewInput().
				Title("Moderation API Key").
				Description("OpenAI-compatible moderation endpoint key (optional)").
				EchoMode(huh.EchoModePassword).
				Value(&moderationKey),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	env["ELEVENLABS_API_KEY"] = strings.TrimSpace(elevenKey)
	env["FISHAUDIO_API_KEY"] = strings.TrimSpace(fishKey)
	env["MODERATION_API_KEY"] = strings.TrimSpace(moderationKey)
	return nil
}

func configureStorage(env map[string]string) error {
	var setup bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud Storage?").
		Description("Narration audio is kept on local disk otherwise").
		Value(&setup).
		Run(); err != nil {
		return err
	}
	if !setup {
		return nil
	}

	var bucket, project string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GCS Bucket").
				Value(&bucket).
				Validate(required("GCS Bucket")),
			huh.NewInput().
				Title("Google Cloud Project").
				Description("Also enables sm:// secret references in config").
				Value(&project),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	env["GCS_BUCKET"] = strings.TrimSpace(bucket)
	env["GOOGLE_CLOUD_PROJECT"] = strings.TrimSpace(project)
	return nil
}

func writeEnvFile(env map[string]string) error {
	f, err := os.Create(".env")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	order := []string{
		"GROQ_API_KEY",
		"PEXELS_API_KEY",
		"PIXABAY_API_KEY",
		"ELEVENLABS_API_KEY",
		"FISHAUDIO_API_KEY",
		"MODERATION_API_KEY",
		"GCS_BUCKET",
		"GOOGLE_CLOUD_PROJECT",
	}

	for _, key := range order {
		if val, ok := env[key]; ok && val != "" {
			_, _ = fmt.Fprintf(f, "%s=%s\n", key, val)
		}
	}

	fmt.Println(successStyle.Render("✓ Created .env file"))
	printNextSteps()
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Create a project:  storyreel create -t \"My short\" script.txt")
	fmt.Println("  2. Build a storyboard: storyreel process <project-id>")
	fmt.Println("  3. Narrate it:         storyreel narrate <project-id>")
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
