// ABOUTME: Interactive starter config writer for coven-mailer init
// ABOUTME: Prompts for Matrix and SMTP credentials and writes a TOML config file

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/coven-mailer/internal/config"
)

// initAnswers holds the values gathered by runInit.
type initAnswers struct {
	Homeserver    string
	UserID        string
	AccessToken   string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	CommandPrefix string
}

func runInit(in io.Reader, out io.Writer, configPath string) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(out, banner)
	fmt.Fprintln(out, "    Interactive Setup")
	fmt.Fprintln(out, "    -----------------")
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)
	ask := func(prompt, def string) string {
		green.Fprint(out, "    ▶ ")
		fmt.Fprint(out, prompt)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return def
		}
		return answer
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		yellow.Fprintf(out, "    Config already exists at %s\n", configPath)
		fmt.Fprint(out, "    Overwrite? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(out, "    Aborted.")
			return nil
		}
		fmt.Fprintln(out)
	}

	a := initAnswers{
		Homeserver:  ask("Matrix homeserver URL [https://matrix.org]: ", "https://matrix.org"),
		UserID:      ask("Matrix user ID (e.g. @mailer:matrix.org): ", ""),
		AccessToken: ask("Matrix access token: ", ""),
		SMTPHost:    ask(fmt.Sprintf("SMTP host [%s]: ", config.DefaultSMTPHost), config.DefaultSMTPHost),
	}

	portRaw := ask(fmt.Sprintf("SMTP port [%d]: ", config.DefaultSMTPPort), strconv.Itoa(config.DefaultSMTPPort))
	port, err := strconv.Atoi(portRaw)
	if err != nil {
		return fmt.Errorf("invalid SMTP port %q: %w", portRaw, err)
	}
	a.SMTPPort = port

	a.SMTPUsername = ask("SMTP username (sender address): ", "")
	a.SMTPPassword = ask("SMTP password: ", "")
	a.CommandPrefix = ask("Command prefix (optional, e.g. '!mail '): ", "")

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(renderConfig(a)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintln(out)
	green.Fprintf(out, "    ✓ Config written to %s\n", configPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "    Next steps:")
	fmt.Fprintln(out, "    1. Invite the bot account to a room")
	fmt.Fprintln(out, "    2. Run: coven-mailer")
	fmt.Fprintln(out)

	return nil
}

// renderConfig produces the starter TOML for a.
func renderConfig(a initAnswers) string {
	return fmt.Sprintf(`# coven-mailer configuration
# Generated by coven-mailer init

[matrix]
homeserver = %q
user_id = %q
access_token = %q

[smtp]
host = %q
port = %d
username = %q
password = %q
# from defaults to username
subject = %q
timeout = "30s"

[database]
# path defaults to $XDG_DATA_HOME/coven/logs.db
# path = "logs.db"

[bot]
# Only respond in these rooms (empty = all joined rooms)
allowed_rooms = []
# Require messages start with this prefix (empty = respond to all)
command_prefix = %q
start_command = %q
auto_join = true
# Send typing indicator while a message is being sent
typing_indicator = true

[metrics]
enabled = false
addr = %q

[logging]
level = "info"
format = "text"
`,
		a.Homeserver, a.UserID, a.AccessToken,
		a.SMTPHost, a.SMTPPort, a.SMTPUsername, a.SMTPPassword, config.DefaultSubject,
		a.CommandPrefix, config.DefaultStartCommand,
		config.DefaultMetricsAddr,
	)
}
