package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/urfave/cli/v2"

	"telegram-moderation-bot/internal/pkg/term"
	"telegram-moderation-bot/internal/server"
)

func main() {
	app := cli.App{
		Name:  "modctl",
		Usage: "operator CLI for the moderation bot admin API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "base URL of the bot HTTP server",
				Value:   "http://localhost:8080",
				EnvVars: []string{"MODCTL_URL"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "admin API token (prompted when empty)",
				EnvVars: []string{"MODCTL_TOKEN"},
			},
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:   "chats",
			Usage:  "list chats the bot is a member of",
			Action: runChats,
		},
		{
			Name:      "warnings",
			Usage:     "show warnings of a chat, or of one user",
			ArgsUsage: "<chat-id> [user-id]",
			Action:    runWarnings,
		},
		{
			Name:      "warn",
			Usage:     "issue a warning",
			ArgsUsage: "<chat-id> <user-id>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "reason", Usage: "warning reason", Required: true},
				&cli.StringFlag{Name: "name", Usage: "display name used in chat notices"},
				&cli.StringFlag{Name: "issuer", Usage: "who issues the warning", Value: "modctl"},
			},
			Action: runWarn,
		},
		{
			Name:      "clear",
			Usage:     "remove all warnings of a user",
			ArgsUsage: "<chat-id> <user-id>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
			},
			Action: runClear,
		},
		{
			Name:      "settings",
			Usage:     "change auto content settings of a chat",
			ArgsUsage: "<chat-id>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "auto", Usage: "on or off"},
				&cli.Float64Flag{Name: "interval", Usage: "interval in hours, 0 resets to the default"},
			},
			Action: runSettings,
		},
		{
			Name:      "trigger",
			Usage:     "send auto content to a chat right now",
			ArgsUsage: "<chat-id>",
			Action:    runTrigger,
		},
	}
	app.RunAndExitOnError()
}

func newClient(cctx *cli.Context) (*server.Client, error) {
	token := cctx.String("token")
	if token == "" {
		var err error
		token, err = term.NewTerminal().Secret("API token: ")
		if err != nil {
			return nil, fmt.Errorf("failed to read token: %w", err)
		}
	}
	return server.NewClient(strings.TrimRight(cctx.String("url"), "/"), token), nil
}

func requireArgs(cctx *cli.Context, n int) error {
	if cctx.Args().Len() < n {
		return cli.Exit(fmt.Sprintf("usage: modctl %s %s", cctx.Command.Name, cctx.Command.ArgsUsage), 2)
	}
	return nil
}

func cell(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

func runChats(cctx *cli.Context) error {
	client, err := newClient(cctx)
	if err != nil {
		return err
	}
	chats, err := client.ListChats(cctx.Context)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		fmt.Println("no chats")
		return nil
	}
	fmt.Println(cell("CHAT", 16), cell("TITLE", 28), cell("AUTO", 5), "INTERVAL")
	for _, c := range chats {
		auto := "off"
		if c.AutoContent {
			auto = "on"
		}
		interval := "default"
		if c.IntervalHours != nil {
			interval = fmt.Sprintf("%gh", *c.IntervalHours)
		}
		fmt.Println(cell(c.ChatID, 16), cell(c.Title, 28), cell(auto, 5), interval)
	}
	return nil
}

func runWarnings(cctx *cli.Context) error {
	if err := requireArgs(cctx, 1); err != nil {
		return err
	}
	client, err := newClient(cctx)
	if err != nil {
		return err
	}
	chatID := cctx.Args().Get(0)

	if userID := cctx.Args().Get(1); userID != "" {
		w, err := client.GetWarnings(cctx.Context, chatID, userID)
		if err != nil {
			return err
		}
		printUserWarnings(*w)
		return nil
	}

	list, err := client.ListWarnings(cctx.Context, chatID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no warnings")
		return nil
	}
	for _, w := range list {
		printUserWarnings(w)
	}
	return nil
}

func printUserWarnings(w server.UserWarningsDTO) {
	fmt.Printf("user %s: %d warning(s)\n", w.UserID, w.Count)
	for i, item := range w.Warnings {
		fmt.Printf("  %d. %s  %s  by %s\n", i+1, item.IssuedAt.Format("2006-01-02 15:04"), item.Reason, item.Issuer)
	}
}

func runWarn(cctx *cli.Context) error {
	if err := requireArgs(cctx, 2); err != nil {
		return err
	}
	client, err := newClient(cctx)
	if err != nil {
		return err
	}
	res, err := client.Warn(cctx.Context, cctx.Args().Get(0), cctx.Args().Get(1), server.WarnRequest{
		Reason: cctx.String("reason"),
		Issuer: cctx.String("issuer"),
		Name:   cctx.String("name"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("warnings: %d, punishment: %s\n", res.Count, res.Punishment)
	return nil
}

func runClear(cctx *cli.Context) error {
	if err := requireArgs(cctx, 2); err != nil {
		return err
	}
	chatID, userID := cctx.Args().Get(0), cctx.Args().Get(1)
	if !cctx.Bool("yes") {
		ok, err := term.NewTerminal().Confirm(fmt.Sprintf("Remove all warnings of %s in %s?", userID, chatID))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "aborted")
			return nil
		}
	}
	client, err := newClient(cctx)
	if err != nil {
		return err
	}
	if err := client.ClearWarnings(cctx.Context, chatID, userID); err != nil {
		return err
	}
	fmt.Println("cleared")
	return nil
}

func runSettings(cctx *cli.Context) error {
	if err := requireArgs(cctx, 1); err != nil {
		return err
	}
	var req server.SettingsRequest
	if cctx.IsSet("auto") {
		var on bool
		switch strings.ToLower(cctx.String("auto")) {
		case "on", "true", "1":
			on = true
		case "off", "false", "0":
		default:
			return cli.Exit("--auto must be on or off", 2)
		}
		req.AutoContent = &on
	}
	if cctx.IsSet("interval") {
		hours := cctx.Float64("interval")
		req.IntervalHours = &hours
	}
	if req.AutoContent == nil && req.IntervalHours == nil {
		return cli.Exit("nothing to change: pass --auto and/or --interval", 2)
	}

	client, err := newClient(cctx)
	if err != nil {
		return err
	}
	chat, err := client.UpdateSettings(cctx.Context, cctx.Args().Get(0), req)
	if err != nil {
		return err
	}
	interval := "default"
	if chat.IntervalHours != nil {
		interval = fmt.Sprintf("%gh", *chat.IntervalHours)
	}
	fmt.Printf("%s: auto content %t, interval %s\n", chat.ChatID, chat.AutoContent, interval)
	return nil
}

func runTrigger(cctx *cli.Context) error {
	if err := requireArgs(cctx, 1); err != nil {
		return err
	}
	client, err := newClient(cctx)
	if err != nil {
		return err
	}
	if err := client.Trigger(cctx.Context, cctx.Args().Get(0), "modctl"); err != nil {
		return err
	}
	fmt.Println("sent")
	return nil
}
