// ABOUTME: Admin CLI for pdguardd settings, flags, and app management
// ABOUTME: Talks to the HTTP API through the typed client with a bearer token

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/pdguard/pdguard/internal/client"
	"github.com/pdguard/pdguard/internal/settings"
)

const banner = `
            _                          _
  _ __   __| | __ _ _   _  __ _ _ __ __| |
 | '_ \ / _' |/ _' | | | |/ _' | '__/ _' |
 | |_) | (_| | (_| | |_| | (_| | | | (_| |
 | .__/ \__,_|\__, |\__,_|\__,_|_|  \__,_|
 |_|          |___/             admin
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("PDGUARD_HOST")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8471"
	}
	token := getToken()

	ctx := context.Background()
	c := client.New(baseURL, token)
	cmd := os.Args[1]
	args := os.Args[2:]

	// help does not need a connection
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	if err := c.Connect(ctx); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	var err error
	switch cmd {
	case "status":
		err = cmdStatus(ctx, c)
	case "settings":
		err = cmdSettings(ctx, c, args)
	case "decide":
		err = cmdDecide(ctx, c, args)
	case "flags":
		err = cmdFlags(ctx, c, args)
	case "apps":
		err = cmdApps(ctx, c, args)
	case "log":
		err = cmdLog(ctx, c, args)
	case "purge":
		err = c.Purge(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: pdguard-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  status                       Show daemon version and flags")
	fmt.Println("  settings list                List all package records")
	fmt.Println("  settings get <pkg>           Show one package's record")
	fmt.Println("  settings delete <pkg>        Remove a package's record")
	fmt.Println("  decide <pkg> <category>      Ask for an arbitration verdict")
	fmt.Println("  flags [enable|disable]       Show or set the enforcement flag")
	fmt.Println("  flags notify [on|off]        Show or set notification fan-out")
	fmt.Println("  flags boot                   Release the boot latch")
	fmt.Println("  apps list                    List authorized applications")
	fmt.Println("  apps add-key <pkg> <file>    Register a public key file")
	fmt.Println("  apps rm-keys <pkg>           Remove a package's keys")
	fmt.Println("  apps add-sig <pkg> <digest>  Register a signature digest")
	fmt.Println("  apps rm-sigs <pkg>           Remove a package's signatures")
	fmt.Println("  log [limit]                  Show recent access events")
	fmt.Println("  purge                        Run a reconciliation pass")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  PDGUARD_HOST   API base URL (default http://127.0.0.1:8471)")
	fmt.Println("  PDGUARD_TOKEN  Bearer token (or ~/.config/pdguard/token)")
}

// getToken reads the bearer token from the environment or the token file.
func getToken() string {
	if tok := os.Getenv("PDGUARD_TOKEN"); tok != "" {
		return tok
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	data, err := os.ReadFile(filepath.Join(configDir, "pdguard", "token"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func cmdStatus(ctx context.Context, c *client.Client) error {
	enabled, err := c.Enabled(ctx)
	if err != nil {
		return err
	}
	notif, err := c.NotificationsEnabled(ctx)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("  ▶ ")
	fmt.Printf("State:         %s\n", c.State())
	green.Print("  ▶ ")
	fmt.Printf("Enforcement:   %s\n", onOff(enabled))
	green.Print("  ▶ ")
	fmt.Printf("Notifications: %s\n", onOff(notif))
	return nil
}

func onOff(b bool) string {
	if b {
		return color.GreenString("on")
	}
	return color.YellowString("off")
}

func cmdSettings(ctx context.Context, c *client.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: settings <list|get|delete> [pkg]")
	}
	switch args[0] {
	case "list":
		recs, err := c.GetSettingsAll(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PACKAGE\tUID\tDEVICE ID\tLOCATION\tNOTIFY")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\n",
				r.PackageName, r.UID,
				r.DeviceIDMode.String(), r.LocationGPSMode.String(),
				r.NotificationMode)
		}
		return w.Flush()
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: settings get <pkg>")
		}
		rec, err := c.GetSettings(ctx, args[1])
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Println("no settings stored")
			return nil
		}
		fmt.Printf("%s (uid %d)\n", rec.PackageName, rec.UID)
		for _, cat := range settings.Categories {
			if mode, ok := rec.ModeFor(cat); ok {
				fmt.Printf("  %-24s %s\n", cat, mode)
			}
		}
		return nil
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: settings delete <pkg>")
		}
		ok, err := c.DeleteSettings(ctx, args[1])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("nothing to delete")
		}
		return nil
	default:
		return fmt.Errorf("unknown settings subcommand: %s", args[0])
	}
}

func cmdDecide(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: decide <pkg> <category>")
	}
	d, err := c.Decide(ctx, args[0], settings.Category(args[1]))
	if err != nil {
		return err
	}
	verdict := color.GreenString("allow")
	if !d.Allowed {
		verdict = color.YellowString("substitute")
	}
	fmt.Printf("%s %s: %s mode=%s output=%q\n",
		d.Package, d.Category, verdict, d.Mode, d.Output)
	if d.Error != "" {
		color.Red("  error: %s\n", d.Error)
	}
	return nil
}

func cmdFlags(ctx context.Context, c *client.Client, args []string) error {
	if len(args) == 0 {
		return cmdStatus(ctx, c)
	}
	switch args[0] {
	case "enable":
		return c.SetEnabled(ctx, true)
	case "disable":
		return c.SetEnabled(ctx, false)
	case "notify":
		if len(args) < 2 {
			return cmdStatus(ctx, c)
		}
		return c.SetNotificationsEnabled(ctx, args[1] == "on")
	case "boot":
		return c.SetBootCompleted(ctx)
	default:
		return fmt.Errorf("unknown flags subcommand: %s", args[0])
	}
}

func cmdApps(ctx context.Context, c *client.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: apps <list|add-key|rm-keys|add-sig|rm-sigs> [args]")
	}
	switch args[0] {
	case "list":
		apps, err := c.ListAuthorizedApps(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PACKAGE\tKIND\tFINGERPRINT\tADDED")
		for _, a := range apps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				a.PackageName, a.Kind, a.Fingerprint,
				a.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	case "add-key":
		if len(args) < 3 {
			return fmt.Errorf("usage: apps add-key <pkg> <pubkey-file>")
		}
		data, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("reading public key: %w", err)
		}
		return c.AuthorizeKey(ctx, args[1], strings.TrimSpace(string(data)))
	case "rm-keys":
		if len(args) < 2 {
			return fmt.Errorf("usage: apps rm-keys <pkg>")
		}
		return c.DeauthorizeKeys(ctx, args[1])
	case "add-sig":
		if len(args) < 3 {
			return fmt.Errorf("usage: apps add-sig <pkg> <digest>")
		}
		return c.AuthorizeSignature(ctx, args[1], args[2])
	case "rm-sigs":
		if len(args) < 2 {
			return fmt.Errorf("usage: apps rm-sigs <pkg>")
		}
		return c.DeauthorizeSignatures(ctx, args[1])
	default:
		return fmt.Errorf("unknown apps subcommand: %s", args[0])
	}
}

func cmdLog(ctx context.Context, c *client.Client, args []string) error {
	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid limit: %s", args[0])
		}
		limit = n
	}
	entries, err := c.RecentAccess(ctx, limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPACKAGE\tUID\tCATEGORY\tMODE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			e.CreatedAt.Format("15:04:05"), e.PackageName, e.UID,
			e.DataTag, e.Mode)
	}
	return w.Flush()
}
