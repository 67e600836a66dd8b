package cli

import (
	"fmt"
	"os"

	"rawsite/internal/config"

	goflags "github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Track         *TrackCommand
	Login         *LoginCommand
	Logout        *LogoutCommand
	Whoami        *WhoamiCommand
	Emails        *EmailsCommand
	EmailStatus   *EmailStatusCommand
	EmailDelete   *EmailDeleteCommand
	Visitors      *VisitorsCommand
	VisitorDelete *VisitorDeleteCommand
	Block         *BlockCommand
	Blocked       *BlockedCommand
	BlockToggle   *BlockToggleCommand
	BlockDelete   *BlockDeleteCommand
	Donate        *DonateCommand
	Supporters    *SupportersCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string, cfg *config.Config, env *environment) (*goflags.Parser, *GlobalFlags, *commands) {
	globals := GlobalFlags{
		APIURL:            cfg.APIURL,
		State:             cfg.StateDB,
		IPLookupURL:       cfg.IPLookupURL,
		CheckoutScriptURL: cfg.CheckoutScriptURL,
		Timeout:           cfg.HTTPTimeout,
	}

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "rawctl"
	parser.LongDescription = "Operator console for the RAW site: beacon, moderation and donations."
	parser.CommandHandler = func(cmd goflags.Commander, args []string) error {
		level := zerolog.WarnLevel
		if globals.Verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	g := &globals
	cmds := &commands{
		Track:         &TrackCommand{globals: g, env: env, version: version},
		Login:         &LoginCommand{globals: g, env: env},
		Logout:        &LogoutCommand{globals: g, env: env},
		Whoami:        &WhoamiCommand{globals: g, env: env},
		Emails:        &EmailsCommand{globals: g, env: env},
		EmailStatus:   &EmailStatusCommand{globals: g, env: env},
		EmailDelete:   &EmailDeleteCommand{globals: g, env: env},
		Visitors:      &VisitorsCommand{globals: g, env: env},
		VisitorDelete: &VisitorDeleteCommand{globals: g, env: env},
		Block:         &BlockCommand{globals: g, env: env},
		Blocked:       &BlockedCommand{globals: g, env: env},
		BlockToggle:   &BlockToggleCommand{globals: g, env: env},
		BlockDelete:   &BlockDeleteCommand{globals: g, env: env},
		Donate:        &DonateCommand{globals: g, env: env},
		Supporters:    &SupportersCommand{globals: g, env: env},
	}

	parser.AddCommand("track", "Send a page-view beacon", "Send one page-view beacon, echoing the stored visitor token.", cmds.Track)
	parser.AddCommand("login", "Sign in as admin", "Exchange admin credentials for a token kept in the local state database.", cmds.Login)
	parser.AddCommand("logout", "Sign out", "Discard the stored admin token.", cmds.Logout)
	parser.AddCommand("whoami", "Show the signed-in admin", "Verify the stored admin token with the API.", cmds.Whoami)
	parser.AddCommand("emails", "List collected emails", "List collected emails with optional status filter and search.", cmds.Emails)
	parser.AddCommand("email-status", "Change an email's status", "Move one email to new, contacted or archived.", cmds.EmailStatus)
	parser.AddCommand("email-delete", "Delete an email", "Delete one email permanently. Asks for confirmation unless --yes.", cmds.EmailDelete)
	parser.AddCommand("visitors", "List page views", "List tracked page views with optional search.", cmds.Visitors)
	parser.AddCommand("visitor-delete", "Delete a visitor record", "Delete one visitor record. Asks for confirmation unless --yes.", cmds.VisitorDelete)
	parser.AddCommand("block", "Block an IP", "Block an IP address. Asks for confirmation unless --yes.", cmds.Block)
	parser.AddCommand("blocked", "List blocked IPs", "List blocked IP addresses.", cmds.Blocked)
	parser.AddCommand("block-toggle", "Toggle a block entry", "Flip a block entry between active and lifted.", cmds.BlockToggle)
	parser.AddCommand("block-delete", "Remove a block entry", "Remove a block entry. Asks for confirmation unless --yes.", cmds.BlockDelete)
	parser.AddCommand("donate", "Make a donation", "Create an order and complete it through a terminal checkout.", cmds.Donate)
	parser.AddCommand("supporters", "Show donation totals", "Show the donation total and recent supporters.", cmds.Supporters)

	return parser, &globals, cmds
}

// Run is the main entry point for rawctl using os.Args.
func Run(version string, cfg *config.Config) error {
	return RunWithArgs(version, cfg, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, cfg *config.Config, args []string) error {
	return runWith(version, cfg, &environment{}, args)
}

func runWith(version string, cfg *config.Config, env *environment, args []string) error {
	// --version is valid without a subcommand
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("rawctl %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version, cfg, env)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
