package cli

import "time"

// GlobalFlags holds flags available to all subcommands. Defaults come from
// the environment (see config.Load) before the command line is parsed.
type GlobalFlags struct {
	APIURL            string        `long:"api-url" description:"Base URL of the site API"`
	State             string        `long:"state" description:"Path to the local state database"`
	IPLookupURL       string        `long:"ip-lookup-url" description:"Public IP echo service used by track"`
	CheckoutScriptURL string        `long:"checkout-script-url" description:"Vendor checkout script URL"`
	Timeout           time.Duration `long:"timeout" description:"Per-request timeout"`
	JSON              bool          `long:"json" description:"Output in JSON format"`
	Verbose           bool          `long:"verbose" description:"Enable debug logging"`
	Version           bool          `long:"version" description:"Show version and exit"`
}

// TrackCommand sends one page-view beacon.
type TrackCommand struct {
	Page      string `long:"page" description:"Page path to report" default:"/"`
	Referrer  string `long:"referrer" description:"Referrer to report (empty means direct)"`
	UserAgent string `long:"user-agent" description:"User agent to classify"`

	globals *GlobalFlags
	env     *environment
	version string
}

// LoginCommand exchanges admin credentials for a stored token.
type LoginCommand struct {
	Email    string `long:"email" description:"Admin email (required)"`
	Password string `long:"password" description:"Admin password (required)"`

	globals *GlobalFlags
	env     *environment
}

// LogoutCommand discards the stored admin token.
type LogoutCommand struct {
	globals *GlobalFlags
	env     *environment
}

// WhoamiCommand verifies the stored admin token.
type WhoamiCommand struct {
	globals *GlobalFlags
	env     *environment
}

// EmailsCommand lists collected emails.
type EmailsCommand struct {
	Status string `long:"status" description:"Filter: all | new | contacted | archived" default:"all"`
	Search string `long:"search" description:"Substring search"`
	Page   int    `long:"page" description:"Page number" default:"1"`

	globals *GlobalFlags
	env     *environment
}

// EmailStatusCommand moves one email to another status.
type EmailStatusCommand struct {
	ID     string `long:"id" description:"Email ID (required)"`
	Status string `long:"status" description:"new | contacted | archived (required)"`

	globals *GlobalFlags
	env     *environment
}

// EmailDeleteCommand removes one email.
type EmailDeleteCommand struct {
	ID  string `long:"id" description:"Email ID (required)"`
	Yes bool   `long:"yes" short:"y" description:"Skip the confirmation prompt"`

	globals *GlobalFlags
	env     *environment
}

// VisitorsCommand lists tracked page views.
type VisitorsCommand struct {
	Search string `long:"search" description:"Search IP, page or country"`
	Page   int    `long:"page" description:"Page number" default:"1"`

	globals *GlobalFlags
	env     *environment
}

// VisitorDeleteCommand removes one visitor record.
type VisitorDeleteCommand struct {
	ID  string `long:"id" description:"Visitor record ID (required)"`
	Yes bool   `long:"yes" short:"y" description:"Skip the confirmation prompt"`

	globals *GlobalFlags
	env     *environment
}

// BlockCommand blocks an IP address.
type BlockCommand struct {
	IP     string `long:"ip" description:"Address to block (required)"`
	Reason string `long:"reason" description:"Reason shown in the blocked list"`
	Yes    bool   `long:"yes" short:"y" description:"Skip the confirmation prompt"`

	globals *GlobalFlags
	env     *environment
}

// BlockedCommand lists blocked addresses.
type BlockedCommand struct {
	globals *GlobalFlags
	env     *environment
}

// BlockToggleCommand flips a block entry between active and lifted.
type BlockToggleCommand struct {
	ID string `long:"id" description:"Block entry ID (required)"`

	globals *GlobalFlags
	env     *environment
}

// BlockDeleteCommand removes a block entry.
type BlockDeleteCommand struct {
	ID  string `long:"id" description:"Block entry ID (required)"`
	Yes bool   `long:"yes" short:"y" description:"Skip the confirmation prompt"`

	globals *GlobalFlags
	env     *environment
}

// DonateCommand runs a donation with a terminal checkout.
type DonateCommand struct {
	Amount  int    `long:"amount" description:"Amount in rupees, at least 10 (required)"`
	Name    string `long:"name" description:"Supporter name"`
	Email   string `long:"email" description:"Receipt email"`
	Message string `long:"message" description:"Message for the supporter list"`

	globals *GlobalFlags
	env     *environment
}

// SupportersCommand prints the donation total and recent supporters.
type SupportersCommand struct {
	globals *GlobalFlags
	env     *environment
}
