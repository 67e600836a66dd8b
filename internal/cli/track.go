package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"rawsite/internal/tracking"
)

// trackGuardKey scopes the in-flight guard; one rawctl process is one visitor.
const trackGuardKey = "rawctl"

// Execute implements the go-flags Commander interface for TrackCommand.
func (c *TrackCommand) Execute(args []string) error {
	s, err := c.env.open(c.globals)
	if err != nil {
		return err
	}
	defer s.Close()

	ua := c.UserAgent
	if ua == "" {
		ua = "rawctl/" + c.version
	}

	beacon := tracking.NewBeacon(s.api, tracking.NewLocalGuard())
	outcome := beacon.Track(context.Background(), tracking.Visit{
		Key:       trackGuardKey,
		Page:      c.Page,
		Referrer:  c.Referrer,
		UserAgent: ua,
		Resolver:  s.resolver,
		Tokens:    s.store,
	})

	tok, _ := s.store.VisitorToken()
	if c.globals.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"page":      c.Page,
			"outcome":   outcome,
			"has_token": tok != "",
		})
	}

	fmt.Printf("Beacon %s for %s\n", outcome, c.Page)
	return nil
}
