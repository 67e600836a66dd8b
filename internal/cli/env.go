package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"rawsite/internal/console"
	"rawsite/internal/localstore"
	"rawsite/internal/models"
	"rawsite/internal/payment"
	"rawsite/internal/remote"
	"rawsite/internal/tracking"
)

// backend is every remote call rawctl makes. *remote.Client satisfies it.
type backend interface {
	console.API
	tracking.Tracker
	payment.OrderAPI
	DonationTotal(ctx context.Context) (models.DonationStats, error)
	RecentSupporters(ctx context.Context) ([]models.Supporter, error)
}

var _ backend = (*remote.Client)(nil)

var errNotSignedIn = errors.New("not signed in, run rawctl login first")

// environment holds injectable collaborators for testing. Nil fields are
// opened from the global flags.
type environment struct {
	api      backend
	store    *localstore.Store
	resolver tracking.IPResolver
	loader   payment.Loader
	stdin    io.Reader
}

// session is one command's view of its collaborators.
type session struct {
	api      backend
	store    *localstore.Store
	resolver tracking.IPResolver
	loader   payment.Loader
	in       *bufio.Reader
	closers  []func() error
}

func (e *environment) open(g *GlobalFlags) (*session, error) {
	s := &session{api: e.api, store: e.store, resolver: e.resolver, loader: e.loader}

	if s.store == nil {
		path := g.State
		if path == "" {
			path = localstore.DefaultPath()
		}
		st, err := localstore.Open(path)
		if err != nil {
			return nil, err
		}
		s.store = st
		s.closers = append(s.closers, st.Close)
	}
	if s.api == nil {
		s.api = remote.NewClient(g.APIURL, g.Timeout)
	}
	if s.resolver == nil {
		s.resolver = tracking.NewLookupResolver(g.IPLookupURL, g.Timeout)
	}
	if s.loader == nil {
		s.loader = payment.NewScriptLoader(payment.HTTPFetch(g.CheckoutScriptURL, g.Timeout))
	}

	in := e.stdin
	if in == nil {
		in = os.Stdin
	}
	s.in = bufio.NewReader(in)
	return s, nil
}

func (s *session) Close() {
	for _, c := range s.closers {
		_ = c()
	}
}

// readLine returns the next trimmed input line; io.EOF once input ends.
func (s *session) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirmer asks on the terminal unless yes is set.
func (s *session) confirmer(yes bool) console.Confirmer {
	if yes {
		return console.AlwaysConfirm
	}
	return console.ConfirmFunc(func(prompt string) bool {
		fmt.Printf("%s [y/N]: ", prompt)
		answer, err := s.readLine()
		if err != nil {
			fmt.Println()
			return false
		}
		answer = strings.ToLower(answer)
		return answer == "y" || answer == "yes"
	})
}

// console returns an authenticated console or errNotSignedIn.
func (s *session) console(ctx context.Context, yes bool) (*console.Console, error) {
	con := console.New(s.api, s.store, s.confirmer(yes))
	if _, err := con.Authenticate(ctx); err != nil {
		if errors.Is(err, console.ErrNotAuthenticated) {
			return nil, errNotSignedIn
		}
		return nil, err
	}
	return con, nil
}

// mutationResult turns a console mutation error into the command's result.
func mutationResult(err error) error {
	switch {
	case errors.Is(err, console.ErrNotConfirmed):
		return fmt.Errorf("aborted: not confirmed")
	case errors.Is(err, console.ErrNotAuthenticated):
		return errNotSignedIn
	}
	return err
}

func requireFlag(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}
