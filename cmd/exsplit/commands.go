package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/pflag"

	"github.com/NordCoder/exsplit/internal/domain/auth"
)

var (
	errUsage       = errors.New("usage")
	errNotLoggedIn = errors.New("not logged in")
)

type command struct {
	help string
	run  func(ctx context.Context, a *app, args []string) error
}

var commandOrder = []string{"login", "register", "logout", "token", "whoami", "call", "proxy"}

var commands = map[string]command{
	"login":    {help: "sign in and store the session tokens", run: cmdLogin},
	"register": {help: "create an account and store the session tokens", run: cmdRegister},
	"logout":   {help: "forget the stored tokens", run: cmdLogout},
	"token":    {help: "print a valid access token, refreshing it if needed", run: cmdToken},
	"whoami":   {help: "print the user id of the stored session", run: cmdWhoami},
	"call":     {help: "send an authenticated request: call METHOD PATH [--data JSON]", run: cmdCall},
	"proxy":    {help: "run a local proxy that authenticates requests to the API", run: cmdProxy},
}

func newFlagSet(a *app, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func credentialFlags(ctx context.Context, a *app, name string, args []string) (string, string, error) {
	fs := newFlagSet(a, name)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (read from stdin when empty)")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if *email == "" {
		return "", "", fmt.Errorf("%w: %s --email is required", errUsage, name)
	}
	if *password == "" {
		line, err := bufio.NewReader(a.stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}
	if *password == "" {
		return "", "", fmt.Errorf("%w: %s needs a password", errUsage, name)
	}
	return *email, *password, ctx.Err()
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	email, password, err := credentialFlags(ctx, a, "login", args)
	if err != nil {
		return err
	}
	st, err := a.session.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "logged in as %s\n", st.UserID)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	email, password, err := credentialFlags(ctx, a, "register", args)
	if err != nil {
		return err
	}
	st, err := a.session.Register(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "registered %s\n", st.UserID)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	a.session.Restore(ctx)
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "logged out")
	return nil
}

func cmdToken(ctx context.Context, a *app, _ []string) error {
	a.session.Restore(ctx)
	tok, err := a.guard.AccessToken(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrAuthentication) {
			a.session.Teardown(ctx, err)
		}
		return err
	}
	fmt.Fprintln(a.stdout, tok.Raw)
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	st := a.session.Restore(ctx)
	if !st.LoggedIn {
		return errNotLoggedIn
	}
	fmt.Fprintln(a.stdout, st.UserID)
	return nil
}

func cmdCall(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "call")
	data := fs.String("data", "", "JSON request body")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: call METHOD PATH [--data JSON]", errUsage)
	}
	method, path := strings.ToUpper(fs.Arg(0)), fs.Arg(1)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if *data != "" {
		body = bytes.NewBufferString(*data)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(a.cfg.API.BaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.cfg.API.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	a.session.Restore(ctx)
	resp, err := a.authClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(a.stdout, resp.Body); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return nil
}
