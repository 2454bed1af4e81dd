package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
)

// AuthAPI is the server surface the client needs. *client.AuthClient
// implements it.
type AuthAPI interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (*client.TokenPair, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*client.Refreshed, error)
	Logout(ctx context.Context, accessToken string) error
	Hello(ctx context.Context, accessToken string) (string, error)
}

type App struct {
	config *config.Config
	api    AuthAPI
	reader *bufio.Reader
	out    io.Writer

	userName     string
	accessToken  string
	refreshToken string
}

func NewApp(c *config.Config) (*App, error) {
	u, err := url.ParseRequestURI(c.ServerURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", c.ServerURL)
	}

	return &App{
		config: c,
		api:    client.New(c.ServerURL, c.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	log.Printf("Welcome to gophauth CLI, server %s (type 'help' for commands)", a.config.ServerURL)
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.accessToken != ""
}

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf(" (%s)", a.userName)
}

func (a *App) forget() {
	a.userName = ""
	a.accessToken = ""
	a.refreshToken = ""
}
