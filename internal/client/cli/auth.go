package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText and getPassword are swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errNotLoggedIn = errors.New("not logged in")

// report prints err the way the server phrased it, when it did.
func report(err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		printlnFn("Error:", apiErr.Message)
		return
	}
	printlnFn("Error:", err.Error())
}

func (a *App) credentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

// Register prompts for a username and password and creates the account.
func (a *App) Register(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Register(ctx, userName, string(password)); err != nil {
		report(err)
		return err
	}

	printlnFn("Registered, you can login now")
	return nil
}

// Login prompts for credentials and keeps the issued token pair in memory.
func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	pair, err := a.api.Login(ctx, userName, string(password))
	if err != nil {
		report(err)
		return err
	}

	a.userName = userName
	a.accessToken = pair.AccessToken
	a.refreshToken = pair.RefreshToken
	printlnFn("Logged in as", userName)
	return nil
}

// Hello calls the protected route with the current access token.
func (a *App) Hello(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Please login first")
		return errNotLoggedIn
	}

	msg, err := a.api.Hello(ctx, a.accessToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			printlnFn("Access token rejected, try refresh")
		}
		report(err)
		return err
	}

	printlnFn(msg)
	return nil
}

// Refresh rotates the token pair. A rejected refresh token ends the local
// session since the server will not accept it again.
func (a *App) Refresh(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Please login first")
		return errNotLoggedIn
	}

	next, err := a.api.Refresh(ctx, a.accessToken, a.refreshToken)
	if err != nil {
		report(err)
		if errors.Is(err, common.ErrorUnauthorized) {
			a.forget()
			printlnFn("Session ended, please login again")
		}
		return err
	}

	a.accessToken = next.AccessToken
	a.refreshToken = next.RefreshToken
	printlnFn("Tokens refreshed")
	return nil
}

// Logout revokes the refresh token on the server and drops the local tokens.
// Local state is cleared even when the server call fails.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Please login first")
		return errNotLoggedIn
	}

	err := a.api.Logout(ctx, a.accessToken)
	a.forget()
	if err != nil {
		report(err)
		return err
	}

	printlnFn("Logged out")
	return nil
}
