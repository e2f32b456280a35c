package cli

import (
	"context"
	"os"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for an email, display name and password and
// attempts to create an account. On success the session is open and the push
// channel is connected.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	displayName, err := getSimpleText(a.reader, "Enter display name", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.auth.Register(ctx, email, string(password), displayName); err != nil {
		printlnFn("Registration failed:", err)
		return err
	}

	printlnFn("Welcome,", a.auth.Session().DisplayName)
	return nil
}

// Login prompts for credentials and authenticates. On success the session is
// open and live updates start flowing into the local views.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.auth.Login(ctx, email, string(password)); err != nil {
		printlnFn("Login failed:", err)
		return err
	}

	printlnFn("Logged in as", a.auth.Session().Email)
	return nil
}

// Logout tears down the session; local state is cleared even if the server
// cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	a.auth.Logout(ctx)
	printlnFn("Logged out.")
	return nil
}

// Whoami prints the signed-in identity and, when the credential carries a
// readable expiry, when it runs out.
func (a *App) Whoami(ctx context.Context) error {
	s := a.auth.Session()
	if !s.IsAuthenticated {
		printlnFn("Not logged in.")
		return nil
	}
	printlnFn(s.DisplayName, "<"+s.Email+">", "id="+s.UserID)
	if !s.TokenExpiresAt.IsZero() {
		printlnFn("credential expires", s.TokenExpiresAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
