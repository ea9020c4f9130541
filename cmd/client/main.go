// Client is a demo CLI for the auth API. It drives a full session lifecycle
// against a running server: register, login, validate, logout. Passwords are
// prompted without echo.
//
// Usage:
//
//	client [-addr http://localhost:8080] register <name> <email>
//	client [-addr http://localhost:8080] session <email>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"nutriflow/auth/internal/client/api"
	"nutriflow/auth/internal/client/session"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "auth server base URL")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	client, err := api.NewClient(*addr)
	if err != nil {
		fatalf("client: %v", err)
	}
	ctx := context.Background()

	switch args[0] {
	case "register":
		if len(args) != 3 {
			usage()
			os.Exit(2)
		}
		runRegister(ctx, client, args[1], args[2])
	case "session":
		if len(args) != 2 {
			usage()
			os.Exit(2)
		}
		runSession(ctx, client, args[1])
	default:
		usage()
		os.Exit(2)
	}
}

func runRegister(ctx context.Context, client *api.Client, name, email string) {
	password := promptPassword("Password: ")
	user, err := client.Register(ctx, name, email, password)
	if err != nil {
		if apiErr, ok := err.(*api.Error); ok && apiErr.Status == 409 {
			fatalf("register: email already registered")
		}
		fatalf("register: %v", err)
	}
	fmt.Printf("registered %s (%s)\n", user.Email, user.ID)
}

// runSession walks a full session lifecycle: boot revalidation (expected
// signed-out), login, revalidation, logout, and a final revalidation that
// must come back signed-out.
func runSession(ctx context.Context, client *api.Client, email string) {
	store := session.NewStore(client)

	store.Revalidate(ctx)
	printState("boot", store.State())

	password := promptPassword("Password: ")
	if err := client.Login(ctx, email, password); err != nil {
		fatalf("login: %v", err)
	}
	store.Revalidate(ctx)
	printState("after login", store.State())

	store.Logout(ctx)
	printState("after logout", store.State())

	store.Revalidate(ctx)
	printState("after logout revalidation", store.State())
}

func printState(label string, s session.State) {
	switch {
	case s.IsAuthenticated:
		fmt.Printf("%s: signed in as %s (until %s)\n", label, s.User.Email, s.User.ExpiresAt.Format("15:04:05"))
	case s.Err != nil:
		fmt.Printf("%s: signed out (%s)\n", label, s.Err.Kind)
	default:
		fmt.Printf("%s: signed out\n", label)
	}
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fatalf("read password: %v", err)
	}
	return string(raw)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: client [-addr URL] register <name> <email> | session <email>")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
