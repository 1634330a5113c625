// Command authctl operates a membership store from the shell: it applies the
// schema, registers accounts, issues and checks credentials, runs password
// recovery and manages roles.
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "migrate":
		return runMigrate(args[2:])
	case "register":
		return runRegister(args[2:])
	case "login":
		return runLogin(args[2:])
	case "whoami":
		return runWhoami(args[2:])
	case "promote":
		return runPromote(args[2:])
	case "role":
		if len(args) >= 3 {
			switch args[2] {
			case "get":
				return runRoleGet(args[3:])
			case "set":
				return runRoleSet(args[3:])
			}
		}
	case "reset":
		if len(args) >= 3 {
			switch args[2] {
			case "request":
				return runResetRequest(args[3:])
			case "confirm":
				return runResetConfirm(args[3:])
			}
		}
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "authctl"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s migrate [--config <file>] [--env <file>] [-v]\n", name)
	fmt.Fprintf(os.Stderr, "  %s register --email <email> --username <name> --password <password>\n", name)
	fmt.Fprintf(os.Stderr, "  %s login --email <email> --password <password>\n", name)
	fmt.Fprintf(os.Stderr, "  %s whoami --token <bearer>\n", name)
	fmt.Fprintf(os.Stderr, "  %s role get --token <bearer> --target <user-id>\n", name)
	fmt.Fprintf(os.Stderr, "  %s role set --token <bearer> --target <user-id> --role <ADMIN|OPERATOR|MEMBER>\n", name)
	fmt.Fprintf(os.Stderr, "  %s reset request --email <email>\n", name)
	fmt.Fprintf(os.Stderr, "  %s reset confirm --token <reset-token> --password <password>\n", name)
	fmt.Fprintf(os.Stderr, "  %s promote --email <email> --role <role>\n", name)
	fmt.Fprintf(os.Stderr, "every command accepts --config, --env and -v\n")
}
