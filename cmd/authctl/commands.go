package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	auth "github.com/goliatone/go-membership"
)

// command parses args into fs and hands an initialized app to fn.
func command(name string, args []string, bind func(fs *flag.FlagSet), fn func(ctx context.Context, a *app) error) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var g globalFlags
	g.register(fs)
	if bind != nil {
		bind(fs)
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}

	ctx := context.Background()
	a, err := newApp(ctx, g)
	if err != nil {
		return fail(name, err)
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		return fail(name, err)
	}
	return 0
}

func fail(name string, err error) int {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode != "" {
		fmt.Fprintf(os.Stderr, "%s: [%s] %v\n", name, richErr.TextCode, err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
	return 1
}

func required(values map[string]string) error {
	var missing []string
	for flagName, v := range values {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, "--"+flagName)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.New("missing required flags: "+strings.Join(missing, ", "), errors.CategoryBadInput)
}

func output(v any) error {
	fmt.Println(print.MaybePrettyJSON(v))
	return nil
}

func runMigrate(args []string) int {
	return command("migrate", args, nil, func(ctx context.Context, a *app) error {
		applied, err := auth.Migrate(ctx, a.db)
		if err != nil {
			return err
		}
		return output(map[string]any{"applied": applied})
	})
}

func runRegister(args []string) int {
	var email, username, password string
	return command("register", args, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "account email")
		fs.StringVar(&username, "username", "", "account username")
		fs.StringVar(&password, "password", "", "account password")
	}, func(ctx context.Context, a *app) error {
		var cred *auth.Credential
		handler := auth.NewRegisterUserHandler(a.service)
		err := handler.Execute(ctx, auth.RegisterUserMessage{
			Email:      email,
			Username:   username,
			Password:   password,
			OnResponse: func(c *auth.Credential) { cred = c },
		})
		if err != nil {
			return err
		}
		return output(cred)
	})
}

func runLogin(args []string) int {
	var email, password string
	return command("login", args, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "account email")
		fs.StringVar(&password, "password", "", "account password")
	}, func(ctx context.Context, a *app) error {
		var cred *auth.Credential
		err := auth.NewLoginHandler(a.service).Execute(ctx, auth.LoginMessage{
			Email:      email,
			Password:   password,
			OnResponse: func(c *auth.Credential) { cred = c },
		})
		if err != nil {
			return err
		}
		return output(cred)
	})
}

func runWhoami(args []string) int {
	var token string
	return command("whoami", args, func(fs *flag.FlagSet) {
		fs.StringVar(&token, "token", os.Getenv("MEMBERSHIP_TOKEN"), "bearer credential")
	}, func(ctx context.Context, a *app) error {
		principal, err := a.gate.Authenticate(ctx, token)
		if err != nil {
			return err
		}
		return output(principal)
	})
}

func runRoleGet(args []string) int {
	var token, target string
	return command("role get", args, func(fs *flag.FlagSet) {
		fs.StringVar(&token, "token", os.Getenv("MEMBERSHIP_TOKEN"), "bearer credential of the actor")
		fs.StringVar(&target, "target", "", "user id whose role is read")
	}, func(ctx context.Context, a *app) error {
		if err := required(map[string]string{"target": target}); err != nil {
			return err
		}

		ctx, actor, err := auth.AuthenticateContext(ctx, a.gate, token)
		if err != nil {
			return err
		}

		role, err := a.roles.ViewRole(ctx, actor, target)
		if err != nil {
			return err
		}
		return output(map[string]any{"id": target, "role": role})
	})
}

func runRoleSet(args []string) int {
	var token, target, role string
	return command("role set", args, func(fs *flag.FlagSet) {
		fs.StringVar(&token, "token", os.Getenv("MEMBERSHIP_TOKEN"), "bearer credential of the actor")
		fs.StringVar(&target, "target", "", "user id whose role changes")
		fs.StringVar(&role, "role", "", "new role")
	}, func(ctx context.Context, a *app) error {
		if err := required(map[string]string{"target": target, "role": role}); err != nil {
			return err
		}

		ctx, _, err := auth.AuthenticateContext(ctx, a.gate, token)
		if err != nil {
			return err
		}

		var updated auth.Role
		err = auth.NewUpdateRoleHandler(a.roles).Execute(ctx, auth.UpdateRoleMessage{
			TargetID:   target,
			Role:       role,
			OnResponse: func(r auth.Role) { updated = r },
		})
		if err != nil {
			return err
		}
		return output(map[string]any{"id": target, "role": updated})
	})
}

func runResetRequest(args []string) int {
	var email string
	return command("reset request", args, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "account email")
	}, func(ctx context.Context, a *app) error {
		var resp *auth.InitializePasswordResetResponse
		err := auth.NewInitializePasswordResetHandler(a.service).Execute(ctx, auth.InitializePasswordResetMessage{
			Email:      email,
			OnResponse: func(r *auth.InitializePasswordResetResponse) { resp = r },
		})
		if err != nil {
			return err
		}
		return output(resp)
	})
}

func runResetConfirm(args []string) int {
	var token, password string
	return command("reset confirm", args, func(fs *flag.FlagSet) {
		fs.StringVar(&token, "token", "", "reset credential")
		fs.StringVar(&password, "password", "", "new password")
	}, func(ctx context.Context, a *app) error {
		err := auth.NewFinalizePasswordResetHandler(a.service).Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    token,
			Password: password,
		})
		if err != nil {
			return err
		}
		return output(map[string]any{"reset": true})
	})
}

// runPromote writes a role straight to the store. It exists to bootstrap
// the first ADMIN, which no policy path can create.
func runPromote(args []string) int {
	var email, role string
	return command("promote", args, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "account email")
		fs.StringVar(&role, "role", string(auth.RoleAdmin), "role to assign")
	}, func(ctx context.Context, a *app) error {
		if err := required(map[string]string{"email": email}); err != nil {
			return err
		}

		parsed, err := auth.ParseRole(role)
		if err != nil {
			return err
		}

		user, err := a.repo.Users().FindByEmail(ctx, email)
		if err != nil {
			return err
		}

		if _, err := a.repo.Users().UpdateRole(ctx, user.SubjectID(), parsed); err != nil {
			return err
		}

		a.logger.GetLogger("promote").Warn("role assigned outside policy", "sub", user.SubjectID(), "role", parsed)
		return output(map[string]any{"id": user.SubjectID(), "role": parsed})
	})
}
