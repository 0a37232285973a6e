package main

import (
	"fmt"
	"os"
	"os/signal"

	cli "github.com/spf13/cobra"

	"github.com/MrCodeEU/posegate/pkg/auth"
	"github.com/MrCodeEU/posegate/pkg/logging"
)

var registerCmd = &cli.Command{
	Use:   "register",
	Short: "Register a new user (password and five face poses)",
	Long: `Register a new user. After the account details are entered, the camera
captures the face looking front, left, right, up and down. Nothing is stored
unless all five poses are captured.`,
	Args: cli.NoArgs,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("first-name", "", "First name (prompted when empty)")
	registerCmd.Flags().String("last-name", "", "Last name (prompted when empty)")
	registerCmd.Flags().StringP("email", "e", "", "Email address (prompted when empty)")
}

func runRegister(cmd *cli.Command, args []string) error {
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	out := cmd.OutOrStdout()

	req := auth.RegisterRequest{}
	req.FirstName, _ = cmd.Flags().GetString("first-name")
	req.LastName, _ = cmd.Flags().GetString("last-name")
	req.Email, _ = cmd.Flags().GetString("email")

	if err := askRegistration(p, &req); err != nil {
		return err
	}

	a, err := newApp(cfg, out)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Fprintln(out, "Please ensure good lighting and face the camera.")
	rec, err := a.service.Register(ctx, req)
	if err != nil {
		return report(cmd, auth.Classify(err))
	}

	fmt.Fprintf(out, "Registered %s <%s>\n", rec.FullName(), rec.Email)
	return nil
}

// askRegistration prompts for every field the flags left empty.
func askRegistration(p *prompter, req *auth.RegisterRequest) error {
	fields := []struct {
		label string
		value *string
	}{
		{"First name", &req.FirstName},
		{"Last name", &req.LastName},
		{"Email", &req.Email},
	}
	for _, f := range fields {
		if *f.value != "" {
			continue
		}
		v, err := p.Line(f.label)
		if err != nil {
			return err
		}
		*f.value = v
	}

	pw, err := p.Password("Password")
	if err != nil {
		return err
	}
	confirm, err := p.Password("Confirm password")
	if err != nil {
		return err
	}
	if pw != confirm {
		return fmt.Errorf("passwords do not match")
	}
	req.Password = pw
	return nil
}

// report prints an authentication failure and returns errReported.
func report(cmd *cli.Command, e *auth.AuthError) error {
	msg := e.Message
	switch e.Code {
	case auth.ErrCodeInvalidInput, auth.ErrCodeInternal:
		if e.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Pose != "" {
		msg = fmt.Sprintf("%s (pose: %s)", msg, e.Pose)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), msg)
	if e.Err != nil {
		logging.WithError(e.Err).WithField("code", e.Code).Debug("Command failed")
	}
	return errReported
}
