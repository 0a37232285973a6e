package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	cli "github.com/spf13/cobra"

	"github.com/MrCodeEU/posegate/pkg/auth"
)

var loginCmd = &cli.Command{
	Use:   "login",
	Short: "Log in with a password and a frontal face capture",
	Args:  cli.NoArgs,
	RunE:  runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringP("email", "e", "", "Email address (prompted when empty)")
}

func runLogin(cmd *cli.Command, args []string) error {
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	out := cmd.OutOrStdout()

	req := auth.LoginRequest{}
	req.Email, _ = cmd.Flags().GetString("email")
	if req.Email == "" {
		v, err := p.Line("Email")
		if err != nil {
			return err
		}
		req.Email = v
	}
	pw, err := p.Password("Password")
	if err != nil {
		return err
	}
	req.Password = pw

	a, err := newApp(cfg, out)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res := a.service.Login(ctx, req)
	if !res.Success {
		return report(cmd, res.Error)
	}

	fmt.Fprintf(out, "Authentication successful (%s)\n", res.Duration.Round(time.Millisecond))
	return nil
}
