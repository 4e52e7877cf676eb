package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:           "pixctl",
		Short:         "pixctl - operator CLI for the PIX key service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.server, "server", envOr("PIXCTL_SERVER", "http://localhost:8080"), "Service base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("PIXCTL_TOKEN"), "Bearer token; minted from --owner when empty")
	flags.StringVar(&opts.owner, "owner", os.Getenv("PIXCTL_OWNER"), "Owner id to mint a development token for")
	flags.StringVar(&opts.signingKey, "signing-key", envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"), "HMAC key for minted tokens")
	flags.StringVar(&opts.issuer, "issuer", envOr("JWT_ISSUER", "pixkeys"), "Issuer for minted tokens")
	flags.StringVar(&opts.audience, "audience", envOr("JWT_AUDIENCE", "pixkeys-api"), "Audience for minted tokens")

	rootCmd.AddCommand(createCmd(opts))
	rootCmd.AddCommand(getCmd(opts))
	rootCmd.AddCommand(listCmd(opts))
	rootCmd.AddCommand(verifyCmd(opts))
	rootCmd.AddCommand(keyActionCmd(opts, "resend-code", "Issue a fresh verification code", "/resend-code"))
	rootCmd.AddCommand(claimCmd(opts, "portability", "Portability claims opened by this owner"))
	rootCmd.AddCommand(claimCmd(opts, "ownership", "Ownership claims opened by this owner"))
	rootCmd.AddCommand(requestCmd(opts))
	rootCmd.AddCommand(keyActionCmd(opts, "release", "Give up a key under a third-party ownership claim", "/release"))
	rootCmd.AddCommand(deleteCmd(opts))
	rootCmd.AddCommand(callbackCmd(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pixctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
