package main

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

func createCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create TYPE [VALUE]",
		Short: "Register a key (DOCUMENT, EMAIL, PHONE or RANDOM)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAPI(opts, true)
			if err != nil {
				return err
			}
			body := map[string]string{"type": args[0]}
			if len(args) == 2 {
				body["value"] = args[1]
			}
			return a.do(cmd.Context(), http.MethodPost, "/keys", body, cmd.OutOrStdout())
		},
	}
	return cmd
}

func getCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY_ID",
		Short: "Show one key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAPI(opts, true)
			if err != nil {
				return err
			}
			return a.do(cmd.Context(), http.MethodGet, keyPath(args[0], ""), nil, cmd.OutOrStdout())
		},
	}
}

func listCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the owner's keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAPI(opts, true)
			if err != nil {
				return err
			}
			return a.do(cmd.Context(), http.MethodGet, "/keys", nil, cmd.OutOrStdout())
		},
	}
}

func verifyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify KEY_ID CODE",
		Short: "Submit the verification code the key is waiting on",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAPI(opts, true)
			if err != nil {
				return err
			}
			return a.do(cmd.Context(), http.MethodPost, keyPath(args[0], "/verify"),
				map[string]string{"code": args[1]}, cmd.OutOrStdout())
		},
	}
}

// keyActionCmd is a bodiless POST on one key.
func keyActionCmd(opts *globalOptions, use, short, suffix string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " KEY_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAPI(opts, true)
			if err != nil {
				return err
			}
			return a.do(cmd.Context(), http.MethodPost, keyPath(args[0], suffix), nil, cmd.OutOrStdout())
		},
	}
}

// reasonCmd is a POST carrying an optional --reason.
func reasonCmd(opts *globalOptions, use, short, suffix string) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   use + " KEY_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAPI(opts, true)
			if err != nil {
				return err
			}
			return a.do(cmd.Context(), http.MethodPost, keyPath(args[0], suffix),
				map[string]string{"reason": reason}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason code (default USER_REQUESTED)")
	return cmd
}

// claimCmd groups start, approve and the two cancel commands of one claim kind.
func claimCmd(opts *globalOptions, kind, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind,
		Short: short,
	}
	base := "/" + kind
	cmd.AddCommand(&cobra.Command{
		Use:   "start KEY_ID COUNTERPARTY_ISPB",
		Short: "Open a " + kind + " claim against the institution holding the key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAPI(opts, true)
			if err != nil {
				return err
			}
			return a.do(cmd.Context(), http.MethodPost, keyPath(args[0], base),
				map[string]string{"counterparty_ispb": args[1]}, cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(keyActionCmd(opts, "approve", "Approve the claim before it is sent", base+"/approve"))
	cmd.AddCommand(reasonCmd(opts, "cancel", "Withdraw the claim before the counterparty acts", base+"/cancel"))
	cmd.AddCommand(reasonCmd(opts, "cancel-in-progress", "Cancel a claim the directory already opened", base+"/cancel-in-progress"))
	return cmd
}

// requestCmd answers a portability request received from another institution.
func requestCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Answer a portability request made by another institution",
	}
	cmd.AddCommand(keyActionCmd(opts, "confirm", "Hand the key over", "/portability-request/confirm"))
	cmd.AddCommand(reasonCmd(opts, "deny", "Keep the key", "/portability-request/deny"))
	return cmd
}

func deleteCmd(opts *globalOptions) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "delete KEY_ID",
		Short: "Remove a key from the directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAPI(opts, true)
			if err != nil {
				return err
			}
			path := keyPath(args[0], "")
			if reason != "" {
				path += "?reason=" + url.QueryEscape(reason)
			}
			return a.do(cmd.Context(), http.MethodDelete, path, nil, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason code (default USER_REQUESTED)")
	return cmd
}

func keyPath(keyID, suffix string) string {
	return "/keys/" + url.PathEscape(keyID) + suffix
}
