package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pixkeys/internal/directory/wire"
)

// callbackCmd posts a directory callback, either read from a JSON file or
// assembled from flags. Useful to drive a key through states by hand.
func callbackCmd(opts *globalOptions) *cobra.Command {
	var (
		file string
		cb   wire.Callback
	)
	cmd := &cobra.Command{
		Use:   "callback [KEY_ID CALLBACK_TYPE]",
		Short: "Post a directory callback to the service",
		Args: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAPI(opts, false)
			if err != nil {
				return err
			}
			var body any = &cb
			if file != "" {
				raw, err := readFile(file, cmd.InOrStdin())
				if err != nil {
					return err
				}
				body = json.RawMessage(raw)
			} else {
				cb.KeyID, cb.Type = args[0], args[1]
				if cb.EventID == "" {
					cb.EventID = uuid.NewString()
				}
				if cb.OccurredAt.IsZero() {
					cb.OccurredAt = time.Now().UTC()
				}
			}
			return a.do(cmd.Context(), http.MethodPost, "/directory/callbacks", body, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "Read the callback JSON from a file (- for stdin)")
	f.StringVar(&cb.EventID, "event-id", "", "Delivery id (random when empty)")
	f.StringVar(&cb.ClaimID, "claim-id", "", "Directory claim id")
	f.StringVar(&cb.RequestID, "request-id", "", "Request id of the proposal being answered")
	f.StringVar(&cb.ClaimKind, "claim-kind", "", "OWNERSHIP or PORTABILITY")
	f.StringVar(&cb.Role, "role", "", "CLAIMER or DONOR")
	f.StringVar(&cb.Counterparty, "counterparty", "", "Counterparty ISPB")
	f.StringVar(&cb.Status, "status", "", "Claim status for CLAIM_STATUS callbacks")
	f.StringVar(&cb.Reason, "reason", "", "Reason code")
	return cmd
}

func readFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read callback file: %w", err)
	}
	return raw, nil
}
