package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/user/capture-service/internal/domain"
)

var postCmd = &cobra.Command{
	Use:   "post <url>",
	Short: "Capture one Instagram post, OCR it and score its sentiment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, domain.KindPost, args[0])
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile <url>",
	Short: "Capture the first post of an X.com profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, domain.KindProfile, args[0])
	},
}

func runOnce(cmd *cobra.Command, kind domain.Kind, url string) error {
	a, err := newApp(cmd.Context(), cfg, prometheus.NewRegistry(), logger)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.service.Capture(cmd.Context(), domain.CaptureRequest{URL: url, Kind: kind})
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), domain.UserMessage(kind, err))
		return err
	}
	return printResult(cmd.OutOrStdout(), res)
}

func printResult(w io.Writer, res domain.CaptureResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
