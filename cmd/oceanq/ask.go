package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/oceanq/internal/domain/response"
	logpkg "github.com/kailas-cloud/oceanq/internal/logger"
)

var askCompact bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and print the response as JSON",
	Example: `  oceanq ask "average salinity in the Arabian Sea in 2019"
  oceanq ask --compact "temperature below 1000 m near 10N 65E"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		a, _, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx = logpkg.ContextWithLogger(ctx, a.Logger)

		resp, err := a.Answers.Answer(ctx, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("answer: %w", err)
		}
		return printResponse(cmd.OutOrStdout(), resp, !askCompact)
	},
}

func init() {
	askCmd.Flags().BoolVar(&askCompact, "compact", false, "Print single-line JSON")
}

func printResponse(w io.Writer, resp response.Response, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}
