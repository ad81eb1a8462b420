package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	logpkg "github.com/kailas-cloud/oceanq/internal/logger"
)

var (
	invalidateAll         bool
	invalidateFingerprint string
	invalidateQuestion    string
)

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop cached answers, e.g. after a data refresh",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		fp := invalidateFingerprint
		if !invalidateAll && fp == "" && invalidateQuestion == "" {
			return errors.New("one of --all, --fingerprint or --question is required")
		}

		a, _, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx = logpkg.ContextWithLogger(ctx, a.Logger)

		out := cmd.OutOrStdout()
		if invalidateAll {
			n, err := a.Answers.InvalidateAll(ctx)
			if err != nil {
				return err //nolint:wrapcheck // service error names the operation
			}
			_, _ = fmt.Fprintf(out, "invalidated %d cached answers\n", n)
			return nil
		}

		if fp == "" {
			fp = a.Answers.Fingerprint(invalidateQuestion)
		}
		if err := a.Answers.Invalidate(ctx, fp); err != nil {
			return err //nolint:wrapcheck // service error names the fingerprint
		}
		_, _ = fmt.Fprintf(out, "invalidated %s\n", fp)
		return nil
	},
}

func init() {
	invalidateCmd.Flags().BoolVar(&invalidateAll, "all", false, "Drop every cached answer")
	invalidateCmd.Flags().StringVar(&invalidateFingerprint, "fingerprint", "", "Drop one fingerprint")
	invalidateCmd.Flags().StringVar(&invalidateQuestion, "question", "", "Drop the answer a question maps to")
	invalidateCmd.MarkFlagsMutuallyExclusive("all", "fingerprint", "question")
}
