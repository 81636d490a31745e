package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"summarize-backend/internal/analyses"
	"summarize-backend/internal/bootstrap"
	"summarize-backend/internal/shared/auth"
	"summarize-backend/internal/shared/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "summarize",
		Short:         "Summarize PDF documents and manage analysis history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAnalyzeCmd(), newTokenCmd(), newExportCmd())
	return root
}

func newAnalyzeCmd() *cobra.Command {
	var (
		asJSON bool
		owner  string
	)
	cmd := &cobra.Command{
		Use:   "analyze <file.pdf>",
		Short: "Run one document through the pipeline and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upload, err := readUpload(args[0])
			if err != nil {
				return err
			}

			cfg := config.Load()
			var app *bootstrap.App
			if owner != "" {
				app, err = bootstrap.Build(cmd.Context(), cfg)
			} else {
				app, err = bootstrap.BuildAnalyzer(cmd.Context(), cfg)
			}
			if err != nil {
				return err
			}
			defer app.Close()

			out, err := app.Pipeline.Analyze(cmd.Context(), analyses.Input{Upload: upload, OwnerID: owner})
			if err != nil {
				return err
			}
			return printOutcome(cmd.OutOrStdout(), out, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().StringVar(&owner, "owner", "", "save the result to this identity's history")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		ttl   time.Duration
		email string
	)
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Sign a bearer token for the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.Env)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			token, err := tokens.Sign(auth.Claims{
				Sub:   args[0],
				Email: email,
				Iat:   now.Unix(),
				Exp:   now.Add(ttl).Unix(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "token lifetime")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	return cmd
}

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <owner>",
		Short: "Write an owner's history to an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Build(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer app.Close()

			payload, err := app.History.ExportXLSX(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, payload, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "analysis-history.xlsx", "output file")
	return cmd
}

func readUpload(path string) (analyses.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analyses.Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	contentType := http.DetectContentType(data)
	if strings.EqualFold(filepath.Ext(path), ".pdf") && !strings.HasPrefix(contentType, "application/pdf") {
		// Some PDFs carry leading bytes before the header; trust the extension and let
		// extraction decide.
		contentType = "application/pdf"
	}
	return analyses.Upload{
		FileName:    filepath.Base(path),
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

func printOutcome(w io.Writer, out analyses.Outcome, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			ID        string   `json:"id,omitempty"`
			Summary   string   `json:"summary"`
			KeyPoints []string `json:"keyPoints"`
			Actions   []string `json:"actions"`
			Warning   string   `json:"warning,omitempty"`
		}{out.RecordID, out.Result.Summary, out.Result.KeyPoints, out.Result.Actions, out.Warning})
	}

	fmt.Fprintf(w, "Summary:\n%s\n\nKey points:\n", out.Result.Summary)
	for i, p := range out.Result.KeyPoints {
		fmt.Fprintf(w, "%d. %s\n", i+1, p)
	}
	fmt.Fprintln(w, "\nActions:")
	for i, a := range out.Result.Actions {
		fmt.Fprintf(w, "%d. %s\n", i+1, a)
	}
	if out.RecordID != "" {
		fmt.Fprintf(w, "\nSaved as %s\n", out.RecordID)
	}
	if out.Warning != "" {
		fmt.Fprintf(w, "\nWarning: %s\n", out.Warning)
	}
	return nil
}
