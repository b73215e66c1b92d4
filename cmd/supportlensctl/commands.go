package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"supportlens/internal/app"
	"supportlens/internal/config"
	"supportlens/internal/pkg/jwtutil"
)

func newIngestCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Ingest every document in a directory",
		Long: `Reads pdf, md and csv files below dir (the configured staging
directory when omitted), embeds new or changed documents and deletes the
files afterwards.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, e, func(_ *config.Config, svc *services) error {
				dir := svc.Ingest.StagingDir()
				if len(args) == 1 {
					dir = args[0]
				}
				result, err := svc.Ingest.IngestDir(cmd.Context(), dir)
				if err != nil {
					return fmt.Errorf("ingest failed: %w", err)
				}
				cmd.Printf("ingested %d documents (%d chunks, %d unchanged, %d skipped files)\n",
					result.Documents, result.Chunks, result.Unchanged, result.Skipped)
				return nil
			})
		},
	}
}

func newSearchCmd(e env) *cobra.Command {
	var k int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Show the chunks most similar to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, e, func(cfg *config.Config, svc *services) error {
				topK := k
				if !cmd.Flags().Changed("top-k") {
					topK = cfg.Retrieval.DefaultTopK
				}
				results, err := svc.Search.Search(cmd.Context(), args[0], topK)
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}
				if asJSON {
					return printJSON(cmd, results)
				}
				if len(results) == 0 {
					cmd.Println("No similar documents found.")
					return nil
				}
				for i, r := range results {
					cmd.Printf("[%d] %s (%.4f)\n", i+1, r.FilePath, r.Score)
					cmd.Printf("    %s\n", snippet(r.Content, 160))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "number of results (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func newAskCmd(e env) *cobra.Command {
	var asJSON, stream bool
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer a question with cited sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, e, func(_ *config.Config, svc *services) error {
				var answer *app.GeneratedAnswer
				var err error
				if stream && !asJSON {
					answer, err = svc.Query.AnswerStream(cmd.Context(), args[0], func(chunk string) error {
						cmd.Print(chunk)
						return nil
					})
				} else {
					answer, err = svc.Query.Answer(cmd.Context(), args[0])
				}
				if err != nil {
					return fmt.Errorf("ask failed: %w", err)
				}
				if asJSON {
					return printJSON(cmd, answer)
				}
				if answer.Error != "" {
					return fmt.Errorf("generation failed: %s", answer.Error)
				}
				if stream {
					cmd.Println()
				} else {
					cmd.Println(answer.Answer)
				}
				if len(answer.Citations) > 0 {
					cmd.Println()
					cmd.Println("Sources:")
					for i, c := range answer.Citations {
						cmd.Printf("  [%d] %s (%.4f)\n", i+1, c.FilePath, c.Score)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the answer as JSON")
	cmd.Flags().BoolVar(&stream, "stream", false, "print the answer while it is generated")
	return cmd
}

func newTokenCmd(e env) *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token signed with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			lifetime := ttl
			if lifetime <= 0 {
				lifetime = time.Duration(cfg.Auth.JWTExpireMinute) * time.Minute
			}
			token, err := jwtutil.GenerateToken(cfg.Auth.JWTSecret, subject, lifetime)
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "dashboard", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output failed: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
