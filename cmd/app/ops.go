package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	red "financeflow/internal/infra/redis"
	"financeflow/internal/infra/web"
	"financeflow/internal/usecase"
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Maintenance jobs",
}

var cronRunCmd = &cobra.Command{
	Use:       "run <job>",
	Short:     "Run a maintenance job once",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{usecase.JobRecurringTransactions, usecase.JobResetUsage},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		run, err := a.cron().Run(cmd.Context(), args[0])
		if run != nil {
			_ = printJSON(run)
		}
		return err
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the message queue",
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print queue set sizes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		st, err := a.queue.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(st)
	},
}

var flagFailedLimit int

var queueFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List jobs in the failed set",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		jobs, err := a.queue.ListFailed(cmd.Context(), flagFailedLimit)
		if err != nil {
			return err
		}
		return printJSON(jobs)
	},
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry <job-id>",
	Short: "Move a failed job back to the wait list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.queue.RetryFailed(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("requeued %s\n", args[0])
		return nil
	},
}

var flagWindow time.Duration

var rateCmd = &cobra.Command{
	Use:   "ratelimit <user-id>",
	Short: "Show a user's count in the current rate-limit window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		w := flagWindow
		if w <= 0 {
			w = a.cfg.RateLimit.Window
		}
		n, err := red.NewRateLimiter(a.redis).Usage(cmd.Context(), args[0], w)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"user_id": args[0], "window": w.String(), "count": n})
	},
}

var (
	flagTokenRole string
	flagTokenTTL  time.Duration
	flagTokenSub  string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an operator token for the cron or admin endpoints",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfigOnly()
		if err != nil {
			return err
		}
		if flagTokenRole != "cron" && flagTokenRole != "admin" {
			return fmt.Errorf("unknown role %q (want cron or admin)", flagTokenRole)
		}
		ttl := flagTokenTTL
		if ttl <= 0 {
			ttl = cfg.Security.TokenTTL
		}
		tok, err := web.NewGuard(flagTokenRole, "", cfg.Security.JWTSecret, nopLog()).Mint(flagTokenSub, ttl)
		if err != nil {
			return fmt.Errorf("mint token (is security.jwt_secret set?): %w", err)
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	cronCmd.AddCommand(cronRunCmd)
	rootCmd.AddCommand(cronCmd)

	queueFailedCmd.Flags().IntVar(&flagFailedLimit, "limit", 0, "max jobs to list (default queue.remove_on_fail)")
	queueCmd.AddCommand(queueStatsCmd, queueFailedCmd, queueRetryCmd)
	rootCmd.AddCommand(queueCmd)

	rateCmd.Flags().DurationVar(&flagWindow, "window", 0, "window size (default rate_limit.window)")
	rootCmd.AddCommand(rateCmd)

	tokenCmd.Flags().StringVar(&flagTokenRole, "role", "admin", "cron or admin")
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", 0, "token lifetime (default security.token_ttl)")
	tokenCmd.Flags().StringVar(&flagTokenSub, "subject", "operator", "token subject")
	rootCmd.AddCommand(tokenCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
