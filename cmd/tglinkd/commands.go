package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	tglink "github.com/MrEthical07/tglink"
	"github.com/MrEthical07/tglink/initdata"

	cli "github.com/urfave/cli/v2"
)

var linkCodeCmd = &cli.Command{
	Name:      "link-code",
	Usage:     "generate a single-use link code for a backend user",
	ArgsUsage: "<backend-user-uuid>",
	Action: func(cctx *cli.Context) error {
		if cctx.Args().Len() != 1 {
			return cli.Exit("expected exactly one backend user id", 2)
		}
		logger := configLogger(cctx, os.Stderr)

		engine, cleanup, err := buildEngine(cctx, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		code, err := engine.IssueLinkCode(cctx.Context, cctx.Args().First())
		if err != nil {
			return err
		}
		return printJSON(map[string]string{
			"code":             code.Code,
			"supabase_user_id": code.BackendUserID,
			"expires_at":       code.ExpiresAt.UTC().Format(time.RFC3339),
		})
	},
}

var signInitDataCmd = &cli.Command{
	Name:  "sign-init-data",
	Usage: "produce a signed launch payload for local testing",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:     "user-id",
			Usage:    "numeric id placed in the user record",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "first-name",
			Usage: "first_name placed in the user record",
		},
		&cli.StringFlag{
			Name:  "username",
			Usage: "username placed in the user record",
		},
	},
	Action: func(cctx *cli.Context) error {
		token := cctx.String("bot-token")
		if token == "" {
			return cli.Exit("bot token is required (--bot-token or TELEGRAM_BOT_TOKEN)", 2)
		}

		user, err := json.Marshal(tglink.Claim{
			ID:        cctx.Int64("user-id"),
			FirstName: cctx.String("first-name"),
			Username:  cctx.String("username"),
		})
		if err != nil {
			return err
		}

		fmt.Println(initdata.Encode(map[string]string{
			"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
			"user":      string(user),
		}, token))
		return nil
	},
}

var reportCmd = &cli.Command{
	Name:  "report",
	Usage: "print the security posture of the current configuration",
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx, os.Stderr)

		engine, cleanup, err := buildEngine(cctx, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		report := engine.SecurityReport()
		return printJSON(map[string]any{
			"signing_algorithm":       report.SigningAlgorithm,
			"session_ttl":             report.SessionTTL.String(),
			"session_audience":        report.SessionAudience,
			"session_role":            report.SessionRole,
			"constant_time_compare":   report.ConstantTimeCompare,
			"duplicate_keys_rejected": report.DuplicateKeysRejected,
			"storage_backend":         report.StorageBackend,
			"link_code_ttl":           report.LinkCodeTTL.String(),
			"link_code_length":        report.LinkCodeLength,
			"verify_throttle_active":  report.VerifyThrottleActive,
			"redeem_throttle_active":  report.RedeemThrottleActive,
			"audit_enabled":           report.AuditEnabled,
			"sessions_enabled":        report.SessionsEnabled,
			"warnings":                report.Warnings,
		})
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
