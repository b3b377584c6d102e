package app

import (
	"fmt"
	"io"

	"github.com/hitoshi/redsocial/internal/config"
	"github.com/spf13/cobra"
)

// Service は起動するAPIサービスの種類。
type Service string

const (
	ServiceAuth Service = "auth"
	ServiceLike Service = "like"
	ServicePost Service = "post"
	ServiceUser Service = "user"
)

// Services は起動可能な全サービス。
var Services = []Service{ServiceAuth, ServiceLike, ServicePost, ServiceUser}

// ParseService はサービス名を検証してServiceを返す。
func ParseService(name string) (Service, error) {
	for _, s := range Services {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown service %q (expected one of auth, like, post, user)", name)
}

func serviceNames() []string {
	names := make([]string, 0, len(Services))
	for _, s := range Services {
		names = append(names, string(s))
	}
	return names
}

// NewRootCommand はredsocialのCLIを組み立てる。
// ログはwに出力する。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "redsocial",
		Short:         "Red social API (auth, like, post, user)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(w),
		newMigrateCommand(w),
		newHealthcheckCommand(),
	)
	return root
}

func newServeCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:       "serve <auth|like|post|user>",
		Short:     "Start the API server for one service",
		Args:      cobra.ExactArgs(1),
		ValidArgs: serviceNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := ParseService(args[0])
			if err != nil {
				return err
			}

			cfg, err := Init(w, string(service))
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			ctx, stop := signalContext()
			defer stop()

			return Serve(ctx, cfg, service)
		},
	}
}

func newMigrateCommand(w io.Writer) *cobra.Command {
	var (
		down        int
		showVersion bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w, "migrate")
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			switch {
			case showVersion:
				return MigrationStatus(cfg)
			case cmd.Flags().Changed("down"):
				return Rollback(cfg, down)
			default:
				return Migrate(cfg)
			}
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "roll back N migrations (0 rolls back all)")
	cmd.Flags().BoolVar(&showVersion, "version", false, "print the applied migration version")
	cmd.MarkFlagsMutuallyExclusive("down", "version")
	return cmd
}

// newHealthcheckCommand はフル初期化をせずに稼働確認だけを行う。
func newHealthcheckCommand() *cobra.Command {
	var host string
	cmd := &cobra.Command{
		Use:   "healthcheck <auth|like|post|user>",
		Short: "Probe /heart_check of a running service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := ParseService(args[0])
			if err != nil {
				return err
			}
			return Healthcheck(cmd.Context(), fmt.Sprintf("http://%s:%s", host, config.ServicePort(string(service))))
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "host to probe")
	return cmd
}
