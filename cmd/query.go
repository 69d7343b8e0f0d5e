package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/regbridge/client"
	"github.com/luma/regbridge/internal/env"
	"github.com/luma/regbridge/registry"
)

func newQueryCmd() *cobra.Command {
	var (
		// The bridge binary to launch, this one by default
		bridgePath string

		// How long to wait for the bridge to dial back
		acceptTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   `query KEY [VALUE]`,
		Short: "Read a registry key through a freshly launched bridge",
		Long: `Launch a bridge, then print one value of KEY, or list the subkeys and
values of KEY when no VALUE is given.

Usage
	regbridge query 'HKCU\Software\Vendor' Path
	regbridge query HKLM\Software

`,
		Args: cobra.RangeArgs(1, 2),

		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := env.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}

			log, err := env.MakeLogger(conf)
			if err != nil {
				return err
			}
			defer log.Sync()

			if bridgePath == "" {
				if bridgePath, err = os.Executable(); err != nil {
					return err
				}
			}

			conn, err := client.Launch(cmd.Context(), client.LaunchOptions{
				Executable:    bridgePath,
				AcceptTimeout: acceptTimeout,
				Reuseport:     conf.Reuseport,
				Trace:         conf.Trace,
				Log:           log.Named("client"),
			})
			if err != nil {
				return err
			}

			queryErr := query(cmd.Context(), conn, cmd.OutOrStdout(), args)
			if err := conn.Close(); err != nil {
				log.Warn("Bridge did not exit cleanly", zap.Error(err))
			}

			return queryErr
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&bridgePath, "bridge", "", "The bridge executable to launch (default: this program)")
	flags.DurationVar(&acceptTimeout, "accept-timeout", client.DefaultAcceptTimeout, "How long to wait for the bridge to connect")

	return cmd
}

func query(ctx context.Context, conn *client.Conn, out io.Writer, args []string) error {
	root, path, err := splitKeyPath(args[0])
	if err != nil {
		return err
	}

	key, err := conn.OpenKeyEx(ctx, root, path, registry.KeyRead)
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer conn.CloseKey(ctx, key)

	if len(args) == 2 {
		value, err := conn.QueryValueEx(ctx, key, args[1])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[1], err)
		}

		fmt.Fprintf(out, "%s\t%s\t%s\n", args[1], value.Type, formatValue(value))
		return nil
	}

	for i := uint32(0); ; i++ {
		name, err := conn.EnumKey(ctx, key, i)
		if errors.Is(err, registry.ErrorNoMoreItems) {
			break
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s\\\n", name)
	}

	for i := uint32(0); ; i++ {
		name, value, err := conn.EnumValue(ctx, key, i)
		if errors.Is(err, registry.ErrorNoMoreItems) {
			break
		}
		if err != nil {
			return err
		}

		if name == "" {
			name = "(Default)"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", name, value.Type, formatValue(value))
	}

	return nil
}

// splitKeyPath splits `HKCU\Software\Vendor` into its root and the path
// below it.
func splitKeyPath(s string) (registry.Handle, string, error) {
	rootName, path, _ := strings.Cut(s, `\`)

	root, ok := registry.ParseRoot(rootName)
	if !ok {
		return registry.NoKey, "", fmt.Errorf("%q does not start with a root key such as HKEY_CURRENT_USER", s)
	}

	return root, path, nil
}

func formatValue(v registry.Value) string {
	switch v.Type {
	case registry.TypeString, registry.TypeExpandString:
		if s, err := v.Text(); err == nil {
			return s
		}
	case registry.TypeMultiString:
		if ss, err := v.Strings(); err == nil {
			return strings.Join(ss, `\0`)
		}
	case registry.TypeDword:
		if n, err := v.Uint32(); err == nil {
			return fmt.Sprintf("0x%x", n)
		}
	case registry.TypeQword:
		if n, err := v.Uint64(); err == nil {
			return fmt.Sprintf("0x%x", n)
		}
	}

	return hex.EncodeToString(v.Data)
}
