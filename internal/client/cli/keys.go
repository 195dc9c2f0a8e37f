package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/filex"
	"github.com/spf13/cobra"
)

func (r *root) exportKeyCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export-key",
		Short: "Write the master key encrypted to a recovery passphrase",
		Long: "export-key writes an ASCII armored age file holding the master key,\n" +
			"encrypted with a separate recovery passphrase.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := r.app
			ctx := cmd.Context()
			if err := a.unlock(ctx); err != nil {
				return err
			}

			recovery, err := GetNewPassword(a.errOut, "Recovery passphrase: ")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(recovery)

			var buf bytes.Buffer
			if err := a.auth.ExportKey(ctx, a.keys, string(recovery), &buf); err != nil {
				return err
			}

			if outPath == "" {
				_, err = a.out.Write(buf.Bytes())
				return err
			}
			path, err := filex.ExpandHome(outPath)
			if err != nil {
				return err
			}
			if err := filex.WriteFileAtomic(path, buf.Bytes(), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(a.errOut, "key written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

func (r *root) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := r.app
			if err := a.auth.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("backend %s: %w", a.cfg.ServerAddr, err)
			}
			fmt.Fprintf(a.out, "backend %s is reachable\n", a.cfg.ServerAddr)
			return nil
		},
	}
}

func (r *root) forgetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Remove the stored key salt so the next unlock starts over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := r.app
			if !yes {
				answer, err := GetSimpleText(bufio.NewReader(cmd.InOrStdin()), "Files uploaded so far stay encrypted to the old key. Continue? [y/N]", a.errOut)
				if err != nil {
					return err
				}
				if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
					return nil
				}
			}
			if err := a.auth.Forget(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "local key material removed")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
