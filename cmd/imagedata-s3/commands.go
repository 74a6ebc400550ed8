package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourorg/imagedata-s3/internal/transport"
)

var putCmd = &cobra.Command{
	Use:   "put <local-file> <locator>",
	Short: "Upload a local archive to a locator",
	Example: `  imagedata-s3 put time00.zip s3://ak:sk@localhost:9000/studies/time00.zip
  imagedata-s3 put -u ak -p sk time00.zip s3://localhost:9000/studies/2024/time00.zip`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPut(cmd.Context(), args[0], args[1])
	},
}

var getCmd = &cobra.Command{
	Use:   "get <locator> [local-file]",
	Short: "Download an archive; '-' writes to stdout",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := ""
		if len(args) > 1 {
			out = args[1]
		}
		return runGet(cmd.Context(), args[0], out)
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls <locator>",
	Short: "List every file under a locator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <locator>",
	Short: "Describe the object at a locator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withObject(cmd.Context(), args[0], transport.ModeRead, func(t transport.Transport, p string) error {
			s, err := t.Info(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		})
	},
}

var existsCmd = &cobra.Command{
	Use:   "exists <locator>",
	Short: "Print whether the object at a locator exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withObject(cmd.Context(), args[0], transport.ModeRead, func(t transport.Transport, p string) error {
			ok, err := t.Exists(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		})
	},
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the available transports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tVERSION\tSCHEMES\tMIMETYPE\tDESCRIPTION")
		for _, p := range registry.Plugins() {
			fmt.Fprintf(tw, "%s\t%s\t%v\t%s\t%s\n", p.Name, p.Version, p.Schemes, p.MIMEType, p.Description)
		}
		return tw.Flush()
	},
}

// withObject opens a transport rooted at the locator's parent directory and
// calls fn with the object's path. The transport is always closed; a close
// error is returned when fn succeeded.
func withObject(ctx context.Context, locator string, mode transport.Mode, fn func(transport.Transport, string) error) (err error) {
	loc, err := transport.ParseLocator(locator)
	if err != nil {
		return err
	}
	parent := loc
	parent.Root = path.Dir(loc.Root)
	t, _, err := registry.Open(ctx, parent.String(), mode, options())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := t.Close(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(t, loc.Root)
}

func runPut(ctx context.Context, local, locator string) error {
	src, err := os.Open(local)
	if err != nil {
		return err
	}
	defer src.Close()

	return withObject(ctx, locator, transport.ModeWrite, func(t transport.Transport, p string) error {
		dst, err := t.Open(ctx, p, "wb")
		if err != nil {
			return err
		}
		n, err := io.Copy(dst, src)
		if err != nil {
			return err
		}
		logger.Info("staged", zap.String("from", local), zap.String("to", p), zap.Int64("bytes", n))
		return dst.Close()
	})
}

func runGet(ctx context.Context, locator, local string) error {
	return withObject(ctx, locator, transport.ModeRead, func(t transport.Transport, p string) error {
		src, err := t.Open(ctx, p, "rb")
		if err != nil {
			return err
		}
		defer src.Close()

		if local == "" {
			local = path.Base(p)
		}
		var dst io.Writer = os.Stdout
		if local != "-" {
			f, err := os.Create(local)
			if err != nil {
				return err
			}
			defer f.Close()
			dst = f
		}
		n, err := io.Copy(dst, src)
		if err != nil {
			return err
		}
		logger.Info("downloaded", zap.String("from", p), zap.String("to", local), zap.Int64("bytes", n))
		return nil
	})
}

func runList(ctx context.Context, locator string, w io.Writer) error {
	t, loc, err := registry.Open(ctx, locator, transport.ModeRead, options())
	if err != nil {
		return err
	}
	defer t.Close(ctx)

	for step, err := range t.Walk(ctx, loc.Root) {
		if err != nil {
			return err
		}
		for _, f := range step.Files {
			fmt.Fprintln(w, path.Join(step.Root, f))
		}
	}
	return nil
}
