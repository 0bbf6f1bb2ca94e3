package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/psilva261/minjq/logger"
	"github.com/psilva261/minjq/runner"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var (
		clicks []string
		noPage bool
	)

	cmd := &cobra.Command{
		Use:   "run page.html [script.js ...]",
		Short: "Execute scripts and print the resulting page",
		Long: `Run loads page.html, executes its inline scripts followed by the
given script files, finishes loading and then clicks every --click
selector in order. The final document is written to stdout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read page")
			}
			var scripts []string
			for _, fn := range args[1:] {
				b, err := os.ReadFile(fn)
				if err != nil {
					return errors.Wrapf(err, "read %v", fn)
				}
				scripts = append(scripts, string(b))
			}

			r, err := runner.New(string(b))
			if err != nil {
				return err
			}
			if !noPage {
				scripts = append(r.PageScripts(), scripts...)
			}
			r.Start()
			defer r.Stop()

			if err := load(r, scripts); err != nil {
				return err
			}
			for _, sel := range clicks {
				if _, _, err := r.TriggerClick(sel); err != nil {
					return errors.Wrapf(err, "click %v", sel)
				}
			}
			if _, _, err := r.TrackChanges(); err != nil {
				return errors.Wrap(err, "track changes")
			}
			h, err := r.HTML()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), h)
			return err
		},
	}

	cmd.Flags().StringArrayVarP(&clicks, "click", "c", nil, "selector of an element to click after loading")
	cmd.Flags().BoolVar(&noPage, "no-page-scripts", false, "skip the inline scripts of the page")

	return cmd
}

// load executes scripts in order and closes the document. A failing
// script is logged and does not stop the following ones.
func load(r *runner.Runner, scripts []string) error {
	if _, err := r.Exec(``, true); err != nil {
		return errors.Wrap(err, "init")
	}
	for i, s := range scripts {
		if len(s) > 50 {
			log.Printf("exec %v...%v", s[:25], s[len(s)-25:])
		} else {
			log.Printf("exec %v", s)
		}
		if _, err := r.Exec(s, false); err != nil {
			log.Errorf("exec <script> %d: %v", i, err)
		}
	}
	if err := r.CloseDoc(); err != nil {
		return errors.Wrap(err, "close doc")
	}
	return nil
}
