package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jobhelper/internal/clipboard"
	"jobhelper/internal/session"
	"jobhelper/internal/shared/apperr"
)

var (
	answerResume    string
	answerImages    []string
	answerURL       string
	answerCopy      int
	answerNoAnimate bool
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Answer the questions in the given screenshots once and print the result",
	Example: `  jobhelper answer --resume cv.pdf --image q1.png --image q2.png --url https://acme.example
  jobhelper answer --resume cv.pdf --image q1.png --url https://acme.example --copy 1`,
	RunE: runAnswer,
}

func init() {
	answerCmd.Flags().StringVarP(&answerResume, "resume", "r", "", "résumé PDF (required)")
	answerCmd.Flags().StringArrayVarP(&answerImages, "image", "i", nil, "question screenshot, repeatable")
	answerCmd.Flags().StringVarP(&answerURL, "url", "u", "", "company website URL")
	answerCmd.Flags().IntVar(&answerCopy, "copy", 0, "copy answer N (1-based) to the clipboard")
	answerCmd.Flags().BoolVar(&answerNoAnimate, "no-animate", false, "print the answers at once")
	_ = answerCmd.MarkFlagRequired("resume")
	rootCmd.AddCommand(answerCmd)
}

func runAnswer(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(answerResume) == "" {
		return errors.New(`required flag "resume" not set`)
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	runCfg := cfg
	var opts []session.Option
	printer := newRevealPrinter(out)
	if answerNoAnimate {
		runCfg.RevealTick = time.Microsecond
	} else {
		opts = append(opts, session.WithRevealHook(printer.Print))
	}

	svc := newService(ctx, runCfg, clipboard.System{}, opts...)
	defer svc.Machine().Close()

	resume, err := readUploads([]string{answerResume})
	if err != nil {
		return err
	}
	if _, err := svc.UploadResume(ctx, resume); err != nil {
		return userError(err)
	}

	images, err := readUploads(answerImages)
	if err != nil {
		return err
	}
	if len(images) > 0 {
		if _, err := svc.UploadImages(ctx, images); err != nil {
			return userError(err)
		}
	}

	if answerURL != "" {
		if _, err := svc.FetchWebsite(ctx, answerURL); err != nil {
			return userError(err)
		}
	}

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	spin.Suffix = " Generating answers..."
	spin.Writer = os.Stderr
	spin.Start()
	_, _, err = svc.Submit(ctx)
	spin.Stop()
	if err != nil {
		return userError(err)
	}

	st, err := svc.Machine().Wait(ctx)
	if err != nil {
		return err
	}
	if answerNoAnimate {
		printer.PrintAll(st.Revealed)
	}
	fmt.Fprintln(out)

	if len(st.QAPairs) == 0 {
		color.New(color.FgYellow).Fprintln(out, "No questions were found in the screenshots.")
	}

	if answerCopy > 0 {
		if _, err := svc.Copy(answerCopy - 1); err != nil {
			return userError(err)
		}
		color.New(color.FgGreen).Fprintf(out, "Copied answer %d to the clipboard.\n", answerCopy)
	}
	return nil
}

func readUploads(paths []string) ([]session.Upload, error) {
	uploads := make([]session.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		uploads = append(uploads, session.Upload{Name: filepath.Base(p), Data: data})
	}
	return uploads, nil
}

func userError(err error) error {
	return fmt.Errorf("%s [%s]", apperr.Message(err), apperr.KindOf(err))
}
