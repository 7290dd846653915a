package camcheck

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kballard/go-shellquote"
)

// ReportOptions configures the device paths used in suggested commands.
type ReportOptions struct {
	CameraDir string // e.g. /sdcard/DCIM/Camera
	ReviewDir string // e.g. /sdcard/DCIMCameraBackupReview
}

var (
	warnColor = color.New(color.FgYellow, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	okColor   = color.New(color.FgGreen, color.Bold)
)

// WriteReport prints the human-facing summary of a check. Commands are only
// ever printed as suggestions; nothing here touches the device.
func WriteReport(w io.Writer, out *CheckOutcome, opts ReportOptions) {
	res := out.Result

	for _, r := range res.Missing {
		fmt.Fprintf(w, "Phone file not found in backup: %s\n", r)
	}

	fmt.Fprintf(w, "Backed up:          %d (%s)\n", res.BackedUpCount, humanize.Bytes(uint64(res.BackedUpTotalSize)))
	fmt.Fprintf(w, "Fuzzy date matches: %d\n", res.FuzzyDateMatchCount)
	fmt.Fprintf(w, "Missing:            %d\n", res.MissingCount)
	if len(out.Ignored) > 0 {
		fmt.Fprintf(w, "Ignored:            %d\n", len(out.Ignored))
	}
	if len(out.Collisions) > 0 {
		warnColor.Fprintf(w, "Warning: %d listing entries shared a date and size with a later entry and were not checked\n", len(out.Collisions))
		for _, r := range out.Collisions {
			fmt.Fprintf(w, "  %s (%s)\n", r.Filename, r.Key())
		}
	}
	if out.Run != nil {
		fmt.Fprintf(w, "Run:                %s\n", out.Run.ID)
	}
	fmt.Fprintln(w)

	if !res.AllBackedUp() {
		failColor.Fprintln(w, "Missing files found. Make sure the backup app has synced on wifi and power first!")
		fmt.Fprintln(w, "Then, to move all missing files to a review directory, run:")
		fmt.Fprintln(w, "adb shell")
		fmt.Fprintf(w, "mkdir -p %s\n", shellquote.Join(opts.ReviewDir))
		fmt.Fprintf(w, "cd %s\n", shellquote.Join(opts.CameraDir))
		fmt.Fprintf(w, "mv %s %s/\n", shellquote.Join(res.MissingFilenames...), shellquote.Join(opts.ReviewDir))
		return
	}

	okColor.Fprintf(w, "All %d files backed up. Original to backup filenames map written to %s\n", res.BackedUpCount, out.MapPath)
	if n := len(out.Ignored); n > 0 {
		warnColor.Fprintf(w, "(%d ignored files not verified; the command below deletes them too)\n", n)
	}
	fmt.Fprintf(w, "To permanently delete %s from the phone, run: adb shell rm %s\n",
		humanize.Bytes(uint64(res.BackedUpTotalSize)), shellquote.Join(opts.CameraDir)+"/*")
}
