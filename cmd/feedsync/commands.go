package main

import (
	"strings"

	"github.com/spf13/cobra"

	"feed-sync/internal/domain"
)

type options struct {
	envFile    string
	outDir     string
	sftp       bool
	s3         bool
	stdoutOnly bool

	today       string
	blueprint   string
	noBlueprint bool
}

func newRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:           "feedsync",
		Short:         "Generate Canvas SIS import feeds from Jenzabar",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.envFile, "env-file", "", "load settings from this .env file (default ./.env when present)")
	pf.StringVar(&o.outDir, "out-dir", "", "directory for the feed file (overrides FEED_OUT_DIR)")
	pf.BoolVar(&o.sftp, "sftp", false, "upload the feed file via SFTP")
	pf.BoolVar(&o.s3, "s3", false, "archive the feed file in S3")
	pf.BoolVar(&o.stdoutOnly, "stdout-only", false, "print the CSV without writing or delivering a file")

	root.AddCommand(newCoursesCmd(o), newEnrollmentsCmd(o), newRunCmd(o))
	return root
}

func newCoursesCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Courses that start soon and are not yet in Canvas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, o, domain.FeedCourses)
		},
	}
	addCourseFlags(cmd, o)
	return cmd
}

func newEnrollmentsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "enrollments",
		Aliases: []string{"users"},
		Short:   "Active enrollments from the SIS",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, o, domain.FeedEnrollments)
		},
	}
}

func newRunCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <action label>",
		Short: `Run a feed by its action label, e.g. "Generate Courses CSV"`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feed, err := domain.ParseFeedType(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return execute(cmd, o, feed)
		},
	}
	addCourseFlags(cmd, o)
	return cmd
}

func addCourseFlags(cmd *cobra.Command, o *options) {
	f := cmd.Flags()
	f.StringVar(&o.today, "today", "", "reference date YYYY-MM-DD (default: current date)")
	f.StringVar(&o.blueprint, "blueprint", "", "blueprint_course_id for new courses (overrides FEED_BLUEPRINT_COURSE_ID)")
	f.BoolVar(&o.noBlueprint, "no-blueprint", false, "omit the blueprint_course_id column")
	cmd.MarkFlagsMutuallyExclusive("blueprint", "no-blueprint")
}
