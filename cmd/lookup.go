package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jjenkins/classwatch/internal/model"
	"github.com/jjenkins/classwatch/internal/report"
	"github.com/jjenkins/classwatch/internal/service"
)

var (
	lookupCount int
	lookupTerm  int
	noFull      bool
	csvPath     string
)

var errNoResults = errors.New("no results")

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "List the searchable terms, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		terms := client.GetTerms(cmd.Context())
		if len(terms) == 0 {
			return errNoResults
		}
		report.Terms(os.Stdout, terms)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search courses by subject and number, e.g. \"MATH 1A\"",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newClient()
		if err != nil {
			return err
		}

		term, err := resolveTerm(ctx, client)
		if err != nil {
			return err
		}

		courses := client.SearchCourse(ctx, strings.Join(args, " "), lookupCount, term)
		if len(courses) == 0 {
			return errNoResults
		}
		report.Courses(os.Stdout, courses)
		return nil
	},
}

var sectionsCmd = &cobra.Command{
	Use:   "sections <course-id>",
	Short: "List the sections of a course",
	Long: `List the sections of a course in upstream order.

Examples:
  # Open sections only
  ./classwatch sections 6401 --no-full

  # Export every section to a spreadsheet
  ./classwatch sections 6401 --csv math1a.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		sections := client.GetSections(cmd.Context(), args[0], lookupCount, !noFull)
		if len(sections) == 0 {
			return errNoResults
		}

		if csvPath == "" {
			report.Sections(os.Stdout, sections)
			return nil
		}

		file, err := os.Create(csvPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", csvPath, err)
		}
		defer file.Close()

		if err := report.WriteSectionsCSV(file, sections); err != nil {
			return err
		}
		fmt.Printf("Wrote %d sections to %s\n", len(sections), csvPath)
		return nil
	},
}

var sectionCmd = &cobra.Command{
	Use:   "section <course-id> <section-id>",
	Short: "Show one section",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		section := client.GetSection(cmd.Context(), args[0], args[1])
		if section == nil {
			return errNoResults
		}
		report.Section(os.Stdout, *section)
		return nil
	},
}

var instructorCmd = &cobra.Command{
	Use:   "instructor <name>",
	Short: "List the courses an instructor teaches, e.g. \"Smith, Ada\"",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newClient()
		if err != nil {
			return err
		}

		term, err := resolveTerm(ctx, client)
		if err != nil {
			return err
		}

		instructor := client.GetInstructor(ctx, strings.Join(args, " "), term)
		if instructor == nil {
			return errNoResults
		}
		report.Instructor(os.Stdout, *instructor)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(termsCmd, searchCmd, sectionsCmd, sectionCmd, instructorCmd)

	searchCmd.Flags().IntVarP(&lookupCount, "count", "n", service.DefaultCount, "Maximum number of courses")
	searchCmd.Flags().IntVarP(&lookupTerm, "term", "t", 0, "Term code (default: current term)")

	sectionsCmd.Flags().IntVarP(&lookupCount, "count", "n", service.DefaultCount, "Maximum number of sections")
	sectionsCmd.Flags().BoolVar(&noFull, "no-full", false, "Leave out full sections")
	sectionsCmd.Flags().StringVar(&csvPath, "csv", "", "Write the sections to this CSV file instead of a table")

	instructorCmd.Flags().IntVarP(&lookupTerm, "term", "t", 0, "Term code (default: current term)")
}

// resolveTerm maps --term to a known term. Zero leaves the choice to the client,
// which uses the current term.
func resolveTerm(ctx context.Context, client *service.SchedulerClient) (*model.Term, error) {
	if lookupTerm == 0 {
		return nil, nil
	}
	for _, t := range client.GetTerms(ctx) {
		if t.Code == lookupTerm {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unknown term %d", lookupTerm)
}
