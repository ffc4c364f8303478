package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"flight-stats/internal/config"
	"flight-stats/internal/models"
	"flight-stats/internal/repository"
	"flight-stats/internal/services"
	"flight-stats/pkg/logging"
	"flight-stats/pkg/metrics"
)

// report prints the dashboard for one selection straight from the workbook, without a database.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("report", flag.ExitOnError)
	path := fs.String("file", cfg.Source.Path, "Workbook containing the flight sheet")
	sheet := fs.String("sheet", cfg.Source.Sheet, "Name of the flight sheet")
	airlines := fs.String("airlines", "", "Comma-separated airlines (omit for all, empty for none)")
	days := fs.String("days", "", "Comma-separated days of month (omit for all, empty for none)")
	weekdays := fs.String("weekdays", "", "Comma-separated days of week (omit for all, empty for none)")
	fs.Parse(os.Args[1:])

	logger := logging.NewStructuredLogger("flight-report", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	logger.SetOutput(os.Stderr)
	ctx := context.Background()

	source := repository.NewSpreadsheetSource(*path, *sheet, cfg.Source.MaxRows, logger)
	svc, err := services.LoadQueryService(ctx, source, logger, metrics.NewCollector("flight_report"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load flight table: %v\n", err)
		os.Exit(1)
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	sel, err := selectionFromFlags(svc.DefaultSelection(), set, *airlines, *days, *weekdays)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	printReport(os.Stdout, svc.Info(), svc.Query(ctx, sel))
}

// selectionFromFlags narrows defaults by every flag that was given on the command line.
func selectionFromFlags(defaults models.FilterSelection, set map[string]bool, airlines, days, weekdays string) (models.FilterSelection, error) {
	sel := defaults
	if set["airlines"] {
		sel.Airlines = splitList(airlines)
	}
	if set["weekdays"] {
		sel.DaysOfWeek = splitList(weekdays)
	}
	if set["days"] {
		sel.DaysOfMonth = []int{}
		for _, v := range splitList(days) {
			d, err := strconv.Atoi(v)
			if err != nil {
				return sel, &models.ValidationError{Field: "days", Value: v, Message: "expected an integer day of month"}
			}
			sel.DaysOfMonth = append(sel.DaysOfMonth, d)
		}
	}
	return sel, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printReport(w io.Writer, info services.TableInfo, res services.Result) {
	rule := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "JANUARY FLIGHT DELAYS")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Source:               %s (%s rows)\n", info.Source, humanize.Comma(int64(info.Rows)))
	fmt.Fprintf(w, "Airlines:             %s\n", describe(res.Selection.Airlines))
	fmt.Fprintf(w, "Days of month:        %s\n", describe(res.Selection.DaysOfMonth))
	fmt.Fprintf(w, "Days of week:         %s\n", describe(res.Selection.DaysOfWeek))
	fmt.Fprintf(w, "Flights selected:     %s\n", humanize.Comma(int64(res.Summary.FlightCount)))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Average Delay:        %s\n", res.Display.AverageDelay)
	fmt.Fprintf(w, "Distance Flown:       %s\n", res.Display.DistanceFlown)
	fmt.Fprintf(w, "Average Flight Time:  %s\n", res.Display.AverageFlightTime)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Flights by Airline")
	fmt.Fprintln(w, thin)
	if len(res.Summary.FlightsByAirline) == 0 {
		fmt.Fprintln(w, "  (no flights)")
	}
	for _, c := range res.Summary.FlightsByAirline {
		fmt.Fprintf(w, "  %-24s %8s\n", c.Airline, humanize.Comma(int64(c.Flights)))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Flight Time by Airline (minutes)")
	fmt.Fprintln(w, thin)
	if len(res.Summary.FlightTimeByAirline) == 0 {
		fmt.Fprintln(w, "  (no flights)")
	}
	for _, t := range res.Summary.FlightTimeByAirline {
		fmt.Fprintf(w, "  %-24s %12s\n", t.Airline, humanize.CommafWithDigits(t.ElapsedTime, 1))
	}
	fmt.Fprintln(w, rule)
}

func describe[T any](values []T) string {
	if len(values) == 0 {
		return "none"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
