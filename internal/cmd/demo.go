package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wayneeseguin/logevents/pkg/config"
	"github.com/wayneeseguin/logevents/pkg/formatters"
	"github.com/wayneeseguin/logevents/pkg/logevents"
	"github.com/wayneeseguin/logevents/pkg/observers"
	"github.com/wayneeseguin/logevents/pkg/query"
	"github.com/wayneeseguin/logevents/pkg/status"
	"github.com/wayneeseguin/logevents/pkg/types"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Log sample events and query them back",
	Long: `Log a series of sample events through the configured logger tree, then query
the retained events the way the HTTP query endpoint does. Without a
configuration file every event goes to an in-memory buffer.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

var demoFlags struct {
	events int
	level  string
	logger string
	text   string
	limit  int
}

// demoLoggers are the loggers sample events are spread over
var demoLoggers = []string{"demo.http", "demo.db", "demo.auth.session"}

func init() {
	demoCmd.Flags().IntVarP(&demoFlags.events, "events", "n", 20, "number of events to log")
	demoCmd.Flags().StringVar(&demoFlags.level, "level", "INFO", "lowest level to return")
	demoCmd.Flags().StringVar(&demoFlags.logger, "logger", "", "logger name pattern (demo.**)")
	demoCmd.Flags().StringVarP(&demoFlags.text, "query", "q", "", "text the message must contain")
	demoCmd.Flags().IntVar(&demoFlags.limit, "limit", query.DefaultLimit, "maximum number of events returned")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	reg, applied, err := demoRegistry(cmd)
	if err != nil {
		return err
	}
	defer applied.Close()

	buf := findBuffer(applied)
	if buf == nil {
		buf, err = observers.NewBuffer(observers.DefaultBufferCapacity, observers.WithBufferMetrics(reg.Collector()))
		if err != nil {
			return err
		}
		reg.AddRootObserver(buf)
	}

	emitSamples(reg, demoFlags.events)
	reg.Flush()

	values := url.Values{}
	values.Set("level", demoFlags.level)
	values.Set("limit", strconv.Itoa(demoFlags.limit))
	if demoFlags.logger != "" {
		values.Set("logger", demoFlags.logger)
	}
	if demoFlags.text != "" {
		values.Set("q", demoFlags.text)
	}
	filter, err := query.ParseFilter(values)
	if err != nil {
		return err
	}
	result, err := buf.Query(filter)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), result)
}

// demoRegistry uses the configuration file when there is one, and an
// in-memory buffer at TRACE otherwise.
func demoRegistry(cmd *cobra.Command) (*logevents.Registry, *config.Applied, error) {
	path := configPath()
	reg, applied, err := loadRegistry(cmd, path)
	if !errors.Is(err, fs.ErrNotExist) {
		return reg, applied, err
	}

	st := status.New()
	st.SetOutput(cmd.ErrOrStderr())
	reg = logevents.NewRegistry(logevents.WithStatus(st))
	applied, err = config.Apply(config.FromMap(map[string]string{
		"root":            "TRACE buffer",
		"observer.buffer": "buffer",
	}), reg)
	return reg, applied, err
}

func findBuffer(applied *config.Applied) *observers.Buffer {
	names := make([]string, 0, len(applied.Observers))
	for name := range applied.Observers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		o := applied.Observers[name]
		if f, ok := o.(*observers.LevelFilter); ok {
			o = f.Next
		}
		if b, ok := o.(*observers.Buffer); ok {
			return b
		}
	}
	return nil
}

func emitSamples(reg *logevents.Registry, n int) {
	levels := types.Levels()
	for i := 0; i < n; i++ {
		log := reg.Logger(demoLoggers[i%len(demoLoggers)])
		level := levels[i%len(levels)]
		switch level {
		case types.LevelError:
			log.WithMarker("OPS").Error("request %d failed", i, fmt.Errorf("upstream returned %d", 500+i%4))
		case types.LevelWarn:
			log.Warn("request %d took %dms", i, 100*i)
		default:
			log.Log(level, "handled request %d", i)
		}
	}
}

func printResult(w io.Writer, result *query.Result) error {
	s := result.Summary
	fmt.Fprintf(w, "%d events in window, %d matching\n", s.Total, s.Filtered)
	for _, level := range types.Levels() {
		if count, ok := s.Levels[level]; ok {
			fmt.Fprintf(w, "  %-5s %d\n", level, count)
		}
	}
	loggers := make([]string, 0, len(s.Loggers))
	for name := range s.Loggers {
		loggers = append(loggers, name)
	}
	sort.Strings(loggers)
	for _, name := range loggers {
		fmt.Fprintf(w, "  %s %d\n", name, s.Loggers[name])
	}
	fmt.Fprintln(w)

	formatter := formatters.NewTextFormatter()
	for _, e := range result.Events {
		line, err := formatter.Format(e)
		if err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}
