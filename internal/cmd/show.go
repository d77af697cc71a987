package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wayneeseguin/logevents/pkg/config"
	"github.com/wayneeseguin/logevents/pkg/logevents"
	"github.com/wayneeseguin/logevents/pkg/observers"
	"github.com/wayneeseguin/logevents/pkg/types"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the logger tree a configuration produces",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var showOutput string

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "output format (yaml or json)")
	rootCmd.AddCommand(showCmd)
}

type loggerView struct {
	Name          string   `yaml:"name" json:"name"`
	Level         string   `yaml:"level" json:"level"`
	OwnLevel      string   `yaml:"own_level,omitempty" json:"own_level,omitempty"`
	IncludeParent bool     `yaml:"include_parent" json:"include_parent"`
	Observers     []string `yaml:"observers,omitempty" json:"observers,omitempty"`
}

type treeView struct {
	Config    string            `yaml:"config" json:"config"`
	Observers map[string]string `yaml:"observers,omitempty" json:"observers,omitempty"`
	Loggers   []loggerView      `yaml:"loggers" json:"loggers"`
}

func runShow(cmd *cobra.Command, args []string) error {
	path := configPath()
	reg, applied, err := loadRegistry(cmd, path)
	if err != nil {
		return err
	}
	defer applied.Close()

	return writeTree(cmd.OutOrStdout(), newTreeView(path, reg, applied), showOutput)
}

func newTreeView(path string, reg *logevents.Registry, applied *config.Applied) treeView {
	names := make(map[types.Observer]string)
	view := treeView{Config: path, Observers: make(map[string]string)}
	for name, o := range applied.Observers {
		view.Observers[name] = describe(o)
		if isComparable(o) {
			names[o] = name
		}
	}

	for _, info := range reg.Loggers() {
		lv := loggerView{
			Name:          info.Name,
			Level:         info.Level.String(),
			IncludeParent: info.Inherit,
		}
		if info.Name == logevents.RootName {
			lv.Name = "root"
		}
		if info.OwnLevel != nil {
			lv.OwnLevel = info.OwnLevel.String()
		}
		for _, o := range flatten(info.Observer) {
			name, ok := "", false
			if isComparable(o) {
				name, ok = names[o]
			}
			if !ok {
				name = describe(o)
			}
			lv.Observers = append(lv.Observers, name)
		}
		view.Loggers = append(view.Loggers, lv)
	}
	return view
}

func writeTree(w io.Writer, view treeView, format string) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(view)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func isComparable(o types.Observer) bool {
	return o != nil && reflect.TypeOf(o).Comparable()
}

func flatten(o types.Observer) []types.Observer {
	if observers.IsNull(o) {
		return nil
	}
	if c, ok := o.(*observers.Composite); ok {
		return c.Observers()
	}
	return []types.Observer{o}
}

// describe renders an observer for humans
func describe(o types.Observer) string {
	switch v := o.(type) {
	case nil:
		return "null"
	case *observers.Composite:
		parts := make([]string, 0, len(v.Observers()))
		for _, child := range v.Observers() {
			parts = append(parts, describe(child))
		}
		sort.Strings(parts)
		return strings.Join(parts, ", ")
	case *observers.LevelFilter:
		return fmt.Sprintf("%s (>= %s)", describe(v.Next), v.Threshold)
	case *observers.Buffer:
		return fmt.Sprintf("buffer (capacity %d)", v.Capacity())
	case *observers.File:
		return fmt.Sprintf("file (%s)", v.Path())
	case *observers.Throttled:
		return fmt.Sprintf("throttled %s %v", v.Throttler().Name(), v.Throttler().Delays())
	case *observers.Console:
		return "console"
	}
	if observers.IsNull(o) {
		return "null"
	}
	return fmt.Sprintf("%T", o)
}
