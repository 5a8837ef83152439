/*
Copyright © 2017 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package ncaputil holds the command-line interface to ncap.
package ncaputil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncap"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log is the logger used by the commands.
var Log = logrus.StandardLogger()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to ncap.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "loglevel",
			usage: `
              loglevel is the level of messages to log: one of debug,
              info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "script",
			usage: `
              script is the path to the script to evaluate, stored as a
              YAML syntax tree.`,
			shorthand:  "s",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags(), dumpCmd.Flags()},
		},
		{
			name: "input",
			usage: `
              input is the path to the netCDF file the script reads. It
              may be left empty if the script reads no variables.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output is the path to the netCDF file to write.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "fortran",
			usage: `
              fortran specifies that hyperslab indices start at 1 rather
              than 0.`,
			shorthand:  "F",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "copy",
			usage: `
              copy specifies whether input variables that the script
              does not write are copied to the output file.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "define",
			usage: `
              define gives scalar variables to make available to the script,
              in the form name=expression. The expressions may refer to
              global attributes and dimension sizes of the input file.`,
			shorthand:  "D",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "attributes",
			usage: `
              attributes is the path to a TOML file of attributes to set on
              the output. Each table is named for a variable; the table
              "global" holds global attributes.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("NCAP")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // Flags are only created once.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(checkCmd)
	Root.AddCommand(dumpCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("ncap: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("loglevel"))
	if err != nil {
		return fmt.Errorf("ncap: %v", err)
	}
	Log.Level = level
	Log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	}
	return nil
}

// defines returns the --define expressions.
func defines() ([]string, error) {
	d, err := cast.ToStringSliceE(Cfg.Get("define"))
	if err != nil {
		return nil, fmt.Errorf("ncap: reading 'define': %v", err)
	}
	return d, nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "ncap",
	Short: "A netCDF arithmetic processor.",
	Long: `ncap evaluates scripts of array expressions against a netCDF file and
writes the variables they define to a new netCDF file. Scripts are given as
syntax trees stored in YAML.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'NCAP_var' where 'var' is the
name of the variable to be set. File paths may contain environment variables.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of ncap.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("ncap v%s\n", ncap.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate a script.",
	Long: `run evaluates the script given by --script against the --input file
and writes the result to the --output file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := defines()
		if err != nil {
			return err
		}
		return Run(context.Background(),
			os.ExpandEnv(Cfg.GetString("script")),
			os.ExpandEnv(Cfg.GetString("input")),
			os.ExpandEnv(Cfg.GetString("output")),
			os.ExpandEnv(Cfg.GetString("attributes")),
			d,
			Cfg.GetBool("fortran"),
			Cfg.GetBool("copy"),
			cmd.OutOrStdout(),
		)
	},
	DisableAutoGenTag: true,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a script without evaluating it.",
	Long: `check runs only the declarative scan of a script and lists the
variables it would define, with their types and dimensions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := defines()
		if err != nil {
			return err
		}
		return Check(context.Background(),
			os.ExpandEnv(Cfg.GetString("script")),
			os.ExpandEnv(Cfg.GetString("input")),
			d,
			Cfg.GetBool("fortran"),
			cmd.OutOrStdout(),
		)
	},
	DisableAutoGenTag: true,
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print a script's syntax tree.",
	Long:  `dump prints the syntax tree of the script given by --script.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Dump(os.ExpandEnv(Cfg.GetString("script")), cmd.OutOrStdout())
	},
	DisableAutoGenTag: true,
}
