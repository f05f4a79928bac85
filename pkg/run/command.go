/*
   CBMDrive - Commodore floppy drive emulator
   Copyright (c) 2021, Alexander Vollschwitz

   This file is part of CBMDrive.

   CBMDrive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   CBMDrive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with CBMDrive. If not, see <http://www.gnu.org/licenses/>.
*/

package run

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

//
const settingsHelpHeader = `
Notes:

`

/*
	The package initializer sets up logging based on logrus. The following
	environment variables can be used to configure logging:

		LOG_FORMAT		set to `json` for JSON logging
		LOG_FORCE_COLORS	set to non-empty for forcing colorized log entries
		LOG_METHODS		set to non-empty for including methods in log
		LOG_LEVEL		`panic`, `fatal`, `error`, `warn`, `info`, `debug`, `trace`
*/
func init() {
	log.SetOutput(os.Stdout)
	if err := configureLogging(log.StandardLogger(), os.Getenv); err != nil {
		log.Error(err)
	}
}

// configureLogging applies the logging settings found in env to logger
func configureLogging(logger *log.Logger, env func(string) string) error {

	if strings.ToLower(env("LOG_FORMAT")) == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else if env("LOG_FORCE_COLORS") != "" {
		logger.SetFormatter(&log.TextFormatter{
			ForceColors: true,
		})
	}

	logger.SetReportCaller(env("LOG_METHODS") != "")

	if level := env("LOG_LEVEL"); level != "" {
		l, err := log.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level: '%s'; valid levels are: "+
				"panic, fatal, error, warn, info, debug, trace", level)
		}
		logger.SetLevel(l)
	}

	return nil
}

// DieOnError exits with status 1 if e is not nil, after printing it.
func DieOnError(e error) {
	if e != nil {
		fmt.Printf("%v\n", e)
		os.Exit(1)
	}
}

// Die prints msg formatted with params, and exits with status 1.
func Die(msg string, params ...interface{}) {
	fmt.Printf(msg, params...)
	if !strings.HasSuffix(msg, "\n") {
		fmt.Println()
	}
	os.Exit(1)
}

// confirm asks a yes/no question on out and reads the answer from in. Only
// an explicit yes counts as confirmation.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	res, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(res)) {
	case "y", "yes":
		return true
	}
	return false
}

/*
	NewCommand creates a base command instance, wrapping a new Cobra command.
	The exec function is invoked when the command's Execute method is called.
*/
func NewCommand(use, short, long, helpPrologue, helpEpilogue string,
	exec func() error) *Command {

	ret := &Command{
		cmd: &cobra.Command{
			Use:   use,
			Short: short,
			Long:  long,
			RunE: func(*cobra.Command, []string) error {
				return exec()
			},
			SilenceErrors:         true,
			SilenceUsage:          true,
			DisableFlagsInUseLine: true,
		},
		helpPrologue: helpPrologue,
		helpEpilogue: helpEpilogue,
		in:           os.Stdin,
		out:          os.Stdout,
	}

	defaultHelp := ret.cmd.HelpFunc()
	ret.cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		if ret.helpPrologue != "" {
			fmt.Fprintln(w, ret.helpPrologue)
		}
		defaultHelp(cmd, args)
		if ret.helpEpilogue != "" {
			fmt.Fprint(w, settingsHelpHeader)
			fmt.Fprintln(w, ret.helpEpilogue)
		} else {
			fmt.Fprintln(w)
		}
	})

	return ret
}

/*
	Command wraps a Cobra command and binds its settings via Viper. A setting
	can come from a command line flag or an environment variable, with the
	flag taking precedence. Viper does not report required settings that are
	missing, and does not write environment values back to bound variables
	(https://github.com/spf13/viper/issues/397), so Command takes care of both.
*/
type Command struct {
	//
	cmd      *cobra.Command
	settings []*setting
	//
	Args []string
	//
	helpPrologue string
	helpEpilogue string
	//
	in  io.Reader
	out io.Writer
}

/*
	Execute invokes the exec function that was set on this command when it was
	created, with args as the command line arguments. os.Args is never used, so
	an empty args really means no arguments.
*/
func (c *Command) Execute(args []string) error {
	if args == nil {
		args = []string{}
	}
	c.cmd.SetArgs(args)
	return c.cmd.Execute()
}

// confirm asks the user running this command a yes/no question
func (c *Command) confirm(prompt string) bool {
	return confirm(c.in, c.out, prompt)
}

/*
	AddSetting adds a setting to this command. Target points to the variable
	that receives the setting, which may be an int, string, or bool. Flag is
	the long command line flag, short its single letter version, and env the
	environment variable that may carry the setting, if any. def is the
	default value, nil meaning the zero value. Required settings take no
	default.
*/
func (c *Command) AddSetting(target interface{}, flag, short, env string,
	def interface{}, help string, required bool) {

	log.Tracef("add setting: flag=%s, env=%s", flag, env)

	if required && def != nil {
		Die("required setting '%s' does not take a default value", flag)
	}

	if env != "" {
		help = fmt.Sprintf("%s (%s)", help, env)
	}

	flags := c.cmd.Flags()

	switch t := target.(type) {
	case *int:
		d, ok := defaultOf(def, 0).(int)
		if !ok {
			Die("default value for setting '%s' is not an int", flag)
		}
		flags.IntVarP(t, flag, short, d, help)
	case *string:
		d, ok := defaultOf(def, "").(string)
		if !ok {
			Die("default value for setting '%s' is not a string", flag)
		}
		flags.StringVarP(t, flag, short, d, help)
	case *bool:
		d, ok := defaultOf(def, false).(bool)
		if !ok {
			Die("default value for setting '%s' is not a bool", flag)
		}
		flags.BoolVarP(t, flag, short, d, help)
	default:
		Die("setting '%s' is of unsupported type %T", flag, target)
	}

	DieOnError(bindSetting(flags, flag, env))

	c.settings = append(c.settings, &setting{
		flag: flag, env: env, required: required, target: target})
}

// bindSetting makes flag and, if given, env the sources for the Viper key flag
func bindSetting(flags *pflag.FlagSet, flag, env string) error {
	if err := viper.BindPFlag(flag, flags.Lookup(flag)); err != nil {
		return fmt.Errorf("cannot bind setting '%s': %v", flag, err)
	}
	if env != "" {
		if err := viper.BindEnv(flag, env); err != nil {
			return fmt.Errorf("cannot bind setting '%s' to %s: %v",
				flag, env, err)
		}
	}
	return nil
}

//
func defaultOf(def, zero interface{}) interface{} {
	if def == nil {
		return zero
	}
	return def
}

/*
	ParseSettings resolves all settings added via AddSetting, and stores their
	values in the bound variables. The exec function of a command needs to
	call this before using any of those variables. Remaining command line
	arguments are available in Args afterwards.
*/
func (c *Command) ParseSettings() {
	for _, s := range c.settings {
		DieOnError(s.resolve())
	}
	c.Args = c.cmd.Flags().Args()
}

//
type setting struct {
	flag     string
	env      string
	required bool
	target   interface{}
}

// resolve stores the Viper value of s in its target, and checks whether a
// required setting has been given
func (s *setting) resolve() error {

	missing := false

	switch t := s.target.(type) {
	case *int:
		*t = viper.GetInt(s.flag)
		missing = *t == 0
	case *string:
		*t = viper.GetString(s.flag)
		missing = *t == ""
	case *bool:
		*t = viper.GetBool(s.flag)
		missing = !*t
	}

	log.WithFields(log.Fields{
		"flag": s.flag, "set": viper.IsSet(s.flag)}).Trace("resolved setting")

	if s.required && missing {
		msg := fmt.Sprintf("you need to specify the --%s command line flag",
			s.flag)
		if s.env != "" {
			msg = fmt.Sprintf("%s or the %s environment variable", msg, s.env)
		}
		return fmt.Errorf("%s", msg)
	}

	return nil
}
