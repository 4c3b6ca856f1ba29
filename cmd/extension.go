package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/etnz/cardvault/config"
	"go.uber.org/zap"
)

// EnvVerbose tells extensions to log verbosely.
const EnvVerbose = "CARDVAULT_VERBOSE"

// RunExtension runs the external cv-<subcommand> binary found in PATH, with
// the resolved settings in its environment. It returns (false, 0) if there is
// no such binary, otherwise (true, exit code).
func RunExtension(subcommand string, args []string) (bool, int) {
	name := "cv-" + subcommand
	lp, err := exec.LookPath(name)
	if err != nil {
		Logger().Debug("no extension", zap.String("command", name), zap.Error(err))
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), extensionEnv()...)

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", name, err)
		return true, 1
	}
	return true, 0
}

// extensionEnv passes the global settings, secrets excluded.
func extensionEnv() []string {
	env := []string{EnvVerbose + "=" + strconv.FormatBool(*Verbose)}
	c, err := Config()
	if err != nil {
		return env
	}
	return append(env,
		config.EnvStore+"="+c.Store,
		config.EnvCurrency+"="+c.Currency,
		config.EnvCacheDir+"="+c.CacheDir,
	)
}
