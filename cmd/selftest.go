// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mtwomey/a2gcr/driveport"
)

// selftestCmd issues the controller firmware's built-in self-test command.
var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "run the drive controller firmware's built-in self-test",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSelftest(); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(-1)
		}
	},
}

func init() {
	RootCmd.AddCommand(selftestCmd)
}

func runSelftest() error {
	if globals.Port == "" {
		return fmt.Errorf("selftest requires --port")
	}
	port, err := driveport.Open(globals.Port)
	if err != nil {
		return err
	}
	defer port.Close()

	ok, err := port.SelfTest()
	if err != nil {
		return err
	}
	if ok {
		fmt.Println("self-test: PASS")
		return nil
	}
	fmt.Println("self-test: FAIL")
	os.Exit(1)
	return nil
}
