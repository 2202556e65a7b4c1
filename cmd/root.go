// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Globals holds flags and configuration shared by every subcommand.
type Globals struct {
	// Debug level (0 = no debugging; any positive value enables debug output).
	Debug int
	// Port is the serial device path the drive controller is attached to.
	Port string
	// Dir is the working directory disk images are read from and written to.
	Dir string
}

var globals Globals

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "a2gcr",
	Short: "Recover DOS 3.3 floppy disks from raw GCR captures",
	Long: `a2gcr drives an Apple II drive controller to capture raw GCR nibble
streams track by track, retrying until every sector is recovered, and
assembles the result into a disk image it can also catalog.`,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&globals.Port, "port", "", "serial device path for the drive controller")
	RootCmd.PersistentFlags().StringVar(&globals.Dir, "dir", "disks", "working directory for disk images")
	RootCmd.PersistentFlags().IntVar(&globals.Debug, "debug", 0, "debug verbosity (0 = off)")

	viper.BindPFlag("port", RootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("dir", RootCmd.PersistentFlags().Lookup("dir"))
	viper.SetDefault("dir", "disks")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to RootCmd.
func Execute() {
	cobra.OnInitialize(func() {
		if globals.Port == "" {
			globals.Port = viper.GetString("port")
		}
		if globals.Dir == "disks" {
			globals.Dir = viper.GetString("dir")
		}
	})
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}

// debugf prints a diagnostic line to stderr when debugging is enabled,
// matching the teacher's debug-gated fmt.Fprintf idiom.
func debugf(format string, a ...interface{}) {
	if globals.Debug > 0 {
		fmt.Fprintf(os.Stderr, format, a...)
	}
}
