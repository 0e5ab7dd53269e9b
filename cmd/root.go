/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	stopper interface{ Stop() }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gibmesh",
	Short: "Cut-cell interface tracking on a fixed background mesh",
	Long: `
Tracks a moving immersed surface through a fixed polyhedral mesh: the faces
cut by the surface form an interface zone that is re-cut, flipped and
snapped every time step, optionally on several in-process ranks.

gibmesh move -F mesh.neu -I gib.yaml`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch kind := strings.ToLower(viper.GetString("profile")); kind {
		case "":
		case "cpu":
			stopper = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
		case "mem":
			stopper = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
		default:
			return fmt.Errorf("unknown profile kind %q, use cpu or mem", kind)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopper != nil {
			stopper.Stop()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gibmesh.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "write a cpu or mem profile of the run to the current directory")
	rootCmd.PersistentFlags().Bool("perf", false, "count the CPU instructions of the run (Linux)")
	_ = viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	_ = viper.BindPFlag("perf", rootCmd.PersistentFlags().Lookup("perf"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".gibmesh")
	}
	viper.SetEnvPrefix("gibmesh")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
