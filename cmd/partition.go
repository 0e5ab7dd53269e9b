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

	"github.com/spf13/cobra"

	"github.com/notargets/gibmesh/mesh"
)

// PartitionCmd represents the partition command
var PartitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "Report how a mesh splits across ranks",
	Long: `
Assigns the cells of a mesh to ranks and prints, for every rank, its cells,
its processor faces and the points it shares with each neighbour rank.

gibmesh partition -F mesh.neu -r 4 -m metis`,
	Run: func(cmd *cobra.Command, args []string) {
		gridFile, _ := cmd.Flags().GetString("gridFile")
		block, _ := cmd.Flags().GetIntSlice("block")
		bounds, _ := cmd.Flags().GetFloat64Slice("bounds")
		nRanks, _ := cmd.Flags().GetInt("ranks")
		method, _ := cmd.Flags().GetString("method")
		if err := RunPartition(gridFile, block, bounds, nRanks, method); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(PartitionCmd)
	PartitionCmd.Flags().StringP("gridFile", "F", "", "Grid file to read in Gambit (.neu) format")
	PartitionCmd.Flags().IntSlice("block", nil, "generate a hex block of nx,ny,nz cells instead of reading a grid file")
	PartitionCmd.Flags().Float64Slice("bounds", []float64{0, 0, 0, 1, 1, 1}, "xmin,ymin,zmin,xmax,ymax,zmax of the generated block")
	PartitionCmd.Flags().IntP("ranks", "r", 2, "number of ranks")
	PartitionCmd.Flags().StringP("method", "m", "metis", "partition method, block or metis")
}

func RunPartition(gridFile string, block []int, bounds []float64, nRanks int, method string) error {
	global, err := loadMesh(gridFile, block, bounds)
	if err != nil {
		return err
	}
	config := mesh.DefaultPartitionConfig(nRanks)
	config.Method = method
	cellRank, err := mesh.NewMeshPartitioner(global, config).Partition()
	if err != nil {
		return err
	}
	locals, err := mesh.Decompose(global, cellRank, nRanks)
	if err != nil {
		return err
	}
	fmt.Printf("%d cells on %d ranks\n", global.NCells(), nRanks)
	for _, lm := range locals {
		var nProc, nShared int
		for nbr := range lm.ProcFaces {
			nProc += len(lm.ProcFaces[nbr])
			nShared += len(lm.SharedPoints[nbr])
		}
		fmt.Printf("rank %3d: %8d cells %8d faces %6d processor faces %6d shared points %3d neighbours\n",
			lm.Rank, lm.NCells(), lm.NFaces(), nProc, nShared, len(lm.SharedPoints))
	}
	return nil
}
