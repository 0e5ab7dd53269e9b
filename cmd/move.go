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
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/InputParameters"
	"github.com/notargets/gibmesh/gib"
	"github.com/notargets/gibmesh/mesh"
	"github.com/notargets/gibmesh/motion"
	"github.com/notargets/gibmesh/parallel"
	"github.com/notargets/gibmesh/surface"
)

type MoveModel struct {
	GridFile, ICFile string
	Block            []int
	Bounds           []float64
	Steps            int
	DT               float64
	Ranks            int
	DumpFile         string
}

// MoveCmd represents the move command
var MoveCmd = &cobra.Command{
	Use:   "move",
	Short: "Track a moving surface through a mesh",
	Long: `
Cuts the mesh with the surface described in the input parameters file, then
advances the surface for a number of steps, re-cutting and snapping the
interface zone on every step.

gibmesh move -F mesh.neu -I gib.yaml -n 10 --dt 0.01`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
			mm  = &MoveModel{}
		)
		fmt.Println("move called")
		if mm.GridFile, err = cmd.Flags().GetString("gridFile"); err != nil {
			panic(err)
		}
		if mm.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		mm.Block, _ = cmd.Flags().GetIntSlice("block")
		mm.Bounds, _ = cmd.Flags().GetFloat64Slice("bounds")
		mm.Steps, _ = cmd.Flags().GetInt("steps")
		mm.DT, _ = cmd.Flags().GetFloat64("dt")
		mm.Ranks, _ = cmd.Flags().GetInt("ranks")
		mm.DumpFile, _ = cmd.Flags().GetString("dump")
		ip := processMoveInput(mm)
		run := func() error { return RunMove(mm, ip) }
		if viper.GetBool("perf") {
			err = measure(run)
		} else {
			err = run()
		}
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func processMoveInput(mm *MoveModel) (ip *InputParameters.GIBParameters) {
	var (
		err      error
		willExit bool
	)
	if len(mm.GridFile) == 0 && len(mm.Block) == 0 {
		err = fmt.Errorf("must supply a grid file (-F, --gridFile) in .neu (Gambit neutral file) format or a block size (--block)")
		fmt.Printf("error: %s\n", err.Error())
		willExit = true
	}
	if len(mm.ICFile) == 0 {
		err = fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "Rising piston"
ZoneName: gibFaces
Motion:
  Type: rigid # Can be "frame", "sensitivity" or "external"
  Box: [-1, -1, -1, 2, 2, 0.52]
  Velocity: [0, 0, 0.02]
InitialZone:
  Type: surface # Can be "plane" or "patches"
DoubleRelease: conservative
Ranks: 2
PartitionMethod: metis
DumpSurface: gibFaces.stl
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		willExit = true
	}
	if willExit {
		os.Exit(1)
	}
	var data []byte
	if data, err = os.ReadFile(mm.ICFile); err != nil {
		panic(err)
	}
	ip = InputParameters.NewGIBParameters()
	if err = ip.Parse(data); err != nil {
		panic(err)
	}
	if mm.Ranks > 0 {
		ip.Ranks = mm.Ranks
	}
	if len(mm.DumpFile) != 0 {
		ip.DumpSurface = mm.DumpFile
	}
	return
}

func init() {
	rootCmd.AddCommand(MoveCmd)
	MoveCmd.Flags().StringP("gridFile", "F", "", "Grid file to read in Gambit (.neu) format")
	MoveCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- Motion\n\t- InitialZone\n\t- Ranks")
	MoveCmd.Flags().IntSlice("block", nil, "generate a hex block of nx,ny,nz cells instead of reading a grid file")
	MoveCmd.Flags().Float64Slice("bounds", []float64{0, 0, 0, 1, 1, 1}, "xmin,ymin,zmin,xmax,ymax,zmax of the generated block")
	MoveCmd.Flags().IntP("steps", "n", 1, "number of time steps")
	MoveCmd.Flags().Float64("dt", 1, "time step")
	MoveCmd.Flags().IntP("ranks", "r", 0, "number of in-process ranks, overrides the input file")
	MoveCmd.Flags().StringP("dump", "o", "", "STL file for the final cut surface, overrides the input file")
}

func loadMesh(gridFile string, block []int, bounds []float64) (*mesh.PolyMesh, error) {
	if len(gridFile) != 0 {
		return mesh.ReadMeshFile(gridFile)
	}
	if len(block) != 3 || len(bounds) != 6 {
		return nil, fmt.Errorf("a block needs 3 cell counts and 6 bounds, have %d and %d", len(block), len(bounds))
	}
	hb := mesh.NewHexBlock(block[0], block[1], block[2],
		r3.Vec{X: bounds[0], Y: bounds[1], Z: bounds[2]},
		r3.Vec{X: bounds[3], Y: bounds[4], Z: bounds[5]})
	return hb.Build()
}

// rankRun is the state one rank carries through a run
type rankRun struct {
	m        mesh.Provider
	pointMap []int
	nGlobal  int
	engine   *gib.Engine
	reports  []gib.PassReport
}

func RunMove(mm *MoveModel, ip *InputParameters.GIBParameters) (err error) {
	ip.Print()
	global, err := loadMesh(mm.GridFile, mm.Block, mm.Bounds)
	if err != nil {
		return err
	}
	global.PrintStatistics()
	opts, err := gib.OptionsFromParameters(ip)
	if err != nil {
		return err
	}
	baseDir := filepath.Dir(mm.ICFile)

	var (
		nRanks = ip.Ranks
		locals []*mesh.LocalMesh
		runs   = make([]*rankRun, nRanks)
	)
	if nRanks == 1 {
		runs[0] = &rankRun{m: global, nGlobal: global.NPoints()}
	} else {
		mp := mesh.NewMeshPartitioner(global, &mesh.PartitionConfig{
			NumPartitions:   nRanks,
			Method:          ip.PartitionMethod,
			ImbalanceFactor: 1.05,
			Objective:       "vol",
		})
		cellRank, err := mp.Partition()
		if err != nil {
			return err
		}
		if locals, err = mesh.Decompose(global, cellRank, nRanks); err != nil {
			return err
		}
		for r, lm := range locals {
			runs[r] = &rankRun{m: lm, pointMap: lm.PointMap, nGlobal: global.NPoints()}
		}
	}

	start := time.Now()
	fn := func(rank int, s parallel.Syncer) error {
		return runRank(rank, s, runs[rank], ip, opts, baseDir, mm)
	}
	if nRanks == 1 {
		err = fn(0, parallel.Serial{})
	} else {
		topos := make([]parallel.Topology, nRanks)
		for r, lm := range locals {
			topos[r] = lm.Topology()
		}
		err = parallel.RunRanks(topos, fn)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%d steps on %d ranks in %v\n", mm.Steps, nRanks, time.Since(start))

	if err = printZone(runs, locals); err != nil {
		return err
	}
	if len(ip.DumpSurface) != 0 {
		var tris []surface.Triangle
		for _, run := range runs {
			tris = append(tris, run.engine.CutSurface()...)
		}
		if err = surface.WriteSTL(ip.DumpSurface, opts.ZoneName, tris); err != nil {
			return err
		}
		fmt.Printf("Wrote %d triangles to %s\n", len(tris), ip.DumpSurface)
	}
	return nil
}

func runRank(rank int, s parallel.Syncer, run *rankRun, ip *InputParameters.GIBParameters,
	opts gib.Options, baseDir string, mm *MoveModel) error {
	port, err := motion.NewPort(ip.Motion, baseDir, run.pointMap, run.nGlobal)
	if err != nil {
		return err
	}
	list, flip, err := gib.InitialZone(run.m, s, ip.InitialZone, port)
	if err != nil {
		return err
	}
	zone, err := gib.NewZoneTracker(opts.ZoneName, run.m, s, list, flip)
	if err != nil {
		return err
	}
	if s.NRanks() > 1 {
		opts.Logger = log.New(os.Stderr, fmt.Sprintf("[rank %d] ", rank), log.LstdFlags)
	}
	if run.engine, err = gib.NewEngine(run.m, s, port, zone, opts); err != nil {
		return err
	}
	for step := 0; step < mm.Steps; step++ {
		rep, err := run.engine.Step(mm.DT)
		if err != nil {
			return err
		}
		run.reports = append(run.reports, rep)
	}
	return nil
}

// printZone prints the final zone and the per pass totals over all ranks
func printZone(runs []*rankRun, locals []*mesh.LocalMesh) error {
	for pass := range runs[0].reports {
		var tot gib.PassReport
		for _, run := range runs {
			rep := run.reports[pass]
			tot.FlipCells += rep.FlipCells
			tot.FlipResets += rep.FlipResets
			tot.PopsReverted += rep.PopsReverted
			tot.DoubleClaims += rep.DoubleClaims
			tot.DoubleReleases += rep.DoubleReleases
			tot.Clamped += rep.Clamped
		}
		fmt.Printf("Pass %d: flips %d, resets %d, pops %d, ambiguous %d/%d, clamped %d\n", pass+1,
			tot.FlipCells, tot.FlipResets, tot.PopsReverted, tot.DoubleClaims, tot.DoubleReleases, tot.Clamped)
	}
	var (
		list []int
		flip []bool
	)
	if locals == nil {
		list, flip = runs[0].engine.Zone()
	} else {
		lists, flips := make([][]int, len(runs)), make([][]bool, len(runs))
		for r, run := range runs {
			lists[r], flips[r] = run.engine.Zone()
		}
		var err error
		if list, flip, err = mesh.Globalize(locals, lists, flips); err != nil {
			return err
		}
	}
	var nFlip int
	for _, f := range flip {
		if f {
			nFlip++
		}
	}
	fmt.Printf("Zone %s: %d faces, %d with flipped orientation\n", runs[0].engine.ZoneName(), len(list), nFlip)
	return nil
}
