package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/udisondev/la2geo/internal/game/geo"
)

// console is the operator at the terminal: a fixed position whose
// diagnostics are printed.
type console struct {
	pos geo.Point3D
	out io.Writer
}

func (c console) Position() geo.Point3D { return c.pos }

func (c console) SendMessage(text string) { fmt.Fprintln(c.out, text) }

type target geo.Point3D

func (t target) Position() geo.Point3D { return geo.Point3D(t) }

// execute runs one query command against the engine.
func execute(ctx context.Context, e *geo.Engine, out io.Writer, cmd string, args []string) error {
	switch cmd {
	case "regions":
		return listRegions(e, out)

	case "pos":
		v, err := ints(args, 2)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, e.GeoPosition(v[0], v[1]))
		fmt.Fprintf(out, "type: %s\n", e.GetType(v[0], v[1]))

	case "height":
		v, err := ints(args, 3)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, e.GetHeight(v[0], v[1], v[2]))

	case "spawn":
		v, err := ints(args, 4)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, e.GetSpawnHeight(v[0], v[1], v[2], v[3], 0))

	case "nswe":
		v, err := ints(args, 3)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%04b\n", e.GetNSWE(v[0], v[1], v[2]))

	case "move":
		v, err := ints(args, 6)
		if err != nil {
			return err
		}
		p := e.MoveCheck(v[0], v[1], v[2], v[3], v[4], v[5])
		fmt.Fprintf(out, "%d %d %d\n", p.X, p.Y, p.Z)

	case "los":
		v, err := ints(args, 6)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, e.CanSeeTarget(v[0], v[1], v[2], v[3], v[4], v[5]))

	case "trace":
		v, err := ints(args, 6)
		if err != nil {
			return err
		}
		gm := console{pos: geo.Point3D{X: v[0], Y: v[1], Z: v[2]}, out: out}
		fmt.Fprintln(out, e.CanSeeTargetDebug(gm, target{X: v[3], Y: v[4], Z: v[5]}))

	case "path":
		v, err := ints(args, 6)
		if err != nil {
			return err
		}
		path := e.FindPath(v[0], v[1], v[2], v[3], v[4], v[5])
		if path == nil {
			return fmt.Errorf("no path from %d %d %d to %d %d %d", v[0], v[1], v[2], v[3], v[4], v[5])
		}
		for _, p := range path {
			fmt.Fprintf(out, "%d %d %d\n", p.X, p.Y, p.Z)
		}

	case "bug":
		if len(args) < 4 {
			return fmt.Errorf("bug: want x y z comment, got %d args", len(args))
		}
		v, err := ints(args[:3], 3)
		if err != nil {
			return err
		}
		gm := console{pos: geo.Point3D{X: v[0], Y: v[1], Z: v[2]}, out: out}
		if !e.AddGeoDataBug(ctx, gm, strings.Join(args[3:], " ")) {
			return errors.New("bug report not saved")
		}

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func listRegions(e *geo.Engine, out io.Writer) error {
	regions := e.Store().Regions()
	for _, r := range regions {
		fmt.Fprintf(out, "%d_%d size=%d indexed=%t layers=%d\n",
			r.RX(), r.RY(), r.Size(), r.Indexed(), r.MaxLayers())
	}
	fmt.Fprintf(out, "%d regions, max layers %d\n", len(regions), e.Store().MaxLayers())
	return nil
}

// ints parses exactly n int32 arguments.
func ints(args []string, n int) ([]int32, error) {
	if len(args) != n {
		return nil, fmt.Errorf("want %d args, got %d", n, len(args))
	}
	out := make([]int32, n)
	for i, a := range args {
		v, err := strconv.ParseInt(a, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i+1, err)
		}
		out[i] = int32(v)
	}
	return out, nil
}
