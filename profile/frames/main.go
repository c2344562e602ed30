// Profiling:
// go build ./profile/frames
// go tool pprof -http=":8000" -nodefraction=0.001 ./frames cpu.pprof

package main

import (
	"github.com/TheBitDrifter/loom"
	"github.com/pkg/profile"
)

type position struct {
	X float64
	Y float64
}

type velocity struct {
	X float64
	Y float64
}

func main() {
	frames := 10000
	entities := 10000
	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	run(frames, entities)
	p.Stop()
}

func run(frames, numEntities int) {
	engine := loom.New(loom.WithThreadCount(4))
	pos := loom.RegisterComponent[position](engine)
	vel := loom.RegisterComponent[velocity](engine)

	for i := 0; i < numEntities; i++ {
		id, err := engine.NewEntity()
		if err != nil {
			panic(err)
		}
		if err := loom.Add(engine, id, pos, position{}); err != nil {
			panic(err)
		}
		if err := loom.Add(engine, id, vel, velocity{X: 1, Y: 1}); err != nil {
			panic(err)
		}
	}

	engine.RegisterSystem(func(f *loom.Frame) {
		p, _ := loom.ViewOf(f, pos)
		v, _ := loom.ViewOf(f, vel)
		cursor := f.Cursor()
		for cursor.Next() {
			pp := p.GetFromCursor(cursor)
			vv := v.GetFromCursor(cursor)
			pp.X += vv.X
			pp.Y += vv.Y
		}
	}, loom.Reads(vel), loom.Writes(pos))

	engine.RegisterSystem(func(f *loom.Frame) {
		v, _ := loom.ViewOf(f, vel)
		cursor := f.Cursor()
		for cursor.Next() {
			vv := v.GetFromCursor(cursor)
			vv.X *= 0.999
			vv.Y *= 0.999
		}
	}, loom.Writes(vel))

	for i := 0; i < frames; i++ {
		engine.RunFrame()
	}
}
