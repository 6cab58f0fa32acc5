//go:build js && wasm

// Package main provides WebAssembly bindings for the tile conversions.
// This file contains only JavaScript glue code - all actual conversion
// logic is in the internal/fbtile package.
package main

import (
	"syscall/js"

	"github.com/rcarmo/go-fbtile/internal/fbtile"
)

// convertArgs are the arguments shared by tile and detile:
// layout, width, height, bytesPerPixel, src, dst.
type convertArgs struct {
	layout fbtile.Layout
	width  int
	height int
	bpp    int
	src    []byte
	dst    js.Value
}

func parseConvertArgs(args []js.Value) (convertArgs, bool) {
	if len(args) < 6 {
		return convertArgs{}, false
	}

	layout, err := fbtile.ParseLayout(args[0].String())
	if err != nil {
		println("goFBTile:", err.Error())
		return convertArgs{}, false
	}

	srcArray := args[4]
	src := make([]byte, srcArray.Get("length").Int())
	js.CopyBytesToGo(src, srcArray)

	return convertArgs{
		layout: layout,
		width:  args[1].Int(),
		height: args[2].Int(),
		bpp:    args[3].Int(),
		src:    src,
		dst:    args[5],
	}, true
}

func convert(op fbtile.Op, args []js.Value) interface{} {
	a, ok := parseConvertArgs(args)
	if !ok {
		return false
	}

	stride := a.width * a.bpp
	dst := make([]byte, a.dst.Get("length").Int())
	if err := fbtile.Convert(op, a.layout, a.width, a.height, dst, stride, a.src, stride, a.bpp); err != nil {
		println("goFBTile:", err.Error())
		return false
	}

	js.CopyBytesToJS(a.dst, dst)
	return true
}

// jsTile is the JS wrapper for tiling a linear buffer
func jsTile(this js.Value, args []js.Value) interface{} {
	return convert(fbtile.OpTile, args)
}

// jsDetile is the JS wrapper for detiling a tiled buffer
func jsDetile(this js.Value, args []js.Value) interface{} {
	return convert(fbtile.OpDetile, args)
}

// jsLayouts returns the names of the tiled layouts
func jsLayouts(this js.Value, args []js.Value) interface{} {
	var names []interface{}
	for _, l := range fbtile.Layouts() {
		names = append(names, l.String())
	}
	return names
}

// jsSetWalker selects the walker used by later conversions
func jsSetWalker(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return false
	}
	w, err := fbtile.ParseWalker(args[0].String())
	if err != nil {
		return false
	}
	fbtile.SetDefaultWalker(w)
	return true
}

func main() {
	c := make(chan struct{})

	js.Global().Set("goFBTile", js.ValueOf(map[string]interface{}{
		"tile":      js.FuncOf(jsTile),
		"detile":    js.FuncOf(jsDetile),
		"layouts":   js.FuncOf(jsLayouts),
		"setWalker": js.FuncOf(jsSetWalker),
	}))

	println("Go WASM fbtile module loaded")

	<-c
}
