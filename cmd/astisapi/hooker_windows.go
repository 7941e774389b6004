package main

import "github.com/asticode/go-astisapi/ducking"

func newHooker() ducking.Hooker {
	return ducking.NewHooker()
}
