package main

import (
	"github.com/eleven-am/sightline/internal/bootstrap"
)

// @title Sightline API
// @version 1.0.0
// @description Narration gateway for camera-equipped devices

// @BasePath /api/v1

func main() {
	bootstrap.Run()
}
