package main

import (
	"go.uber.org/fx"

	"github.com/supersunho/senseinfo/internal/app"
)

func main() {
	fx.New(app.CreateApp()).Run()
}
