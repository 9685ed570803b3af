package main

import (
	"actiapp.dev/backend/cmd/app"
)

func main() {
	app.Run()
}
